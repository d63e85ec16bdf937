package explorer

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Outcome tags the result of one fetch step. Ordinary upstream failures never
// surface as errors to callers; they collapse into these tags plus a logged
// diagnostic.
type Outcome int

const (
	// OutcomeOK means the fetch succeeded and returned usable data.
	OutcomeOK Outcome = iota
	// OutcomeNotVerified means the upstream reports no published source for
	// the address. Expected negative result, not an error.
	OutcomeNotVerified
	// OutcomeUnavailable covers HTTP failures, API-level error statuses,
	// malformed payloads, and timeouts.
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotVerified:
		return "not_verified"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ContractSource is the verified source payload for one address.
type ContractSource struct {
	Name                 string
	SourceCode           string
	CompilerVersion      string
	Optimization         bool
	Runs                 int
	ConstructorArguments string
	ABI                  string
}

// envelope is the standard Etherscan-family response wrapper for module
// endpoints (status "1" on success, "0" on error or empty result).
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// proxyEnvelope wraps proxy-module endpoints, which relay JSON-RPC responses
// and carry no status field.
type proxyEnvelope struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// sourceEntry is one element of the contract.getsourcecode result array. All
// fields arrive as strings; numeric and boolean fields are decoded explicitly
// rather than defaulted.
type sourceEntry struct {
	SourceCode           string `json:"SourceCode"`
	ABI                  string `json:"ABI"`
	ContractName         string `json:"ContractName"`
	CompilerVersion      string `json:"CompilerVersion"`
	OptimizationUsed     string `json:"OptimizationUsed"`
	Runs                 string `json:"Runs"`
	ConstructorArguments string `json:"ConstructorArguments"`
}

// toContractSource converts the loosely typed upstream entry into the strict
// intermediate structure. An unverified entry (empty SourceCode) yields nil.
func (e *sourceEntry) toContractSource() (*ContractSource, error) {
	if e.SourceCode == "" {
		return nil, nil
	}

	runs := 0
	if e.Runs != "" {
		parsed, err := strconv.Atoi(e.Runs)
		if err != nil {
			return nil, fmt.Errorf("malformed Runs field %q: %w", e.Runs, err)
		}
		runs = parsed
	}

	return &ContractSource{
		Name:                 e.ContractName,
		SourceCode:           e.SourceCode,
		CompilerVersion:      e.CompilerVersion,
		Optimization:         e.OptimizationUsed == "1",
		Runs:                 runs,
		ConstructorArguments: e.ConstructorArguments,
		ABI:                  e.ABI,
	}, nil
}

package models

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Contract represents one verified contract admitted by the discovery
// pipeline. Identity for deduplication is content-based (BytecodeHash and
// SourceHash), not address-based: the same bytecode redeployed elsewhere, or
// the same source compiled for another chain, is a duplicate.
type Contract struct {
	ID                   int64     `db:"id" json:"id"`
	Chain                string    `db:"chain" json:"chain"`
	ChainID              int64     `db:"chain_id" json:"chain_id"`
	Address              string    `db:"address" json:"address"`
	Name                 string    `db:"name" json:"name"`
	SourceCode           string    `db:"source_code" json:"source_code"`
	Bytecode             string    `db:"bytecode" json:"bytecode"`
	CompilerVersion      string    `db:"compiler_version" json:"compiler_version"`
	Optimization         bool      `db:"optimization" json:"optimization"`
	Runs                 int       `db:"runs" json:"runs"`
	ConstructorArguments string    `db:"constructor_arguments" json:"constructor_arguments"`
	ABI                  string    `db:"abi" json:"abi"`
	CreationTxHash       *string   `db:"creation_txhash" json:"creation_txhash,omitempty"`
	BlockNumber          int64     `db:"block_number" json:"block_number"`
	VerifiedAt           time.Time `db:"verified_at" json:"verified_at"`
	BytecodeHash         string    `db:"bytecode_hash" json:"bytecode_hash"`
	SourceHash           string    `db:"source_hash" json:"source_hash"`
	Summary              *string   `db:"summary" json:"summary,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

// ContractFilter holds optional query criteria. Chain and Address match
// exactly; Name and CompilerVersion match as substrings.
type ContractFilter struct {
	Chain           string
	Name            string
	CompilerVersion string
	Address         string
	Optimization    *bool
}

// Keys of Statistics.OptimizationSplit.
const (
	OptimizationOn  = "optimized"
	OptimizationOff = "unoptimized"
)

// Statistics summarizes the stored contract corpus.
type Statistics struct {
	TotalContracts    int64            `json:"total_contracts"`
	ByChain           map[string]int64 `json:"by_chain"`
	OptimizationSplit map[string]int64 `json:"optimization_split"`
	TopCompilers      []CompilerCount  `json:"top_compilers"`
}

// CompilerCount pairs a compiler version with its usage count.
type CompilerCount struct {
	CompilerVersion string `json:"compiler_version" db:"compiler_version"`
	Count           int64  `json:"count" db:"count"`
}

// NormalizeAddress canonicalizes a contract address to its lowercased hex
// form. Address identity is case-insensitive; the lowercased form is what the
// store keys on.
func NormalizeAddress(address string) string {
	return strings.ToLower(common.HexToAddress(address).Hex())
}

// IsValidAddress reports whether address is a well-formed 20-byte hex address.
func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

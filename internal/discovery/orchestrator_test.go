package discovery

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"web3loc/internal/explorer"
	"web3loc/internal/scanner"
)

type fakeFetcher struct {
	chain     string
	chainID   int64
	reachable bool
	sources   map[string]*explorer.ContractSource
	bytecodes map[string]string
}

func (f *fakeFetcher) ChainName() string { return f.chain }
func (f *fakeFetcher) ChainID() int64    { return f.chainID }

func (f *fakeFetcher) TestConnection(ctx context.Context) bool { return f.reachable }

func (f *fakeFetcher) FetchSource(ctx context.Context, address string) (*explorer.ContractSource, explorer.Outcome) {
	src, ok := f.sources[address]
	if !ok {
		return nil, explorer.OutcomeUnavailable
	}
	if src == nil {
		return nil, explorer.OutcomeNotVerified
	}
	return src, explorer.OutcomeOK
}

func (f *fakeFetcher) FetchBytecode(ctx context.Context, address string) (string, explorer.Outcome) {
	code, ok := f.bytecodes[address]
	if !ok {
		return "", explorer.OutcomeUnavailable
	}
	return code, explorer.OutcomeOK
}

const (
	ethAddr1  = "0x0000000000000000000000000000000000000e01"
	ethAddr2  = "0x0000000000000000000000000000000000000e02"
	baseAddr1 = "0x0000000000000000000000000000000000000b01"
)

func source(name, code string) *explorer.ContractSource {
	return &explorer.ContractSource{Name: name, SourceCode: code, CompilerVersion: "v0.8.19"}
}

func newOrchestrator(fetchers map[string]scanner.Fetcher, candidates map[string][]string) *Orchestrator {
	return NewOrchestrator(fetchers, candidates, zap.NewNop())
}

func TestDiscoverTwoDistinctContracts(t *testing.T) {
	eth := &fakeFetcher{
		chain: "ethereum", chainID: 1, reachable: true,
		sources: map[string]*explorer.ContractSource{
			ethAddr1: source("TokenA", "contract A {}"),
			ethAddr2: source("TokenB", "contract B {}"),
		},
		bytecodes: map[string]string{ethAddr1: "0xaa", ethAddr2: "0xbb"},
	}

	o := newOrchestrator(
		map[string]scanner.Fetcher{"ethereum": eth},
		map[string][]string{"ethereum": {ethAddr1, ethAddr2}},
	)

	result := o.Discover(context.Background(), []string{"ethereum"}, 2)

	if len(result.Accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d", len(result.Accepted))
	}
	if result.DuplicatesSkipped != 0 {
		t.Errorf("expected 0 duplicates, got %d", result.DuplicatesSkipped)
	}
	if result.Errors != 0 {
		t.Errorf("expected 0 errors, got %d", result.Errors)
	}
}

func TestDiscoverCrossChainGlobalDedup(t *testing.T) {
	// The same bytecode and source deployed on two chains: exactly one of the
	// two independently discovered records survives the merge.
	eth := &fakeFetcher{
		chain: "ethereum", chainID: 1, reachable: true,
		sources:   map[string]*explorer.ContractSource{ethAddr1: source("WETH", "contract WETH {}")},
		bytecodes: map[string]string{ethAddr1: "0xfeed"},
	}
	base := &fakeFetcher{
		chain: "base", chainID: 8453, reachable: true,
		sources:   map[string]*explorer.ContractSource{baseAddr1: source("WETH", "contract WETH {}")},
		bytecodes: map[string]string{baseAddr1: "0xfeed"},
	}

	o := newOrchestrator(
		map[string]scanner.Fetcher{"ethereum": eth, "base": base},
		map[string][]string{"ethereum": {ethAddr1}, "base": {baseAddr1}},
	)

	result := o.Discover(context.Background(), []string{"ethereum", "base"}, 5)

	if len(result.Accepted) != 1 {
		t.Fatalf("expected exactly 1 accepted across chains, got %d", len(result.Accepted))
	}
	if result.DuplicatesSkipped != 1 {
		t.Errorf("expected 1 global duplicate skipped, got %d", result.DuplicatesSkipped)
	}
}

func TestDiscoverPerChainFailureIsolation(t *testing.T) {
	broken := &fakeFetcher{chain: "ethereum", chainID: 1, reachable: false}
	healthy := &fakeFetcher{
		chain: "base", chainID: 8453, reachable: true,
		sources:   map[string]*explorer.ContractSource{baseAddr1: source("USDC", "contract USDC {}")},
		bytecodes: map[string]string{baseAddr1: "0xc0de"},
	}

	o := newOrchestrator(
		map[string]scanner.Fetcher{"ethereum": broken, "base": healthy},
		map[string][]string{"ethereum": {ethAddr1}, "base": {baseAddr1}},
	)

	result := o.Discover(context.Background(), []string{"ethereum", "base"}, 5)

	if len(result.Accepted) != 1 {
		t.Fatalf("healthy chain should still contribute, got %d accepted", len(result.Accepted))
	}
	if result.Accepted[0].Chain != "base" {
		t.Errorf("expected record from base, got %s", result.Accepted[0].Chain)
	}
	if result.Errors != 1 {
		t.Errorf("expected errors to reflect only the broken chain, got %d", result.Errors)
	}
}

func TestDiscoverUnknownChain(t *testing.T) {
	o := newOrchestrator(map[string]scanner.Fetcher{}, map[string][]string{})

	result := o.Discover(context.Background(), []string{"ghostchain"}, 5)

	if len(result.Accepted) != 0 {
		t.Errorf("expected no records, got %d", len(result.Accepted))
	}
	if result.Errors != 1 {
		t.Errorf("expected 1 error for unconfigured chain, got %d", result.Errors)
	}
}

func TestDiscoverZeroLimit(t *testing.T) {
	eth := &fakeFetcher{chain: "ethereum", chainID: 1, reachable: true}
	o := newOrchestrator(
		map[string]scanner.Fetcher{"ethereum": eth},
		map[string][]string{"ethereum": {ethAddr1}},
	)

	result := o.Discover(context.Background(), []string{"ethereum"}, 0)

	if len(result.Accepted) != 0 || result.Errors != 0 {
		t.Errorf("expected empty result for zero limit, got %+v", result)
	}
}

func TestVerifyConnectivity(t *testing.T) {
	tests := []struct {
		name      string
		fetchers  map[string]scanner.Fetcher
		expectErr bool
	}{
		{
			name: "all reachable",
			fetchers: map[string]scanner.Fetcher{
				"ethereum": &fakeFetcher{chain: "ethereum", reachable: true},
				"base":     &fakeFetcher{chain: "base", reachable: true},
			},
		},
		{
			name: "one unreachable",
			fetchers: map[string]scanner.Fetcher{
				"ethereum": &fakeFetcher{chain: "ethereum", reachable: true},
				"base":     &fakeFetcher{chain: "base", reachable: false},
			},
			expectErr: true,
		},
		{
			name:     "no chains",
			fetchers: map[string]scanner.Fetcher{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrchestrator(tt.fetchers, map[string][]string{})
			err := o.VerifyConnectivity(context.Background())
			if tt.expectErr && err == nil {
				t.Error("expected connectivity error")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDiscoverCancellation(t *testing.T) {
	eth := &fakeFetcher{
		chain: "ethereum", chainID: 1, reachable: true,
		sources:   map[string]*explorer.ContractSource{ethAddr1: source("TokenA", "contract A {}")},
		bytecodes: map[string]string{ethAddr1: "0xaa"},
	}

	o := newOrchestrator(
		map[string]scanner.Fetcher{"ethereum": eth},
		map[string][]string{"ethereum": {ethAddr1, ethAddr2}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled run still returns a result object rather than hanging or
	// panicking; contributions depend on how far scanners got.
	result := o.Discover(ctx, []string{"ethereum"}, 5)
	if result.Errors < 0 {
		t.Fatal("unreachable")
	}
}

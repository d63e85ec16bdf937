// Package discovery fans chain scanners out across configured chains, merges
// their results, and applies the run-global deduplication pass.
package discovery

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"web3loc/internal/dedup"
	"web3loc/internal/models"
	"web3loc/internal/scanner"
)

// Result is the aggregate outcome of one discovery run. Discovery never
// fails as a whole: callers distinguish "nothing found" from "pipeline
// broken" via Errors and the logs.
type Result struct {
	Accepted          []models.Contract `json:"accepted"`
	DuplicatesSkipped int               `json:"duplicates_skipped"`
	Errors            int               `json:"errors"`
}

// Orchestrator runs one scanner per requested chain and merges emissions
// through a run-global dedup tracker, so byte-identical contracts discovered
// independently on two chains are counted once.
type Orchestrator struct {
	fetchers   map[string]scanner.Fetcher
	candidates map[string][]string
	logger     *zap.Logger
}

// NewOrchestrator creates an orchestrator over the given per-chain fetchers
// and candidate address lists, both keyed by chain name.
func NewOrchestrator(fetchers map[string]scanner.Fetcher, candidates map[string][]string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		fetchers:   fetchers,
		candidates: candidates,
		logger:     logger.Named("discovery"),
	}
}

// Chains returns the chain names this orchestrator can scan.
func (o *Orchestrator) Chains() []string {
	names := make([]string, 0, len(o.fetchers))
	for name := range o.fetchers {
		names = append(names, name)
	}
	return names
}

// VerifyConnectivity probes every configured explorer and returns the
// combined failures, one per unreachable chain. A nil return means every
// chain answered its probe.
func (o *Orchestrator) VerifyConnectivity(ctx context.Context) error {
	var errs error
	for name, fetcher := range o.fetchers {
		if !fetcher.TestConnection(ctx) {
			errs = multierr.Append(errs, fmt.Errorf("explorer for chain %s unreachable", name))
		}
	}
	return errs
}

// Discover scans the requested chains concurrently, limitPerChain accepted
// records each. Chains fail independently: an unreachable explorer zeroes
// that chain's contribution and bumps Errors, nothing more. There is no
// intra-run retry; scheduling retries belongs to the caller.
func (o *Orchestrator) Discover(ctx context.Context, chains []string, limitPerChain int) Result {
	var result Result
	if limitPerChain <= 0 {
		return result
	}

	global := dedup.NewTracker()
	reports := make(chan scanner.Report, len(chains))

	var wg sync.WaitGroup
	for _, chain := range chains {
		fetcher, ok := o.fetchers[chain]
		if !ok {
			o.logger.Warn("Requested chain is not configured", zap.String("chain", chain))
			result.Errors++
			continue
		}

		wg.Add(1)
		go func(chain string, fetcher scanner.Fetcher) {
			defer wg.Done()
			s := scanner.New(fetcher, o.candidates[chain], o.logger)
			reports <- s.Scan(ctx, limitPerChain)
		}(chain, fetcher)
	}

	go func() {
		wg.Wait()
		close(reports)
	}()

	// Merge order across chains is unspecified; the global tracker makes the
	// merge commutative. CheckAndAdmit is atomic under the tracker's lock, so
	// two chains can never both admit the same content.
	for report := range reports {
		result.Errors += report.Errors
		result.DuplicatesSkipped += report.DuplicatesSkipped

		for _, record := range report.Records {
			if global.CheckAndAdmit(record.BytecodeHash, record.SourceHash) {
				result.Accepted = append(result.Accepted, record)
			} else {
				o.logger.Info("Skipping cross-chain duplicate",
					zap.String("chain", record.Chain),
					zap.String("address", record.Address))
				result.DuplicatesSkipped++
			}
		}
	}

	o.logger.Info("Discovery run complete",
		zap.Int("chains", len(chains)),
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("duplicates_skipped", result.DuplicatesSkipped),
		zap.Int("errors", result.Errors))
	return result
}

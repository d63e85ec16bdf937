// Package scanner drives the per-chain discovery loop: iterate candidate
// addresses, fetch source and bytecode, hash, deduplicate, emit records.
package scanner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"web3loc/internal/dedup"
	"web3loc/internal/explorer"
	"web3loc/internal/models"
)

// State tracks scanner progress through one discovery run.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateScanning   State = "scanning"
	StateDraining   State = "draining"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Fetcher is the explorer surface the scanner needs. The concrete
// implementation is explorer.Client.
type Fetcher interface {
	ChainName() string
	ChainID() int64
	FetchSource(ctx context.Context, address string) (*explorer.ContractSource, explorer.Outcome)
	FetchBytecode(ctx context.Context, address string) (string, explorer.Outcome)
	TestConnection(ctx context.Context) bool
}

// Report summarizes one chain scan. Records holds everything admitted before
// the scan ended, including partial results after cancellation.
type Report struct {
	Chain             string
	Records           []models.Contract
	DuplicatesSkipped int
	Errors            int
	State             State
}

// Scanner walks one chain's candidate addresses and emits unique verified
// contracts. Requests are sequential; the chain's rate budget is per API key,
// so parallelism within a chain buys nothing.
type Scanner struct {
	fetcher    Fetcher
	candidates []string
	tracker    *dedup.Tracker
	logger     *zap.Logger
	state      State
}

// New creates a scanner with a fresh per-scan dedup tracker.
func New(fetcher Fetcher, candidates []string, logger *zap.Logger) *Scanner {
	return &Scanner{
		fetcher:    fetcher,
		candidates: candidates,
		tracker:    dedup.NewTracker(),
		logger:     logger.Named("scanner").With(zap.String("chain", fetcher.ChainName())),
		state:      StateIdle,
	}
}

// State returns the scanner's current state.
func (s *Scanner) State() State {
	return s.state
}

// Scan runs one discovery pass, emitting at most limit accepted records. It
// terminates when the candidate list is exhausted, the limit is reached, or
// ctx is cancelled; per-address failures are counted and skipped, never
// fatal. Only an unreachable explorer fails the whole scan.
func (s *Scanner) Scan(ctx context.Context, limit int) Report {
	report := Report{Chain: s.fetcher.ChainName()}

	s.state = StateConnecting
	if !s.fetcher.TestConnection(ctx) {
		s.logger.Warn("Explorer unreachable, chain scan aborted")
		s.state = StateFailed
		report.State = StateFailed
		report.Errors++
		return report
	}

	s.state = StateScanning
	s.logger.Info("Scan started",
		zap.Int("candidates", len(s.candidates)),
		zap.Int("limit", limit))

	for _, address := range s.candidates {
		if len(report.Records) >= limit {
			break
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Scan cancelled, returning partial results",
				zap.Int("accepted", len(report.Records)))
			s.finish(&report)
			return report
		default:
		}

		record, outcome := s.probe(ctx, address)
		switch outcome {
		case probeAccepted:
			report.Records = append(report.Records, *record)
		case probeDuplicate:
			report.DuplicatesSkipped++
		case probeSkipped:
			// not verified or no code; expected, nothing to count
		case probeError:
			report.Errors++
		}
	}

	s.finish(&report)
	s.logger.Info("Scan finished",
		zap.Int("accepted", len(report.Records)),
		zap.Int("duplicates_skipped", report.DuplicatesSkipped),
		zap.Int("errors", report.Errors))
	return report
}

type probeOutcome int

const (
	probeAccepted probeOutcome = iota
	probeDuplicate
	probeSkipped
	probeError
)

// probe processes one candidate address through the full pipeline step:
// source fetch, bytecode fetch, hashing, dedup decision, record assembly.
func (s *Scanner) probe(ctx context.Context, address string) (*models.Contract, probeOutcome) {
	if !models.IsValidAddress(address) {
		s.logger.Warn("Skipping malformed candidate address", zap.String("address", address))
		return nil, probeError
	}
	normalized := models.NormalizeAddress(address)

	source, outcome := s.fetcher.FetchSource(ctx, normalized)
	switch outcome {
	case explorer.OutcomeNotVerified:
		s.logger.Debug("Contract not verified", zap.String("address", normalized))
		return nil, probeSkipped
	case explorer.OutcomeUnavailable:
		s.logger.Debug("Source unavailable", zap.String("address", normalized))
		return nil, probeError
	}

	bytecode, outcome := s.fetcher.FetchBytecode(ctx, normalized)
	if outcome != explorer.OutcomeOK {
		s.logger.Debug("Bytecode unavailable", zap.String("address", normalized))
		return nil, probeError
	}

	bytecodeHash := dedup.HashBytecode(bytecode)
	sourceHash := dedup.HashSource(source.SourceCode)

	if !s.tracker.CheckAndAdmit(bytecodeHash, sourceHash) {
		s.logger.Debug("Skipping duplicate contract",
			zap.String("address", normalized),
			zap.String("bytecode_hash", bytecodeHash))
		return nil, probeDuplicate
	}

	record := &models.Contract{
		Chain:                s.fetcher.ChainName(),
		ChainID:              s.fetcher.ChainID(),
		Address:              normalized,
		Name:                 source.Name,
		SourceCode:           source.SourceCode,
		Bytecode:             bytecode,
		CompilerVersion:      source.CompilerVersion,
		Optimization:         source.Optimization,
		Runs:                 source.Runs,
		ConstructorArguments: source.ConstructorArguments,
		ABI:                  source.ABI,
		BlockNumber:          0, // unknown via this discovery path
		VerifiedAt:           time.Now().UTC(),
		BytecodeHash:         bytecodeHash,
		SourceHash:           sourceHash,
	}

	s.logger.Info("Accepted unique contract",
		zap.String("address", normalized),
		zap.String("name", record.Name))
	return record, probeAccepted
}

func (s *Scanner) finish(report *Report) {
	s.state = StateDraining
	report.State = StateDone
	s.state = StateDone
}

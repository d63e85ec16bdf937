// Package service composes the discovery pipeline: it runs the orchestrator
// and persists admitted records, folding storage conflicts back into the
// duplicate count.
package service

import (
	"context"

	"go.uber.org/zap"

	"web3loc/internal/discovery"
	"web3loc/internal/models"
)

// Discoverer is the orchestrator surface the service depends on.
type Discoverer interface {
	Discover(ctx context.Context, chains []string, limitPerChain int) discovery.Result
	Chains() []string
}

// ContractStore is the persistence surface the service depends on. The
// concrete implementation is database.DB.
type ContractStore interface {
	InsertContract(ctx context.Context, contract *models.Contract) (bool, error)
}

// DiscoveryService runs discovery and persists results. The store's
// uniqueness constraints carry dedup across runs; the orchestrator's
// in-memory trackers only pre-filter within one run.
type DiscoveryService struct {
	orchestrator Discoverer
	store        ContractStore
	logger       *zap.Logger
}

// NewDiscoveryService creates a discovery service.
func NewDiscoveryService(orchestrator Discoverer, store ContractStore, logger *zap.Logger) *DiscoveryService {
	return &DiscoveryService{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger.Named("service"),
	}
}

// AvailableChains returns the chains discovery can scan.
func (s *DiscoveryService) AvailableChains() []string {
	return s.orchestrator.Chains()
}

// Discover runs one discovery pass over the given chains and persists every
// record the orchestrator accepted. Records already known to the store are
// dropped from Accepted and counted as duplicates; insert failures are
// counted as errors. The returned result never carries an error: counts and
// logs are the failure surface.
func (s *DiscoveryService) Discover(ctx context.Context, chains []string, limitPerChain int) discovery.Result {
	result := s.orchestrator.Discover(ctx, chains, limitPerChain)

	stored := result.Accepted[:0]
	for i := range result.Accepted {
		record := &result.Accepted[i]

		accepted, err := s.store.InsertContract(ctx, record)
		if err != nil {
			s.logger.Error("Failed to persist contract",
				zap.String("chain", record.Chain),
				zap.String("address", record.Address),
				zap.Error(err))
			result.Errors++
			continue
		}
		if !accepted {
			// Conflict on a hash column: content admitted in an earlier run.
			s.logger.Info("Contract already stored, skipping",
				zap.String("chain", record.Chain),
				zap.String("address", record.Address))
			result.DuplicatesSkipped++
			continue
		}
		stored = append(stored, *record)
	}
	result.Accepted = stored

	s.logger.Info("Discovery persisted",
		zap.Int("stored", len(result.Accepted)),
		zap.Int("duplicates_skipped", result.DuplicatesSkipped),
		zap.Int("errors", result.Errors))
	return result
}

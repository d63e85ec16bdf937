// Package worker schedules recurring discovery runs in the background.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"web3loc/internal/discovery"
)

// Constants for worker configuration
const (
	// ScanTimeout bounds a single scheduled discovery cycle. A cycle that
	// exceeds it is cancelled and its partial results are still persisted.
	ScanTimeout = 10 * time.Minute
)

// DiscoveryRunner is the service surface the scheduler drives. The concrete
// implementation is service.DiscoveryService.
type DiscoveryRunner interface {
	Discover(ctx context.Context, chains []string, limitPerChain int) discovery.Result
	AvailableChains() []string
}

// Manager runs discovery on a fixed interval across all configured chains.
// Cycles never overlap: a run that outlasts the interval simply delays the
// next tick's work.
type Manager struct {
	service       DiscoveryRunner
	interval      time.Duration
	limitPerChain int
	logger        *zap.Logger

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a scheduler over the given discovery service.
func NewManager(service DiscoveryRunner, interval time.Duration, limitPerChain int, logger *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		service:       service,
		interval:      interval,
		limitPerChain: limitPerChain,
		logger:        logger.Named("worker"),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches the scheduling goroutine. The first cycle runs immediately,
// subsequent cycles follow the configured interval.
func (m *Manager) Start() {
	m.logger.Info("Starting discovery scheduler",
		zap.Duration("interval", m.interval),
		zap.Int("limit_per_chain", m.limitPerChain))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(m.ctx)
	}()
}

// Shutdown gracefully stops the scheduler, waiting up to timeout for an
// in-flight cycle to finish.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.logger.Info("Shutting down discovery scheduler")

	// Signal the scheduler to stop
	m.cancel()

	// Wait for the current cycle with timeout
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("Discovery scheduler stopped gracefully")
	case <-time.After(timeout):
		m.logger.Warn("Discovery scheduler shutdown timed out")
	}

	return nil
}

// run is the scheduling loop.
func (m *Manager) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Initial cycle
	m.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Discovery scheduler stopping")
			return
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

// cycle executes one scheduled discovery run over every configured chain.
func (m *Manager) cycle(ctx context.Context) {
	chains := m.service.AvailableChains()
	if len(chains) == 0 {
		m.logger.Warn("No chains configured, skipping scheduled discovery")
		return
	}

	cycleCtx, cancel := context.WithTimeout(ctx, ScanTimeout)
	defer cancel()

	m.logger.Info("Scheduled discovery cycle starting",
		zap.Strings("chains", chains))

	result := m.service.Discover(cycleCtx, chains, m.limitPerChain)

	m.logger.Info("Scheduled discovery cycle finished",
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("duplicates_skipped", result.DuplicatesSkipped),
		zap.Int("errors", result.Errors))
}

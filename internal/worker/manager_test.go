package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"web3loc/internal/discovery"
)

type fakeRunner struct {
	chains []string
	calls  atomic.Int64
}

func (f *fakeRunner) Discover(ctx context.Context, chains []string, limitPerChain int) discovery.Result {
	f.calls.Add(1)
	return discovery.Result{}
}

func (f *fakeRunner) AvailableChains() []string {
	return f.chains
}

func TestManagerRunsImmediatelyAndOnInterval(t *testing.T) {
	runner := &fakeRunner{chains: []string{"ethereum"}}
	manager := NewManager(runner, 20*time.Millisecond, 5, zap.NewNop())

	manager.Start()
	time.Sleep(70 * time.Millisecond)
	if err := manager.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	// One immediate cycle plus at least one tick.
	if calls := runner.calls.Load(); calls < 2 {
		t.Errorf("expected at least 2 cycles, got %d", calls)
	}
}

func TestManagerSkipsCycleWithoutChains(t *testing.T) {
	runner := &fakeRunner{chains: nil}
	manager := NewManager(runner, 10*time.Millisecond, 5, zap.NewNop())

	manager.Start()
	time.Sleep(35 * time.Millisecond)
	if err := manager.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if calls := runner.calls.Load(); calls != 0 {
		t.Errorf("expected no discovery calls, got %d", calls)
	}
}

func TestManagerShutdownStopsScheduling(t *testing.T) {
	runner := &fakeRunner{chains: []string{"ethereum"}}
	manager := NewManager(runner, 10*time.Millisecond, 5, zap.NewNop())

	manager.Start()
	time.Sleep(25 * time.Millisecond)
	if err := manager.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	before := runner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if after := runner.calls.Load(); after != before {
		t.Errorf("cycles continued after shutdown: %d -> %d", before, after)
	}
}

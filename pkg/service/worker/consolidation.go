package worker

import (
	"context"
	"sync"
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/utils/errutil"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Sweeper runs one consolidation pass over every child
type Sweeper interface {
	ConsolidateAll(ctx context.Context) (*model.SweepResult, error)
}

// ConsolidationWorker runs the consolidation sweep on a fixed interval.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Sweeps never overlap; a tick that arrives during a sweep is dropped
type ConsolidationWorker struct {
	sweeper  Sweeper
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewConsolidationWorker creates a worker that sweeps every interval
func NewConsolidationWorker(sweeper Sweeper, interval time.Duration) *ConsolidationWorker {
	return &ConsolidationWorker{
		sweeper:  sweeper,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. The first sweep runs after one
// interval, not at startup.
func (w *ConsolidationWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("consolidation interval must be positive", goerr.V("interval", w.interval))
	}

	logging.Default().Info("Consolidation worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for the running sweep, if any
func (w *ConsolidationWorker) Stop() {
	w.stopOnce.Do(func() {
		logging.Default().Info("Consolidation worker stopping")
		close(w.stopCh)
		<-w.doneCh
		logging.Default().Info("Consolidation worker stopped")
	})
}

func (w *ConsolidationWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)

		case <-w.stopCh:
			logging.Default().Info("Consolidation worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Consolidation worker context cancelled")
			return
		}
	}
}

func (w *ConsolidationWorker) sweep(ctx context.Context) {
	// stop cancels an in-flight sweep between children
	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-sweepCtx.Done():
		}
	}()

	result, err := w.sweeper.ConsolidateAll(sweepCtx)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "consolidation sweep failed"), "will retry next interval")
		return
	}

	logging.Default().Info("Consolidation sweep completed",
		"succeeded", result.Succeeded(),
		"failed", result.Failed(),
		"duration", result.FinishedAt.Sub(result.StartedAt).String())
}

package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/repository/memory"
	"github.com/appu-labs/appu/pkg/service/worker"
	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/m-mizutani/gt"
)

// mockSweeper counts sweeps and optionally fails them
type mockSweeper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockSweeper) ConsolidateAll(ctx context.Context) (*model.SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	now := time.Now()
	return &model.SweepResult{StartedAt: now, FinishedAt: now}, nil
}

func (m *mockSweeper) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestConsolidationWorker_PeriodicSweep(t *testing.T) {
	sweeper := &mockSweeper{}
	w := worker.NewConsolidationWorker(sweeper, 20*time.Millisecond)

	gt.NoError(t, w.Start(context.Background())).Required()
	time.Sleep(110 * time.Millisecond)
	w.Stop()

	gt.Bool(t, sweeper.callCount() >= 2).True()
}

func TestConsolidationWorker_ContinuesAfterFailure(t *testing.T) {
	sweeper := &mockSweeper{err: errors.New("store down")}
	w := worker.NewConsolidationWorker(sweeper, 20*time.Millisecond)

	gt.NoError(t, w.Start(context.Background())).Required()
	time.Sleep(110 * time.Millisecond)
	w.Stop()

	gt.Bool(t, sweeper.callCount() >= 2).True()
}

func TestConsolidationWorker_StopsOnContextCancel(t *testing.T) {
	sweeper := &mockSweeper{}
	w := worker.NewConsolidationWorker(sweeper, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	gt.NoError(t, w.Start(ctx)).Required()
	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
	gt.Value(t, sweeper.callCount()).Equal(0)

	// second Stop is a no-op
	w.Stop()
}

func TestConsolidationWorker_InvalidInterval(t *testing.T) {
	w := worker.NewConsolidationWorker(&mockSweeper{}, 0)
	gt.Error(t, w.Start(context.Background()))
}

func TestConsolidationWorker_MergesDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := usecase.New(repo)

	for range 2 {
		uc.Formation.FormMemories(ctx, usecase.TurnInput{
			ChildID: "child-worker",
			Text:    "I love trains",
			Role:    types.RoleUser,
		})
	}
	before, err := repo.Memory().List(ctx, "child-worker")
	gt.NoError(t, err).Required()
	gt.Array(t, before).Length(2)

	w := worker.NewConsolidationWorker(uc.Consolidation, 20*time.Millisecond)
	gt.NoError(t, w.Start(ctx)).Required()
	time.Sleep(100 * time.Millisecond)
	w.Stop()

	after, err := repo.Memory().List(ctx, "child-worker")
	gt.NoError(t, err).Required()
	gt.Array(t, after).Length(1)
}

package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// blockingWorker runs until its context is cancelled.
type blockingWorker struct {
	started chan struct{}
}

func (w *blockingWorker) Run(ctx context.Context) error {
	select {
	case w.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil
}

// crashingWorker panics until it has run panics times, then blocks.
type crashingWorker struct {
	runs   atomic.Int32
	panics int32
}

func (w *crashingWorker) Run(ctx context.Context) error {
	if w.runs.Add(1) <= w.panics {
		panic("boom")
	}
	<-ctx.Done()
	return nil
}

// oneShotWorker returns nil immediately.
type oneShotWorker struct {
	runs atomic.Int32
}

func (w *oneShotWorker) Run(context.Context) error {
	w.runs.Add(1)
	return nil
}

func TestSupervisor_StopDrainsWorkers(t *testing.T) {
	req := require.New(t)
	supervisor := NewSupervisor(slog.Default())

	worker := &blockingWorker{started: make(chan struct{}, 1)}
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	// Given the worker is running
	select {
	case <-worker.started:
	case <-time.After(time.Second):
		t.Fatal("worker never started")
	}

	// When the supervisor stops
	supervisor.Stop()

	// Then Run returns once the worker drained
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not drain")
	}
	req.NotNil(supervisor.Cancel)
}

func TestSupervisor_RestartsAfterPanic(t *testing.T) {
	req := require.New(t)
	supervisor := NewSupervisor(slog.Default())

	worker := &crashingWorker{panics: 2}
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	// The worker panics twice; the third run sticks
	req.Eventually(func() bool {
		return worker.runs.Load() == 3
	}, 3*time.Second, 20*time.Millisecond)

	supervisor.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not drain")
	}
}

func TestSupervisor_CleanReturnIsNotRestarted(t *testing.T) {
	req := require.New(t)
	supervisor := NewSupervisor(slog.Default())

	worker := &oneShotWorker{}
	supervisor.Add(worker)
	supervisor.Run(context.Background())

	// Give a restart a chance to (wrongly) happen
	time.Sleep(2 * waitTimeBeforeRestart)
	req.Equal(int32(1), worker.runs.Load())
}

func TestSupervisor_ParentContextCancelStopsWorkers(t *testing.T) {
	req := require.New(t)
	supervisor := NewSupervisor(slog.Default())

	worker := &blockingWorker{started: make(chan struct{}, 1)}
	supervisor.Add(worker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(done)
	}()

	select {
	case <-worker.started:
	case <-time.After(time.Second):
		t.Fatal("worker never started")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop with its parent context")
	}
	req.Len(supervisor.workers, 1)
}

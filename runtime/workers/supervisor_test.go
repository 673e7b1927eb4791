package workers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mrarman0786/chat-app/contract"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingWorker fails or panics a fixed number of times, then runs until
// cancelled.
type countingWorker struct {
	runs       atomic.Int32
	failsLeft  atomic.Int32
	panicsLeft atomic.Int32
}

func (w *countingWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	if w.panicsLeft.Add(-1) >= 0 {
		panic("synthetic panic")
	}
	if w.failsLeft.Add(-1) >= 0 {
		return fmt.Errorf("synthetic failure")
	}
	<-ctx.Done()
	return nil
}

func TestSupervisor_Restarts_A_Crashing_Worker(t *testing.T) {
	req := require.New(t)
	worker := &countingWorker{}
	worker.failsLeft.Store(2)
	worker.panicsLeft.Store(-1)

	supervisor := NewSupervisor(quietLogger())
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		supervisor.Run(context.Background())
	}()

	// Two failures at 200ms backoff each, then the worker blocks on ctx
	req.Eventually(func() bool { return worker.runs.Load() == 3 },
		3*time.Second, 20*time.Millisecond)

	supervisor.Stop()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		req.Fail("supervisor did not drain after Stop")
	}
}

func TestSupervisor_Recovers_From_A_Panicking_Worker(t *testing.T) {
	req := require.New(t)
	worker := &countingWorker{}
	worker.panicsLeft.Store(1)
	worker.failsLeft.Store(-1)

	supervisor := NewSupervisor(quietLogger())
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		supervisor.Run(context.Background())
	}()

	req.Eventually(func() bool { return worker.runs.Load() == 2 },
		3*time.Second, 20*time.Millisecond)

	supervisor.Stop()
	<-done
}

func TestSupervisor_Clean_Return_Is_Final(t *testing.T) {
	req := require.New(t)
	var runs atomic.Int32
	worker := workerFunc(func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	supervisor := NewSupervisor(quietLogger())
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		supervisor.Run(context.Background())
	}()

	// Run returns once the worker finished cleanly, without a restart
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		req.Fail("supervisor kept running after clean worker exit")
	}
	req.Equal(int32(1), runs.Load())
}

type workerFunc func(ctx context.Context) error

func (f workerFunc) Run(ctx context.Context) error { return f(ctx) }

func TestGetWorkerName_Reports_The_Concrete_Type(t *testing.T) {
	req := require.New(t)

	req.Equal("countingWorker", contract.GetWorkerName(&countingWorker{}))
	req.Equal("NilWorker", contract.GetWorkerName(nil))
}

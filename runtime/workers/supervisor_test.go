package workers

import (
	"context"
	"fmt"
	"log/slog"
	"messenger/errors"
	"messenger/mocks"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// flakyWorker fails its first n runs, then returns cleanly.
type flakyWorker struct {
	failures int32
	runs     atomic.Int32
}

func (w *flakyWorker) Run(context.Context) error {
	if w.runs.Add(1) <= w.failures {
		return fmt.Errorf("run %d failed", w.runs.Load())
	}
	return nil
}

func TestSupervisor_Restarts_A_Panicking_Worker(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)

	// Given a worker that panics on its first run and then blocks
	var calls atomic.Int32
	worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		<-ctx.Done()
		return ctx.Err()
	}).Times(2)

	var restarted atomic.Value
	sup := NewSupervisor(logs.GetLoggerFromLevel(slog.LevelError), 10*time.Millisecond).
		OnRestart(func(name string) { restarted.Store(name) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Add(worker).Run(ctx)
		close(done)
	}()

	// Then it comes back once and the hook sees its name
	req.Eventually(func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	req.Equal("MockWorker", restarted.Load())
	req.Equal(map[string]int{"MockWorker": 1}, sup.Restarts())

	cancel()
	<-done
}

func TestSupervisor_Names_Identical_Workers_Apart(t *testing.T) {
	req := require.New(t)
	first, second := &flakyWorker{failures: 1}, &flakyWorker{failures: 2}
	sup := NewSupervisor(logs.GetLoggerFromLevel(slog.LevelError), time.Millisecond)

	// When both fail a few times before finishing
	sup.Add(first, second).Run(context.Background())

	// Then Run returned after both retired, with restarts counted per instance
	req.Equal(int32(2), first.runs.Load())
	req.Equal(int32(3), second.runs.Load())
	req.Equal(map[string]int{"flakyWorker": 1, "flakyWorker#2": 2}, sup.Restarts())
}

func TestSupervisor_Does_Not_Restart_A_Finished_Worker(t *testing.T) {
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).Return(nil).Times(1)

	sup := NewSupervisor(logs.GetLoggerFromLevel(slog.LevelError), 0)
	done := make(chan struct{})
	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		require.Empty(t, sup.Restarts())
	case <-time.After(500 * time.Millisecond):
		require.Fail(t, "Run should return once the worker finished")
	}
}

func TestSupervisor_Stop_Ends_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)
	started := make(chan struct{})
	worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	}).Times(1)

	sup := NewSupervisor(logs.GetLoggerFromLevel(slog.LevelError), 0)
	done := make(chan struct{})
	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	// When the supervisor is stopped mid-run
	<-started
	sup.Stop()

	// Then Run returns
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Run should return after Stop")
	}
}

func TestRunOnce_Wraps_Panics(t *testing.T) {
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(context.Context) error { panic("boom") })

	err := runOnce(context.Background(), worker)

	require.ErrorIs(t, err, errors.ErrWorkerPanic)
	require.Contains(t, err.Error(), "boom")
}

func TestSupervisor_Stop_From_Another_Goroutine_While_Run_Starts(t *testing.T) {
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}).MaxTimes(1)

	sup := NewSupervisor(logs.GetLoggerFromLevel(slog.LevelError), 0)
	// Before Run there is nothing to stop
	sup.Stop()

	done := make(chan struct{})
	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	// Stop keeps being called while Run sets up, until Run sees it
	for {
		sup.Stop()
		select {
		case <-done:
			return
		case <-time.After(time.Millisecond):
		}
	}
}

package workers

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"messenger/contract"
	"messenger/errors"
	"sync"
	"time"
)

const defaultRestartInterval = 200 * time.Millisecond

// Supervisor keeps the fan-out workers alive. A worker that panics or returns
// an error is restarted after restartInterval; a nil return retires it.
// Run returns once every worker has exited.
type Supervisor struct {
	wg              sync.WaitGroup
	log             *slog.Logger
	restartInterval time.Duration
	onRestart       func(name string)

	mu       sync.Mutex
	cancel   context.CancelFunc
	pending  []contract.Worker
	names    map[string]int
	restarts map[string]int
}

var _ contract.ISupervisor = (*Supervisor)(nil)

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = defaultRestartInterval
	}
	return &Supervisor{
		log:             log,
		restartInterval: restartInterval,
		names:           make(map[string]int),
		restarts:        make(map[string]int),
	}
}

// OnRestart registers a hook called each time a worker is restarted.
func (s *Supervisor) OnRestart(fn func(name string)) *Supervisor {
	s.onRestart = fn
	return s
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, worker...)
	return s
}

// Run starts the added workers and blocks until they all return.
// Cancelling ctx or calling Stop ends the supervision.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, worker := range pending {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

// Start supervises one worker in its own goroutine.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	name := s.register(contract.GetWorkerName(worker))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervise(ctx, name, worker)
	}()
}

// register gives identical workers distinct names: EventFanout, EventFanout#2...
func (s *Supervisor) register(base string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[base]++
	if n := s.names[base]; n > 1 {
		return fmt.Sprintf("%s#%d", base, n)
	}
	return base
}

func (s *Supervisor) supervise(ctx context.Context, name string, worker contract.Worker) {
	for ctx.Err() == nil {
		err := runOnce(ctx, worker)
		switch {
		case err == nil:
			s.log.Info("Worker finished", "name", name)
			return
		case ctx.Err() != nil:
			s.log.Info("Worker stopped", "name", name)
			return
		}

		s.log.Warn("Worker crashed, restarting", "name", name, "error", err, "in", s.restartInterval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.restartInterval):
		}
		s.recordRestart(name)
	}
}

// runOnce turns a panic into ErrWorkerPanic.
func runOnce(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

func (s *Supervisor) recordRestart(name string) {
	s.mu.Lock()
	s.restarts[name]++
	s.mu.Unlock()
	if s.onRestart != nil {
		s.onRestart(name)
	}
}

// Restarts returns how many times each worker was restarted.
func (s *Supervisor) Restarts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.restarts)
}

// Stop ends a running supervision. Before Run it does nothing.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

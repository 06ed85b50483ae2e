// Package scheduler runs periodic housekeeping for the store.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSweepInterval = time.Hour
	defaultJobTimeout    = 5 * time.Minute
)

// Job is one unit of housekeeping. Run reports how many records it touched.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// JobObserver receives the outcome of every job run
type JobObserver func(name string, affected int, err error, elapsed time.Duration)

// Sweeper runs its jobs in order on a fixed interval
type Sweeper struct {
	interval   time.Duration
	jobTimeout time.Duration
	jobs       []Job
	observer   JobObserver
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// SweeperOption configures a Sweeper
type SweeperOption func(*Sweeper)

// WithInterval sets the time between sweeps
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithJobTimeout bounds each job run
func WithJobTimeout(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithObserver registers a callback for job outcomes, used for metrics
func WithObserver(o JobObserver) SweeperOption {
	return func(s *Sweeper) {
		s.observer = o
	}
}

// NewSweeper creates a sweeper for the given jobs
func NewSweeper(logger *zap.Logger, jobs []Job, opts ...SweeperOption) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		interval:   defaultSweepInterval,
		jobTimeout: defaultJobTimeout,
		jobs:       jobs,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the sweep loop; the first sweep runs immediately
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Sweeper started",
		zap.Duration("interval", s.interval),
		zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sweeper stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every job once. A failing job is logged and does not stop
// the jobs after it.
func (s *Sweeper) RunOnce(ctx context.Context) {
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		s.runJob(ctx, job)
	}
}

func (s *Sweeper) runJob(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	affected, err := safeRun(jobCtx, job)
	elapsed := time.Since(start)

	if s.observer != nil {
		s.observer(job.Name, affected, err, elapsed)
	}
	if err != nil {
		s.logger.Error("Sweep job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return
	}
	if affected > 0 {
		s.logger.Info("Sweep job completed",
			zap.String("job", job.Name),
			zap.Int("affected", affected),
			zap.Duration("elapsed", elapsed))
	}
}

func safeRun(ctx context.Context, job Job) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}

// Package jobs runs the background work of "calplan serve" on cron
// schedules: JSON backups of the event collection and month page captures.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calplan/internal/log"
)

// Func is one scheduled unit of work.
type Func func(ctx context.Context) error

// Scheduler wraps a cron runner whose jobs share the context given to Run.
type Scheduler struct {
	cron *cron.Cron

	mu  sync.Mutex
	ctx context.Context
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx: context.Background(),
	}
}

// Add registers fn under spec. An empty spec leaves the job disabled.
func (s *Scheduler) Add(name, spec string, fn Func) error {
	if spec == "" {
		appLog.Debug("job disabled", "job", name)
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx := s.context()
		started := time.Now()
		if err := fn(ctx); err != nil {
			appLog.Error("job failed", err, "job", name)
			return
		}
		appLog.Info("job finished", "job", name, "elapsed", time.Since(started).String())
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	appLog.Info("job scheduled", "job", name, "cron", spec)
	return nil
}

// Len reports how many jobs are registered.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// cronLogger routes robfig/cron's logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}

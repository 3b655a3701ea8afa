package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"schoolplanner/internal/log"
)

// cronLogger routes cron's own messages through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	log.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	log.Error("cron: "+msg, err, kv...)
}

// Scheduler wraps a cron runner. Overlapping runs of one job are skipped
// and panics are recovered.
type Scheduler struct {
	c *cron.Cron
}

func New() *Scheduler {
	l := cronLogger{}
	return &Scheduler{c: cron.New(
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)}
}

// Add registers job under a standard five-field cron spec.
func (s *Scheduler) Add(spec string, job func()) error {
	if _, err := s.c.AddFunc(spec, job); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.c.Entries())
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts scheduling and waits for running jobs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.c.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

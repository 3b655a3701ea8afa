package persist

import (
	"context"
	"sync"
	"time"

	"schoolplanner/internal/log"
	"schoolplanner/internal/model"
)

// ObserveFunc receives the outcome of every background save.
type ObserveFunc func(elapsed time.Duration, err error)

// AsyncSaver writes snapshots on a single background goroutine. Submitting
// while a save is in flight replaces any queued snapshot, so only the most
// recent state is written. Save errors are logged and never reach the
// mutation that caused them.
type AsyncSaver struct {
	backend Backend
	observe ObserveFunc

	mu        sync.Mutex
	pending   model.Days
	queued    bool
	submitted uint64
	saved     uint64
	lastErr   error
	changed   chan struct{}

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewAsyncSaver(backend Backend, observe ObserveFunc) *AsyncSaver {
	s := &AsyncSaver{
		backend: backend,
		observe: observe,
		changed: make(chan struct{}),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Submit queues days for saving and returns immediately.
func (s *AsyncSaver) Submit(days model.Days) {
	s.mu.Lock()
	s.pending = days
	s.queued = true
	s.submitted++
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Flush blocks until every snapshot submitted before the call has been
// written, or ctx is done. It returns the error of the last save attempt.
func (s *AsyncSaver) Flush(ctx context.Context) error {
	s.mu.Lock()
	target := s.submitted
	for s.saved < target {
		ch := s.changed
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
	}
	err := s.lastErr
	s.mu.Unlock()
	return err
}

// Close flushes outstanding work and stops the worker. The backend is not
// closed.
func (s *AsyncSaver) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.once.Do(func() { close(s.stop) })
	select {
	case <-s.done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (s *AsyncSaver) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-s.kick:
		}

		s.mu.Lock()
		if !s.queued {
			s.mu.Unlock()
			continue
		}
		days, seq := s.pending, s.submitted
		s.pending, s.queued = nil, false
		s.mu.Unlock()

		start := time.Now()
		err := s.backend.Save(context.Background(), days)
		elapsed := time.Since(start)
		if err != nil {
			log.Error("persist: save failed", err, "days", len(days))
		} else {
			log.Debug("persist: saved", "days", len(days), "elapsed", elapsed)
		}
		if s.observe != nil {
			s.observe(elapsed, err)
		}

		s.mu.Lock()
		s.saved = seq
		s.lastErr = err
		close(s.changed)
		s.changed = make(chan struct{})
		s.mu.Unlock()
	}
}

// Package scheduler provides a named-job scheduler: one-shot delayed jobs and
// fixed-time daily jobs, both addressed by a unique name. Scheduling under an
// existing name cancels the pending job first, which gives callers
// idempotency-key semantics for fan-out dedupe.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is the unit of scheduled work. An alias, so any func() literal
// satisfies consumer-side scheduler interfaces directly.
type Job = func()

// Scheduler runs named one-shot and daily jobs.
type Scheduler struct {
	mu      sync.Mutex
	log     *zap.Logger
	cron    *cron.Cron
	timers  map[string]*time.Timer
	entries map[string]cron.EntryID
}

// New creates a stopped scheduler; call Start before scheduling daily jobs.
func New(log *zap.Logger) *Scheduler {
	return &Scheduler{
		log:     log,
		cron:    cron.New(),
		timers:  make(map[string]*time.Timer),
		entries: make(map[string]cron.EntryID),
	}
}

// Start launches the daily-job runner.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the daily-job runner and cancels all pending one-shot jobs.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
}

// RunOnce schedules job to fire once after delay. A pending job with the
// same name is cancelled first.
func (s *Scheduler) RunOnce(delay time.Duration, name string, job Job) {
	s.CancelByName(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[name] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, name)
		s.mu.Unlock()

		defer func() {
			if r := recover(); r != nil {
				s.log.Error("scheduled job panicked",
					zap.String("job", name), zap.Any("panic", r))
			}
		}()
		job()
	})
}

// RunDaily registers job to fire every day at hour:minute. Registration is
// idempotent: an existing entry with the same name is replaced, so callers
// may re-register fixed jobs on every process start.
func (s *Scheduler) RunDaily(hour, minute int, name string, job Job) error {
	s.mu.Lock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	s.mu.Unlock()

	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	id, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("daily job panicked",
					zap.String("job", name), zap.Any("panic", r))
			}
		}()
		job()
	})
	if err != nil {
		return fmt.Errorf("scheduler: register %s: %w", name, err)
	}

	s.mu.Lock()
	s.entries[name] = id
	s.mu.Unlock()
	return nil
}

// CancelByName cancels a pending one-shot job. It reports whether a job was
// actually cancelled.
func (s *Scheduler) CancelByName(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[name]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, name)
	return true
}

// FindByName reports whether a one-shot job with the given name is pending.
func (s *Scheduler) FindByName(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[name]
	return ok
}

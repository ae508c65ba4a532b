// Package scheduler bridges deadline timers and recurring jobs onto a
// single in-process runner. One-off jobs are keyed by a stable id so a
// retried schedule call is a no-op rather than a double fire.
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron *cron.Cron

	mu        sync.Mutex
	once      map[string]*time.Timer
	recurring map[string]cron.EntryID
	stopped   bool
}

func New() *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		once:      make(map[string]*time.Timer),
		recurring: make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels all pending work. Callbacks already running are not
// interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.once {
		t.Stop()
		delete(s.once, id)
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// Once schedules fn to run after delay, keyed by jobID. A duplicate jobID
// is a safe no-op and reports false.
func (s *Scheduler) Once(jobID string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if _, exists := s.once[jobID]; exists {
		log.Printf("scheduler: job %s already scheduled, skipping", jobID)
		return false
	}
	s.once[jobID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.once, jobID)
		s.mu.Unlock()
		fn()
	})
	return true
}

// Recurring registers fn under a cron spec, keyed by jobID. Re-registering
// the same id replaces the previous schedule.
func (s *Scheduler) Recurring(jobID, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, exists := s.recurring[jobID]; exists {
		s.cron.Remove(prev)
	}
	entry, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return err
	}
	s.recurring[jobID] = entry
	return nil
}

// Cancel removes a pending one-off or recurring job. Cancelling an
// unknown or already-fired job is not an error.
func (s *Scheduler) Cancel(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.once[jobID]; ok {
		t.Stop()
		delete(s.once, jobID)
	}
	if e, ok := s.recurring[jobID]; ok {
		s.cron.Remove(e)
		delete(s.recurring, jobID)
	}
}

// Pending reports whether a one-off job is still scheduled.
func (s *Scheduler) Pending(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.once[jobID]
	return ok
}

// Package scheduler is the process-wide asynchronous job scheduler (§4.10):
// one robfig/cron/v3 instance, jobs keyed by agent name, per-job
// single-flight so two cycles of the same agent never overlap. Grounded on
// the interval-driven cycle loop in
// other_examples/0d2c0ec8_jonnyspicer-hyperkaehler__internal-scheduler-scheduler.go,
// rebuilt on robfig/cron so `scan_interval_minutes` maps to a standard
// "@every" spec instead of a hand-rolled ticker per agent.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hunter/internal/logger"
)

// Trigger describes how a job fires.
type Trigger struct {
	IntervalMinutes int
}

func (t Trigger) spec() string {
	return fmt.Sprintf("@every %dm", t.IntervalMinutes)
}

// JobStatus is one job's snapshot for the admin status() endpoint.
type JobStatus struct {
	ID      cron.EntryID
	Name    string
	NextRun time.Time
	Trigger Trigger
}

// Status is the scheduler-wide snapshot (§4.10: "status() -> {running,
// jobs, active_agents}").
type Status struct {
	Running      bool
	Jobs         []JobStatus
	ActiveAgents []string
}

type jobRecord struct {
	entryID cron.EntryID
	trigger Trigger
	running *singleFlight
}

// Scheduler wraps a robfig/cron instance with named, replaceable,
// single-flight jobs.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]*jobRecord
	running bool
	log     *logger.Logger
}

// New constructs a stopped Scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		jobs: make(map[string]*jobRecord),
		log:  logger.With("scheduler"),
	}
}

// Start is idempotent (§4.10).
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.log.Infof("scheduler started")
}

// Stop is idempotent; in-flight cycles are not forcibly killed. It blocks
// until every job cron is currently running has returned, then marks the
// scheduler stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.log.Infof("scheduler stopped")
}

// AddJob schedules fn under name on the given interval trigger, replacing
// any prior job for that name (§4.10: "adding a job for a name replaces any
// prior job"). max_instances=1 is enforced by wrapping fn in a singleFlight
// that coalesces a missed tick into at most one make-up run.
func (s *Scheduler) AddJob(name string, trigger Trigger, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[name]; ok {
		s.cron.Remove(existing.entryID)
		delete(s.jobs, name)
	}

	sf := newSingleFlight(fn)
	id, err := s.cron.AddFunc(trigger.spec(), sf.Trigger)
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	s.jobs[name] = &jobRecord{entryID: id, trigger: trigger, running: sf}
	return nil
}

// RemoveJob cancels the named job if present.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[name]
	if !ok {
		return
	}
	s.cron.Remove(rec.entryID)
	delete(s.jobs, name)
}

// Status returns the scheduler-wide snapshot.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Running: s.running}
	for name, rec := range s.jobs {
		entry := s.cron.Entry(rec.entryID)
		st.Jobs = append(st.Jobs, JobStatus{ID: rec.entryID, Name: name, NextRun: entry.Next, Trigger: rec.trigger})
		st.ActiveAgents = append(st.ActiveAgents, name)
	}
	return st
}

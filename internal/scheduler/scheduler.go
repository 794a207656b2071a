// Package scheduler re-runs forecast and validation jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// JobStatus is the outcome of a job's most recent run.
type JobStatus struct {
	Name     string        `json:"name"`
	Schedule string        `json:"schedule"`
	LastRun  time.Time     `json:"last_run,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	LastErr  string        `json:"last_error,omitempty"`
	Next     time.Time     `json:"next,omitempty"`
	Running  bool          `json:"running"`
}

type entry struct {
	id     cron.EntryID
	job    Job
	status JobStatus
}

// Scheduler manages cron-driven jobs
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobs            map[string]*entry
	timeout         time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler. Each job run is bounded by timeout.
func NewScheduler(logger *logrus.Logger, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		logger:          logger.WithField("component", "scheduler"),
		jobs:            make(map[string]*entry),
		timeout:         timeout,
		gracefulTimeout: 30 * time.Second,
	}
}

// Schedule registers a named job on a standard five-field cron expression.
// A run that is still in progress when its next tick fires is skipped.
func (s *Scheduler) Schedule(name, cronExpression string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s is already scheduled", name)
	}

	e := &entry{job: job, status: JobStatus{Name: name, Schedule: cronExpression}}
	id, err := s.cron.AddFunc(cronExpression, func() { s.execute(context.Background(), e) })
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}
	e.id = id
	s.jobs[name] = e

	s.logger.WithFields(logrus.Fields{"job": name, "cron": cronExpression}).Info("Job scheduled")
	return nil
}

// RunNow executes a registered job immediately in the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	e, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s is not scheduled", name)
	}
	return s.execute(ctx, e)
}

func (s *Scheduler) execute(parent context.Context, e *entry) error {
	s.mu.Lock()
	if e.status.Running {
		s.mu.Unlock()
		s.logger.WithField("job", e.status.Name).Warn("Previous run still in progress, skipping")
		return nil
	}
	e.status.Running = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	err := e.job(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	e.status.Running = false
	e.status.LastRun = start.UTC()
	e.status.Duration = elapsed
	e.status.LastErr = ""
	if err != nil {
		e.status.LastErr = err.Error()
	}
	s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{"job": e.status.Name, "duration_ms": elapsed.Milliseconds()})
	if err != nil {
		log.WithError(err).Error("Scheduled job failed")
	} else {
		log.Info("Scheduled job completed")
	}
	return err
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the earliest next run across all jobs
func (s *Scheduler) GetNextRun() time.Time {
	var next time.Time
	for _, st := range s.Status() {
		if st.Next.IsZero() {
			continue
		}
		if next.IsZero() || st.Next.Before(next) {
			next = st.Next
		}
	}
	return next
}

// Status returns every job's status ordered by name
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, e := range s.jobs {
		st := e.status
		if ce := s.cron.Entry(e.id); ce.Valid() {
			st.Next = ce.Next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

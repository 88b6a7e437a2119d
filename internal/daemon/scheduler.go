package daemon

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs named jobs on cron specs. A job still running when its
// next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]job
	jobsMu  sync.RWMutex
	running bool
	logger  *zap.Logger
}

type job struct {
	id  cron.EntryID
	run func()
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	PrevRun time.Time
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler creates a scheduler accepting standard five-field specs and
// descriptors such as "@every 15m"
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{sugar: logger.Sugar()}

	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:   c,
		jobs:   make(map[string]job),
		logger: logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop stops the scheduler and waits up to ten seconds for running jobs
func (s *Scheduler) Stop() {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		s.logger.Warn("scheduler stop timed out")
	}

	s.running = false
	s.logger.Info("scheduler stopped")
}

// AddJob schedules fn under name
func (s *Scheduler) AddJob(name, spec string, fn func()) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobs[name] = job{id: id, run: fn}
	s.logger.Info("added job", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// RemoveJob removes a job from the scheduler
func (s *Scheduler) RemoveJob(name string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	j, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(j.id)
	delete(s.jobs, name)

	s.logger.Info("removed job", zap.String("job", name))
	return nil
}

// GetNextRun returns the next run time for a job. It is zero until the
// scheduler has started.
func (s *Scheduler) GetNextRun(name string) (time.Time, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	j, exists := s.jobs[name]
	if !exists {
		return time.Time{}, fmt.Errorf("job %s not found", name)
	}

	return s.cron.Entry(j.id).Next, nil
}

// ListJobs returns every job sorted by name
func (s *Scheduler) ListJobs() []JobInfo {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobs))
	for name, j := range s.jobs {
		entry := s.cron.Entry(j.id)
		jobs = append(jobs, JobInfo{
			Name:    name,
			NextRun: entry.Next,
			PrevRun: entry.Prev,
		})
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Name < jobs[k].Name })

	return jobs
}

// TriggerJob runs a job immediately on the calling goroutine
func (s *Scheduler) TriggerJob(name string) error {
	s.jobsMu.RLock()
	j, exists := s.jobs[name]
	s.jobsMu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.logger.Info("manually triggering job", zap.String("job", name))
	j.run()
	return nil
}

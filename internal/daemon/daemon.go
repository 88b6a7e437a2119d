// Package daemon runs due cleaning rules and disk usage sampling on a cron
// schedule until it is told to stop.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/diskusage"
	"github.com/fenilsonani/tidyrules/internal/rules"
)

// Job names registered with the scheduler
const (
	JobCheckRules = "check-rules"
	JobSampleDisk = "sample-disk"
)

// RuleRunner is the part of rules.Engine the daemon drives
type RuleRunner interface {
	CheckAndExecuteDueRules(ctx context.Context, now time.Time) []rules.ExecutionResult
	Reload() error
}

// DiskSampler records one disk usage snapshot
type DiskSampler interface {
	Record(ctx context.Context) (diskusage.Snapshot, error)
}

// Options configure a Daemon
type Options struct {
	// CheckInterval is the cron spec for due-rule checks
	CheckInterval string
	// SampleInterval is the cron spec for disk sampling; empty disables it
	SampleInterval string
	PidFile        string
}

// Daemon represents the rule daemon
type Daemon struct {
	runner    RuleRunner
	sampler   DiskSampler
	notifier  *Notifier
	scheduler *Scheduler
	pidFile   string
	logger    *zap.Logger
	now       func() time.Time

	running     bool
	shutdownCtx context.Context
	cancelFunc  context.CancelFunc
	mu          sync.RWMutex
}

// New creates a daemon. sampler and notifier may be nil.
func New(runner RuleRunner, sampler DiskSampler, notifier *Notifier, opts Options, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PidFile == "" {
		return nil, fmt.Errorf("pid file path is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		runner:      runner,
		sampler:     sampler,
		notifier:    notifier,
		pidFile:     opts.PidFile,
		logger:      logger,
		now:         time.Now,
		shutdownCtx: ctx,
		cancelFunc:  cancel,
	}
	d.scheduler = NewScheduler(logger)

	if err := d.scheduler.AddJob(JobCheckRules, opts.CheckInterval, func() { d.CheckDueRules() }); err != nil {
		cancel()
		return nil, err
	}
	if sampler != nil && opts.SampleInterval != "" {
		if err := d.scheduler.AddJob(JobSampleDisk, opts.SampleInterval, d.SampleDisk); err != nil {
			cancel()
			return nil, err
		}
	}

	return d, nil
}

// Scheduler exposes the daemon's job scheduler
func (d *Daemon) Scheduler() *Scheduler {
	return d.scheduler
}

// Start runs the daemon until Stop is called or a termination signal
// arrives. Due rules are checked once right away.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	d.logger.Info("starting rule daemon", zap.String("pid_file", d.pidFile))

	if err := d.acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer d.releaseLock()

	if err := d.writePidFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer d.removePidFile()

	stopSignals := d.setupSignalHandlers()
	defer stopSignals()

	if err := d.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer d.scheduler.Stop()

	d.logger.Info("daemon started")
	if d.notifier != nil {
		d.notifier.SendStartupNotification()
	}

	d.CheckDueRules()

	<-d.shutdownCtx.Done()

	d.logger.Info("daemon shutting down")
	if d.notifier != nil {
		d.notifier.SendShutdownNotification()
	}

	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	if d.cancelFunc != nil {
		d.cancelFunc()
	}
}

// IsRunning returns whether the daemon is running
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// CheckDueRules executes every rule due now
func (d *Daemon) CheckDueRules() []rules.ExecutionResult {
	results := d.runner.CheckAndExecuteDueRules(d.shutdownCtx, d.now())
	var failed int
	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}
	if len(results) > 0 {
		d.logger.Info("due rules checked", zap.Int("executed", len(results)), zap.Int("failed", failed))
	}
	return results
}

// SampleDisk records one disk usage snapshot
func (d *Daemon) SampleDisk() {
	if d.sampler == nil {
		return
	}
	snap, err := d.sampler.Record(d.shutdownCtx)
	if err != nil {
		d.logger.Warn("disk sample failed", zap.Error(err))
		return
	}
	d.logger.Debug("disk sampled", zap.Uint64("used", snap.Used), zap.Uint64("free", snap.Free))
}

// Reload rereads the rule collection from its store
func (d *Daemon) Reload() {
	if err := d.runner.Reload(); err != nil {
		d.logger.Error("reload failed", zap.Error(err))
		return
	}
	d.logger.Info("rules reloaded")
}

// setupSignalHandlers stops on SIGINT/SIGTERM and reloads on SIGHUP
func (d *Daemon) setupSignalHandlers() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigChan:
				switch sig {
				case syscall.SIGINT, syscall.SIGTERM:
					d.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
					d.Stop()
				case syscall.SIGHUP:
					d.logger.Info("received reload signal")
					d.Reload()
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

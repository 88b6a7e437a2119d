package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Walker is the traversal dependency of the orchestrator and the rule engine
type Walker interface {
	Scan(ctx context.Context, req TraverseRequest) ([]ProblemEntry, []string)
}

// Observer receives scan notifications. Calls are delivered one at a time
// from a single dispatch goroutine.
type Observer interface {
	OnScanStart()
	OnScanProgress(fraction float64)
	OnScanFinish(result ScanResult)
}

// Orchestrator runs multi-location scans in the background
type Orchestrator struct {
	walker   Walker
	registry *Registry
	resolver AccessResolver
	observer Observer
	logger   *zap.Logger

	mu       sync.Mutex
	scanning bool
	cancel   context.CancelFunc
	done     chan struct{}

	events    chan func()
	closeOnce sync.Once
	stopped   chan struct{}
}

// NewOrchestrator creates an Orchestrator and starts its dispatch goroutine.
// Call Close to stop it.
func NewOrchestrator(walker Walker, registry *Registry, resolver AccessResolver, observer Observer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}

	o := &Orchestrator{
		walker:   walker,
		registry: registry,
		resolver: resolver,
		observer: observer,
		logger:   logger,
		events:   make(chan func(), 64),
		stopped:  make(chan struct{}),
	}
	go o.dispatch()
	return o
}

func (o *Orchestrator) dispatch() {
	defer close(o.stopped)
	for fn := range o.events {
		fn()
	}
}

func (o *Orchestrator) notify(fn func(Observer)) {
	if o.observer == nil {
		return
	}
	obs := o.observer
	o.events <- func() { fn(obs) }
}

// StartScan begins scanning the enabled locations in the background.
// It returns false without doing anything if a scan is already running.
func (o *Orchestrator) StartScan(locations []ScanLocation) bool {
	o.mu.Lock()
	if o.scanning {
		o.mu.Unlock()
		o.logger.Debug("scan already in progress, ignoring start request")
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.scanning = true
	o.cancel = cancel
	done := make(chan struct{})
	o.done = done
	o.mu.Unlock()

	locs := append([]ScanLocation(nil), locations...)

	go func() {
		defer cancel()

		o.notify(func(obs Observer) { obs.OnScanStart() })

		result := o.scanAll(ctx, locs, func(fraction float64) {
			o.notify(func(obs Observer) { obs.OnScanProgress(fraction) })
		})

		// The scan stays in flight until its finish notification is
		// dispatched, so a new scan cannot interleave with it.
		finish := func() {
			o.mu.Lock()
			o.scanning = false
			o.cancel = nil
			o.mu.Unlock()

			if o.observer != nil {
				o.observer.OnScanFinish(result)
			}
			close(done)
		}
		if o.observer == nil {
			finish()
			return
		}
		o.events <- finish
	}()

	return true
}

// CancelScan asks the running scan to stop. It is a no-op when idle.
func (o *Orchestrator) CancelScan() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// IsScanning reports whether a scan is in flight
func (o *Orchestrator) IsScanning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scanning
}

// Wait blocks until the most recent scan has delivered its finish notification
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close cancels any running scan and stops the dispatch goroutine once all
// queued notifications have been delivered.
func (o *Orchestrator) Close() {
	o.CancelScan()
	o.Wait()
	o.closeOnce.Do(func() { close(o.events) })
	<-o.stopped
}

// Scan runs a scan synchronously in the calling goroutine without notifying
// the observer.
func (o *Orchestrator) Scan(ctx context.Context, locations []ScanLocation) ScanResult {
	return o.scanAll(ctx, locations, nil)
}

func (o *Orchestrator) scanAll(ctx context.Context, locations []ScanLocation, progress func(float64)) ScanResult {
	result := ScanResult{StartedAt: time.Now()}

	var enabled []ScanLocation
	for _, loc := range locations {
		if loc.Enabled {
			enabled = append(enabled, loc)
		}
	}

	matchers := make(map[string]*Matcher)
	total := len(enabled)
	if total == 0 {
		total = 1
	}

	for i, loc := range enabled {
		if ctx.Err() != nil {
			break
		}
		if progress != nil {
			progress(float64(i) / float64(total))
		}

		category := o.registry.Lookup(loc.PrimaryCategory())

		matcher, ok := matchers[category.Name]
		if !ok {
			m, err := CompileCriterion(category.Criteria)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Invalid criteria for %s: %v", category.Name, err))
				continue
			}
			matchers[category.Name] = m
			matcher = m
		}

		root := loc.Path
		if o.resolver != nil {
			resolved, err := o.resolver.ResolveAccess(loc)
			if err != nil {
				o.logger.Warn("failed to resolve location access",
					zap.String("location", loc.Name),
					zap.String("path", loc.Path),
					zap.Error(err),
				)
				result.Errors = append(result.Errors, fmt.Sprintf("Cannot access %s: %v", displayName(loc), err))
				continue
			}
			root = resolved
		}

		entries, errs := o.walker.Scan(ctx, TraverseRequest{
			Root:               root,
			Recursive:          true,
			Matcher:            matcher,
			Category:           category.Name,
			Risk:               category.Risk,
			IncludeDirectories: true,
		})
		result.Entries = append(result.Entries, entries...)
		result.Errors = append(result.Errors, errs...)

		o.logger.Info("location scanned",
			zap.String("location", displayName(loc)),
			zap.String("category", category.Name),
			zap.Int("matches", len(entries)),
		)
	}

	result.Cancelled = ctx.Err() != nil
	if progress != nil && !result.Cancelled {
		progress(1)
	}
	result.FinishedAt = time.Now()
	return result
}

func displayName(loc ScanLocation) string {
	if loc.Name != "" {
		return loc.Name
	}
	return loc.Path
}

// Package progress fans scan and rule events out to subscribers.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/fenilsonani/tidyrules/internal/rules"
	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/pkg/utils"
)

// Phase represents the current phase of operation
type Phase string

const (
	PhaseScanning Phase = "scanning"
	PhaseComplete Phase = "complete"
	PhaseCanceled Phase = "canceled"
)

// ScanProgress represents progress during scanning
type ScanProgress struct {
	Phase     Phase
	Fraction  float64
	StartTime time.Time
	// Result is set once Phase is complete or canceled
	Result *scanner.ScanResult
}

// RuleProgress reports one finished rule execution
type RuleProgress struct {
	Result rules.ExecutionResult
}

// Reporter implements scanner.Observer and rules.Observer and republishes
// every event to its subscribers. Intermediate updates are dropped for slow
// subscribers; final events evict the oldest queued update instead.
type Reporter struct {
	mu        sync.RWMutex
	scan      *ScanProgress
	listeners []chan interface{}
	now       func() time.Time
}

var (
	_ scanner.Observer = (*Reporter)(nil)
	_ rules.Observer   = (*Reporter)(nil)
)

// NewReporter creates a Reporter with no subscribers
func NewReporter() *Reporter {
	return &Reporter{now: time.Now}
}

// Subscribe returns a channel that receives *ScanProgress and *RuleProgress
func (r *Reporter) Subscribe() <-chan interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan interface{}, 16)
	r.listeners = append(r.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (r *Reporter) Unsubscribe(ch <-chan interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			close(listener)
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// OnScanStart implements scanner.Observer
func (r *Reporter) OnScanStart() {
	update := &ScanProgress{Phase: PhaseScanning, StartTime: r.now()}
	r.setScan(update)
	r.publish(update, false)
}

// OnScanProgress implements scanner.Observer
func (r *Reporter) OnScanProgress(fraction float64) {
	update := &ScanProgress{Phase: PhaseScanning, Fraction: fraction, StartTime: r.startTime()}
	r.setScan(update)
	r.publish(update, false)
}

// OnScanFinish implements scanner.Observer
func (r *Reporter) OnScanFinish(result scanner.ScanResult) {
	phase := PhaseComplete
	if result.Cancelled {
		phase = PhaseCanceled
	}
	update := &ScanProgress{Phase: phase, Fraction: 1, StartTime: r.startTime(), Result: &result}
	r.setScan(update)
	r.publish(update, true)
}

// OnRuleExecuted implements rules.Observer
func (r *Reporter) OnRuleExecuted(result rules.ExecutionResult) {
	r.publish(&RuleProgress{Result: result}, true)
}

// ScanProgress returns the latest scan update, or nil before the first scan
func (r *Reporter) ScanProgress() *ScanProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scan
}

func (r *Reporter) setScan(update *ScanProgress) {
	r.mu.Lock()
	r.scan = update
	r.mu.Unlock()
}

func (r *Reporter) startTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.scan == nil {
		return r.now()
	}
	return r.scan.StartTime
}

func (r *Reporter) publish(update interface{}, final bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, listener := range r.listeners {
		deliver(listener, update, final)
	}
}

func deliver(ch chan interface{}, update interface{}, final bool) {
	select {
	case ch <- update:
		return
	default:
	}
	if !final {
		return
	}

	select {
	case <-ch:
	default:
	}
	select {
	case ch <- update:
	default:
	}
}

// FormatScanProgress returns a human-readable scan progress string
func FormatScanProgress(p *ScanProgress) string {
	if p == nil {
		return "Initializing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseScanning:
		return fmt.Sprintf("Scanning... %d%% [%s]", int(p.Fraction*100), FormatDuration(elapsed))
	case PhaseComplete, PhaseCanceled:
		verb := "Scan complete"
		if p.Phase == PhaseCanceled {
			verb = "Scan canceled"
		}
		if p.Result == nil {
			return verb
		}
		return fmt.Sprintf("%s: %d entries (%s) in %s",
			verb,
			len(p.Result.Entries),
			utils.FormatBytes(p.Result.TotalSize()),
			FormatDuration(elapsed))
	default:
		return "Scanning..."
	}
}

// FormatRuleProgress returns a one-line summary of a rule execution
func FormatRuleProgress(p *RuleProgress) string {
	res := p.Result
	status := "ok"
	if !res.Succeeded() {
		status = fmt.Sprintf("%d errors", len(res.Errors))
	}
	return fmt.Sprintf("%s: %d files, %s freed (%s)",
		res.RuleName, res.FilesProcessed, utils.FormatBytes(res.SpaceFreed), status)
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

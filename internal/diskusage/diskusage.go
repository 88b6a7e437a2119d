// Package diskusage samples volume capacity and keeps a rolling history.
package diskusage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/internal/storage"
)

// FileName is the history's file inside the data directory
const FileName = "disk_history.yaml"

const (
	// DefaultRetention is how long samples are kept
	DefaultRetention = 30 * 24 * time.Hour
	trendWindowDays  = 7
	trendThreshold   = 1_000_000_000
)

// Snapshot is one capacity sample
type Snapshot struct {
	Time  time.Time `json:"time" yaml:"time"`
	Total uint64    `json:"total" yaml:"total"`
	Used  uint64    `json:"used" yaml:"used"`
	Free  uint64    `json:"free" yaml:"free"`
}

// UsedPercent returns Used as a fraction of Total in [0, 1]
func (s Snapshot) UsedPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Used) / float64(s.Total)
}

// Trend describes how used space moved recently
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Store persists the history
type Store interface {
	Load() ([]Snapshot, bool, error)
	Save([]Snapshot) error
}

// NewFileStore returns a Store backed by dataDir/disk_history.yaml
func NewFileStore(dataDir string) *storage.YAMLFile[[]Snapshot] {
	return storage.NewYAMLFile[[]Snapshot](filepath.Join(dataDir, FileName))
}

// UsageFunc reports capacity of the volume holding path
type UsageFunc func(ctx context.Context, path string) (*disk.UsageStat, error)

// Monitor samples one volume
type Monitor struct {
	path      string
	store     Store
	retention time.Duration
	usage     UsageFunc
	now       func() time.Time
	logger    *zap.Logger

	mu      sync.Mutex
	history []Snapshot
}

// NewMonitor creates a Monitor for the volume containing path, loading any
// saved history. retention <= 0 uses DefaultRetention.
func NewMonitor(store Store, path string, retention time.Duration, logger *zap.Logger) (*Monitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	history, _, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load disk history: %w", err)
	}

	return &Monitor{
		path:      path,
		store:     store,
		retention: retention,
		usage:     disk.UsageWithContext,
		now:       time.Now,
		logger:    logger,
		history:   history,
	}, nil
}

// SetClock replaces the time source
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// SetUsageFunc replaces the capacity source
func (m *Monitor) SetUsageFunc(fn UsageFunc) {
	m.usage = fn
}

// Current reads capacity without recording it
func (m *Monitor) Current(ctx context.Context) (Snapshot, error) {
	stat, err := m.usage(ctx, m.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read disk usage for %s: %w", m.path, err)
	}
	return Snapshot{
		Time:  m.now(),
		Total: stat.Total,
		Used:  stat.Total - stat.Free,
		Free:  stat.Free,
	}, nil
}

// Record samples capacity, appends it to the history, drops samples older
// than the retention window and persists the result.
func (m *Monitor) Record(ctx context.Context) (Snapshot, error) {
	snap, err := m.Current(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := snap.Time.Add(-m.retention)
	kept := make([]Snapshot, 0, len(m.history)+1)
	for _, s := range m.history {
		if !s.Time.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	kept = append(kept, snap)

	if err := m.store.Save(kept); err != nil {
		return snap, fmt.Errorf("failed to save disk history: %w", err)
	}
	m.history = kept

	m.logger.Debug("recorded disk usage",
		zap.Uint64("used", snap.Used),
		zap.Uint64("free", snap.Free),
		zap.Int("samples", len(kept)),
	)
	return snap, nil
}

// History returns all retained samples, oldest first
func (m *Monitor) History() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Snapshot(nil), m.history...)
}

// HistoryForDays returns samples taken within the last days calendar days
func (m *Monitor) HistoryForDays(days int) []Snapshot {
	cutoff := m.now().AddDate(0, 0, -days)

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Snapshot
	for _, s := range m.history {
		if !s.Time.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Trend compares the oldest and newest samples of the last week. A change
// of more than 1 GB either way counts as a trend.
func (m *Monitor) Trend() Trend {
	recent := m.HistoryForDays(trendWindowDays)
	if len(recent) < 2 {
		return TrendStable
	}

	diff := int64(recent[len(recent)-1].Used) - int64(recent[0].Used)
	switch {
	case diff > trendThreshold:
		return TrendIncreasing
	case diff < -trendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// UsageForPath sums the sizes of all files below path
func UsageForPath(ctx context.Context, path string) (int64, error) {
	return scanner.DirSize(ctx, path)
}

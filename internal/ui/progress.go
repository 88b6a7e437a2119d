package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/fenilsonani/tidyrules/internal/progress"
	"github.com/fenilsonani/tidyrules/internal/scanner"
)

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PlainProgress prints scan progress as plain lines, at most one per
// interval, for logs and pipes.
type PlainProgress struct {
	out      io.Writer
	interval time.Duration
}

// NewPlainProgress creates a printer writing to out
func NewPlainProgress(out io.Writer) *PlainProgress {
	return &PlainProgress{out: out, interval: time.Second}
}

// Run starts a scan and prints its progress until it finishes
func (pp *PlainProgress) Run(orch ScanStarter, reporter *progress.Reporter, locs []scanner.ScanLocation) (*scanner.ScanResult, error) {
	updates := reporter.Subscribe()
	defer reporter.Unsubscribe(updates)

	if !orch.StartScan(locs) {
		return nil, fmt.Errorf("a scan is already running")
	}
	return pp.Follow(updates), nil
}

// Follow consumes updates until the scan ends and returns its result
func (pp *PlainProgress) Follow(updates <-chan interface{}) *scanner.ScanResult {
	var last time.Time
	for update := range updates {
		p, ok := update.(*progress.ScanProgress)
		if !ok {
			continue
		}
		if p.Phase != progress.PhaseScanning {
			fmt.Fprintln(pp.out, progress.FormatScanProgress(p))
			return p.Result
		}
		if time.Since(last) >= pp.interval {
			last = time.Now()
			fmt.Fprintln(pp.out, progress.FormatScanProgress(p))
		}
	}
	return &scanner.ScanResult{}
}

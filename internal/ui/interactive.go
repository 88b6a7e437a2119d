// Package ui runs scans in front of a user, either as a Bubble Tea program
// or as plain progress lines when stdout is not a terminal.
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/tidyrules/internal/progress"
	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/internal/ui/models"
)

// ScanStarter is the part of scanner.Orchestrator the UI drives
type ScanStarter interface {
	StartScan(locations []scanner.ScanLocation) bool
	CancelScan()
}

// RunInteractive scans locs while showing a TUI. With interactive set the
// user then picks categories and confirms; the selection is returned in the
// Outcome and nothing is deleted here.
func RunInteractive(orch ScanStarter, reporter *progress.Reporter, locs []scanner.ScanLocation, interactive bool) (models.Outcome, error) {
	updates := reporter.Subscribe()
	defer reporter.Unsubscribe(updates)

	if !orch.StartScan(locs) {
		return models.Outcome{}, fmt.Errorf("a scan is already running")
	}

	m := models.NewAppModel(updates, orch.CancelScan, interactive)
	p := tea.NewProgram(m, tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		orch.CancelScan()
		return models.Outcome{}, fmt.Errorf("error running interactive mode: %w", err)
	}

	return final.(*models.AppModel).Outcome(), nil
}

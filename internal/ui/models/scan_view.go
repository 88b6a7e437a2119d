package models

import (
	"fmt"
	"strings"
	"time"

	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/tidyrules/internal/progress"
	"github.com/fenilsonani/tidyrules/internal/ui/styles"
)

// ScanViewModel shows a spinner and progress bar while a scan runs
type ScanViewModel struct {
	spinner    spinner.Model
	bar        progressbar.Model
	updates    <-chan interface{}
	cancel     func()
	fraction   float64
	startTime  time.Time
	cancelling bool
}

// NewScanViewModel creates a scan view fed by a progress.Reporter subscription
func NewScanViewModel(updates <-chan interface{}, cancel func(), width int) *ScanViewModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	barWidth := 40
	if width > 0 && width-10 < barWidth {
		barWidth = width - 10
	}

	return &ScanViewModel{
		spinner:   s,
		bar:       progressbar.New(progressbar.WithDefaultGradient(), progressbar.WithWidth(barWidth)),
		updates:   updates,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Init initializes the scan view
func (m *ScanViewModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForUpdate(m.updates),
	)
}

// Cancel asks the running scan to stop; the view keeps waiting for the
// partial result
func (m *ScanViewModel) Cancel() {
	if m.cancelling {
		return
	}
	m.cancelling = true
	if m.cancel != nil {
		m.cancel()
	}
}

// Update handles messages
func (m *ScanViewModel) Update(msg tea.Msg) (*ScanViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ScanProgressMsg:
		m.fraction = msg.Fraction
		return m, waitForUpdate(m.updates)

	case ignoredUpdateMsg:
		return m, waitForUpdate(m.updates)
	}

	return m, nil
}

// View renders the scan view
func (m *ScanViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("🔍 Scanning Locations"))
	b.WriteString("\n\n")

	b.WriteString(m.spinner.View())
	if m.cancelling {
		b.WriteString(" Cancelling... ")
	} else {
		b.WriteString(" Scanning... ")
	}
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("(%s)", progress.FormatDuration(time.Since(m.startTime)))))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(m.fraction))
	b.WriteString("\n\n")

	b.WriteString(styles.HelpStyle.Render("Press q or ctrl+c to stop the scan"))
	return b.String()
}

// waitForUpdate turns the next reporter event into a tea message
func waitForUpdate(updates <-chan interface{}) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return ScanCompleteMsg{}
		}
		p, isScan := update.(*progress.ScanProgress)
		if !isScan {
			return ignoredUpdateMsg{}
		}
		if p.Phase == progress.PhaseScanning {
			return ScanProgressMsg{Fraction: p.Fraction}
		}
		return ScanCompleteMsg{Result: p.Result}
	}
}

// ScanProgressMsg is sent during scanning to update progress
type ScanProgressMsg struct {
	Fraction float64
}

type ignoredUpdateMsg struct{}

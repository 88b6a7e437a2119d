// Package models holds the Bubble Tea models of the interactive scan flow:
// scan progress, category selection and confirmation.
package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/internal/ui/styles"
)

// ViewState represents the current view in the app
type ViewState int

const (
	ViewScanning ViewState = iota
	ViewCategorySelection
	ViewConfirmation
	ViewHelp
)

// Outcome is what the interactive session decided
type Outcome struct {
	Result    *scanner.ScanResult
	Selected  []scanner.ProblemEntry
	Confirmed bool
}

// AppModel is the root model for the interactive TUI
type AppModel struct {
	state         ViewState
	previousState ViewState

	interactive bool
	scanResult  *scanner.ScanResult
	selected    []scanner.ProblemEntry
	confirmed   bool

	scanView     *ScanViewModel
	categoryView *CategoryViewModel
	confirmView  *ConfirmViewModel

	width  int
	height int
}

// NewAppModel creates the root model. updates is a progress.Reporter
// subscription and cancel stops the running scan. With interactive false the
// program quits as soon as the scan finishes.
func NewAppModel(updates <-chan interface{}, cancel func(), interactive bool) *AppModel {
	return &AppModel{
		state:       ViewScanning,
		interactive: interactive,
		scanView:    NewScanViewModel(updates, cancel, 0),
	}
}

// Outcome returns the scan result and the confirmed selection
func (m *AppModel) Outcome() Outcome {
	return Outcome{Result: m.scanResult, Selected: m.selected, Confirmed: m.confirmed}
}

// State returns the active view
func (m *AppModel) State() ViewState {
	return m.state
}

// Init initializes the model
func (m *AppModel) Init() tea.Cmd {
	return m.scanView.Init()
}

// Update handles messages
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == ViewHelp {
			m.state = m.previousState
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == ViewScanning {
				// keep running until the partial result arrives
				m.scanView.Cancel()
				return m, nil
			}
			return m, tea.Quit
		case "?":
			m.previousState = m.state
			m.state = ViewHelp
			return m, nil
		case "esc":
			if m.state == ViewConfirmation {
				m.state = ViewCategorySelection
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ScanCompleteMsg:
		m.scanResult = msg.Result
		if m.scanResult == nil {
			m.scanResult = &scanner.ScanResult{}
		}
		if !m.interactive || msg.Result == nil || msg.Result.Cancelled || len(m.scanResult.Entries) == 0 {
			return m, tea.Quit
		}
		m.categoryView = NewCategoryViewModel(m.scanResult, m.width)
		m.state = ViewCategorySelection
		return m, nil

	case CategoriesSelectedMsg:
		m.selected = m.entriesIn(msg.SelectedCategories)
		m.confirmView = NewConfirmViewModel(m.selected)
		m.state = ViewConfirmation
		return m, nil

	case ConfirmedMsg:
		m.confirmed = true
		return m, tea.Quit

	case ReviewSelectionMsg:
		m.state = ViewCategorySelection
		return m, nil
	}

	return m.delegateUpdate(msg)
}

func (m *AppModel) entriesIn(categories []string) []scanner.ProblemEntry {
	wanted := make(map[string]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}
	var out []scanner.ProblemEntry
	for _, e := range m.scanResult.Entries {
		if wanted[e.Category] {
			e.Selected = true
			out = append(out, e)
		}
	}
	return out
}

func (m *AppModel) delegateUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.state {
	case ViewScanning:
		m.scanView, cmd = m.scanView.Update(msg)
	case ViewCategorySelection:
		if m.categoryView != nil {
			m.categoryView, cmd = m.categoryView.Update(msg)
		}
	case ViewConfirmation:
		if m.confirmView != nil {
			m.confirmView, cmd = m.confirmView.Update(msg)
		}
	}

	return m, cmd
}

// View renders the current view
func (m *AppModel) View() string {
	switch m.state {
	case ViewScanning:
		return m.scanView.View()
	case ViewCategorySelection:
		if m.categoryView != nil {
			return m.categoryView.View()
		}
	case ViewConfirmation:
		if m.confirmView != nil {
			return m.confirmView.View()
		}
	case ViewHelp:
		return m.renderHelp()
	}

	return "Loading..."
}

func (m *AppModel) renderHelp() string {
	var b strings.Builder

	var viewName, helpContent string
	switch m.previousState {
	case ViewScanning:
		viewName = "Scan View"
		helpContent = helpScan
	case ViewCategorySelection:
		viewName = "Category Selection"
		helpContent = helpCategory
	case ViewConfirmation:
		viewName = "Confirmation"
		helpContent = helpConfirm
	}

	b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("Help - %s", viewName)))
	b.WriteString("\n\n")
	b.WriteString(helpContent)
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("Press any key to close"))

	return b.String()
}

const helpScan = `Scanning the enabled locations for problem entries.

Actions:
  ctrl+c  - Stop the scan and keep what was found
  q       - Stop the scan and keep what was found`

const helpCategory = `Select which categories to delete. Low risk
categories start selected.

Navigation:
  ↑/k     - Move up
  ↓/j     - Move down
  g / G   - Top / bottom

Selection:
  space   - Toggle category
  x       - Toggle and move down
  ctrl+a  - Select all
  ctrl+d  - Deselect all

Actions:
  enter   - Continue to confirmation
  q       - Quit without deleting`

const helpConfirm = `Review and confirm your deletion choices.

Navigation:
  ←/→/h/l - Switch between buttons

Actions:
  y       - Yes, delete
  e       - Edit selection (go back)
  n       - Cancel
  esc     - Go back

Deleted entries cannot be recovered!`

// ScanCompleteMsg carries the finished (or cancelled) scan
type ScanCompleteMsg struct {
	Result *scanner.ScanResult
}

type CategoriesSelectedMsg struct {
	SelectedCategories []string
}

type ConfirmedMsg struct{}

type ReviewSelectionMsg struct{}

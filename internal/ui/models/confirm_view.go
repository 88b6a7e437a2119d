package models

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/internal/ui/styles"
	"github.com/fenilsonani/tidyrules/pkg/utils"
)

// ConfirmViewModel handles the confirmation screen
type ConfirmViewModel struct {
	entries []scanner.ProblemEntry
	cursor  int // 0 = Yes, 1 = Review, 2 = Cancel
	risk    scanner.RiskTier
}

// NewConfirmViewModel creates a new confirm view model. The cursor starts on
// Cancel when any selected entry is high risk.
func NewConfirmViewModel(entries []scanner.ProblemEntry) *ConfirmViewModel {
	risk := highestRisk(entries)
	cursor := 0
	if risk == scanner.RiskHigh {
		cursor = 2
	}
	return &ConfirmViewModel{entries: entries, cursor: cursor, risk: risk}
}

func highestRisk(entries []scanner.ProblemEntry) scanner.RiskTier {
	risk := scanner.RiskLow
	for _, e := range entries {
		if e.Risk > risk {
			risk = e.Risk
		}
	}
	return risk
}

// Update handles messages
func (m *ConfirmViewModel) Update(msg tea.Msg) (*ConfirmViewModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor < 2 {
			m.cursor++
		}
	case "tab":
		m.cursor = (m.cursor + 1) % 3
	case "enter":
		switch m.cursor {
		case 0:
			return m, func() tea.Msg { return ConfirmedMsg{} }
		case 1:
			return m, func() tea.Msg { return ReviewSelectionMsg{} }
		case 2:
			return m, tea.Quit
		}
	case "y":
		return m, func() tea.Msg { return ConfirmedMsg{} }
	case "e":
		return m, func() tea.Msg { return ReviewSelectionMsg{} }
	case "n":
		return m, tea.Quit
	}

	return m, nil
}

// View renders the confirmation view
func (m *ConfirmViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("⚠️  Confirm Deletion"))
	b.WriteString("\n\n")

	var totalSize int64
	breakdown := make(map[string]struct {
		count int
		size  int64
	})
	for _, e := range m.entries {
		totalSize += e.Size
		entry := breakdown[e.Category]
		entry.count++
		entry.size += e.Size
		breakdown[e.Category] = entry
	}

	b.WriteString(styles.BoldStyle.Render(fmt.Sprintf("You are about to delete %d entries (%s)",
		len(m.entries), utils.FormatBytes(totalSize))))
	b.WriteString("\n\n")

	b.WriteString(styles.SubtitleStyle.Render("Breakdown:"))
	b.WriteString("\n")
	names := make([]string, 0, len(breakdown))
	for name := range breakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry := breakdown[name]
		fmt.Fprintf(&b, "  %-24s %4d entries (%s)\n",
			name+":", entry.count, styles.FileSizeStyle.Render(utils.FormatBytes(entry.size)))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Risk Level: %s\n", styles.RiskBadge(m.risk))
	if m.risk == scanner.RiskHigh {
		b.WriteString(styles.ErrorStyle.Render("High risk entries are included. Review them before deleting."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.WarningStyle.Render("This action cannot be undone!"))
	b.WriteString("\n\n")

	buttons := []string{"[ Yes, delete ]", "[ Review ]", "[ Cancel ]"}
	buttons[m.cursor] = styles.HighlightStyle.Render(buttons[m.cursor])
	b.WriteString(strings.Join(buttons, "  "))
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("y:confirm  e:edit  n:cancel  ←/→:navigate"))

	return b.String()
}

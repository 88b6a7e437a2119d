package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/internal/ui/styles"
	"github.com/fenilsonani/tidyrules/pkg/utils"
)

// CategoryItem represents a selectable category
type CategoryItem struct {
	Name     string
	Count    int
	Size     int64
	Risk     scanner.RiskTier
	Selected bool
}

// CategoryViewModel handles category selection
type CategoryViewModel struct {
	categories []CategoryItem
	cursor     int
	width      int
}

// NewCategoryViewModel lists the result's categories, largest first.
// Low risk categories start selected.
func NewCategoryViewModel(result *scanner.ScanResult, width int) *CategoryViewModel {
	var categories []CategoryItem
	for _, g := range result.SortedGroups() {
		categories = append(categories, CategoryItem{
			Name:     g.Category,
			Count:    len(g.Entries),
			Size:     g.Size,
			Risk:     g.Risk,
			Selected: g.Risk == scanner.RiskLow,
		})
	}

	if width == 0 {
		width = 80
	}

	return &CategoryViewModel{categories: categories, width: width}
}

// Update handles messages
func (m *CategoryViewModel) Update(msg tea.Msg) (*CategoryViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.categories)-1 {
				m.cursor++
			}
		case "g":
			m.cursor = 0
		case "G":
			if len(m.categories) > 0 {
				m.cursor = len(m.categories) - 1
			}
		case "space", " ":
			if m.cursor < len(m.categories) {
				m.categories[m.cursor].Selected = !m.categories[m.cursor].Selected
			}
		case "x":
			if m.cursor < len(m.categories) {
				m.categories[m.cursor].Selected = !m.categories[m.cursor].Selected
				if m.cursor < len(m.categories)-1 {
					m.cursor++
				}
			}
		case "ctrl+a":
			for i := range m.categories {
				m.categories[i].Selected = true
			}
		case "ctrl+d":
			for i := range m.categories {
				m.categories[i].Selected = false
			}
		case "enter":
			selected := m.Selected()
			if len(selected) == 0 {
				return m, nil
			}
			return m, func() tea.Msg { return CategoriesSelectedMsg{SelectedCategories: selected} }
		}
	}

	return m, nil
}

// Selected returns the names of the selected categories in display order
func (m *CategoryViewModel) Selected() []string {
	var out []string
	for _, cat := range m.categories {
		if cat.Selected {
			out = append(out, cat.Name)
		}
	}
	return out
}

// View renders the category selection view
func (m *CategoryViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("📦 Select Categories to Clean"))
	b.WriteString("\n\n")

	helpText := "↑/↓:navigate  space:toggle  x:toggle+down  ctrl+a:all  ctrl+d:none  enter:continue  q:quit"
	if m.width < 80 {
		helpText = "↑/↓:move  space:toggle  enter:continue"
	}
	b.WriteString(styles.HelpStyle.Render(helpText))
	b.WriteString("\n\n")

	var selectedCount int
	var selectedSize int64
	for i, cat := range m.categories {
		cursor := "  "
		if i == m.cursor {
			cursor = styles.SelectedStyle.Render("→ ")
		}

		checkbox := styles.UncheckedBox()
		if cat.Selected {
			checkbox = styles.CheckedBox()
			selectedCount += cat.Count
			selectedSize += cat.Size
		}

		name := lipgloss.NewStyle().Foreground(styles.RiskColor(cat.Risk)).Bold(true).Render(cat.Name)
		fmt.Fprintf(&b, "%s%s %s %s %s (%s entries, %s)\n",
			cursor,
			checkbox,
			styles.CategoryIcon(cat.Name),
			name,
			styles.RiskBadge(cat.Risk),
			styles.DimStyle.Render(fmt.Sprintf("%d", cat.Count)),
			styles.FileSizeStyle.Render(utils.FormatBytes(cat.Size)),
		)
	}

	b.WriteString("\n")
	b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("Selected: %d entries, %s",
		selectedCount, utils.FormatBytes(selectedSize))))
	return b.String()
}

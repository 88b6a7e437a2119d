package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fenilsonani/tidyrules/internal/scanner"
)

// Theme colors
var (
	Primary   = lipgloss.Color("#7C3AED")
	Secondary = lipgloss.Color("#A78BFA")
	Success   = lipgloss.Color("#10B981")
	Warning   = lipgloss.Color("#F59E0B")
	Danger    = lipgloss.Color("#EF4444")
	Info      = lipgloss.Color("#3B82F6")
	Muted     = lipgloss.Color("#6B7280")
	Text      = lipgloss.Color("#F3F4F6")
	TextDim   = lipgloss.Color("#9CA3AF")
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	CheckboxStyle = lipgloss.NewStyle().
			Foreground(Success)

	CheckboxUncheckedStyle = lipgloss.NewStyle().
				Foreground(Muted)

	FilePathStyle = lipgloss.NewStyle().
			Foreground(Info)

	FileSizeStyle = lipgloss.NewStyle().
			Foreground(Warning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextDim).
			Italic(true)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(Text).
			Background(Primary).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(TextDim)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)
)

func CheckedBox() string {
	return CheckboxStyle.Render("☑")
}

func UncheckedBox() string {
	return CheckboxUncheckedStyle.Render("☐")
}

// RiskColor maps a risk tier to its theme color
func RiskColor(r scanner.RiskTier) lipgloss.Color {
	switch r {
	case scanner.RiskHigh:
		return Danger
	case scanner.RiskMedium:
		return Warning
	default:
		return Success
	}
}

// RiskBadge renders a short colored risk label
func RiskBadge(r scanner.RiskTier) string {
	label := map[scanner.RiskTier]string{
		scanner.RiskLow:    "SAFE",
		scanner.RiskMedium: "CAUTION",
		scanner.RiskHigh:   "RISKY",
	}[r]
	return lipgloss.NewStyle().Foreground(RiskColor(r)).Bold(true).Render(label)
}

// CategoryIcon returns a glyph for a built-in category
func CategoryIcon(category string) string {
	switch category {
	case scanner.CategoryIncompleteDownloads:
		return "⬇"
	case scanner.CategoryApplicationCaches:
		return "🗄"
	case scanner.CategoryDeveloperFiles:
		return "🛠"
	case scanner.CategorySystemLogs:
		return "📜"
	case scanner.CategoryDocker:
		return "🐳"
	case scanner.CategoryTrash:
		return "🗑"
	case scanner.CategoryMediaAnalysis:
		return "🖼"
	default:
		return "•"
	}
}

// Package reporter renders scan results and rule executions for the CLI.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/tidyrules/internal/rules"
	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/pkg/utils"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

// ParseFormat validates a format name
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML, FormatSummary:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	riskStyles   = map[scanner.RiskTier]lipgloss.Style{
		scanner.RiskLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		scanner.RiskMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		scanner.RiskHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
	}
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

func riskBadge(r scanner.RiskTier) string {
	return riskStyles[r].Render(fmt.Sprintf("[%s]", r))
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
	now    func() time.Time
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
		now:    time.Now,
	}
}

// Report generates a report from scan results
func (r *Reporter) Report(result *scanner.ScanResult) error {
	switch r.format {
	case FormatTable:
		return r.reportTable(result)
	case FormatJSON:
		return r.encodeJSON(r.scanDocument(result))
	case FormatYAML:
		return r.encodeYAML(r.scanDocument(result))
	case FormatSummary:
		return r.reportSummary(result)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// reportSummary prints the per-category breakdown, largest first
func (r *Reporter) reportSummary(result *scanner.ScanResult) error {
	fmt.Fprintln(r.writer, headingStyle.Render("=== Scan Summary ==="))
	fmt.Fprintf(r.writer, "Entries: %d\n", len(result.Entries))
	fmt.Fprintf(r.writer, "Total Size: %s\n", utils.FormatBytes(result.TotalSize()))
	if result.Cancelled {
		fmt.Fprintln(r.writer, "Scan was cancelled; results are partial.")
	}

	groups := result.SortedGroups()
	if len(groups) > 0 {
		fmt.Fprintf(r.writer, "\nBreakdown by Category:\n")
		for _, g := range groups {
			fmt.Fprintf(r.writer, "  %s %s: %d entries, %s\n",
				riskBadge(g.Risk), g.Category, len(g.Entries), utils.FormatBytes(g.Size))
		}
	}

	r.writeErrors(result.Errors)
	return nil
}

// reportTable lists every entry
func (r *Reporter) reportTable(result *scanner.ScanResult) error {
	rule := strings.Repeat("-", 110)
	fmt.Fprintf(r.writer, "%-60s | %-10s | %-22s | %-6s | %s\n", "Path", "Size", "Category", "Risk", "Modified")
	fmt.Fprintln(r.writer, rule)

	for _, e := range result.Entries {
		path := e.Path
		if e.IsDir {
			path += "/"
		}
		fmt.Fprintf(r.writer, "%-60s | %-10s | %-22s | %-6s | %s\n",
			truncatePath(path, 60),
			utils.FormatBytes(e.Size),
			e.Category,
			e.Risk,
			e.ModTime.Format("2006-01-02 15:04"))
	}

	fmt.Fprintln(r.writer, rule)
	fmt.Fprintf(r.writer, "Total: %d entries, %s\n", len(result.Entries), utils.FormatBytes(result.TotalSize()))
	r.writeErrors(result.Errors)
	return nil
}

type scanDocument struct {
	Timestamp          string                 `json:"timestamp" yaml:"timestamp"`
	TotalEntries       int                    `json:"total_entries" yaml:"total_entries"`
	TotalSize          int64                  `json:"total_size" yaml:"total_size"`
	TotalSizeFormatted string                 `json:"total_size_formatted" yaml:"total_size_formatted"`
	Cancelled          bool                   `json:"cancelled" yaml:"cancelled"`
	Entries            []scanner.ProblemEntry `json:"entries" yaml:"entries"`
	Errors             []string               `json:"errors" yaml:"errors"`
}

func (r *Reporter) scanDocument(result *scanner.ScanResult) scanDocument {
	entries := result.Entries
	if entries == nil {
		entries = []scanner.ProblemEntry{}
	}
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return scanDocument{
		Timestamp:          r.now().Format(time.RFC3339),
		TotalEntries:       len(result.Entries),
		TotalSize:          result.TotalSize(),
		TotalSizeFormatted: utils.FormatBytes(result.TotalSize()),
		Cancelled:          result.Cancelled,
		Entries:            entries,
		Errors:             errs,
	}
}

// ReportExecutions renders rule execution results
func (r *Reporter) ReportExecutions(results []rules.ExecutionResult) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(results)
	case FormatYAML:
		return r.encodeYAML(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(r.writer, "No rules were due.")
		return nil
	}

	var files int
	var freed int64
	for _, res := range results {
		status := riskStyles[scanner.RiskLow].Render("ok")
		if !res.Succeeded() {
			status = errorStyle.Render(fmt.Sprintf("%d errors", len(res.Errors)))
		}
		fmt.Fprintf(r.writer, "%s: %d files, %s freed (%s)\n",
			headingStyle.Render(res.RuleName), res.FilesProcessed, utils.FormatBytes(res.SpaceFreed), status)
		if r.format == FormatTable {
			for _, p := range res.ProcessedPaths {
				fmt.Fprintf(r.writer, "    %s\n", p)
			}
		}
		for _, e := range res.Errors {
			fmt.Fprintf(r.writer, "    %s\n", errorStyle.Render(e))
		}
		files += res.FilesProcessed
		freed += res.SpaceFreed
	}

	if len(results) > 1 {
		fmt.Fprintf(r.writer, "\nTotal: %d files, %s freed\n", files, utils.FormatBytes(freed))
	}
	return nil
}

// ReportRules lists rules with their schedule and next due time
func (r *Reporter) ReportRules(list []rules.CleaningRule) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(list)
	case FormatYAML:
		return r.encodeYAML(list)
	}

	if len(list) == 0 {
		fmt.Fprintln(r.writer, "No rules configured.")
		return nil
	}

	now := r.now()
	fmt.Fprintf(r.writer, "%-28s | %-32s | %-8s | %-7s | %-16s | %s\n", "ID", "Name", "Schedule", "Enabled", "Last run", "Next")
	fmt.Fprintln(r.writer, strings.Repeat("-", 120))
	for _, rule := range list {
		lastRun := "never"
		if rule.LastRun != nil {
			lastRun = utils.FormatAge(*rule.LastRun)
		}
		next := "manual"
		if at, ok := rules.NextRun(rule, now); ok {
			if !at.After(now) {
				next = "due now"
			} else {
				next = at.Format("2006-01-02 15:04")
			}
		}
		enabled := "no"
		if rule.Enabled {
			enabled = "yes"
		}
		fmt.Fprintf(r.writer, "%-28s | %-32s | %-8s | %-7s | %-16s | %s\n",
			rule.ID, truncatePath(rule.Name, 32), rule.Schedule, enabled, lastRun, next)
	}
	return nil
}

// ReportLocations lists scan locations
func (r *Reporter) ReportLocations(list []scanner.ScanLocation) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(list)
	case FormatYAML:
		return r.encodeYAML(list)
	}

	if len(list) == 0 {
		fmt.Fprintln(r.writer, "No scan locations configured.")
		return nil
	}
	for _, loc := range list {
		mark := "[ ]"
		if loc.Enabled {
			mark = "[x]"
		}
		fmt.Fprintf(r.writer, "%s %-16s %-20s %s (%s)\n",
			mark, loc.ID, loc.Name, loc.Path, strings.Join(loc.Categories, ", "))
	}
	return nil
}

func (r *Reporter) writeErrors(errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(r.writer, "\nErrors: %d\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(r.writer, "  %s\n", errorStyle.Render(e))
	}
}

func (r *Reporter) encodeJSON(v interface{}) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *Reporter) encodeYAML(v interface{}) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(v)
}

// SaveToFile saves the report to a file
func SaveToFile(result *scanner.ScanResult, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return New(file, format).Report(result)
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}

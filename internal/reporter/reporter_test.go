package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/tidyrules/internal/rules"
	"github.com/fenilsonani/tidyrules/internal/scanner"
)

func sampleResult() *scanner.ScanResult {
	mod := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return &scanner.ScanResult{
		Entries: []scanner.ProblemEntry{
			{Path: "/home/me/Downloads/movie.part", Name: "movie.part", Size: 2_000_000, ModTime: mod, Category: scanner.CategoryIncompleteDownloads, Risk: scanner.RiskLow},
			{Path: "/home/me/Library/Logs/app.log", Name: "app.log", Size: 60_000_000, ModTime: mod, Category: scanner.CategorySystemLogs, Risk: scanner.RiskMedium},
		},
		Errors: []string{"Cannot access Docker: permission denied"},
	}
}

func newTestReporter(buf *bytes.Buffer, format OutputFormat) *Reporter {
	r := New(buf, format)
	r.now = func() time.Time { return time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestReport_Summary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestReporter(&buf, FormatSummary).Report(sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "Entries: 2")
	assert.Contains(t, out, "Total Size: 62 MB")
	assert.Contains(t, out, "System Logs: 1 entries, 60 MB")
	assert.Contains(t, out, "[medium]")
	assert.Less(t, strings.Index(out, "System Logs"), strings.Index(out, "Incomplete Downloads"), "largest category first")
	assert.Contains(t, out, "Errors: 1")
}

func TestReport_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestReporter(&buf, FormatTable).Report(sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "/home/me/Downloads/movie.part")
	assert.Contains(t, out, "2024-03-01 09:30")
	assert.Contains(t, out, "Total: 2 entries, 62 MB")
}

func TestReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestReporter(&buf, FormatJSON).Report(sampleResult()))

	var doc struct {
		Timestamp    string `json:"timestamp"`
		TotalEntries int    `json:"total_entries"`
		TotalSize    int64  `json:"total_size"`
		Entries      []struct {
			Path string `json:"path"`
			Risk string `json:"risk"`
		} `json:"entries"`
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2024-03-02T00:00:00Z", doc.Timestamp)
	assert.Equal(t, 2, doc.TotalEntries)
	assert.Equal(t, int64(62_000_000), doc.TotalSize)
	assert.Equal(t, "medium", doc.Entries[1].Risk)
	assert.Len(t, doc.Errors, 1)
}

func TestReport_YAMLEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestReporter(&buf, FormatYAML).Report(&scanner.ScanResult{}))

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, []interface{}{}, doc["entries"])
	assert.Equal(t, 0, doc["total_entries"])
}

func TestReport_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, New(&buf, "xml").Report(sampleResult()))
}

func TestReportExecutions(t *testing.T) {
	results := []rules.ExecutionResult{
		{RuleName: "Clean Download Fragments", FilesProcessed: 2, SpaceFreed: 6000, ProcessedPaths: []string{"/d/a.part", "/d/c.part"},
			Errors: []string{"Error processing /d/b.part: Permission denied"}},
		{RuleName: "Clean Application Caches", FilesProcessed: 1, SpaceFreed: 1_000_000},
	}

	var buf bytes.Buffer
	require.NoError(t, newTestReporter(&buf, FormatTable).ReportExecutions(results))
	out := buf.String()
	assert.Contains(t, out, "Clean Download Fragments: 2 files, 6.0 kB freed (1 errors)")
	assert.Contains(t, out, "/d/c.part")
	assert.Contains(t, out, "Error processing /d/b.part")
	assert.Contains(t, out, "Total: 3 files, 1.0 MB freed")

	buf.Reset()
	require.NoError(t, newTestReporter(&buf, FormatSummary).ReportExecutions(nil))
	assert.Equal(t, "No rules were due.\n", buf.String())
}

func TestReportRules(t *testing.T) {
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)
	list := []rules.CleaningRule{
		{ID: "weekly", Name: "Weekly", Schedule: rules.ScheduleWeekly, Enabled: true, LastRun: &recent},
		{ID: "fresh", Name: "Fresh", Schedule: rules.ScheduleDaily},
		{ID: "by-hand", Name: "By hand", Schedule: rules.ScheduleManual},
	}

	var buf bytes.Buffer
	require.NoError(t, newTestReporter(&buf, FormatTable).ReportRules(list))
	out := buf.String()
	assert.Contains(t, out, "2024-03-08 00:00")
	assert.Contains(t, out, "due now")
	assert.Contains(t, out, "manual")

	buf.Reset()
	require.NoError(t, newTestReporter(&buf, FormatJSON).ReportRules(list))
	var decoded []rules.CleaningRule
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 3)
}

func TestReportLocations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestReporter(&buf, FormatTable).ReportLocations([]scanner.ScanLocation{
		{ID: "downloads", Name: "Downloads", Path: "/home/me/Downloads", Categories: []string{scanner.CategoryIncompleteDownloads}, Enabled: true},
		{ID: "logs", Name: "Logs", Path: "/home/me/Library/Logs", Categories: []string{scanner.CategorySystemLogs}},
	}))
	out := buf.String()
	assert.Contains(t, out, "[x] downloads")
	assert.Contains(t, out, "[ ] logs")
	assert.Contains(t, out, "(System Logs)")
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "/short", truncatePath("/short", 10))
	assert.Equal(t, ".../c/d/e", truncatePath("/a/b/c/d/e", 9))
}

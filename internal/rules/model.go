// Package rules holds scheduled cleaning rules and the engine that runs them.
package rules

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/fenilsonani/tidyrules/internal/scanner"
)

// Schedule is how often a rule runs automatically
type Schedule string

const (
	ScheduleManual  Schedule = "manual"
	ScheduleHourly  Schedule = "hourly"
	ScheduleDaily   Schedule = "daily"
	ScheduleWeekly  Schedule = "weekly"
	ScheduleMonthly Schedule = "monthly"
)

// Schedules lists every valid schedule in increasing period
var Schedules = []Schedule{ScheduleManual, ScheduleHourly, ScheduleDaily, ScheduleWeekly, ScheduleMonthly}

// Valid reports whether s is a known schedule
func (s Schedule) Valid() bool {
	for _, known := range Schedules {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSchedule parses a schedule name case-insensitively
func ParseSchedule(s string) (Schedule, error) {
	sched := Schedule(strings.ToLower(strings.TrimSpace(s)))
	if !sched.Valid() {
		return "", fmt.Errorf("unknown schedule %q (want manual, hourly, daily, weekly or monthly)", s)
	}
	return sched, nil
}

// Action is what happens to a matched file
type Action string

const (
	ActionDelete   Action = "delete"
	ActionTrash    Action = "trash"
	ActionCompress Action = "compress"
)

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	switch a {
	case ActionDelete, ActionTrash, ActionCompress:
		return true
	}
	return false
}

// ParseAction parses an action name case-insensitively
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if a == "move-to-trash" || a == "movetotrash" {
		a = ActionTrash
	}
	if !a.Valid() {
		return "", fmt.Errorf("unknown action %q (want delete, trash or compress)", s)
	}
	return a, nil
}

// RuleTarget is one path a rule cleans, with its own criterion and action
type RuleTarget struct {
	Path      string                `yaml:"path" json:"path"`
	Category  string                `yaml:"category,omitempty" json:"category,omitempty"`
	Criterion scanner.ScanCriterion `yaml:"criterion" json:"criterion"`
	Action    Action                `yaml:"action" json:"action"`
}

// ValidateTarget checks a target before it is stored
func ValidateTarget(t RuleTarget) error {
	if strings.TrimSpace(t.Path) == "" {
		return fmt.Errorf("target path cannot be empty")
	}
	if !t.Action.Valid() {
		return fmt.Errorf("target %s: unknown action %q", t.Path, t.Action)
	}
	if err := t.Criterion.Validate(); err != nil {
		return fmt.Errorf("target %s: %w", t.Path, err)
	}
	return nil
}

// CleaningRule is a named, scheduled set of cleanup targets
type CleaningRule struct {
	ID          string       `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Icon        string       `yaml:"icon,omitempty" json:"icon,omitempty"`
	Category    string       `yaml:"category,omitempty" json:"category,omitempty"`
	Targets     []RuleTarget `yaml:"targets" json:"targets"`
	Schedule    Schedule     `yaml:"schedule" json:"schedule"`
	Enabled     bool         `yaml:"enabled" json:"enabled"`
	LastRun     *time.Time   `yaml:"last_run,omitempty" json:"last_run,omitempty"`
}

// Validate reports the first configuration problem in the rule
func (r CleaningRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	if !r.Schedule.Valid() {
		return fmt.Errorf("rule %q: unknown schedule %q", r.Name, r.Schedule)
	}
	for _, t := range r.Targets {
		if err := ValidateTarget(t); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	}
	return nil
}

// Clone returns a deep copy so callers never share target slices
func (r CleaningRule) Clone() CleaningRule {
	out := r
	if r.Targets != nil {
		out.Targets = make([]RuleTarget, len(r.Targets))
		copy(out.Targets, r.Targets)
	}
	if r.LastRun != nil {
		t := *r.LastRun
		out.LastRun = &t
	}
	return out
}

// TargetCategory returns the category a target's entries are classified under
func (r CleaningRule) TargetCategory(t RuleTarget) string {
	if t.Category != "" {
		return t.Category
	}
	if r.Category != "" {
		return r.Category
	}
	return scanner.CategoryOther
}

// NewID returns a random rule identifier
func NewID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("rule-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// ExecutionResult is the outcome of running one rule
type ExecutionResult struct {
	RuleID         string    `json:"rule_id" yaml:"rule_id"`
	RuleName       string    `json:"rule_name" yaml:"rule_name"`
	ExecutedAt     time.Time `json:"executed_at" yaml:"executed_at"`
	FilesProcessed int       `json:"files_processed" yaml:"files_processed"`
	ProcessedPaths []string  `json:"processed_paths,omitempty" yaml:"processed_paths,omitempty"`
	SpaceFreed     int64     `json:"space_freed" yaml:"space_freed"`
	Errors         []string  `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Succeeded is true when the run produced no errors
func (r ExecutionResult) Succeeded() bool {
	return len(r.Errors) == 0
}

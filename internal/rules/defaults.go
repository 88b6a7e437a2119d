package rules

import (
	"time"

	"github.com/fenilsonani/tidyrules/internal/scanner"
)

// Default rule ids are stable so a reseeded collection keeps the same rows
const (
	DefaultDownloadsRuleID = "default-download-fragments"
	DefaultCachesRuleID    = "default-application-caches"
)

// DefaultRules returns the rules seeded on first run. Both start disabled.
// cachesDir is the platform's per-user cache directory.
func DefaultRules(cachesDir string) []CleaningRule {
	week := 7 * 24 * time.Hour

	return []CleaningRule{
		{
			ID:          DefaultDownloadsRuleID,
			Name:        "Clean Download Fragments",
			Description: "Move week-old partial downloads to the trash",
			Icon:        "arrow.down.circle",
			Category:    scanner.CategoryIncompleteDownloads,
			Schedule:    ScheduleWeekly,
			Targets: []RuleTarget{{
				Path:     "~/Downloads",
				Category: scanner.CategoryIncompleteDownloads,
				Criterion: scanner.ScanCriterion{}.
					WithPattern(`\.part$|\.download$|\.crdownload$`).
					WithMinSize(1_000_000).
					WithMinAge(week),
				Action: ActionTrash,
			}},
		},
		{
			ID:          DefaultCachesRuleID,
			Name:        "Clean Application Caches",
			Description: "Delete oversized application cache files",
			Icon:        "folder.badge.minus",
			Category:    scanner.CategoryApplicationCaches,
			Schedule:    ScheduleMonthly,
			Targets: []RuleTarget{{
				Path:      cachesDir,
				Category:  scanner.CategoryApplicationCaches,
				Criterion: scanner.ScanCriterion{}.WithMinSize(500_000_000),
				Action:    ActionDelete,
			}},
		},
	}
}

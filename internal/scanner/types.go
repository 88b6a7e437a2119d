package scanner

import (
	"fmt"
	"sort"
	"time"
)

// RiskTier tells the caller how safe deleting a match is presumed to be
type RiskTier int

const (
	RiskLow RiskTier = iota
	RiskMedium
	RiskHigh
)

// String returns the lowercase name of the tier
func (r RiskTier) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalText encodes the tier by name for YAML and JSON output
func (r RiskTier) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a tier name
func (r *RiskTier) UnmarshalText(text []byte) error {
	tier, err := ParseRiskTier(string(text))
	if err != nil {
		return err
	}
	*r = tier
	return nil
}

// ParseRiskTier converts "low", "medium" or "high" into a RiskTier
func ParseRiskTier(s string) (RiskTier, error) {
	switch s {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	default:
		return RiskLow, fmt.Errorf("unknown risk tier: %q", s)
	}
}

// ProblemEntry is a single scan hit.
//
// Size is the number of bytes reclaimed if the entry were deleted as a unit,
// so a directory entry carries the sum of all descendant file sizes.
type ProblemEntry struct {
	Path     string    `json:"path" yaml:"path"`
	Name     string    `json:"name" yaml:"name"`
	Size     int64     `json:"size" yaml:"size"`
	ModTime  time.Time `json:"mod_time" yaml:"mod_time"`
	Category string    `json:"category" yaml:"category"`
	Risk     RiskTier  `json:"risk" yaml:"risk"`
	IsDir    bool      `json:"is_dir" yaml:"is_dir"`
	Selected bool      `json:"selected" yaml:"selected"`
}

// ScanResult is what a finished scan delivers to its observer
type ScanResult struct {
	Entries    []ProblemEntry
	Errors     []string
	Cancelled  bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// TotalSize sums the size of every entry.
// Directory entries and their matching descendants are both counted, so the
// total can exceed the space actually reclaimable.
func (r *ScanResult) TotalSize() int64 {
	var total int64
	for _, e := range r.Entries {
		total += e.Size
	}
	return total
}

// Selected returns the entries marked for deletion
func (r *ScanResult) Selected() []ProblemEntry {
	var out []ProblemEntry
	for _, e := range r.Entries {
		if e.Selected {
			out = append(out, e)
		}
	}
	return out
}

// CategoryGroup aggregates the entries of one category
type CategoryGroup struct {
	Category string
	Risk     RiskTier
	Entries  []ProblemEntry
	Size     int64
}

// GroupByCategory groups results by their category
func (r *ScanResult) GroupByCategory() map[string]*CategoryGroup {
	grouped := make(map[string]*CategoryGroup)

	for _, e := range r.Entries {
		g, ok := grouped[e.Category]
		if !ok {
			g = &CategoryGroup{Category: e.Category, Risk: e.Risk}
			grouped[e.Category] = g
		}
		g.Entries = append(g.Entries, e)
		g.Size += e.Size
	}

	return grouped
}

// SortedGroups returns the category groups largest first
func (r *ScanResult) SortedGroups() []*CategoryGroup {
	grouped := r.GroupByCategory()
	groups := make([]*CategoryGroup, 0, len(grouped))
	for _, g := range grouped {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Size == groups[j].Size {
			return groups[i].Category < groups[j].Category
		}
		return groups[i].Size > groups[j].Size
	})
	return groups
}

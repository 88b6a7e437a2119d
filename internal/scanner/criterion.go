package scanner

import (
	"fmt"
	"regexp"
	"time"
)

// ScanCriterion describes which entries count as a match.
// Unset fields impose no constraint, so the zero value matches everything.
type ScanCriterion struct {
	// Pattern is a regular expression tested against the base name only
	Pattern string         `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinSize *int64         `json:"min_size,omitempty" yaml:"min_size,omitempty"`
	MinAge  *time.Duration `json:"min_age,omitempty" yaml:"min_age,omitempty"`
}

// WithPattern returns a copy of c with the pattern set
func (c ScanCriterion) WithPattern(pattern string) ScanCriterion {
	c.Pattern = pattern
	return c
}

// WithMinSize returns a copy of c requiring size > n bytes
func (c ScanCriterion) WithMinSize(n int64) ScanCriterion {
	c.MinSize = &n
	return c
}

// WithMinAge returns a copy of c requiring an age > d
func (c ScanCriterion) WithMinAge(d time.Duration) ScanCriterion {
	c.MinAge = &d
	return c
}

// IsEmpty reports whether no constraint is set
func (c ScanCriterion) IsEmpty() bool {
	return c.Pattern == "" && c.MinSize == nil && c.MinAge == nil
}

// Validate checks that the pattern compiles and thresholds are not negative
func (c ScanCriterion) Validate() error {
	_, err := CompileCriterion(c)
	return err
}

// EntryMeta is the stat data the classifier looks at
type EntryMeta struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Matcher is a compiled ScanCriterion, safe for concurrent use
type Matcher struct {
	re      *regexp.Regexp
	minSize *int64
	minAge  *time.Duration
}

// CompileCriterion compiles the criterion pattern once so it can be applied
// to many entries.
func CompileCriterion(c ScanCriterion) (*Matcher, error) {
	m := &Matcher{minSize: c.MinSize, minAge: c.MinAge}

	if c.MinSize != nil && *c.MinSize < 0 {
		return nil, fmt.Errorf("size threshold must be >= 0, got %d", *c.MinSize)
	}
	if c.MinAge != nil && *c.MinAge < 0 {
		return nil, fmt.Errorf("age threshold must be >= 0, got %s", *c.MinAge)
	}

	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)
		}
		m.re = re
	}

	return m, nil
}

// MustCompileCriterion is like CompileCriterion but panics on error.
// Only used for the built-in category table.
func MustCompileCriterion(c ScanCriterion) *Matcher {
	m, err := CompileCriterion(c)
	if err != nil {
		panic(err)
	}
	return m
}

// HasPattern reports whether a name pattern is part of the criterion
func (m *Matcher) HasPattern() bool {
	return m.re != nil
}

// MatchesName applies only the name pattern. Without a pattern every name matches.
func (m *Matcher) MatchesName(name string) bool {
	if m.re == nil {
		return true
	}
	return m.re.MatchString(name)
}

// Matches applies every set constraint. Size and age comparisons are strict.
func (m *Matcher) Matches(meta EntryMeta, now time.Time) bool {
	if !m.MatchesName(meta.Name) {
		return false
	}
	return m.matchesThresholds(meta, now)
}

func (m *Matcher) matchesThresholds(meta EntryMeta, now time.Time) bool {
	if m.minSize != nil && meta.Size <= *m.minSize {
		return false
	}
	if m.minAge != nil {
		if meta.ModTime.IsZero() {
			return false
		}
		if now.Sub(meta.ModTime) <= *m.minAge {
			return false
		}
	}
	return true
}

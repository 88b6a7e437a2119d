package scanner

import (
	"sort"
	"sync"
)

// Built-in category names
const (
	CategoryMediaAnalysis       = "Apple Media Analysis"
	CategoryIncompleteDownloads = "Incomplete Downloads"
	CategoryApplicationCaches   = "Application Caches"
	CategoryDeveloperFiles      = "Developer Files"
	CategorySystemLogs          = "System Logs"
	CategoryDocker              = "Docker"
	CategoryTrash               = "Trash Items"
	CategoryOther               = "Other"
)

// DefaultSizeThreshold applies to categories without a threshold of their own
const DefaultSizeThreshold int64 = 10_000_000

// Category is a named class of wasteful entries with default classification
type Category struct {
	Name     string
	Risk     RiskTier
	Criteria ScanCriterion
}

var builtinCategories = []Category{
	{
		Name:     CategoryMediaAnalysis,
		Risk:     RiskLow,
		Criteria: ScanCriterion{}.WithMinSize(DefaultSizeThreshold),
	},
	{
		Name: CategoryIncompleteDownloads,
		Risk: RiskLow,
		Criteria: ScanCriterion{}.
			WithPattern(`\.part$|\.download$|\.crdownload$|\.unconfirmed$|\.downloading$`).
			WithMinSize(10_000_000),
	},
	{
		Name:     CategoryApplicationCaches,
		Risk:     RiskLow,
		Criteria: ScanCriterion{}.WithMinSize(100_000_000),
	},
	{
		Name: CategoryDeveloperFiles,
		Risk: RiskMedium,
		Criteria: ScanCriterion{}.
			WithPattern(`DerivedData|CoreSimulator|node_modules|__pycache__`).
			WithMinSize(500_000_000),
	},
	{
		Name: CategorySystemLogs,
		Risk: RiskMedium,
		Criteria: ScanCriterion{}.
			WithPattern(`\.log$|\.log\.[0-9]+$`).
			WithMinSize(50_000_000),
	},
	{
		Name: CategoryDocker,
		Risk: RiskMedium,
		Criteria: ScanCriterion{}.
			WithPattern(`docker/containers|docker/volumes`).
			WithMinSize(1_000_000_000),
	},
	{
		Name:     CategoryTrash,
		Risk:     RiskLow,
		Criteria: ScanCriterion{}.WithMinSize(100_000_000),
	},
}

// CategoryOverride replaces parts of a built-in category definition
type CategoryOverride struct {
	Pattern *string
	MinSize *int64
	Risk    *RiskTier
}

// Registry resolves category names to their classification defaults
type Registry struct {
	mu         sync.RWMutex
	categories map[string]Category
}

// NewRegistry returns a registry holding the built-in categories
func NewRegistry() *Registry {
	r := &Registry{categories: make(map[string]Category, len(builtinCategories))}
	for _, c := range builtinCategories {
		r.categories[c.Name] = c
	}
	return r
}

// Apply merges an override into the named category, creating it if unknown
func (r *Registry) Apply(name string, o CategoryOverride) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.categories[name]
	if !ok {
		c = Category{Name: name, Risk: RiskLow, Criteria: ScanCriterion{}.WithMinSize(DefaultSizeThreshold)}
	}
	if o.Pattern != nil {
		c.Criteria.Pattern = *o.Pattern
	}
	if o.MinSize != nil {
		c.Criteria = c.Criteria.WithMinSize(*o.MinSize)
	}
	if o.Risk != nil {
		c.Risk = *o.Risk
	}
	r.categories[name] = c
}

// Lookup returns the named category. Unknown names resolve to a low risk
// category with the default size threshold and no pattern.
func (r *Registry) Lookup(name string) Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.categories[name]; ok {
		return c
	}
	if name == "" {
		name = CategoryOther
	}
	return Category{
		Name:     name,
		Risk:     RiskLow,
		Criteria: ScanCriterion{}.WithMinSize(DefaultSizeThreshold),
	}
}

// Names lists every known category, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.categories))
	for name := range r.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RiskFor returns the risk tier of the named category
func (r *Registry) RiskFor(name string) RiskTier {
	return r.Lookup(name).Risk
}

// PrimaryCategory returns the first category of a location, or "Other"
func PrimaryCategory(categories []string) string {
	if len(categories) == 0 || categories[0] == "" {
		return CategoryOther
	}
	return categories[0]
}

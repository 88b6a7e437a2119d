package scanner

// ScanLocation is a user-chosen root to scan, tagged with categories.
// The first category drives classification.
type ScanLocation struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Path        string   `json:"path" yaml:"path"`
	AccessToken []byte   `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	Categories  []string `json:"categories" yaml:"categories"`
	Enabled     bool     `json:"enabled" yaml:"enabled"`
}

// PrimaryCategory returns the category used to classify this location
func (l ScanLocation) PrimaryCategory() string {
	return PrimaryCategory(l.Categories)
}

// AccessResolver turns a location into a readable root path
type AccessResolver interface {
	ResolveAccess(loc ScanLocation) (string, error)
}

// Package locations manages the user's persisted scan roots.
package locations

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/platform"
	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/internal/storage"
)

// FileName is the location list's file inside the data directory
const FileName = "locations.yaml"

// Store persists the location list
type Store interface {
	Load() ([]scanner.ScanLocation, bool, error)
	Save([]scanner.ScanLocation) error
}

// NewFileStore returns a Store backed by dataDir/locations.yaml
func NewFileStore(dataDir string) *storage.YAMLFile[[]scanner.ScanLocation] {
	return storage.NewYAMLFile[[]scanner.ScanLocation](filepath.Join(dataDir, FileName))
}

// Manager holds the ordered list of scan locations
type Manager struct {
	mu        sync.Mutex
	store     Store
	locations []scanner.ScanLocation
	logger    *zap.Logger
}

// NewManager loads locations from store. On first run defaults are saved.
func NewManager(store Store, defaults []scanner.ScanLocation, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	locs, found, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}

	m := &Manager{store: store, locations: locs, logger: logger}
	if !found {
		m.locations = cloneAll(defaults)
		if err := m.store.Save(m.locations); err != nil {
			return nil, fmt.Errorf("failed to save default locations: %w", err)
		}
		logger.Info("seeded default scan locations", zap.Int("count", len(m.locations)))
	}
	return m, nil
}

// List returns a copy of all locations in order
func (m *Manager) List() []scanner.ScanLocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.locations)
}

// Enabled returns the enabled locations in order
func (m *Manager) Enabled() []scanner.ScanLocation {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []scanner.ScanLocation
	for _, loc := range m.locations {
		if loc.Enabled {
			out = append(out, clone(loc))
		}
	}
	return out
}

// Location looks up a location by ID
func (m *Manager) Location(id string) (scanner.ScanLocation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexOf(id); i >= 0 {
		return clone(m.locations[i]), true
	}
	return scanner.ScanLocation{}, false
}

// Add appends loc. An empty ID is generated, Name defaults to the base of
// Path and the same path cannot be added twice.
func (m *Manager) Add(loc scanner.ScanLocation) (scanner.ScanLocation, error) {
	if !filepath.IsAbs(loc.Path) {
		return scanner.ScanLocation{}, fmt.Errorf("location path must be absolute: %q", loc.Path)
	}
	loc.Path = filepath.Clean(loc.Path)
	if loc.Name == "" {
		loc.Name = filepath.Base(loc.Path)
	}
	if len(loc.Categories) == 0 {
		loc.Categories = []string{scanner.CategoryOther}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if loc.ID == "" {
		loc.ID = newID()
	}
	for _, existing := range m.locations {
		if existing.ID == loc.ID {
			return scanner.ScanLocation{}, fmt.Errorf("location %s already exists", loc.ID)
		}
		if existing.Path == loc.Path {
			return scanner.ScanLocation{}, fmt.Errorf("%s is already a scan location (%s)", loc.Path, existing.Name)
		}
	}

	m.locations = append(m.locations, clone(loc))
	if err := m.persistLocked(); err != nil {
		m.locations = m.locations[:len(m.locations)-1]
		return scanner.ScanLocation{}, err
	}
	return clone(loc), nil
}

// Remove deletes the location with id
func (m *Manager) Remove(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return false, nil
	}
	m.locations = append(m.locations[:i], m.locations[i+1:]...)
	return true, m.persistLocked()
}

// Toggle flips the enabled flag of the location with id
func (m *Manager) Toggle(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return false, nil
	}
	m.locations[i].Enabled = !m.locations[i].Enabled
	return true, m.persistLocked()
}

func (m *Manager) indexOf(id string) int {
	for i, loc := range m.locations {
		if loc.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) persistLocked() error {
	if err := m.store.Save(m.locations); err != nil {
		return fmt.Errorf("failed to save locations: %w", err)
	}
	return nil
}

// DirResolver resolves a location to its path after checking it is a
// readable directory. Access tokens are carried but not interpreted.
type DirResolver struct{}

// ResolveAccess implements scanner.AccessResolver
func (DirResolver) ResolveAccess(loc scanner.ScanLocation) (string, error) {
	info, err := os.Stat(loc.Path)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", loc.Name, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("cannot access %s: %s is not a directory", loc.Name, loc.Path)
	}

	f, err := os.Open(loc.Path)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", loc.Name, err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("cannot read %s: %w", loc.Name, err)
	}
	return loc.Path, nil
}

// DefaultLocations returns the platform's standard roots that exist on disk
func DefaultLocations(info *platform.Info) []scanner.ScanLocation {
	type candidate struct {
		id, name, path, category string
	}

	candidates := []candidate{
		{"downloads", "Downloads", info.DownloadsDir, scanner.CategoryIncompleteDownloads},
		{"caches", "Caches", info.CachesDir, scanner.CategoryApplicationCaches},
	}
	for i, dir := range info.LogDirs {
		id := "logs"
		if i > 0 {
			id = fmt.Sprintf("logs-%d", i+1)
		}
		candidates = append(candidates, candidate{id, "Logs", dir, scanner.CategorySystemLogs})
	}
	candidates = append(candidates,
		candidate{"developer", "Developer", info.DeveloperDir, scanner.CategoryDeveloperFiles},
		candidate{"docker", "Docker", info.DockerDir, scanner.CategoryDocker},
		candidate{"media-analysis", "Media Analysis", info.MediaAnalysisDir, scanner.CategoryMediaAnalysis},
		candidate{"trash", "Trash", info.TrashDir, scanner.CategoryTrash},
	)

	var out []scanner.ScanLocation
	for _, c := range candidates {
		if c.path == "" {
			continue
		}
		if fi, err := os.Stat(c.path); err != nil || !fi.IsDir() {
			continue
		}
		out = append(out, scanner.ScanLocation{
			ID:         c.id,
			Name:       c.name,
			Path:       c.path,
			Categories: []string{c.category},
			Enabled:    true,
		})
	}
	return out
}

func clone(loc scanner.ScanLocation) scanner.ScanLocation {
	loc.Categories = append([]string(nil), loc.Categories...)
	if loc.AccessToken != nil {
		loc.AccessToken = append([]byte(nil), loc.AccessToken...)
	}
	return loc
}

func cloneAll(locs []scanner.ScanLocation) []scanner.ScanLocation {
	out := make([]scanner.ScanLocation, 0, len(locs))
	for _, loc := range locs {
		out = append(out, clone(loc))
	}
	return out
}

func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("loc-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// Package testutil builds throwaway home directories for filesystem tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"
)

// TestFixture is a temp tree shaped like a user's home plus a data dir
type TestFixture struct {
	t    *testing.T
	root string

	HomeDir      string
	DownloadsDir string
	CachesDir    string
	LogsDir      string
	TrashDir     string
	DataDir      string
}

// NewFixture creates the tree under t.TempDir()
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()

	root := t.TempDir()
	home := filepath.Join(root, "home")
	f := &TestFixture{
		t:            t,
		root:         root,
		HomeDir:      home,
		DownloadsDir: filepath.Join(home, "Downloads"),
		CachesDir:    filepath.Join(home, "Library", "Caches"),
		LogsDir:      filepath.Join(home, "Library", "Logs"),
		TrashDir:     filepath.Join(home, ".Trash"),
		DataDir:      filepath.Join(root, "data"),
	}

	for _, dir := range []string{f.DownloadsDir, f.CachesDir, f.LogsDir, f.TrashDir, f.DataDir} {
		f.mkdir(dir)
	}
	return f
}

// Path joins relPath onto the fixture root
func (f *TestFixture) Path(relPath string) string {
	return filepath.Join(f.root, relPath)
}

func (f *TestFixture) mkdir(dir string) {
	f.t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		f.t.Fatalf("mkdir %s: %v", dir, err)
	}
}

// CreateFile writes content at relPath, creating parents
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.t.Helper()

	path := f.Path(relPath)
	f.mkdir(filepath.Dir(path))
	if err := os.WriteFile(path, content, 0644); err != nil {
		f.t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// CreateSizedFile writes size zero bytes at relPath
func (f *TestFixture) CreateSizedFile(relPath string, size int) string {
	f.t.Helper()
	return f.CreateFile(relPath, make([]byte, size))
}

// CreateFileWithAge is CreateSizedFile with the mtime moved age into the past
func (f *TestFixture) CreateFileWithAge(relPath string, size int, age time.Duration) string {
	f.t.Helper()

	path := f.CreateSizedFile(relPath, size)
	then := time.Now().Add(-age)
	if err := os.Chtimes(path, then, then); err != nil {
		f.t.Fatalf("chtimes %s: %v", path, err)
	}
	return path
}

// CreateDir creates relPath and its parents
func (f *TestFixture) CreateDir(relPath string) string {
	f.t.Helper()
	path := f.Path(relPath)
	f.mkdir(path)
	return path
}

// CreateReadOnlyDir makes relPath mode 0555 until the test ends, so nothing
// inside it can be unlinked by a non-root user
func (f *TestFixture) CreateReadOnlyDir(relPath string) string {
	f.t.Helper()

	path := f.CreateDir(relPath)
	if err := os.Chmod(path, 0555); err != nil {
		f.t.Fatalf("chmod %s: %v", path, err)
	}
	f.t.Cleanup(func() { os.Chmod(path, 0755) })
	return path
}

// CreateSymlink links linkPath (relative to the root) to target
func (f *TestFixture) CreateSymlink(target, linkPath string) string {
	f.t.Helper()

	path := f.Path(linkPath)
	f.mkdir(filepath.Dir(path))
	if err := os.Symlink(target, path); err != nil {
		f.t.Fatalf("symlink %s -> %s: %v", path, target, err)
	}
	return path
}

// AssertFileExists checks path with Lstat, so dangling links count
func (f *TestFixture) AssertFileExists(path string) {
	f.t.Helper()
	if _, err := os.Lstat(path); err != nil {
		f.t.Errorf("expected %s to exist: %v", path, err)
	}
}

// AssertFileNotExists fails unless path is gone
func (f *TestFixture) AssertFileNotExists(path string) {
	f.t.Helper()
	if _, err := os.Lstat(path); err == nil {
		f.t.Errorf("expected %s to be gone", path)
	}
}

// SortedPaths returns a sorted copy
func SortedPaths(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	return out
}

// IsRoot reports whether the tests run with euid 0
func IsRoot() bool {
	return os.Geteuid() == 0
}

// SkipIfRoot skips permission tests, which root bypasses
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if IsRoot() {
		t.Skip("permission checks do not apply to root")
	}
}

// SkipOnWindows skips tests relying on unix modes or symlinks
func SkipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix-only")
	}
}

// FixedClock always reports now
func FixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

// Package security guards destructive operations against system paths.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// defaultProtectedPaths are refused on every platform
var defaultProtectedPaths = []string{
	"/",
	"/bin",
	"/boot",
	"/dev",
	"/etc",
	"/lib",
	"/lib64",
	"/proc",
	"/root",
	"/sbin",
	"/sys",
	"/usr",
	"/var",
	"/System",
	"/Applications",
	"/Library/System",
}

// PathValidator handles secure path validation for file operations
type PathValidator struct {
	mu             sync.RWMutex
	protectedPaths []string
}

// NewPathValidator creates a PathValidator with the default protected paths plus extra
func NewPathValidator(extra ...string) *PathValidator {
	pv := &PathValidator{
		protectedPaths: append([]string(nil), defaultProtectedPaths...),
	}
	for _, p := range extra {
		pv.AddProtectedPath(p)
	}
	return pv
}

// CheckProtected refuses protected paths and their direct children.
// The path must be absolute; symlinks in it are resolved first.
func (pv *PathValidator) CheckProtected(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	resolved, err := resolve(path)
	if err != nil {
		return err
	}

	if err := pv.checkProtectedPaths(filepath.Clean(path)); err != nil {
		return err
	}
	return pv.checkProtectedPaths(resolved)
}

// ValidatePathForDeletion is the stricter check applied before a path is
// handed to a privileged command: it must already be clean and free of
// shell metacharacters as well as pass CheckProtected.
func (pv *PathValidator) ValidatePathForDeletion(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	if filepath.Clean(path) != path {
		return fmt.Errorf("path contains suspicious elements: %s", path)
	}

	resolved, err := resolve(path)
	if err != nil {
		return err
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\n", "\r"}
	for _, char := range dangerousChars {
		if strings.Contains(resolved, char) {
			return fmt.Errorf("path contains dangerous characters: %s", resolved)
		}
	}

	if err := pv.checkProtectedPaths(path); err != nil {
		return err
	}
	return pv.checkProtectedPaths(resolved)
}

func resolve(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(path), nil
		}
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	return filepath.Clean(resolved), nil
}

// checkProtectedPaths validates that a path is not a protected directory
// or sits directly inside one
func (pv *PathValidator) checkProtectedPaths(cleanPath string) error {
	pv.mu.RLock()
	defer pv.mu.RUnlock()

	for _, protected := range pv.protectedPaths {
		if cleanPath == protected {
			return fmt.Errorf("refusing to delete protected path: %s", cleanPath)
		}

		prefix := protected
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		if protected != "/" && strings.HasPrefix(cleanPath, prefix) {
			rel, _ := filepath.Rel(protected, cleanPath)
			if !strings.Contains(rel, "/") {
				return fmt.Errorf("refusing to delete critical system path: %s", cleanPath)
			}
		}
	}

	return nil
}

// IsProtectedPath checks if a path is a protected path or anywhere below one
func (pv *PathValidator) IsProtectedPath(path string) bool {
	pv.mu.RLock()
	defer pv.mu.RUnlock()

	cleanPath := filepath.Clean(path)
	for _, protected := range pv.protectedPaths {
		if cleanPath == protected {
			return true
		}
		if protected != "/" && strings.HasPrefix(cleanPath, protected+"/") {
			return true
		}
	}
	return false
}

// AddProtectedPath adds a custom protected path
func (pv *PathValidator) AddProtectedPath(path string) {
	if path == "" {
		return
	}

	pv.mu.Lock()
	defer pv.mu.Unlock()

	cleanPath := filepath.Clean(path)
	for _, existing := range pv.protectedPaths {
		if existing == cleanPath {
			return
		}
	}
	pv.protectedPaths = append(pv.protectedPaths, cleanPath)
}

// ProtectedPaths returns a copy of the protected list
func (pv *PathValidator) ProtectedPaths() []string {
	pv.mu.RLock()
	defer pv.mu.RUnlock()
	return append([]string(nil), pv.protectedPaths...)
}

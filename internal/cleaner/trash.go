package cleaner

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Bios-Marcel/wastebasket/v2"

	"github.com/fenilsonani/tidyrules/internal/platform"
)

const maxTrashNameAttempts = 1000

// Trash moves files into a per-user trash directory. When InfoDir is set a
// freedesktop .trashinfo record is written next to every trashed file so
// desktop file managers can restore it. Files on another volume cannot be
// renamed into it and go to that volume's own trash through wastebasket.
type Trash struct {
	FilesDir string
	InfoDir  string
	now      func() time.Time
	rename   func(oldpath, newpath string) error
	// otherVolume trashes paths that live on a different filesystem
	otherVolume func(paths ...string) error
}

// NewTrash creates a Trash rooted at filesDir; infoDir may be empty
func NewTrash(filesDir, infoDir string) *Trash {
	return &Trash{
		FilesDir:    filesDir,
		InfoDir:     infoDir,
		now:         time.Now,
		rename:      os.Rename,
		otherVolume: wastebasket.Trash,
	}
}

// TrashFor returns the platform's trash for the current user
func TrashFor(info *platform.Info) *Trash {
	return NewTrash(info.TrashDir, info.TrashInfoDir)
}

// Put moves path into the trash and returns its new location.
// Name collisions get a numeric suffix before the extension. A path trashed
// on another volume returns an empty location.
func (t *Trash) Put(path string) (string, error) {
	if err := os.MkdirAll(t.FilesDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create trash: %w", err)
	}
	if t.InfoDir != "" {
		if err := os.MkdirAll(t.InfoDir, 0700); err != nil {
			return "", fmt.Errorf("failed to create trash info: %w", err)
		}
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 0; i < maxTrashNameAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s %d%s", stem, i, ext)
		}
		dest := filepath.Join(t.FilesDir, name)

		infoPath, err := t.reserve(name, dest, path)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		if err := t.rename(path, dest); err != nil {
			if infoPath != "" {
				os.Remove(infoPath)
			}
			if errors.Is(err, syscall.EXDEV) && t.otherVolume != nil {
				if err := t.otherVolume(path); err != nil {
					return "", fmt.Errorf("failed to trash %s on its volume: %w", path, err)
				}
				return "", nil
			}
			return "", err
		}
		return dest, nil
	}

	return "", fmt.Errorf("no free name in trash for %s", base)
}

// reserve claims name in the trash. With an info dir the .trashinfo file is
// created exclusively and acts as the lock for the name.
func (t *Trash) reserve(name, dest, original string) (string, error) {
	if t.InfoDir == "" {
		if _, err := os.Lstat(dest); err == nil {
			return "", os.ErrExist
		}
		return "", nil
	}

	infoPath := filepath.Join(t.InfoDir, name+".trashinfo")
	f, err := os.OpenFile(infoPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := os.Lstat(dest); err == nil {
		os.Remove(infoPath)
		return "", os.ErrExist
	}

	escaped := (&url.URL{Path: original}).EscapedPath()
	_, err = fmt.Fprintf(f, "[Trash Info]\nPath=%s\nDeletionDate=%s\n", escaped, t.now().Format("2006-01-02T15:04:05"))
	if err != nil {
		os.Remove(infoPath)
		return "", fmt.Errorf("failed to write trash info: %w", err)
	}
	return infoPath, nil
}

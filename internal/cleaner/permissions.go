package cleaner

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/fenilsonani/tidyrules/internal/scanner"
)

// PermissionManager decides whether the current user can remove a path
type PermissionManager struct {
	isRoot bool
	uid    string
	gid    string
}

// NewPermissionManager creates a PermissionManager for the current user
func NewPermissionManager() *PermissionManager {
	pm := &PermissionManager{}
	if u, err := user.Current(); err == nil {
		pm.isRoot = u.Uid == "0"
		pm.uid = u.Uid
		pm.gid = u.Gid
	}
	return pm
}

// IsRunningAsRoot checks if the current process is running as root
func (pm *PermissionManager) IsRunningAsRoot() bool {
	return pm.isRoot
}

// CanDelete reports whether the parent directory of path is writable by us.
// Removing a directory entry only needs write permission on its parent.
func (pm *PermissionManager) CanDelete(path string) (bool, error) {
	if pm.isRoot {
		return true, nil
	}

	if _, err := os.Lstat(path); err != nil {
		return false, err
	}

	parentInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		return false, err
	}

	stat, ok := parentInfo.Sys().(*syscall.Stat_t)
	if !ok {
		return false, fmt.Errorf("unable to get file stats")
	}

	mode := parentInfo.Mode()
	switch {
	case strconv.FormatUint(uint64(stat.Uid), 10) == pm.uid:
		return mode&0200 != 0, nil
	case strconv.FormatUint(uint64(stat.Gid), 10) == pm.gid:
		return mode&0020 != 0, nil
	default:
		return mode&0002 != 0, nil
	}
}

// RequiresElevation checks if a path requires elevated permissions to delete
func (pm *PermissionManager) RequiresElevation(path string) bool {
	if pm.isRoot {
		return false
	}

	canDelete, err := pm.CanDelete(path)
	if err != nil {
		return true
	}
	return !canDelete
}

// IsSpecialFile checks if a path is a device, socket or pipe
func IsSpecialFile(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeCharDevice != 0:
		return true, fmt.Errorf("is a character device")
	case mode&os.ModeDevice != 0:
		return true, fmt.Errorf("is a device file")
	case mode&os.ModeSocket != 0:
		return true, fmt.Errorf("is a socket")
	case mode&os.ModeNamedPipe != 0:
		return true, fmt.Errorf("is a named pipe (FIFO)")
	}

	return false, nil
}

// ErrSpecialFile marks devices, sockets and pipes, which are never removed
var ErrSpecialFile = errors.New("refusing to delete special file")

// IsSafeToDelete refuses special files and paths that no longer exist
func IsSafeToDelete(path string) error {
	if isSpecial, err := IsSpecialFile(path); isSpecial {
		return fmt.Errorf("%w: %v", ErrSpecialFile, err)
	}

	if _, err := os.Lstat(path); err != nil {
		return err
	}

	return nil
}

// PermissionReport splits entries by what it takes to remove them
type PermissionReport struct {
	Normal       []scanner.ProblemEntry
	RequiresSudo []scanner.ProblemEntry
	Inaccessible map[string]error
	NormalSize   int64
	SudoSize     int64
}

// AnalyzePermissions sorts entries into normally deletable, elevated and
// inaccessible. Entries that have already vanished are dropped.
func (pm *PermissionManager) AnalyzePermissions(entries []scanner.ProblemEntry) *PermissionReport {
	report := &PermissionReport{
		Inaccessible: make(map[string]error),
	}

	for _, entry := range entries {
		if _, err := os.Lstat(entry.Path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			report.Inaccessible[entry.Path] = err
			continue
		}

		canDelete, err := pm.CanDelete(entry.Path)
		if err != nil {
			report.Inaccessible[entry.Path] = err
			continue
		}

		if canDelete {
			report.Normal = append(report.Normal, entry)
			report.NormalSize += entry.Size
		} else {
			report.RequiresSudo = append(report.RequiresSudo, entry)
			report.SudoSize += entry.Size
		}
	}

	return report
}

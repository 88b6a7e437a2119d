// Package cleaner removes matched entries from disk, either permanently or
// into the user's trash, with an optional privileged fallback.
package cleaner

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/internal/security"
)

// Trasher moves a path somewhere recoverable
type Trasher interface {
	Put(path string) (string, error)
}

// Elevator deletes a path with elevated rights
type Elevator interface {
	DeleteWithPrivileges(ctx context.Context, path string) error
}

// Options configure an Executor
type Options struct {
	// UseElevation enables the privileged fallback after a permission failure
	UseElevation   bool
	ProtectedPaths []string
	// RetryDelays are waited between attempts on transient errors. nil uses
	// the defaults; an empty non-nil slice disables retries.
	RetryDelays []time.Duration
}

var defaultRetryDelays = []time.Duration{
	100 * time.Millisecond,
	500 * time.Millisecond,
	2 * time.Second,
}

// Executor performs delete and trash actions with safety checks
type Executor struct {
	validator    *security.PathValidator
	permissions  *PermissionManager
	trash        Trasher
	elevator     Elevator
	useElevation bool
	retryDelays  []time.Duration
	logger       *zap.Logger
}

// NewExecutor creates an Executor. trash and elevator may be nil.
func NewExecutor(trash Trasher, elevator Elevator, opts Options, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	delays := opts.RetryDelays
	if delays == nil {
		delays = defaultRetryDelays
	}

	return &Executor{
		validator:    security.NewPathValidator(opts.ProtectedPaths...),
		permissions:  NewPermissionManager(),
		trash:        trash,
		elevator:     elevator,
		useElevation: opts.UseElevation,
		retryDelays:  delays,
		logger:       logger,
	}
}

// Delete removes path permanently. Directories are removed recursively and
// symlinks are unlinked without touching their target. A permission failure
// is retried through the Elevator when elevation is enabled.
func (x *Executor) Delete(ctx context.Context, path string) error {
	if err := x.preflight(path); err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		return CategorizeError(path, err)
	}

	delErr := x.removeWithRetry(ctx, path, info.IsDir())
	if delErr == nil {
		return nil
	}

	if delErr.NeedsSudo && x.canElevate() {
		return x.elevate(ctx, path)
	}
	return delErr
}

// MoveToTrash moves path into the configured trash
func (x *Executor) MoveToTrash(ctx context.Context, path string) error {
	if err := x.preflight(path); err != nil {
		return err
	}
	if x.trash == nil {
		return &DeletionError{Path: path, Reason: ErrorUnknown, Original: fmt.Errorf("no trash configured")}
	}

	dest, err := x.trash.Put(path)
	if err != nil {
		return CategorizeError(path, err)
	}

	x.logger.Debug("moved to trash", zap.String("path", path), zap.String("dest", dest))
	return nil
}

// DeleteResult summarizes DeleteEntries
type DeleteResult struct {
	Deleted []string
	// Freed is measured on disk right before each removal, so entries
	// nested inside one another are not counted twice
	Freed  int64
	Failed []*DeletionError
	// Skipped entries vanished before they were reached, usually because a
	// selected parent directory was removed first
	Skipped   []string
	Elevated  int
	Cancelled bool
}

// DeleteEntries permanently removes scan entries. Entries the current user
// cannot remove go straight to the privileged fallback when it is enabled.
func (x *Executor) DeleteEntries(ctx context.Context, entries []scanner.ProblemEntry) *DeleteResult {
	result := &DeleteResult{}
	report := x.permissions.AnalyzePermissions(entries)

	record := func(entry scanner.ProblemEntry, size int64, err error, elevated bool) {
		if err == nil {
			result.Deleted = append(result.Deleted, entry.Path)
			result.Freed += size
			if elevated {
				result.Elevated++
			}
			return
		}
		delErr := CategorizeError(entry.Path, err)
		if delErr.Reason == ErrorFileNotFound {
			result.Skipped = append(result.Skipped, entry.Path)
			return
		}
		result.Failed = append(result.Failed, delErr)
	}

	for _, entry := range report.Normal {
		if ctx.Err() != nil {
			result.Cancelled = true
			return result
		}
		size := onDiskSize(ctx, entry.Path)
		record(entry, size, x.Delete(ctx, entry.Path), false)
	}

	for _, entry := range report.RequiresSudo {
		if ctx.Err() != nil {
			result.Cancelled = true
			return result
		}
		if !x.canElevate() {
			result.Failed = append(result.Failed, &DeletionError{
				Path:      entry.Path,
				Reason:    ErrorPermissionDenied,
				Original:  fmt.Errorf("elevated permissions required"),
				NeedsSudo: true,
			})
			continue
		}
		if err := x.preflight(entry.Path); err != nil {
			record(entry, 0, err, false)
			continue
		}
		size := onDiskSize(ctx, entry.Path)
		record(entry, size, x.elevate(ctx, entry.Path), true)
	}

	paths := make([]string, 0, len(report.Inaccessible))
	for path := range report.Inaccessible {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		result.Failed = append(result.Failed, CategorizeError(path, report.Inaccessible[path]))
	}

	x.logger.Info("deleted entries",
		zap.Int("deleted", len(result.Deleted)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("elevated", result.Elevated),
		zap.Int64("freed", result.Freed),
	)

	return result
}

// onDiskSize is what removing path frees now. A symlink frees nothing of
// its target.
func onDiskSize(ctx context.Context, path string) int64 {
	info, err := os.Lstat(path)
	if err != nil {
		return 0
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return 0
	case info.IsDir():
		size, _ := scanner.DirSize(ctx, path)
		return size
	default:
		return info.Size()
	}
}

func (x *Executor) preflight(path string) error {
	if err := x.validator.CheckProtected(path); err != nil {
		return &DeletionError{Path: path, Reason: ErrorProtectedPath, Original: err}
	}
	if err := IsSafeToDelete(path); err != nil {
		return CategorizeError(path, err)
	}
	return nil
}

// removeWithRetry retries transient failures such as a busy file
func (x *Executor) removeWithRetry(ctx context.Context, path string, isDir bool) *DeletionError {
	for attempt := 0; ; attempt++ {
		var err error
		if isDir {
			err = os.RemoveAll(path)
		} else {
			err = os.Remove(path)
		}
		if err == nil {
			return nil
		}

		delErr := CategorizeError(path, err)
		if !delErr.Retryable || attempt >= len(x.retryDelays) {
			return delErr
		}

		select {
		case <-ctx.Done():
			return delErr
		case <-time.After(x.retryDelays[attempt]):
		}
	}
}

func (x *Executor) canElevate() bool {
	return x.useElevation && x.elevator != nil
}

func (x *Executor) elevate(ctx context.Context, path string) error {
	if err := x.validator.ValidatePathForDeletion(path); err != nil {
		return &DeletionError{Path: path, Reason: ErrorInvalidPath, Original: err, Elevated: true}
	}

	x.logger.Info("retrying with elevated permissions", zap.String("path", path))
	if err := x.elevator.DeleteWithPrivileges(ctx, path); err != nil {
		return &DeletionError{
			Path:      path,
			Reason:    ErrorPermissionDenied,
			Original:  err,
			NeedsSudo: true,
			Elevated:  true,
		}
	}
	return nil
}

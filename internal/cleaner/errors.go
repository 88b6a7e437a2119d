package cleaner

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"
)

// ErrorReason categorizes why a deletion failed
type ErrorReason int

const (
	ErrorPermissionDenied ErrorReason = iota
	ErrorFileInUse
	ErrorFileNotFound
	ErrorIsDirectory
	ErrorInvalidPath
	ErrorProtectedPath
	ErrorCrossDevice
	ErrorUnknown
)

// String returns a human-readable error reason
func (e ErrorReason) String() string {
	switch e {
	case ErrorPermissionDenied:
		return "Permission denied"
	case ErrorFileInUse:
		return "File is in use"
	case ErrorFileNotFound:
		return "File not found"
	case ErrorIsDirectory:
		return "Is a directory"
	case ErrorInvalidPath:
		return "Invalid path"
	case ErrorProtectedPath:
		return "Protected path"
	case ErrorCrossDevice:
		return "Trash is on another volume"
	case ErrorUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// DeletionError describes a failed delete or trash operation
type DeletionError struct {
	Path      string
	Reason    ErrorReason
	Original  error
	Retryable bool
	NeedsSudo bool
	// Elevated is set when the failure came from the privileged fallback
	Elevated bool
}

// Error renders the reason and the underlying cause without the path;
// callers that report per-file errors prefix the path themselves.
func (e *DeletionError) Error() string {
	if e.Original == nil {
		return e.Reason.String()
	}
	return fmt.Sprintf("%s (%v)", e.Reason, e.Original)
}

// Unwrap exposes the underlying error to errors.Is / errors.As
func (e *DeletionError) Unwrap() error {
	return e.Original
}

// UserMessage returns a user-friendly error message
func (e *DeletionError) UserMessage() string {
	switch e.Reason {
	case ErrorPermissionDenied:
		if e.Elevated {
			return fmt.Sprintf("Elevated delete failed: %s", e.Path)
		}
		if e.NeedsSudo {
			return fmt.Sprintf("Need elevated permissions to delete: %s", e.Path)
		}
		return fmt.Sprintf("Permission denied: %s", e.Path)
	case ErrorFileInUse:
		return fmt.Sprintf("File is being used: %s (close the application and try again)", e.Path)
	case ErrorFileNotFound:
		return fmt.Sprintf("Already gone: %s", e.Path)
	case ErrorIsDirectory:
		return fmt.Sprintf("Cannot delete directory: %s", e.Path)
	case ErrorInvalidPath:
		return fmt.Sprintf("Invalid or unsafe path: %s", e.Path)
	case ErrorProtectedPath:
		return fmt.Sprintf("Refusing to touch protected path: %s", e.Path)
	case ErrorCrossDevice:
		return fmt.Sprintf("Cannot move to trash across volumes: %s", e.Path)
	default:
		return fmt.Sprintf("Error deleting %s: %v", e.Path, e.Original)
	}
}

// CategorizeError analyzes an error and returns a categorized DeletionError
func CategorizeError(path string, err error) *DeletionError {
	if err == nil {
		return nil
	}

	var existing *DeletionError
	if errors.As(err, &existing) {
		return existing
	}

	delErr := &DeletionError{
		Path:     path,
		Original: err,
		Reason:   ErrorUnknown,
	}

	switch {
	case errors.Is(err, ErrSpecialFile):
		delErr.Reason = ErrorInvalidPath
		return delErr
	case errors.Is(err, os.ErrNotExist):
		delErr.Reason = ErrorFileNotFound
		return delErr
	case errors.Is(err, os.ErrPermission):
		delErr.Reason = ErrorPermissionDenied
		delErr.NeedsSudo = true
		return delErr
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			delErr.Reason = ErrorPermissionDenied
			delErr.NeedsSudo = true
		case syscall.EBUSY, syscall.ETXTBSY:
			delErr.Reason = ErrorFileInUse
			delErr.Retryable = true
		case syscall.ENOENT:
			delErr.Reason = ErrorFileNotFound
		case syscall.EISDIR:
			delErr.Reason = ErrorIsDirectory
		case syscall.EXDEV:
			delErr.Reason = ErrorCrossDevice
		}
	}

	return delErr
}

// GroupErrors groups deletion errors by reason
func GroupErrors(errs []*DeletionError) map[ErrorReason][]*DeletionError {
	grouped := make(map[ErrorReason][]*DeletionError)
	for _, err := range errs {
		grouped[err.Reason] = append(grouped[err.Reason], err)
	}
	return grouped
}

// FormatErrorSummary creates a user-friendly summary of errors
func FormatErrorSummary(errs []*DeletionError) string {
	if len(errs) == 0 {
		return ""
	}

	grouped := GroupErrors(errs)
	reasons := make([]ErrorReason, 0, len(grouped))
	for reason := range grouped {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	var b strings.Builder
	b.WriteString("Issues encountered:\n")
	for i, reason := range reasons {
		branch := "├─"
		if i == len(reasons)-1 {
			branch = "└─"
		}
		fmt.Fprintf(&b, "   %s %s: %d\n", branch, reason, len(grouped[reason]))

		switch reason {
		case ErrorPermissionDenied:
			b.WriteString("   │  └─ Tip: enable deletion.use_elevation or run with sudo\n")
		case ErrorFileInUse:
			b.WriteString("   │  └─ Tip: close applications and retry\n")
		case ErrorCrossDevice:
			b.WriteString("   │  └─ Tip: use the delete action for files on other volumes\n")
		}
	}

	return b.String()
}

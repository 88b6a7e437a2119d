package cleaner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// Elevation methods
const (
	MethodSudo   = "sudo"
	MethodPkexec = "pkexec"
	MethodNone   = "none"
)

// ErrNoElevation is returned when no privileged session can be obtained
var ErrNoElevation = errors.New("elevated permissions unavailable")

// commandRunner executes name with args, feeding stdin when non-nil
type commandRunner func(ctx context.Context, stdin []byte, name string, args ...string) error

// SudoElevator deletes paths through sudo or pkexec. An existing sudo
// session is reused; otherwise the password is asked for once on the
// terminal and kept until Clear.
type SudoElevator struct {
	method      string
	interactive bool
	maxRetries  int
	logger      *zap.Logger

	mu       sync.Mutex
	password []byte

	run      commandRunner
	prompt   func() ([]byte, error)
	lookPath func(string) (string, error)
}

// NewSudoElevator creates an elevator using method ("sudo" or "pkexec").
// interactive allows prompting for a sudo password on the terminal.
func NewSudoElevator(method string, interactive bool, logger *zap.Logger) *SudoElevator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if method == "" {
		method = MethodSudo
	}
	return &SudoElevator{
		method:      method,
		interactive: interactive,
		maxRetries:  3,
		logger:      logger,
		run:         runCommand,
		prompt:      promptPassword,
		lookPath:    exec.LookPath,
	}
}

// Available reports whether the elevation binary is installed
func (s *SudoElevator) Available() bool {
	if s.method == MethodNone {
		return false
	}
	_, err := s.lookPath(s.method)
	return err == nil
}

// DeleteWithPrivileges removes path recursively as root and verifies it is gone
func (s *SudoElevator) DeleteWithPrivileges(ctx context.Context, path string) error {
	if !s.Available() {
		return fmt.Errorf("%w: %s not installed", ErrNoElevation, s.method)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		lastErr = s.deleteOnce(ctx, path)
		if lastErr == nil {
			if _, err := os.Lstat(path); os.IsNotExist(err) {
				return nil
			}
			lastErr = fmt.Errorf("deletion reported success but %s still exists", path)
			continue
		}
		if !isRetryableError(lastErr) {
			return lastErr
		}

		backoff := time.Duration(attempt*attempt*100) * time.Millisecond
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(backoff):
		}
	}
	return lastErr
}

func (s *SudoElevator) deleteOnce(ctx context.Context, path string) error {
	rm := []string{"rm", "-rf", "--", path}

	if s.method == MethodPkexec {
		return s.run(ctx, nil, "pkexec", rm...)
	}

	if s.checkSession(ctx) {
		return s.run(ctx, nil, "sudo", append([]string{"-n"}, rm...)...)
	}

	password, err := s.authenticate(ctx)
	if err != nil {
		return err
	}
	defer clearBytes(password)

	return s.run(ctx, withNewline(password), "sudo", append([]string{"-S"}, rm...)...)
}

// checkSession reports whether sudo works without a password right now
func (s *SudoElevator) checkSession(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.run(ctx, nil, "sudo", "-n", "true") == nil
}

// authenticate returns a copy of the cached password, prompting once
func (s *SudoElevator) authenticate(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.password != nil {
		return append([]byte(nil), s.password...), nil
	}
	if !s.interactive {
		return nil, fmt.Errorf("%w: no active sudo session", ErrNoElevation)
	}

	password, err := s.prompt()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("password cannot be empty")
	}

	if err := s.run(ctx, withNewline(password), "sudo", "-S", "-v"); err != nil {
		clearBytes(password)
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	s.password = password
	s.logger.Info("sudo session authenticated")
	return append([]byte(nil), password...), nil
}

// Clear wipes the cached password and invalidates the sudo timestamp
func (s *SudoElevator) Clear() {
	s.mu.Lock()
	hadPassword := s.password != nil
	if hadPassword {
		clearBytes(s.password)
		s.password = nil
	}
	s.mu.Unlock()

	if hadPassword && s.method == MethodSudo {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.run(ctx, nil, "sudo", "-k")
	}
}

func promptPassword() ([]byte, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "\nSome entries require elevated permissions.\nPassword (Ctrl+C to skip): ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	return password, err
}

func runCommand(ctx context.Context, stdin []byte, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
		defer clearBytes(stdin)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s timed out", name)
		}
		return fmt.Errorf("%s failed: %w (stderr: %s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, ErrNoElevation) {
		return false
	}

	errStr := strings.ToLower(err.Error())

	for _, nr := range []string{
		"permission denied",
		"operation not permitted",
		"read-only file system",
		"incorrect password",
		"authentication failed",
		"password cannot be empty",
		"not a terminal",
	} {
		if strings.Contains(errStr, nr) {
			return false
		}
	}

	for _, r := range []string{
		"resource temporarily unavailable",
		"text file busy",
		"device or resource busy",
		"timed out",
		"still exists",
	} {
		if strings.Contains(errStr, r) {
			return true
		}
	}

	return false
}

func withNewline(b []byte) []byte {
	out := make([]byte, 0, len(b)+1)
	out = append(out, b...)
	return append(out, '\n')
}

// clearBytes securely zeros a byte slice
func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

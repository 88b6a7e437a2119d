package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/storage"
)

// ErrAlreadyRunning is returned when another live daemon holds the lock
var ErrAlreadyRunning = errors.New("daemon already running")

// ReadPid reads the process id stored in a pid or lock file
func ReadPid(path string) (int32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid pid in %s: %w", path, err)
	}
	return int32(pid), nil
}

// IsProcessRunning reports whether pid names a live process
func IsProcessRunning(pid int32) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExistsWithContext(context.Background(), pid)
	return err == nil && exists
}

// RunningPid returns the pid of the daemon recorded in pidFile when that
// process is still alive
func RunningPid(pidFile string) (int32, bool) {
	pid, err := ReadPid(pidFile)
	if err != nil {
		return 0, false
	}
	return pid, IsProcessRunning(pid)
}

func (d *Daemon) lockFile() string {
	return d.pidFile + ".lock"
}

// acquireLock creates the lock file exclusively. A lock left behind by a
// dead process is removed and taken over.
func (d *Daemon) acquireLock() error {
	if err := os.MkdirAll(filepath.Dir(d.pidFile), 0755); err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(d.lockFile(), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
		if err == nil {
			_, err = fmt.Fprintf(file, "%d\n", os.Getpid())
			file.Close()
			return err
		}
		if !os.IsExist(err) {
			return err
		}

		pid, readErr := ReadPid(d.lockFile())
		if readErr == nil && IsProcessRunning(pid) {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		d.logger.Warn("removing stale lock file", zap.String("path", d.lockFile()))
		if err := os.Remove(d.lockFile()); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return ErrAlreadyRunning
}

func (d *Daemon) releaseLock() error {
	return os.Remove(d.lockFile())
}

func (d *Daemon) writePidFile() error {
	return storage.WriteFileAtomic(d.pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

func (d *Daemon) removePidFile() error {
	return os.Remove(d.pidFile)
}

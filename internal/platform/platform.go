package platform

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// Platform represents the operating system platform
type Platform string

const (
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Unknown Platform = "unknown"
)

// AppName names the per-user config and data directories
const AppName = "tidyrules"

// Info contains the per-user locations the scanner and cleaner care about
type Info struct {
	OS       Platform
	HomeDir  string
	Username string

	DownloadsDir string
	CachesDir    string
	LogDirs      []string
	DeveloperDir string
	DockerDir    string
	// MediaAnalysisDir is only set on macOS
	MediaAnalysisDir string

	// TrashDir receives trashed files. TrashInfoDir holds freedesktop
	// .trashinfo records and is empty where the platform has none.
	TrashDir     string
	TrashInfoDir string

	ProtectedPaths []string
}

// Detect returns the current platform
func Detect() Platform {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// GetInfo returns the current user's platform information
func GetInfo() (*Info, error) {
	currentUser, err := user.Current()
	if err != nil {
		return nil, err
	}
	return InfoFor(Detect(), currentUser.HomeDir, currentUser.Username)
}

// InfoFor builds Info for an explicit platform and home directory
func InfoFor(p Platform, homeDir, username string) (*Info, error) {
	switch p {
	case MacOS:
		return getMacOSInfo(homeDir, username), nil
	case Linux:
		return getLinuxInfo(homeDir, username), nil
	default:
		return nil, ErrUnsupportedPlatform
	}
}

// GetUserCacheDir returns the user's cache directory
func GetUserCacheDir() (string, error) {
	switch Detect() {
	case MacOS:
		return os.UserCacheDir()
	case Linux:
		if cacheDir := os.Getenv("XDG_CACHE_HOME"); cacheDir != "" {
			return cacheDir, nil
		}
		currentUser, err := user.Current()
		if err != nil {
			return "", err
		}
		return filepath.Join(currentUser.HomeDir, ".cache"), nil
	default:
		return "", ErrUnsupportedPlatform
	}
}

// GetUserConfigDir returns the user's config directory.
// Both platforms use XDG layout so the CLI and daemon agree on one path.
func GetUserConfigDir() (string, error) {
	if configDir := os.Getenv("XDG_CONFIG_HOME"); configDir != "" {
		return configDir, nil
	}
	currentUser, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(currentUser.HomeDir, ".config"), nil
}

// DefaultDataDir is where rules, locations and disk history are stored
func DefaultDataDir() (string, error) {
	dir, err := GetUserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// Errors
var (
	ErrUnsupportedPlatform = &PlatformError{"unsupported platform"}
)

// PlatformError represents a platform-related error
type PlatformError struct {
	Message string
}

func (e *PlatformError) Error() string {
	return e.Message
}

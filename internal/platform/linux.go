package platform

import (
	"os"
	"path/filepath"
)

// getLinuxInfo returns freedesktop locations for Linux
func getLinuxInfo(homeDir, username string) *Info {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(homeDir, ".local", "share")
	}
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		cacheHome = filepath.Join(homeDir, ".cache")
	}
	trash := filepath.Join(dataHome, "Trash")

	return &Info{
		OS:           Linux,
		HomeDir:      homeDir,
		Username:     username,
		DownloadsDir: filepath.Join(homeDir, "Downloads"),
		CachesDir:    cacheHome,
		LogDirs: []string{
			filepath.Join(dataHome, "logs"),
			filepath.Join(homeDir, ".local", "state"),
		},
		DeveloperDir: filepath.Join(homeDir, "Developer"),
		DockerDir:    filepath.Join(dataHome, "docker"),
		TrashDir:     filepath.Join(trash, "files"),
		TrashInfoDir: filepath.Join(trash, "info"),
		ProtectedPaths: []string{
			"/",
			"/bin",
			"/boot",
			"/dev",
			"/etc",
			"/home",
			"/lib",
			"/lib64",
			"/opt",
			"/proc",
			"/root",
			"/run",
			"/sbin",
			"/srv",
			"/sys",
			"/usr",
			"/var/lib",
			"/var/db",
			homeDir,
			filepath.Join(homeDir, ".config"),
			filepath.Join(homeDir, "Documents"),
			filepath.Join(homeDir, "Desktop"),
			filepath.Join(homeDir, "Pictures"),
			filepath.Join(homeDir, "Music"),
			filepath.Join(homeDir, "Videos"),
		},
	}
}

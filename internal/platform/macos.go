package platform

import "path/filepath"

// getMacOSInfo returns Finder-style locations for macOS
func getMacOSInfo(homeDir, username string) *Info {
	library := filepath.Join(homeDir, "Library")

	return &Info{
		OS:           MacOS,
		HomeDir:      homeDir,
		Username:     username,
		DownloadsDir: filepath.Join(homeDir, "Downloads"),
		CachesDir:    filepath.Join(library, "Caches"),
		LogDirs: []string{
			filepath.Join(library, "Logs"),
		},
		DeveloperDir:     filepath.Join(library, "Developer"),
		DockerDir:        filepath.Join(library, "Containers", "com.docker.docker", "Data"),
		MediaAnalysisDir: filepath.Join(library, "Containers", "com.apple.mediaanalysisd", "Data", "Library", "Caches"),
		TrashDir:         filepath.Join(homeDir, ".Trash"),
		ProtectedPaths: []string{
			"/",
			"/System",
			"/Applications",
			"/Library/System",
			"/bin",
			"/sbin",
			"/usr",
			"/etc",
			"/var",
			"/dev",
			"/private/etc",
			"/private/var/db",
			homeDir,
			filepath.Join(library, "Application Support"),
			filepath.Join(library, "Preferences"),
			filepath.Join(homeDir, "Documents"),
			filepath.Join(homeDir, "Desktop"),
			filepath.Join(homeDir, "Pictures"),
			filepath.Join(homeDir, "Music"),
			filepath.Join(homeDir, "Movies"),
		},
	}
}

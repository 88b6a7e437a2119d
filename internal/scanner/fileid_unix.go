//go:build unix

package scanner

import "golang.org/x/sys/unix"

// fileID identifies a directory independent of the path used to reach it
type fileID struct {
	dev uint64
	ino uint64
}

// identify stats path, following symlinks, and returns its device/inode pair
func identify(path string) (fileID, bool) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileID{}, false
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}

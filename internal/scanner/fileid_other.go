//go:build !unix

package scanner

type fileID struct {
	dev uint64
	ino uint64
}

// identify has no inode data here, so symlinked directories are not followed
func identify(path string) (fileID, bool) {
	return fileID{}, false
}

package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileSizeBytes returns the size of a file, or 0 when it does not exist.
func FileSizeBytes(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

// DirSizeBytes returns the total size of all regular files under a directory.
// Missing directories count as zero rather than erroring, since artifact
// directories may not exist yet on a fresh install.
func DirSizeBytes(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

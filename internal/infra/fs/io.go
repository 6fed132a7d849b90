package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
)

// FsyncDir syncs directory metadata to disk so a completed rename survives
// a crash. Only meaningful on the OS filesystem.
func FsyncDir(dirPath string) error {
	if dirPath == "" {
		return fmt.Errorf("FsyncDir: directory path is empty")
	}

	dir, err := os.Open(dirPath)
	if err != nil {
		return fmt.Errorf("FsyncDir: failed to open directory %s: %w", dirPath, err)
	}
	defer dir.Close()

	if err := dir.Sync(); err != nil {
		return fmt.Errorf("FsyncDir: failed to sync directory %s: %w", dirPath, err)
	}
	return nil
}

// WriteFileAtomic writes data next to path under a unique temporary name,
// syncs it and renames it into place. Readers never observe a partial file
// and concurrent writers of different paths never share a temp file.
func WriteFileAtomic(fsys afero.Fs, path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return fmt.Errorf("write file atomic: path is empty")
	}
	if perm == 0 {
		perm = 0644
	}

	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("write file atomic %s: failed to create parent dir: %w", path, err)
	}

	// Temp file stays in the destination directory so the rename is same-filesystem
	tempFile := filepath.Join(dir, fmt.Sprintf(".tmp.%s.%s", filepath.Base(path), ulid.Make()))
	f, err := fsys.OpenFile(tempFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("write file atomic %s: failed to create temp file: %w", path, err)
	}
	renamed := false
	defer func() {
		if !renamed {
			f.Close()
			fsys.Remove(tempFile)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write file atomic %s: failed to write data: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("write file atomic %s: failed to sync file: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write file atomic %s: failed to close file: %w", path, err)
	}

	if err := fsys.Rename(tempFile, path); err != nil {
		return fmt.Errorf("write file atomic %s -> %s: %w", tempFile, path, err)
	}
	renamed = true

	if _, ok := fsys.(*afero.OsFs); ok {
		if err := FsyncDir(dir); err != nil {
			return fmt.Errorf("write file atomic %s: rename succeeded but parent sync failed: %w", path, err)
		}
	}
	return nil
}

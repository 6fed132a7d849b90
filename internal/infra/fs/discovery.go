package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
)

// Discovered is one input file found in a folder
type Discovered struct {
	Path     string
	FileType model.FileType
}

// Discover walks dir and its sub-directories for data files, in lexical
// order per directory; that order is the discovery order used for
// results. Hidden entries, files with an unsupported extension and the
// directories named in skip (typically the report output) are left out.
func Discover(fsys afero.Fs, dir string, skip ...string) ([]Discovered, error) {
	fi, err := fsys.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("discover %s: not a directory", dir)
	}

	root := filepath.Clean(dir)
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		if s != "" {
			skipped[filepath.Clean(s)] = true
		}
	}

	var out []Discovered
	err = afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") || skipped[path] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		ft, err := model.FileTypeFromPath(info.Name())
		if err != nil {
			return nil
		}
		out = append(out, Discovered{Path: path, FileType: ft})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", dir, err)
	}
	return out, nil
}

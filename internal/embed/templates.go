package embed

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	dfs "github.com/YoshitsuguKoike/deecheck/internal/infra/fs"
)

//go:embed templates/report/*.tmpl templates/config/*.yaml
var templatesFS embed.FS

// Template represents a file to be written by init
type Template struct {
	Path    string
	Content []byte
	Mode    os.FileMode
}

// ReportTemplate returns the report template source, e.g. "report.md.tmpl"
func ReportTemplate(name string) (string, error) {
	b, err := templatesFS.ReadFile(path.Join("templates/report", name))
	if err != nil {
		return "", fmt.Errorf("report template %s: %w", name, err)
	}
	return string(b), nil
}

// SampleConfig returns the sample validation config for a file type
func SampleConfig(fileType string) ([]byte, error) {
	b, err := templatesFS.ReadFile(path.Join("templates/config", fileType+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("no sample config for file type %q: %w", fileType, err)
	}
	return b, nil
}

// SampleConfigTypes lists the file types that have a sample config
func SampleConfigTypes() ([]string, error) {
	entries, err := templatesFS.ReadDir("templates/config")
	if err != nil {
		return nil, err
	}
	types := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		types = append(types, name[:len(name)-len(path.Ext(name))])
	}
	return types, nil
}

// WriteTemplateResult represents the result of writing a template
type WriteTemplateResult struct {
	Path   string
	Action string // "WROTE", "SKIP", "WROTE (force)"
}

// WriteTemplate writes a template file atomically and returns the action taken
func WriteTemplate(fsys afero.Fs, baseDir string, tmpl Template, force bool) (*WriteTemplateResult, error) {
	fullPath := tmpl.Path
	if baseDir != "" && !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(baseDir, tmpl.Path)
	}
	result := &WriteTemplateResult{Path: fullPath}

	exists, err := afero.Exists(fsys, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", fullPath, err)
	}
	if exists && !force {
		result.Action = "SKIP"
		return result, nil
	}

	mode := tmpl.Mode
	if mode == 0 {
		mode = 0644
	}
	if err := dfs.WriteFileAtomic(fsys, fullPath, tmpl.Content, mode); err != nil {
		return nil, err
	}

	if force && exists {
		result.Action = "WROTE (force)"
	} else {
		result.Action = "WROTE"
	}
	return result, nil
}

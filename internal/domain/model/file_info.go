package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileType represents the container format of an input file
type FileType string

const (
	FileTypeCSV   FileType = "csv"
	FileTypeJSON  FileType = "json"
	FileTypeJSONL FileType = "jsonl"
)

// String returns the string representation
func (f FileType) String() string {
	return string(f)
}

// IsValid validates the file type
func (f FileType) IsValid() bool {
	switch f {
	case FileTypeCSV, FileTypeJSON, FileTypeJSONL:
		return true
	default:
		return false
	}
}

// IsJSONFamily reports whether records are decoded JSON values
func (f FileType) IsJSONFamily() bool {
	return f == FileTypeJSON || f == FileTypeJSONL
}

// FileTypeFromPath infers the file type from the extension.
// .ndjson is treated as JSONL.
func FileTypeFromPath(path string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FileTypeCSV, nil
	case ".json":
		return FileTypeJSON, nil
	case ".jsonl", ".ndjson":
		return FileTypeJSONL, nil
	default:
		return "", fmt.Errorf("unsupported file extension: %q", filepath.Ext(path))
	}
}

// DefaultEncoding is assumed when a config omits file_info.encoding
const DefaultEncoding = "utf-8"

// FileInfo describes how an input file is laid out
type FileInfo struct {
	FileType FileType
	Encoding string
	// Delimiter is zero when it must be inferred from the file
	Delimiter rune
	HasHeader bool
	// ExpectedRows is advisory; zero means unset
	ExpectedRows int
	// JSONSchema is the decoded schema document; nil when unset
	JSONSchema     map[string]any
	JSONRootPath   string
	JSONLArrayMode bool
}

// DelimiterDeclared reports whether the config pinned a delimiter
func (fi FileInfo) DelimiterDeclared() bool {
	return fi.Delimiter != 0
}

// EncodingOrDefault returns the declared encoding or utf-8
func (fi FileInfo) EncodingOrDefault() string {
	if strings.TrimSpace(fi.Encoding) == "" {
		return DefaultEncoding
	}
	return strings.ToLower(strings.TrimSpace(fi.Encoding))
}

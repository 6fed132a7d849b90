// Package source turns CSV, JSON and JSONL files into a pull-based sequence
// of records keyed by field name. Nothing here loads a whole file.
package source

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
)

var (
	// ErrRootPathNotFound is returned when json_root_path does not resolve
	ErrRootPathNotFound = errors.New("root path not found")
	// ErrNotContainer is returned when the record root is neither an array nor an object
	ErrNotContainer = errors.New("record root is not an array or object")
)

// Source yields records in file order. Next returns io.EOF after the last
// record. Any other error ends the stream; it is a *StreamError when the
// failing position is known.
type Source interface {
	Next() (*Record, error)
}

// HeaderProvider is implemented by sources that consumed a header row
type HeaderProvider interface {
	Header() []string
	HeaderRow() int
}

// StreamError reports a failure that stops the stream at Row
type StreamError struct {
	Row int
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Record is one logical unit of data reduced to field name -> value.
// CSV values are strings; JSON values are decoded with json.Number.
type Record struct {
	RowNumber int
	SubRow    int
	Fields    map[string]any
	// Width is the number of CSV fields observed on the row; zero for JSON
	Width int
	// ParseErr marks a row whose text could not be parsed
	ParseErr error
	// ShapeErr marks a parsed value that cannot be a record (e.g. a scalar line)
	ShapeErr error
	// Value is the decoded JSON value, used for schema checks
	Value any
}

// Lookup returns the value bound to name. Names containing dots or
// [i] segments resolve into nested JSON values when no flat key matches.
func (r *Record) Lookup(name string) (any, bool) {
	if r == nil || r.Fields == nil {
		return nil, false
	}
	if v, ok := r.Fields[name]; ok {
		return v, true
	}
	if !strings.ContainsAny(name, ".[") {
		return nil, false
	}
	segs, err := ParsePath(name)
	if err != nil {
		return nil, false
	}
	return Walk(r.Fields, segs)
}

// Options configure Open
type Options struct {
	Info model.FileInfo
	// Delimiter is the resolved CSV delimiter; defaults to ','
	Delimiter rune
	// Columns are rule names in declaration order, used to bind headerless CSV
	Columns []string
}

// Open builds the source matching opts.Info.FileType over already-decoded UTF-8 text
func Open(r io.Reader, opts Options) (Source, error) {
	switch opts.Info.FileType {
	case model.FileTypeCSV:
		return NewCSV(r, opts)
	case model.FileTypeJSON:
		return NewJSON(r, opts.Info.JSONRootPath)
	case model.FileTypeJSONL:
		return NewJSONL(r, opts.Info.JSONLArrayMode), nil
	default:
		return nil, fmt.Errorf("unsupported file type: %q", opts.Info.FileType)
	}
}

package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// MaxLineSize bounds a single JSONL line
const MaxLineSize = 16 * 1024 * 1024

// JSONLSource yields one record per non-blank line. Blank lines are
// skipped but still advance the line counter so row numbers stay physical.
type JSONLSource struct {
	sc        *bufio.Scanner
	arrayMode bool
	line      int
	pending   []*Record
}

// NewJSONL wraps r. In array mode a line holding a JSON array yields one
// record per element, numbered as sub-rows of that line.
func NewJSONL(r io.Reader, arrayMode bool) *JSONLSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &JSONLSource{sc: sc, arrayMode: arrayMode}
}

// Next returns the next record. A line that fails to parse becomes a
// record carrying ParseErr; the stream continues.
func (s *JSONLSource) Next() (*Record, error) {
	for len(s.pending) == 0 {
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return nil, &StreamError{Row: s.line + 1, Err: err}
			}
			return nil, io.EOF
		}
		s.line++

		text := bytes.TrimSpace(s.sc.Bytes())
		if len(text) == 0 {
			continue
		}
		v, err := decodeLine(text)
		if err != nil {
			return &Record{RowNumber: s.line, ParseErr: err}, nil
		}

		arr, isArray := v.([]any)
		if !isArray {
			return recordFor(s.line, 0, v), nil
		}
		if !s.arrayMode {
			return &Record{
				RowNumber: s.line,
				Value:     v,
				ShapeErr:  errors.New("line holds an array but jsonl_array_mode is off"),
			}, nil
		}
		for i, el := range arr {
			s.pending = append(s.pending, recordFor(s.line, i+1, el))
		}
	}

	rec := s.pending[0]
	s.pending = s.pending[1:]
	return rec, nil
}

func decodeLine(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

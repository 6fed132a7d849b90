package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// JSONSource streams the elements of the record array of one JSON document.
// A root object (not an array) yields exactly one record.
type JSONSource struct {
	dec      *json.Decoder
	strict   bool
	array    bool
	single   map[string]any
	finished bool
	index    int
}

// NewJSON positions the decoder on the value at rootPath
func NewJSON(r io.Reader, rootPath string) (*JSONSource, error) {
	segs, err := ParsePath(rootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRootPathNotFound, err)
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	s := &JSONSource{dec: dec, strict: len(segs) == 0}

	for _, seg := range segs {
		if err := s.descend(seg); err != nil {
			return nil, err
		}
	}

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok {
	case json.Delim('['):
		s.array = true
	case json.Delim('{'):
		obj, err := s.objectBody()
		if err != nil {
			return nil, err
		}
		s.single = obj
	default:
		return nil, fmt.Errorf("%w: found %s", ErrNotContainer, kindOf(tok))
	}
	return s, nil
}

func (s *JSONSource) descend(seg Segment) error {
	tok, err := s.dec.Token()
	if err != nil {
		return err
	}
	if seg.IsIndex {
		if tok != json.Delim('[') {
			return fmt.Errorf("%w: [%d] applied to %s", ErrRootPathNotFound, seg.Index, kindOf(tok))
		}
		for i := 0; s.dec.More(); i++ {
			if i == seg.Index {
				return nil
			}
			if err := s.skip(); err != nil {
				return err
			}
		}
		return fmt.Errorf("%w: index %d out of range", ErrRootPathNotFound, seg.Index)
	}

	if tok != json.Delim('{') {
		return fmt.Errorf("%w: key %q applied to %s", ErrRootPathNotFound, seg.Key, kindOf(tok))
	}
	for s.dec.More() {
		kt, err := s.dec.Token()
		if err != nil {
			return err
		}
		if key, _ := kt.(string); key == seg.Key {
			return nil
		}
		if err := s.skip(); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: key %q", ErrRootPathNotFound, seg.Key)
}

func (s *JSONSource) skip() error {
	var raw json.RawMessage
	return s.dec.Decode(&raw)
}

func (s *JSONSource) objectBody() (map[string]any, error) {
	obj := make(map[string]any)
	for s.dec.More() {
		kt, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %s", kindOf(kt))
		}
		var v any
		if err := s.dec.Decode(&v); err != nil {
			return nil, err
		}
		obj[key] = v
	}
	if _, err := s.dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

// drain consumes the rest of the document so syntax errors after the
// record array are still reported. Without a root path nothing may follow.
func (s *JSONSource) drain() error {
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if s.strict {
			return fmt.Errorf("unexpected %s after top-level value", kindOf(tok))
		}
	}
}

// Next returns the next element as a record
func (s *JSONSource) Next() (*Record, error) {
	if s.finished {
		return nil, io.EOF
	}

	if !s.array {
		if s.single == nil {
			s.finished = true
			if err := s.drain(); err != nil {
				return nil, &StreamError{Err: err}
			}
			return nil, io.EOF
		}
		obj := s.single
		s.single = nil
		s.index = 1
		return &Record{RowNumber: 1, Fields: obj, Value: obj}, nil
	}

	if !s.dec.More() {
		s.finished = true
		if _, err := s.dec.Token(); err != nil {
			return nil, &StreamError{Row: s.index + 1, Err: err}
		}
		if err := s.drain(); err != nil {
			return nil, &StreamError{Err: err}
		}
		return nil, io.EOF
	}

	s.index++
	var v any
	if err := s.dec.Decode(&v); err != nil {
		s.finished = true
		return nil, &StreamError{Row: s.index, Err: err}
	}
	return recordFor(s.index, 0, v), nil
}

func recordFor(row, sub int, v any) *Record {
	rec := &Record{RowNumber: row, SubRow: sub, Value: v}
	if obj, ok := v.(map[string]any); ok {
		rec.Fields = obj
		return rec
	}
	rec.ShapeErr = errors.New("record is " + kindOf(v) + ", not an object")
	return rec
}

func kindOf(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case json.Delim:
		switch t {
		case '[':
			return "array"
		case '{':
			return "object"
		}
		return "delimiter " + t.String()
	default:
		return fmt.Sprintf("%T", v)
	}
}

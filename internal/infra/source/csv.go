package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CSVSource reads delimited rows. Headered files bind values by header
// name, headerless files by rule position. Fields past the known names
// are bound as column_N.
type CSVSource struct {
	r         *csv.Reader
	names     []string
	header    []string
	headerRow int
	lastRow   int
}

// NewCSV reads the header row (when configured) and returns the source
func NewCSV(r io.Reader, opts Options) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	if cr.Comma == 0 {
		cr.Comma = ','
	}
	cr.FieldsPerRecord = -1

	s := &CSVSource{r: cr, names: opts.Columns}
	if !opts.Info.HasHeader {
		return s, nil
	}

	rec, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	s.headerRow, _ = cr.FieldPos(0)
	s.lastRow = s.headerRow
	s.header = make([]string, len(rec))
	for i, h := range rec {
		s.header[i] = NormalizeName(h)
	}
	s.names = s.header
	return s, nil
}

// NormalizeName trims a header cell and brings it to NFC
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Header returns the normalized header names
func (s *CSVSource) Header() []string {
	return s.header
}

// HeaderRow returns the physical line of the header, 0 when headerless
func (s *CSVSource) HeaderRow() int {
	return s.headerRow
}

// Next returns the next row. Quoting errors are reported on the record so
// the stream can continue with the following row.
func (s *CSVSource) Next() (*Record, error) {
	rec, err := s.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		s.lastRow = pe.StartLine
		return &Record{RowNumber: pe.StartLine, ParseErr: pe.Err}, nil
	}
	if err != nil {
		return nil, &StreamError{Row: s.lastRow + 1, Err: err}
	}

	line, _ := s.r.FieldPos(0)
	s.lastRow = line
	fields := make(map[string]any, len(rec))
	for i, v := range rec {
		fields[s.nameAt(i)] = v
	}
	return &Record{RowNumber: line, Fields: fields, Width: len(rec)}, nil
}

func (s *CSVSource) nameAt(i int) string {
	if i < len(s.names) && s.names[i] != "" {
		return s.names[i]
	}
	return fmt.Sprintf("column_%d", i+1)
}

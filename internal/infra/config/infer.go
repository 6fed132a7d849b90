package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/charset"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/source"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/common"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/format"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/structural"
)

// InferSampleRows is how many records config inference looks at
const InferSampleRows = 1000

// InferDatetimeFormat is the datetime layout inference recognizes first
const InferDatetimeFormat = "%Y-%m-%d %H:%M:%S"

const (
	minCategories = 2
	maxCategories = 10
	prefixSize    = 64 * 1024
)

var (
	inferEmail   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	inferInteger = regexp.MustCompile(`^[+-]?\d+$`)
	inferFloat   = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	boolTokens   = map[string]bool{"true": true, "false": true, "yes": true, "no": true}
	dateFormats  = []string{InferDatetimeFormat, "%Y-%m-%d", ""}
)

// InferConfig samples the first records of path and proposes one rule per
// column. The result is a raw document so it can be written as YAML and
// edited before use.
func InferConfig(fsys afero.Fs, path string, sampleRows int) (*RawValidationConfig, error) {
	ft, err := model.FileTypeFromPath(path)
	if err != nil {
		return nil, err
	}
	if sampleRows <= 0 {
		sampleRows = InferSampleRows
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	raw := bufio.NewReaderSize(f, prefixSize)
	prefix, err := raw.Peek(prefixSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(prefix)) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	enc := charset.Detect(prefix)
	if enc == charset.ASCII || enc == charset.Unknown {
		enc = charset.UTF8
	}
	decoded, err := charset.NewReader(raw, enc)
	if err != nil {
		return nil, err
	}
	text := bufio.NewReaderSize(decoded, prefixSize)

	info := RawFileInfo{FileType: string(ft), Encoding: enc}
	opts := source.Options{Info: model.FileInfo{FileType: ft, HasHeader: true}}
	if ft == model.FileTypeCSV {
		head, _ := text.Peek(4096)
		delim := structural.InferDelimiter(string(head))
		d := string(delim)
		if delim == '\t' {
			d = `\t`
		}
		hasHeader := true
		info.Delimiter = &d
		info.HasHeader = &hasHeader
		opts.Delimiter = delim
	}

	src, err := source.Open(text, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	s := newSampler()
	if hp, ok := src.(source.HeaderProvider); ok {
		for _, h := range hp.Header() {
			s.column(h)
		}
	}
	for s.records < sampleRows {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if s.records == 0 {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			break
		}
		if rec.ParseErr != nil || rec.ShapeErr != nil {
			continue
		}
		s.add(rec.Fields)
	}
	if s.records == 0 {
		return nil, fmt.Errorf("%s has no readable records", path)
	}

	out := &RawValidationConfig{FileInfo: info}
	for _, name := range s.order {
		out.Columns = append(out.Columns, inferColumn(name, s.values[name], s.records))
	}
	return out, nil
}

type sampler struct {
	records int
	order   []string
	values  map[string][]any
}

func newSampler() *sampler {
	return &sampler{values: make(map[string][]any)}
}

func (s *sampler) column(name string) {
	if _, ok := s.values[name]; !ok {
		s.order = append(s.order, name)
		s.values[name] = nil
	}
}

func (s *sampler) add(fields map[string]any) {
	s.records++
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.column(k)
		s.values[k] = append(s.values[k], fields[k])
	}
}

func inferColumn(name string, values []any, records int) RawColumn {
	var present []any
	for _, v := range values {
		if !common.IsEmpty(v, true) {
			present = append(present, v)
		}
	}
	required := len(present) == records
	col := RawColumn{Name: name, Required: &required}
	if len(present) == 0 {
		col.Type = model.TypeString.String()
		return col
	}

	if kind, ok := jsonKind(present); ok {
		col.Type = kind.String()
		return col
	}

	texts := make([]string, len(present))
	for i, v := range present {
		texts[i] = strings.TrimSpace(common.Render(v))
	}

	switch {
	case all(texts, inferEmail.MatchString):
		col.Type = model.TypeEmail.String()
	case inferDatetime(&col, texts):
		col.Type = model.TypeDatetime.String()
	case all(texts, inferInteger.MatchString):
		col.Type = model.TypeInteger.String()
		col.Range = numericRange(texts)
	case all(texts, inferFloat.MatchString):
		col.Type = model.TypeFloat.String()
		col.Range = numericRange(texts)
	case all(texts, func(s string) bool { return boolTokens[strings.ToLower(s)] }):
		col.Type = model.TypeBoolean.String()
	default:
		col.Type = model.TypeString.String()
		col.Length = textLength(texts)
		col.AllowedValues = categories(texts)
	}
	return col
}

// jsonKind recognizes decoded JSON containers and booleans
func jsonKind(values []any) (model.DataType, bool) {
	var kind model.DataType
	for _, v := range values {
		var k model.DataType
		switch v.(type) {
		case map[string]any:
			k = model.TypeObject
		case []any:
			k = model.TypeArray
		case bool:
			k = model.TypeBoolean
		default:
			return 0, false
		}
		if kind != 0 && k != kind {
			return 0, false
		}
		kind = k
	}
	return kind, kind != 0
}

func inferDatetime(col *RawColumn, texts []string) bool {
	for _, layout := range dateFormats {
		ok := all(texts, func(s string) bool {
			if inferFloat.MatchString(s) {
				return false
			}
			_, err := format.ParseDatetime(s, layout)
			return err == nil
		})
		if ok {
			col.Format = layout
			return true
		}
	}
	return false
}

func all(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

func numericRange(texts []string) *RawRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range texts {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if math.IsInf(lo, 0) {
		return nil
	}
	return &RawRange{Min: &lo, Max: &hi}
}

func textLength(texts []string) *RawLength {
	lo, hi := math.MaxInt, 0
	for _, s := range texts {
		n := utf8.RuneCountInString(s)
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return &RawLength{Min: &lo, Max: &hi}
}

func categories(texts []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range texts {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
			if len(out) > maxCategories {
				return nil
			}
		}
	}
	if len(out) < minCategories || len(out) == len(texts) {
		return nil
	}
	return out
}

// MarshalConfig renders a raw config as YAML
func MarshalConfig(raw *RawValidationConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

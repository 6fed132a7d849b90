// Package structural checks file-level shape: encoding, delimiter, header,
// column counts, JSON parse-ability and optional JSON Schema conformance.
package structural

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/charset"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/source"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/common"
)

// SampleRows is how many rows the delimiter stability check inspects
const SampleRows = 100

// CandidateDelimiters are tried in order; earlier entries win ties
var CandidateDelimiters = []rune{',', ';', '\t', '|'}

const fileColumn = "file"

// Validator carries the per-run structural state. It is not safe for
// concurrent use; create one per file.
type Validator struct {
	info     model.FileInfo
	rules    []model.ValidationRule
	names    map[string]bool
	schema   *jsonschema.Schema
	refWidth int
	seenRow  bool
}

// New builds a validator for cfg, compiling its JSON schema when present
func New(cfg *model.ValidationConfig) (*Validator, error) {
	v := &Validator{
		info:  cfg.FileInfo,
		rules: cfg.Rules,
		names: make(map[string]bool, len(cfg.Rules)),
	}
	for _, r := range cfg.Rules {
		v.names[r.Name] = true
	}
	if cfg.FileInfo.JSONSchema != nil && cfg.FileInfo.FileType.IsJSONFamily() {
		schema, err := CompileSchema(cfg.FileInfo.JSONSchema)
		if err != nil {
			return nil, err
		}
		v.schema = schema
	}
	return v, nil
}

// CompileSchema compiles a decoded JSON Schema document
func CompileSchema(doc map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode json_schema: %w", err)
	}
	schema, err := jsonschema.CompileString("json_schema.json", string(b))
	if err != nil {
		return nil, fmt.Errorf("compile json_schema: %w", err)
	}
	return schema, nil
}

// Prelude is the outcome of inspecting the file prefix
type Prelude struct {
	// Delimiter is the declared or inferred CSV delimiter
	Delimiter rune
	Issues    []model.ValidationError
	// Fatal means no record can be extracted; Issues holds the single reason
	Fatal bool
}

// Inspect checks the bounded prefix of the file. eof tells whether the
// prefix is the whole file.
func (v *Validator) Inspect(prefix []byte, eof bool) Prelude {
	is := common.NewIssues(0, 0)
	body := bytes.TrimPrefix(prefix, []byte("\xef\xbb\xbf"))

	if eof && len(bytes.TrimSpace(body)) == 0 {
		actual := fmt.Sprintf("%d bytes", len(prefix))
		is.Add(fileColumn, model.ErrStructuralEmptyFile, actual, "non-empty file", "file is empty")
		return Prelude{Issues: is.List, Fatal: true}
	}

	declared := v.info.EncodingOrDefault()
	if res := charset.Check(prefix, declared, !eof); !res.OK {
		is.Add(fileColumn, model.ErrStructuralInvalidEncoding, res.Detected, res.Declared,
			fmt.Sprintf("declared encoding %s is not compatible with detected encoding %s", res.Declared, res.Detected))
		return Prelude{Issues: is.List, Fatal: true}
	}

	text, err := decodePrefix(prefix, declared, eof)
	if err != nil {
		is.Add(fileColumn, model.ErrStructuralInvalidEncoding, declared, declared, err.Error())
		return Prelude{Issues: is.List, Fatal: true}
	}

	switch v.info.FileType {
	case model.FileTypeCSV:
		p := Prelude{Delimiter: v.info.Delimiter}
		if !v.info.DelimiterDeclared() {
			p.Delimiter = InferDelimiter(text)
		} else {
			v.checkDelimiterStability(is, text, p.Delimiter)
		}
		p.Issues = is.List
		return p
	case model.FileTypeJSON:
		first := firstNonSpace(text)
		if first != '{' && first != '[' {
			is.Add(fileColumn, model.ErrStructuralInvalidJSON, string(first), "object or array",
				"JSON document must start with '{' or '['")
			return Prelude{Issues: is.List, Fatal: true}
		}
	}
	return Prelude{Issues: is.List}
}

func decodePrefix(prefix []byte, encoding string, eof bool) (string, error) {
	if !eof {
		if i := bytes.LastIndexByte(prefix, '\n'); i >= 0 {
			prefix = prefix[:i+1]
		}
	}
	r, err := charset.NewReader(bytes.NewReader(prefix), encoding)
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode prefix: %w", err)
	}
	return string(b), nil
}

func firstNonSpace(s string) rune {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return r
	}
	return 0
}

// InferDelimiter picks the candidate occurring most often in the first
// non-empty line. Ties go to the earlier candidate; no hit means ','.
func InferDelimiter(text string) rune {
	line := ""
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}
	best, bestCount := ',', 0
	for _, c := range CandidateDelimiters {
		if n := strings.Count(line, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func (v *Validator) checkDelimiterStability(is *common.Issues, text string, delim rune) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	first := -1
	for i := 0; i < SampleRows; i++ {
		rec, err := r.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}
		if first < 0 {
			first = len(rec)
			continue
		}
		if len(rec) != first {
			line, _ := r.FieldPos(0)
			is.Add(fileColumn, model.ErrStructuralInvalidDelimiter,
				fmt.Sprintf("%d columns", len(rec)), fmt.Sprintf("%d columns", first),
				fmt.Sprintf("delimiter %q splits line %d into %d columns, expected %d", string(delim), line, len(rec), first))
			return
		}
	}
}

// CheckHeader validates a CSV header row against the rules. Header names
// without a rule are warnings only.
func (v *Validator) CheckHeader(header []string, row int) []model.ValidationError {
	is := common.NewIssues(row, 0)
	v.refWidth = len(header)

	if len(header) != len(v.rules) {
		is.Add("header", model.ErrStructuralColumnCountMismatch,
			fmt.Sprintf("%d columns", len(header)), fmt.Sprintf("%d columns", len(v.rules)),
			fmt.Sprintf("header has %d columns, expected %d", len(header), len(v.rules)))
	}

	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if name == "" {
			is.Add(fmt.Sprintf("column_%d", i+1), model.ErrStructuralHeaderMismatch, "", "column name",
				fmt.Sprintf("header column %d is blank", i+1))
			continue
		}
		if seen[name] {
			is.Add(name, model.ErrStructuralHeaderMismatch, name, "unique column name",
				fmt.Sprintf("header column %q appears more than once", name))
			continue
		}
		seen[name] = true
		if !v.names[name] {
			is.Add(name, model.ErrStructuralUnknownHeader, name, "one of the configured columns",
				fmt.Sprintf("header column %q has no rule", name))
		}
	}
	return is.List
}

// CheckRecord validates one record's shape. usable is false when the
// record carries no fields to run format validation on.
func (v *Validator) CheckRecord(rec *source.Record) (issues []model.ValidationError, usable bool) {
	is := common.NewIssues(rec.RowNumber, rec.SubRow)

	if rec.ParseErr != nil {
		errType := model.ErrStructuralInvalidFormat
		if v.info.FileType.IsJSONFamily() {
			errType = model.ErrStructuralInvalidJSON
		}
		is.Add("row", errType, "", "parsable "+string(v.info.FileType)+" row",
			fmt.Sprintf("row %d cannot be parsed: %v", rec.RowNumber, rec.ParseErr))
		return is.List, false
	}
	if rec.ShapeErr != nil {
		is.Add("row", model.ErrStructuralInvalidFormat, common.Render(rec.Value), "JSON object", rec.ShapeErr.Error())
		return is.List, false
	}

	if v.info.FileType == model.FileTypeCSV {
		v.checkWidth(is, rec.Width)
	}
	if v.schema != nil {
		v.checkSchema(is, rec.Value)
	}
	return is.List, true
}

func (v *Validator) checkWidth(is *common.Issues, width int) {
	expected := v.refWidth
	if !v.seenRow && expected == 0 {
		expected = len(v.rules)
	}
	if width != expected {
		is.Add("row", model.ErrStructuralColumnCountMismatch,
			fmt.Sprintf("%d columns", width), fmt.Sprintf("%d columns", expected),
			fmt.Sprintf("expected %d columns, observed %d", expected, width))
	}
	if !v.seenRow && v.refWidth == 0 {
		v.refWidth = width
	}
	v.seenRow = true
}

func (v *Validator) checkSchema(is *common.Issues, value any) {
	err := v.schema.Validate(value)
	if err == nil {
		return
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		is.Add("row", model.ErrStructuralSchemaViolation, "", "record matching json_schema", err.Error())
		return
	}
	for _, leaf := range leaves(ve) {
		column := pointerToPath(leaf.InstanceLocation)
		is.Add(column, model.ErrStructuralSchemaViolation, "", leaf.KeywordLocation, leaf.Message)
	}
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

// pointerToPath turns "/items/0/name" into "items[0].name"
func pointerToPath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return "row"
	}
	var b strings.Builder
	for _, seg := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		if isIndex(seg) {
			b.WriteString("[" + seg + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Width is the observed CSV column count, used as the result's total_columns
func (v *Validator) Width() int {
	return v.refWidth
}

// Finish runs the checks that need a full pass
func (v *Validator) Finish(totalRows int) []model.ValidationError {
	if v.info.ExpectedRows <= 0 || v.info.ExpectedRows == totalRows {
		return nil
	}
	is := common.NewIssues(0, 0)
	is.Add(fileColumn, model.ErrStructuralRowCountMismatch,
		fmt.Sprintf("%d", totalRows), fmt.Sprintf("%d", v.info.ExpectedRows),
		fmt.Sprintf("expected %d rows, read %d", v.info.ExpectedRows, totalRows))
	return is.List
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/charset"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/source"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/structural"
)

// ErrInvalidConfig wraps every rejection of a validation config
var ErrInvalidConfig = errors.New("invalid validation config")

// RawValidationConfig mirrors the YAML document
type RawValidationConfig struct {
	FileInfo     RawFileInfo      `yaml:"file_info" validate:"required"`
	Columns      []RawColumn      `yaml:"columns" validate:"required,min=1,dive"`
	Distribution *RawDistribution `yaml:"distribution_analysis,omitempty"`
}

// RawFileInfo mirrors file_info. Pointer fields distinguish "unset" from zero.
type RawFileInfo struct {
	FileType       string         `yaml:"file_type" validate:"omitempty,oneof=csv json jsonl"`
	Encoding       string         `yaml:"encoding,omitempty"`
	Delimiter      *string        `yaml:"delimiter,omitempty"`
	HasHeader      *bool          `yaml:"has_header,omitempty"`
	ExpectedRows   *int           `yaml:"expected_rows,omitempty"`
	JSONSchema     map[string]any `yaml:"json_schema,omitempty"`
	JSONRootPath   string         `yaml:"json_root_path,omitempty"`
	JSONLArrayMode bool           `yaml:"jsonl_array_mode,omitempty"`
}

// RawColumn mirrors one entry of columns, or a nested field/item
type RawColumn struct {
	Name          string      `yaml:"name" validate:"required"`
	Type          string      `yaml:"type" validate:"required"`
	Required      *bool       `yaml:"required,omitempty"`
	Description   string      `yaml:"description,omitempty"`
	Range         *RawRange   `yaml:"range,omitempty"`
	Length        *RawLength  `yaml:"length,omitempty"`
	AllowedValues []string    `yaml:"allowed_values,omitempty"`
	CaseSensitive *bool       `yaml:"case_sensitive,omitempty"`
	Pattern       string      `yaml:"pattern,omitempty"`
	Format        string      `yaml:"format,omitempty"`
	Region        string      `yaml:"region,omitempty" validate:"omitempty,len=2,alpha"`
	Fields        []RawColumn `yaml:"fields,omitempty" validate:"omitempty,dive"`
	// Items may omit name; it defaults to the parent column name
	Items         *RawColumn  `yaml:"items,omitempty" validate:"-"`
}

// RawRange mirrors range. The literal text of each bound is kept so
// integer bounds beyond float64 precision stay exact.
type RawRange struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	minText string
	maxText string
}

// UnmarshalYAML decodes min and max and rejects any other key
func (r *RawRange) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: range must be a mapping with min and/or max", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if key.Value != "min" && key.Value != "max" {
			return fmt.Errorf("line %d: field %s not found in range", key.Line, key.Value)
		}
		if val.Tag == "!!null" {
			continue
		}
		var f float64
		if err := val.Decode(&f); err != nil {
			return fmt.Errorf("line %d: range %s: %w", val.Line, key.Value, err)
		}
		if key.Value == "min" {
			r.Min, r.minText = &f, val.Value
		} else {
			r.Max, r.maxText = &f, val.Value
		}
	}
	return nil
}

// exactBound parses a bound literal. Nil leaves the float64 bound in charge.
func exactBound(text string, f *float64) *big.Rat {
	if f == nil || text == "" {
		return nil
	}
	if x, ok := new(big.Rat).SetString(text); ok {
		return x
	}
	return nil
}

// RawLength mirrors length
type RawLength struct {
	Min *int `yaml:"min,omitempty" validate:"omitempty,gte=0"`
	Max *int `yaml:"max,omitempty" validate:"omitempty,gte=0"`
}

// RawDistribution mirrors distribution_analysis
type RawDistribution struct {
	Enabled   *bool                   `yaml:"enabled,omitempty"`
	ChunkSize int                     `yaml:"chunk_size,omitempty" validate:"omitempty,gte=1"`
	Columns   []RawDistributionColumn `yaml:"columns" validate:"required,min=1,dive"`
}

// RawDistributionColumn mirrors one analyzed column
type RawDistributionColumn struct {
	Name          string    `yaml:"name" validate:"required"`
	Type          string    `yaml:"type,omitempty" validate:"omitempty,oneof=categorical numerical auto"`
	MaxCategories int       `yaml:"max_categories,omitempty" validate:"omitempty,gte=1"`
	Bins          []float64 `yaml:"bins,omitempty" validate:"omitempty,min=2"`
	AutoBins      *bool     `yaml:"auto_bins,omitempty"`
	BinCount      int       `yaml:"bin_count,omitempty" validate:"omitempty,gte=2,lte=100"`
}

var structValidator = validator.New()

// LoadValidationConfig reads and validates a YAML config file
func LoadValidationConfig(fsys afero.Fs, path string) (*model.ValidationConfig, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseValidationConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseValidationConfig decodes YAML into an immutable ValidationConfig.
// Unknown keys are rejected.
func ParseValidationConfig(data []byte) (*model.ValidationConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: config is empty", ErrInvalidConfig)
	}
	var raw RawValidationConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidConfig, err)
	}
	return raw.Build()
}

// Build validates the raw document and converts it to the model
func (raw *RawValidationConfig) Build() (*model.ValidationConfig, error) {
	if err := structValidator.Struct(raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, describeValidation(err))
	}

	info, err := raw.FileInfo.build()
	if err != nil {
		return nil, invalid(err)
	}
	cfg := &model.ValidationConfig{FileInfo: info}

	seen := make(map[string]bool, len(raw.Columns))
	for _, c := range raw.Columns {
		if seen[c.Name] {
			return nil, invalid(fmt.Errorf("duplicate column name: %s", c.Name))
		}
		seen[c.Name] = true
		rule, err := c.build(0)
		if err != nil {
			return nil, invalid(err)
		}
		cfg.Rules = append(cfg.Rules, rule)
	}

	if raw.Distribution != nil {
		dist, err := raw.Distribution.build()
		if err != nil {
			return nil, invalid(err)
		}
		cfg.Distribution = dist
	}

	if err := cfg.Validate(); err != nil {
		return nil, invalid(err)
	}
	return cfg, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "RawValidationConfig.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func (fi RawFileInfo) build() (model.FileInfo, error) {
	out := model.FileInfo{
		FileType:       model.FileType(strings.ToLower(fi.FileType)),
		Encoding:       fi.Encoding,
		HasHeader:      true,
		JSONSchema:     fi.JSONSchema,
		JSONRootPath:   strings.TrimSpace(fi.JSONRootPath),
		JSONLArrayMode: fi.JSONLArrayMode,
	}
	if out.FileType == "" {
		out.FileType = model.FileTypeCSV
	}
	if fi.HasHeader != nil {
		out.HasHeader = *fi.HasHeader
	}
	if fi.Encoding != "" && !charset.Supported(fi.Encoding) {
		return out, fmt.Errorf("unsupported encoding: %q", fi.Encoding)
	}
	if fi.Delimiter != nil {
		d, err := ParseDelimiter(*fi.Delimiter)
		if err != nil {
			return out, err
		}
		out.Delimiter = d
	}
	if fi.ExpectedRows != nil {
		if *fi.ExpectedRows <= 0 {
			return out, fmt.Errorf("expected_rows must be positive, got %d", *fi.ExpectedRows)
		}
		out.ExpectedRows = *fi.ExpectedRows
	}
	if out.JSONRootPath != "" {
		if _, err := source.ParsePath(out.JSONRootPath); err != nil {
			return out, fmt.Errorf("json_root_path: %w", err)
		}
	}
	if fi.JSONSchema != nil {
		if _, err := structural.CompileSchema(fi.JSONSchema); err != nil {
			return out, err
		}
	}
	return out, nil
}

// ParseDelimiter accepts a single character, the escape `\t`, or the word "tab"
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab", "TAB":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return r, nil
}

// build converts one column; depth is 1 for nested fields and items
func (c RawColumn) build(depth int) (model.ValidationRule, error) {
	t, err := model.ParseDataType(c.Type)
	if err != nil {
		return model.ValidationRule{}, fmt.Errorf("column %s: %w", c.Name, err)
	}
	rule := model.ValidationRule{
		Name:          strings.TrimSpace(c.Name),
		Type:          t,
		Required:      true,
		CaseSensitive: true,
		Format:        c.Format,
		Region:        strings.ToUpper(c.Region),
	}
	if c.Required != nil {
		rule.Required = *c.Required
	}
	if c.CaseSensitive != nil {
		rule.CaseSensitive = *c.CaseSensitive
	}

	if c.Range != nil {
		if !t.IsNumeric() {
			return rule, fmt.Errorf("column %s: range applies only to integer and float, not %s", c.Name, t)
		}
		rng := &model.Range{
			Min:      c.Range.Min,
			Max:      c.Range.Max,
			MinExact: exactBound(c.Range.minText, c.Range.Min),
			MaxExact: exactBound(c.Range.maxText, c.Range.Max),
		}
		if lo, hi := rng.Bounds(); lo != nil && hi != nil && lo.Cmp(hi) > 0 {
			return rule, fmt.Errorf("column %s: range min %s is greater than max %s", c.Name, c.Range.minText, c.Range.maxText)
		}
		rule.Range = rng
	}
	if c.Length != nil {
		if !t.IsStringLike() {
			return rule, fmt.Errorf("column %s: length applies only to string types, not %s", c.Name, t)
		}
		if c.Length.Min != nil && c.Length.Max != nil && *c.Length.Min > *c.Length.Max {
			return rule, fmt.Errorf("column %s: length min %d is greater than max %d", c.Name, *c.Length.Min, *c.Length.Max)
		}
		rule.Length = &model.Length{Min: c.Length.Min, Max: c.Length.Max}
	}
	if c.AllowedValues != nil {
		if len(c.AllowedValues) == 0 {
			return rule, fmt.Errorf("column %s: allowed_values must not be empty", c.Name)
		}
		rule.AllowedValues = append([]string(nil), c.AllowedValues...)
	}
	if c.Pattern != "" {
		re, err := model.CompileFullMatch(c.Pattern)
		if err != nil {
			return rule, fmt.Errorf("column %s: %w", c.Name, err)
		}
		rule.Pattern = re
		rule.PatternSource = c.Pattern
	}

	if len(c.Fields) > 0 || c.Items != nil {
		if depth > 0 {
			return rule, fmt.Errorf("column %s: nested fields are limited to one level", c.Name)
		}
		if len(c.Fields) > 0 && t != model.TypeObject {
			return rule, fmt.Errorf("column %s: fields apply only to object", c.Name)
		}
		if c.Items != nil && t != model.TypeArray {
			return rule, fmt.Errorf("column %s: items apply only to array", c.Name)
		}
	}
	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if seen[f.Name] {
			return rule, fmt.Errorf("column %s: duplicate field %s", c.Name, f.Name)
		}
		seen[f.Name] = true
		child, err := f.build(depth + 1)
		if err != nil {
			return rule, fmt.Errorf("column %s: %w", c.Name, err)
		}
		rule.Fields = append(rule.Fields, child)
	}
	if c.Items != nil {
		item := *c.Items
		if item.Name == "" {
			item.Name = c.Name
		}
		child, err := item.build(depth + 1)
		if err != nil {
			return rule, fmt.Errorf("column %s: %w", c.Name, err)
		}
		rule.Items = &child
	}
	return rule, nil
}

func (d RawDistribution) build() (*model.DistributionConfig, error) {
	if d.Enabled != nil && !*d.Enabled {
		return nil, nil
	}
	out := &model.DistributionConfig{}
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if seen[c.Name] {
			return nil, fmt.Errorf("distribution_analysis: duplicate column %s", c.Name)
		}
		seen[c.Name] = true

		kind := model.DistributionKind(c.Type)
		if kind == "" {
			kind = model.DistributionAuto
		}
		if len(c.Bins) > 0 && !sort.SliceIsSorted(c.Bins, func(i, j int) bool { return c.Bins[i] < c.Bins[j] }) {
			return nil, fmt.Errorf("distribution_analysis: bins of %s must be ascending", c.Name)
		}
		for i := 1; i < len(c.Bins); i++ {
			if c.Bins[i] == c.Bins[i-1] {
				return nil, fmt.Errorf("distribution_analysis: bins of %s must be strictly ascending", c.Name)
			}
		}
		col := model.DistributionColumn{
			Name:          c.Name,
			Kind:          kind,
			MaxCategories: c.MaxCategories,
			BinCount:      c.BinCount,
		}
		if c.AutoBins == nil || !*c.AutoBins {
			col.Bins = append([]float64(nil), c.Bins...)
		}
		out.Columns = append(out.Columns, col)
	}
	return out, nil
}

// DefaultDistribution analyzes every scalar rule column with automatic kind
// detection. It backs validate --analyze when the config has no
// distribution_analysis section.
func DefaultDistribution(cfg *model.ValidationConfig) *model.DistributionConfig {
	out := &model.DistributionConfig{}
	for _, r := range cfg.Rules {
		if !r.Type.IsScalar() {
			continue
		}
		kind := model.DistributionAuto
		switch {
		case r.Type.IsNumeric():
			kind = model.DistributionNumerical
		case r.Type == model.TypeBoolean || len(r.AllowedValues) > 0:
			kind = model.DistributionCategorical
		}
		out.Columns = append(out.Columns, model.DistributionColumn{Name: r.Name, Kind: kind})
	}
	return out
}

package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	"github.com/YoshitsuguKoike/deecheck/internal/embed"
)

func TestParseValidationConfig_Sample(t *testing.T) {
	for _, ft := range []string{"csv", "json", "jsonl"} {
		t.Run(ft, func(t *testing.T) {
			data, err := embed.SampleConfig(ft)
			require.NoError(t, err)
			cfg, err := ParseValidationConfig(data)
			require.NoError(t, err)
			assert.Equal(t, model.FileType(ft), cfg.FileInfo.FileType)
			assert.NotEmpty(t, cfg.Rules)
		})
	}
}

func TestParseValidationConfig_CSV(t *testing.T) {
	data, err := embed.SampleConfig("csv")
	require.NoError(t, err)
	cfg, err := ParseValidationConfig(data)
	require.NoError(t, err)

	fi := cfg.FileInfo
	assert.Equal(t, ',', fi.Delimiter)
	assert.True(t, fi.HasHeader)
	assert.Equal(t, 1000, fi.ExpectedRows)
	assert.Equal(t, []string{"id", "name", "email", "age", "category", "created_date"}, cfg.ColumnNames())

	age, ok := cfg.Rule("age")
	require.True(t, ok)
	assert.False(t, age.Required)
	require.NotNil(t, age.Range)
	assert.Equal(t, 120.0, *age.Range.Max)

	cat, _ := cfg.Rule("category")
	assert.False(t, cat.CaseSensitive)
	assert.Equal(t, []string{"A", "B", "C"}, cat.AllowedValues)

	id, _ := cfg.Rule("id")
	assert.True(t, id.Required, "required defaults to true")

	require.NotNil(t, cfg.Distribution)
	assert.Equal(t, model.DistributionNumerical, cfg.Distribution.Columns[1].Kind)
	assert.Equal(t, []float64{0, 20, 40, 60, 80, 120}, cfg.Distribution.Columns[1].Bins)
}

func TestParseValidationConfig_Nested(t *testing.T) {
	data, err := embed.SampleConfig("json")
	require.NoError(t, err)
	cfg, err := ParseValidationConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "data.users", cfg.FileInfo.JSONRootPath)
	assert.NotNil(t, cfg.FileInfo.JSONSchema)

	addr, _ := cfg.Rule("address")
	require.Len(t, addr.Fields, 2)
	require.NotNil(t, addr.Fields[1].Pattern)
	assert.True(t, addr.Fields[1].Pattern.MatchString("123-4567"))
	assert.False(t, addr.Fields[1].Pattern.MatchString("x123-4567"))

	tags, _ := cfg.Rule("tags")
	require.NotNil(t, tags.Items)
	assert.Equal(t, model.TypeString, tags.Items.Type)
}

func TestParseValidationConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: "  \n"},
		{name: "no columns", yaml: "file_info:\n  file_type: csv\n"},
		{name: "unknown key", yaml: "file_info:\n  file_type: csv\n  colour: red\ncolumns:\n  - {name: a, type: string}\n"},
		{name: "unknown file type", yaml: "file_info:\n  file_type: xml\ncolumns:\n  - {name: a, type: string}\n"},
		{name: "unknown data type", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: decimal}\n"},
		{name: "duplicate names", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: string}\n  - {name: a, type: integer}\n"},
		{name: "range on string", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: string, range: {min: 1}}\n"},
		{name: "length on integer", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: integer, length: {max: 3}}\n"},
		{name: "min above max", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: integer, range: {min: 5, max: 1}}\n"},
		{name: "unknown range key", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: integer, range: {maximum: 5}}\n"},
		{name: "min above max past float precision", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: integer, range: {min: 9007199254740993, max: 9007199254740992}}\n"},
		{name: "empty allowed values", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: string, allowed_values: []}\n"},
		{name: "bad pattern", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: string, pattern: '([a-z'}\n"},
		{name: "bad schema", yaml: "file_info:\n  file_type: json\n  json_schema: {type: 12}\ncolumns:\n  - {name: a, type: string}\n"},
		{name: "deep nesting", yaml: "file_info: {file_type: json}\ncolumns:\n  - name: a\n    type: object\n    fields:\n      - name: b\n        type: object\n        fields:\n          - {name: c, type: string}\n"},
		{name: "fields on array", yaml: "file_info: {file_type: json}\ncolumns:\n  - name: a\n    type: array\n    fields:\n      - {name: b, type: string}\n"},
		{name: "zero expected rows", yaml: "file_info: {file_type: csv, expected_rows: 0}\ncolumns:\n  - {name: a, type: string}\n"},
		{name: "long delimiter", yaml: "file_info: {file_type: csv, delimiter: ';;'}\ncolumns:\n  - {name: a, type: string}\n"},
		{name: "bad encoding", yaml: "file_info: {file_type: csv, encoding: klingon}\ncolumns:\n  - {name: a, type: string}\n"},
		{name: "bad root path", yaml: "file_info: {file_type: json, json_root_path: 'a..b'}\ncolumns:\n  - {name: a, type: string}\n"},
		{name: "unsorted bins", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: integer}\ndistribution_analysis:\n  columns:\n    - {name: a, type: numerical, bins: [10, 5]}\n"},
		{name: "bin count", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: integer}\ndistribution_analysis:\n  columns:\n    - {name: a, bin_count: 1}\n"},
		{name: "bad region", yaml: "file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: phone, region: KOR}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseValidationConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseValidationConfig_ExactIntegerRange(t *testing.T) {
	cfg, err := ParseValidationConfig([]byte("file_info: {file_type: jsonl}\ncolumns:\n" +
		"  - {name: n, type: integer, range: {min: -9007199254740993, max: 9007199254740992}}\n" +
		"  - {name: f, type: float, range: {max: 0.1}}\n"))
	require.NoError(t, err)

	n, _ := cfg.Rule("n")
	require.NotNil(t, n.Range)
	lo, hi := n.Range.Bounds()
	assert.Equal(t, "-9007199254740993", lo.RatString())
	assert.Equal(t, "9007199254740992", hi.RatString())

	f, _ := cfg.Rule("f")
	lo, hi = f.Range.Bounds()
	assert.Nil(t, lo)
	assert.Equal(t, "1/10", hi.RatString())
}

func TestParseValidationConfig_Defaults(t *testing.T) {
	cfg, err := ParseValidationConfig([]byte("file_info: {}\ncolumns:\n  - {name: a, type: phone}\n"))
	require.NoError(t, err)
	assert.Equal(t, model.FileTypeCSV, cfg.FileInfo.FileType)
	assert.False(t, cfg.FileInfo.DelimiterDeclared())
	assert.True(t, cfg.FileInfo.HasHeader)
	assert.Equal(t, "KR", cfg.Rules[0].PhoneRegion())
	assert.Nil(t, cfg.Distribution)
}

func TestParseValidationConfig_DisabledDistribution(t *testing.T) {
	cfg, err := ParseValidationConfig([]byte("file_info: {file_type: csv}\ncolumns:\n  - {name: a, type: integer}\n" +
		"distribution_analysis:\n  enabled: false\n  columns:\n    - {name: a}\n"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Distribution)
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{in: ",", want: ','},
		{in: ";", want: ';'},
		{in: "\t", want: '\t'},
		{in: `\t`, want: '\t'},
		{in: "tab", want: '\t'},
		{in: "|", want: '|'},
		{in: "", wantErr: true},
		{in: ",,", wantErr: true},
		{in: `"`, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLoadValidationConfig(t *testing.T) {
	fsys := afero.NewMemMapFs()
	_, err := LoadValidationConfig(fsys, "/missing.yml")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fsys, "/cfg.yml", []byte("file_info: {file_type: jsonl}\ncolumns:\n  - {name: id, type: integer}\n"), 0644))
	cfg, err := LoadValidationConfig(fsys, "/cfg.yml")
	require.NoError(t, err)
	assert.Equal(t, model.FileTypeJSONL, cfg.FileInfo.FileType)
}

func TestDefaultDistribution(t *testing.T) {
	cfg := &model.ValidationConfig{Rules: []model.ValidationRule{
		{Name: "id", Type: model.TypeInteger},
		{Name: "grade", Type: model.TypeString, AllowedValues: []string{"A", "B"}},
		{Name: "note", Type: model.TypeString},
		{Name: "tags", Type: model.TypeArray},
	}}
	got := DefaultDistribution(cfg)
	assert.Equal(t, []model.DistributionColumn{
		{Name: "id", Kind: model.DistributionNumerical},
		{Name: "grade", Kind: model.DistributionCategorical},
		{Name: "note", Kind: model.DistributionAuto},
	}, got.Columns)
}

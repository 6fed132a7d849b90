package structural

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/source"
)

func csvConfig(delim rune, header bool, names ...string) *model.ValidationConfig {
	cfg := &model.ValidationConfig{
		FileInfo: model.FileInfo{FileType: model.FileTypeCSV, Delimiter: delim, HasHeader: header},
	}
	for _, n := range names {
		cfg.Rules = append(cfg.Rules, model.ValidationRule{Name: n, Type: model.TypeString})
	}
	return cfg
}

func newValidator(t *testing.T, cfg *model.ValidationConfig) *Validator {
	t.Helper()
	v, err := New(cfg)
	require.NoError(t, err)
	return v
}

func TestInferDelimiter(t *testing.T) {
	tests := []struct {
		text string
		want rune
	}{
		{"a,b,c\n", ','},
		{"a;b;c\n", ';'},
		{"a\tb\tc\n", '\t'},
		{"a|b|c\n", '|'},
		{"\n\na;b,c;d\n", ';'},
		{"a,b;c\n", ','},
		{"single\n", ','},
	}
	for _, tt := range tests {
		assert.Equal(t, string(tt.want), string(InferDelimiter(tt.text)), "text %q", tt.text)
	}
}

func TestInspect_EmptyFileIsFatal(t *testing.T) {
	v := newValidator(t, csvConfig(',', true, "id"))
	for _, data := range []string{"", "  \n\n", "\xef\xbb\xbf"} {
		p := v.Inspect([]byte(data), true)
		require.True(t, p.Fatal, "%q", data)
		require.Len(t, p.Issues, 1)
		assert.Equal(t, model.ErrStructuralEmptyFile, p.Issues[0].ErrorType)
	}
}

func TestInspect_Encoding(t *testing.T) {
	v := newValidator(t, csvConfig(',', false, "id", "name"))
	p := v.Inspect([]byte("P001,laptop\n"), true)
	assert.False(t, p.Fatal)
	assert.Empty(t, p.Issues)

	cp949, err := korean.EUCKR.NewEncoder().Bytes([]byte("P001,노트북\n"))
	require.NoError(t, err)
	p = v.Inspect(cp949, true)
	require.True(t, p.Fatal)
	assert.Equal(t, model.ErrStructuralInvalidEncoding, p.Issues[0].ErrorType)
	assert.Equal(t, "utf-8", p.Issues[0].ExpectedValue)
	assert.Equal(t, "cp949", p.Issues[0].ActualValue)
	assert.Contains(t, p.Issues[0].Message, "detected encoding cp949")

	cfg := csvConfig(',', false, "id", "name")
	cfg.FileInfo.Encoding = "cp949"
	p = newValidator(t, cfg).Inspect(cp949, true)
	assert.False(t, p.Fatal)
}

func TestInspect_DelimiterInferredWhenUndeclared(t *testing.T) {
	v := newValidator(t, csvConfig(0, false, "id", "name", "category"))
	p := v.Inspect([]byte("P001;노트북;전자제품\n"), true)
	assert.Equal(t, ';', p.Delimiter)
	assert.Empty(t, p.Issues)
}

func TestInspect_DeclaredDelimiterInstability(t *testing.T) {
	v := newValidator(t, csvConfig(',', true, "a", "b", "c"))
	p := v.Inspect([]byte("a,b,c\n1,2,3\n4;5;6\n"), true)
	assert.False(t, p.Fatal)
	require.Len(t, p.Issues, 1)
	assert.Equal(t, model.ErrStructuralInvalidDelimiter, p.Issues[0].ErrorType)
	assert.Equal(t, "3 columns", p.Issues[0].ExpectedValue)
	assert.Equal(t, "1 columns", p.Issues[0].ActualValue)
}

func TestInspect_JSONMustStartWithContainer(t *testing.T) {
	cfg := &model.ValidationConfig{
		FileInfo: model.FileInfo{FileType: model.FileTypeJSON},
		Rules:    []model.ValidationRule{{Name: "id", Type: model.TypeInteger}},
	}
	v := newValidator(t, cfg)
	assert.False(t, v.Inspect([]byte("  [ {\"id\": 1} ]"), true).Fatal)

	p := v.Inspect([]byte("id: 1"), true)
	require.True(t, p.Fatal)
	assert.Equal(t, model.ErrStructuralInvalidJSON, p.Issues[0].ErrorType)
}

func TestCheckRecord_HeaderlessColumnCount(t *testing.T) {
	v := newValidator(t, csvConfig(',', false, "id", "name", "category"))

	issues, usable := v.CheckRecord(&source.Record{RowNumber: 1, Width: 1, Fields: map[string]any{"id": "P001;노트북;전자제품"}})
	assert.True(t, usable)
	require.Len(t, issues, 1)
	assert.Equal(t, model.ErrStructuralColumnCountMismatch, issues[0].ErrorType)
	assert.Equal(t, "3 columns", issues[0].ExpectedValue)
	assert.Equal(t, "1 columns", issues[0].ActualValue)

	issues, _ = v.CheckRecord(&source.Record{RowNumber: 2, Width: 1})
	assert.Empty(t, issues, "later rows compare against the observed width")
	assert.Equal(t, 1, v.Width())
}

func TestCheckRecord_HeaderedColumnCount(t *testing.T) {
	v := newValidator(t, csvConfig(',', true, "id", "name"))
	assert.Empty(t, v.CheckHeader([]string{"id", "name"}, 1))

	issues, _ := v.CheckRecord(&source.Record{RowNumber: 2, Width: 2})
	assert.Empty(t, issues)
	issues, usable := v.CheckRecord(&source.Record{RowNumber: 3, Width: 3})
	assert.True(t, usable)
	require.Len(t, issues, 1)
	assert.Equal(t, 3, issues[0].RowNumber)
}

func TestCheckHeader(t *testing.T) {
	v := newValidator(t, csvConfig(',', true, "id", "name", "price"))
	issues := v.CheckHeader([]string{"id", "title", "title", ""}, 1)

	types := make([]model.ErrorType, 0, len(issues))
	for _, is := range issues {
		types = append(types, is.ErrorType)
	}
	assert.Equal(t, []model.ErrorType{
		model.ErrStructuralColumnCountMismatch,
		model.ErrStructuralUnknownHeader,
		model.ErrStructuralHeaderMismatch,
		model.ErrStructuralHeaderMismatch,
	}, types)
	assert.Equal(t, model.SeverityWarning, issues[1].Severity)
}

func TestCheckRecord_ParseAndShapeErrors(t *testing.T) {
	cfg := &model.ValidationConfig{
		FileInfo: model.FileInfo{FileType: model.FileTypeJSONL},
		Rules:    []model.ValidationRule{{Name: "id", Type: model.TypeInteger}},
	}
	v := newValidator(t, cfg)

	issues, usable := v.CheckRecord(&source.Record{RowNumber: 4, ParseErr: errors.New("bad")})
	assert.False(t, usable)
	require.Len(t, issues, 1)
	assert.Equal(t, model.ErrStructuralInvalidJSON, issues[0].ErrorType)
	assert.Equal(t, 4, issues[0].RowNumber)

	issues, usable = v.CheckRecord(&source.Record{RowNumber: 5, Value: json.Number("5"), ShapeErr: errors.New("record is number, not an object")})
	assert.False(t, usable)
	assert.Equal(t, model.ErrStructuralInvalidFormat, issues[0].ErrorType)
}

func TestCheckRecord_Schema(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "object",
		"required": ["id", "address"],
		"properties": {
			"id": {"type": "integer"},
			"address": {"type": "object", "properties": {"city": {"type": "string"}}}
		}
	}`), &schema))

	cfg := &model.ValidationConfig{
		FileInfo: model.FileInfo{FileType: model.FileTypeJSON, JSONSchema: schema},
		Rules:    []model.ValidationRule{{Name: "id", Type: model.TypeInteger}},
	}
	v := newValidator(t, cfg)

	ok := map[string]any{"id": json.Number("1"), "address": map[string]any{"city": "Seoul"}}
	issues, usable := v.CheckRecord(&source.Record{RowNumber: 1, Fields: ok, Value: ok})
	assert.True(t, usable)
	assert.Empty(t, issues)

	bad := map[string]any{"id": json.Number("1"), "address": map[string]any{"city": json.Number("7")}}
	issues, usable = v.CheckRecord(&source.Record{RowNumber: 2, Fields: bad, Value: bad})
	assert.True(t, usable)
	require.NotEmpty(t, issues)
	assert.Equal(t, model.ErrStructuralSchemaViolation, issues[0].ErrorType)
	assert.Equal(t, "address.city", issues[0].ColumnName)
}

func TestNew_InvalidSchema(t *testing.T) {
	cfg := &model.ValidationConfig{
		FileInfo: model.FileInfo{FileType: model.FileTypeJSON, JSONSchema: map[string]any{"type": 12}},
		Rules:    []model.ValidationRule{{Name: "id", Type: model.TypeInteger}},
	}
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestPointerToPath(t *testing.T) {
	assert.Equal(t, "row", pointerToPath(""))
	assert.Equal(t, "address.city", pointerToPath("/address/city"))
	assert.Equal(t, "items[0].name", pointerToPath("/items/0/name"))
	assert.Equal(t, "a/b", pointerToPath("/a~1b"))
}

func TestFinish_RowCountIsWarning(t *testing.T) {
	cfg := csvConfig(',', true, "id")
	cfg.FileInfo.ExpectedRows = 10
	v := newValidator(t, cfg)

	assert.Empty(t, v.Finish(10))
	issues := v.Finish(9)
	require.Len(t, issues, 1)
	assert.Equal(t, model.ErrStructuralRowCountMismatch, issues[0].ErrorType)
	assert.True(t, issues[0].IsWarning())
	assert.Equal(t, 0, issues[0].RowNumber)
	assert.True(t, strings.Contains(issues[0].Message, "expected 10"))
}

package source

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
)

func drainAll(t *testing.T, src Source) []*Record {
	t.Helper()
	var out []*Record
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestParsePath(t *testing.T) {
	segs, err := ParsePath("data.items[2].name")
	require.NoError(t, err)
	assert.Equal(t, []Segment{
		{Key: "data"},
		{Key: "items"},
		{Index: 2, IsIndex: true},
		{Key: "name"},
	}, segs)

	segs, err = ParsePath("matrix[0][1]")
	require.NoError(t, err)
	assert.Len(t, segs, 3)

	for _, bad := range []string{"a..b", "a[x]", "a[1", "a[-1]"} {
		_, err := ParsePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestRecord_Lookup(t *testing.T) {
	rec := &Record{Fields: map[string]any{
		"id":   json.Number("1"),
		"a.b":  "flat",
		"user": map[string]any{"address": map[string]any{"city": "Seoul"}},
		"tags": []any{"x", "y"},
	}}

	v, ok := rec.Lookup("id")
	assert.True(t, ok)
	assert.Equal(t, json.Number("1"), v)

	v, ok = rec.Lookup("a.b")
	assert.True(t, ok)
	assert.Equal(t, "flat", v)

	v, ok = rec.Lookup("user.address.city")
	assert.True(t, ok)
	assert.Equal(t, "Seoul", v)

	v, ok = rec.Lookup("tags[1]")
	assert.True(t, ok)
	assert.Equal(t, "y", v)

	_, ok = rec.Lookup("user.zip")
	assert.False(t, ok)
}

func TestCSVSource_Headered(t *testing.T) {
	data := "id,name,category\nP001,노트북,전자제품\nP002,마우스\n"
	src, err := NewCSV(strings.NewReader(data), Options{
		Info:    model.FileInfo{FileType: model.FileTypeCSV, HasHeader: true},
		Columns: []string{"id", "name", "category"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "category"}, src.Header())
	assert.Equal(t, 1, src.HeaderRow())

	recs := drainAll(t, src)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].RowNumber)
	assert.Equal(t, "노트북", recs[0].Fields["name"])
	assert.Equal(t, 3, recs[0].Width)
	assert.Equal(t, 3, recs[1].RowNumber)
	assert.Equal(t, 2, recs[1].Width)
	_, ok := recs[1].Lookup("category")
	assert.False(t, ok)
}

func TestCSVSource_HeaderlessBindsByPosition(t *testing.T) {
	src, err := NewCSV(strings.NewReader("P001;노트북;전자제품;extra\n"), Options{
		Info:      model.FileInfo{FileType: model.FileTypeCSV},
		Delimiter: ';',
		Columns:   []string{"id", "name", "category"},
	})
	require.NoError(t, err)
	recs := drainAll(t, src)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].RowNumber)
	assert.Equal(t, "P001", recs[0].Fields["id"])
	assert.Equal(t, "extra", recs[0].Fields["column_4"])
}

func TestCSVSource_QuotedNewline(t *testing.T) {
	data := "id,note\n1,\"line one\nline two\"\n2,plain\n"
	src, err := NewCSV(strings.NewReader(data), Options{
		Info: model.FileInfo{FileType: model.FileTypeCSV, HasHeader: true},
	})
	require.NoError(t, err)
	recs := drainAll(t, src)
	require.Len(t, recs, 2)
	assert.Equal(t, "line one\nline two", recs[0].Fields["note"])
	assert.Equal(t, 2, recs[0].RowNumber)
	assert.Equal(t, 4, recs[1].RowNumber)
}

func TestCSVSource_BareQuoteIsRowError(t *testing.T) {
	data := "id,name\n1,ab\"c\n2,ok\n"
	src, err := NewCSV(strings.NewReader(data), Options{
		Info: model.FileInfo{FileType: model.FileTypeCSV, HasHeader: true},
	})
	require.NoError(t, err)
	recs := drainAll(t, src)
	require.Len(t, recs, 2)
	assert.Error(t, recs[0].ParseErr)
	assert.Equal(t, 2, recs[0].RowNumber)
	assert.NoError(t, recs[1].ParseErr)
	assert.Equal(t, "ok", recs[1].Fields["name"])
}

func TestJSONSource_RootArray(t *testing.T) {
	src, err := NewJSON(strings.NewReader(`[{"id":1},{"id":2},{"id":3}]`), "")
	require.NoError(t, err)
	recs := drainAll(t, src)
	require.Len(t, recs, 3)
	assert.Equal(t, 3, recs[2].RowNumber)
	assert.Equal(t, json.Number("3"), recs[2].Fields["id"])
}

func TestJSONSource_RootPath(t *testing.T) {
	doc := `{"meta":{"count":2},"data":{"items":[{"id":"a"},{"id":"b"}]},"tail":[1,2]}`
	src, err := NewJSON(strings.NewReader(doc), "data.items")
	require.NoError(t, err)
	recs := drainAll(t, src)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[1].Fields["id"])
}

func TestJSONSource_RootPathIndex(t *testing.T) {
	doc := `{"pages":[{"rows":[{"id":1}]},{"rows":[{"id":2},{"id":3}]}]}`
	src, err := NewJSON(strings.NewReader(doc), "pages[1].rows")
	require.NoError(t, err)
	recs := drainAll(t, src)
	require.Len(t, recs, 2)
	assert.Equal(t, json.Number("2"), recs[0].Fields["id"])
}

func TestJSONSource_RootPathNotFound(t *testing.T) {
	for _, path := range []string{"missing", "data.items[5]", "data.items.x"} {
		_, err := NewJSON(strings.NewReader(`{"data":{"items":[{"id":1}]}}`), path)
		assert.True(t, errors.Is(err, ErrRootPathNotFound), "path %q: %v", path, err)
	}
}

func TestJSONSource_SingleObject(t *testing.T) {
	src, err := NewJSON(strings.NewReader(`{"id":7,"name":"x"}`), "")
	require.NoError(t, err)
	recs := drainAll(t, src)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].RowNumber)
	assert.Equal(t, "x", recs[0].Fields["name"])
}

func TestJSONSource_ScalarRoot(t *testing.T) {
	_, err := NewJSON(strings.NewReader(`{"data":42}`), "data")
	assert.True(t, errors.Is(err, ErrNotContainer))
}

func TestJSONSource_NonObjectElement(t *testing.T) {
	src, err := NewJSON(strings.NewReader(`[{"id":1}, 5]`), "")
	require.NoError(t, err)
	recs := drainAll(t, src)
	require.Len(t, recs, 2)
	assert.NoError(t, recs[0].ShapeErr)
	assert.Error(t, recs[1].ShapeErr)
}

func TestJSONSource_TruncatedDocument(t *testing.T) {
	src, err := NewJSON(strings.NewReader(`[{"id":1},{"id":`), "")
	require.NoError(t, err)
	rec, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, rec.RowNumber)

	_, err = src.Next()
	var se *StreamError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, 2, se.Row)
}

func TestJSONLSource(t *testing.T) {
	data := "{\"id\":1}\n\n{\"id\": \"x\", \"age\": 150}\nnot json\n[1,2]\n"
	recs := drainAll(t, NewJSONL(strings.NewReader(data), false))
	require.Len(t, recs, 4)

	assert.Equal(t, 1, recs[0].RowNumber)
	assert.Equal(t, 3, recs[1].RowNumber)
	assert.Equal(t, "x", recs[1].Fields["id"])
	assert.Equal(t, 4, recs[2].RowNumber)
	assert.Error(t, recs[2].ParseErr)
	assert.Equal(t, 5, recs[3].RowNumber)
	assert.Error(t, recs[3].ShapeErr)
}

func TestJSONLSource_ArrayMode(t *testing.T) {
	data := "[{\"id\":1},{\"id\":2}]\n{\"id\":3}\n"
	recs := drainAll(t, NewJSONL(strings.NewReader(data), true))
	require.Len(t, recs, 3)
	assert.Equal(t, 1, recs[0].RowNumber)
	assert.Equal(t, 1, recs[0].SubRow)
	assert.Equal(t, 1, recs[1].RowNumber)
	assert.Equal(t, 2, recs[1].SubRow)
	assert.Equal(t, 2, recs[2].RowNumber)
	assert.Equal(t, 0, recs[2].SubRow)
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open(strings.NewReader(""), Options{Info: model.FileInfo{FileType: "xml"}})
	assert.Error(t, err)
}

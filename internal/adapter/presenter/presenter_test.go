package presenter_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deecheck/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/deecheck/internal/analysis"
	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
)

var fixedTime = time.Date(2024, 5, 1, 9, 30, 5, 0, time.UTC)

func failingResult() model.ValidationResult {
	return model.ValidationResult{
		FileName:        "users.csv",
		TotalRows:       10,
		TotalColumns:    3,
		StructuralValid: true,
		FormatValid:     false,
		ProcessingTime:  1500 * time.Millisecond,
		Timestamp:       fixedTime,
		Errors: []model.ValidationError{
			{
				RowNumber:     8,
				ColumnName:    "name",
				ErrorType:     model.ErrFormatMissingRequired,
				ExpectedValue: "non-empty value",
				Message:       "required field name is missing",
				Severity:      model.SeverityError,
			},
			{
				RowNumber:     9,
				ColumnName:    "note",
				ErrorType:     model.ErrFormatInvalidPattern,
				ActualValue:   "a|b <script>",
				ExpectedValue: "pattern: [a-z]+",
				Message:       "value does not match",
				Severity:      model.SeverityError,
			},
		},
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []presenter.Format
		wantErr bool
	}{
		{in: "all", want: []presenter.Format{presenter.FormatMarkdown, presenter.FormatHTML, presenter.FormatJSON}},
		{in: "json, md", want: []presenter.Format{presenter.FormatJSON, presenter.FormatMarkdown}},
		{in: "HTML,html", want: []presenter.Format{presenter.FormatHTML}},
		{in: "xml", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := presenter.ParseFormats(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRendererFor(t *testing.T) {
	for _, f := range []presenter.Format{presenter.FormatMarkdown, presenter.FormatHTML, presenter.FormatJSON} {
		r, err := presenter.RendererFor(f)
		require.NoError(t, err)
		assert.Equal(t, string(f), r.Name())
	}
	_, err := presenter.RendererFor(presenter.FormatAll)
	assert.Error(t, err)
}

func TestReportName(t *testing.T) {
	assert.Equal(t, "users_20240501_093005_01HX", presenter.ReportName("data/users.csv", fixedTime, "01HX"))
	assert.Equal(t, "events_20240501_093005", presenter.ReportName("events.jsonl", fixedTime, ""))
}

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "-", presenter.RowLabel(model.ValidationError{}))
	assert.Equal(t, "4", presenter.RowLabel(model.ValidationError{RowNumber: 4}))
	assert.Equal(t, "4.2", presenter.RowLabel(model.ValidationError{RowNumber: 4, SubRow: 2}))
}

func TestStats(t *testing.T) {
	res := failingResult()
	res.Errors = append(res.Errors, model.ValidationError{RowNumber: 8, ColumnName: "name", ErrorType: model.ErrFormatMissingRequired})

	types := presenter.TypeStats(res)
	require.Len(t, types, 2)
	assert.Equal(t, presenter.Stat{Key: "format_missing_required", Count: 2, Ratio: 66.67}, types[0])

	rows := presenter.RowStats(res)
	assert.Equal(t, []presenter.RowStat{{Row: 8, Count: 2}, {Row: 9, Count: 1}}, rows)

	assert.Equal(t, 80.0, presenter.SuccessPercent(res))

	recs := presenter.Recommendations(res)
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0], "Required field is missing (2)")
	assert.Contains(t, recs[len(recs)-1], `column "name"`)
	assert.Empty(t, presenter.Recommendations(model.ValidationResult{}))
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	err := presenter.NewJSONRenderer().Render(&buf, presenter.Report{
		Result:      failingResult(),
		GeneratedAt: fixedTime,
		Version:     "1.2.3",
	})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "users.csv", doc["file_name"])
	assert.Equal(t, "2024-05-01T09:30:05Z", doc["timestamp"])
	assert.Equal(t, 10.0, doc["total_rows"])
	assert.Equal(t, true, doc["structural_valid"])
	assert.Equal(t, false, doc["format_valid"])
	assert.Equal(t, 1.5, doc["processing_time"])
	assert.NotContains(t, doc, "distribution_analysis")

	errs := doc["errors"].([]any)
	require.Len(t, errs, 2)
	first := errs[0].(map[string]any)
	assert.Equal(t, 8.0, first["row_number"])
	assert.Equal(t, "format_missing_required", first["error_type"])

	summary := doc["summary"].(map[string]any)
	assert.Equal(t, 2.0, summary["total_errors"])
	assert.Equal(t, 80.0, summary["success_rate"])
	assert.Equal(t, false, summary["overall_valid"])

	stats := doc["statistics"].(map[string]any)
	typeStats := stats["error_type_stats"].([]any)
	assert.Len(t, typeStats, 2)
	assert.Equal(t, 50.0, typeStats[0].(map[string]any)["ratio"])

	assert.Contains(t, buf.String(), "a|b <script>")
}

func TestJSONRenderer_EmptyErrorsAndDistribution(t *testing.T) {
	var buf bytes.Buffer
	err := presenter.NewJSONRenderer().Render(&buf, presenter.Report{
		Result: model.ValidationResult{FileName: "ok.csv", TotalRows: 2, StructuralValid: true, FormatValid: true},
		Distribution: []analysis.ColumnDistribution{
			{ColumnName: "category", DataType: model.DistributionCategorical, TotalCount: 2},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"errors": []`)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	dist := doc["distribution_analysis"].(map[string]any)
	assert.Equal(t, 1.0, dist["summary"].(map[string]any)["categorical_columns"])
	assert.Equal(t, 100.0, doc["summary"].(map[string]any)["success_rate"])
}

func TestMarkdownRenderer(t *testing.T) {
	r, err := presenter.NewMarkdownRenderer()
	require.NoError(t, err)
	assert.Equal(t, ".md", r.Extension())

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, presenter.Report{Result: failingResult(), GeneratedAt: fixedTime, Version: "dev"}))
	out := buf.String()

	assert.Contains(t, out, "# Validation Report: users.csv")
	assert.Contains(t, out, "- **Format validity**: FAIL")
	assert.Contains(t, out, "- **Success rate**: 80.0%")
	assert.Contains(t, out, "| 8 | name | format_missing_required | error |")
	assert.Contains(t, out, `a\|b <script>`)
	assert.Contains(t, out, "| format_missing_required | 1 | 50.0% |")
	assert.Contains(t, out, "## Recommendations")
	assert.Contains(t, out, "by deecheck dev")
}

func TestMarkdownRenderer_Distribution(t *testing.T) {
	r, err := presenter.NewMarkdownRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, presenter.Report{
		Result: model.ValidationResult{FileName: "ok.csv", TotalRows: 1200, StructuralValid: true, FormatValid: true},
		Distribution: []analysis.ColumnDistribution{
			{
				ColumnName: "category", DataType: model.DistributionCategorical, TotalCount: 1200,
				Categories: []analysis.Category{{Value: "A", Count: 1000, Percentage: 83.33}},
				OtherCount: 200, OtherPercentage: 16.67, UniqueCount: 3,
			},
			{
				ColumnName: "age", DataType: model.DistributionNumerical, TotalCount: 1200,
				Bins:  []analysis.Bin{{Range: [2]float64{0, 50}, Count: 1200, Percentage: 100}},
				Stats: &analysis.Stats{Mean: 31.5, Min: 1, Max: 49},
			},
		},
	}))
	out := buf.String()

	assert.Contains(t, out, "## No errors")
	assert.Contains(t, out, "| Total rows | 1,200 |")
	assert.Contains(t, out, "### category")
	assert.Contains(t, out, "| A | 1,000 | 83.3% |")
	assert.Contains(t, out, "| (other) | 200 | 16.7% |")
	assert.Contains(t, out, "| Mean | 31.50 |")
	assert.Contains(t, out, "| 0.00 - 50.00 | 1,200 | 100.0% |")
	assert.Contains(t, out, "The data passed every check.")
}

func TestHTMLRenderer_Escapes(t *testing.T) {
	r, err := presenter.NewHTMLRenderer()
	require.NoError(t, err)
	assert.Equal(t, ".html", r.Extension())

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, presenter.Report{Result: failingResult(), GeneratedAt: fixedTime}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Validation Report - users.csv</title>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "a|b <script>")
	assert.Contains(t, out, `<tr class="error"><td>8</td><td>name</td>`)
}

func TestCLIPresenter(t *testing.T) {
	var buf bytes.Buffer
	p := presenter.NewCLIPresenter(&buf, true)

	p.PresentResult(failingResult())
	p.PresentResult(model.ValidationResult{FileName: "ok.csv", TotalRows: 1234, StructuralValid: true, FormatValid: true})
	p.PresentSummary(model.BatchSummary{Files: 2, Passed: 1, Failed: 1, TotalRows: 1244, TotalErrors: 2, Elapsed: 2 * time.Second})

	out := buf.String()
	assert.Contains(t, out, "✗ users.csv  rows=10 errors=2 warnings=0 (1.5s)")
	assert.Contains(t, out, "    row 8, name: [format_missing_required] required field name is missing")
	assert.Contains(t, out, "✓ ok.csv  rows=1,234")
	assert.Contains(t, out, "  Failed:     1")
	assert.Contains(t, out, "  Rows:       1,244")
	assert.Contains(t, out, "  Throughput: 622 rows/s")
}

func TestCLIPresenter_Config(t *testing.T) {
	var buf bytes.Buffer
	p := presenter.NewCLIPresenter(&buf, false)
	p.PresentConfig("cfg.yml", &model.ValidationConfig{
		FileInfo: model.FileInfo{FileType: model.FileTypeCSV, Delimiter: ';', HasHeader: true, ExpectedRows: 1000},
		Rules: []model.ValidationRule{
			{Name: "id", Type: model.TypeInteger, Required: true},
			{Name: "age", Type: model.TypeInteger},
			{Name: "email", Type: model.TypeEmail, Required: true},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "Encoding:      utf-8")
	assert.Contains(t, out, `Delimiter:     ';'`)
	assert.Contains(t, out, "Expected rows: 1,000")
	assert.Contains(t, out, "Required: 2")
	assert.Contains(t, out, "Optional: 1")
	assert.Contains(t, out, "integer:  2")
}

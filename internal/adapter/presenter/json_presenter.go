package presenter

import (
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/YoshitsuguKoike/deecheck/internal/analysis"
	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
)

// JSONRenderer writes the machine-readable report.
// Field names are part of the public contract; add fields, never rename them.
type JSONRenderer struct{}

// NewJSONRenderer creates a new JSON renderer
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

func (r *JSONRenderer) Name() string      { return string(FormatJSON) }
func (r *JSONRenderer) Extension() string { return ".json" }

type jsonReport struct {
	FileName             string                  `json:"file_name"`
	Timestamp            string                  `json:"timestamp"`
	TotalRows            int                     `json:"total_rows"`
	TotalColumns         int                     `json:"total_columns"`
	StructuralValid      bool                    `json:"structural_valid"`
	FormatValid          bool                    `json:"format_valid"`
	ProcessingTime       float64                 `json:"processing_time"`
	Errors               []model.ValidationError `json:"errors"`
	Statistics           jsonStatistics          `json:"statistics"`
	Summary              jsonSummary             `json:"summary"`
	DistributionAnalysis *jsonDistribution       `json:"distribution_analysis,omitempty"`
	GeneratedAt          string                  `json:"generated_at"`
	Version              string                  `json:"version"`
}

type jsonTypeStat struct {
	ErrorType string  `json:"error_type"`
	Count     int     `json:"count"`
	Ratio     float64 `json:"ratio"`
}

type jsonColumnStat struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Ratio  float64 `json:"ratio"`
}

type jsonRowStat struct {
	Row   int `json:"row"`
	Count int `json:"count"`
}

type jsonStatistics struct {
	ErrorTypeStats []jsonTypeStat   `json:"error_type_stats"`
	ColumnStats    []jsonColumnStat `json:"column_stats"`
	RowStats       []jsonRowStat    `json:"row_stats"`
	SuccessRate    float64          `json:"success_rate"`
}

type jsonSummary struct {
	TotalErrors   int     `json:"total_errors"`
	TotalWarnings int     `json:"total_warnings"`
	SuccessRate   float64 `json:"success_rate"`
	OverallValid  bool    `json:"overall_valid"`
}

type jsonDistribution struct {
	Summary analysis.Summary              `json:"summary"`
	Columns []analysis.ColumnDistribution `json:"columns"`
}

// Render writes rep as indented JSON
func (r *JSONRenderer) Render(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(buildJSONReport(rep))
}

func buildJSONReport(rep Report) jsonReport {
	res := rep.Result
	errs := res.Errors
	if errs == nil {
		errs = []model.ValidationError{}
	}
	success := SuccessPercent(res)

	stats := jsonStatistics{
		ErrorTypeStats: []jsonTypeStat{},
		ColumnStats:    []jsonColumnStat{},
		RowStats:       []jsonRowStat{},
		SuccessRate:    success,
	}
	for _, s := range TypeStats(res) {
		stats.ErrorTypeStats = append(stats.ErrorTypeStats, jsonTypeStat{ErrorType: s.Key, Count: s.Count, Ratio: s.Ratio})
	}
	for _, s := range ColumnStats(res) {
		stats.ColumnStats = append(stats.ColumnStats, jsonColumnStat{Column: s.Key, Count: s.Count, Ratio: s.Ratio})
	}
	for _, s := range RowStats(res) {
		stats.RowStats = append(stats.RowStats, jsonRowStat{Row: s.Row, Count: s.Count})
	}

	out := jsonReport{
		FileName:        res.FileName,
		Timestamp:       formatInstant(res.Timestamp),
		TotalRows:       res.TotalRows,
		TotalColumns:    res.TotalColumns,
		StructuralValid: res.StructuralValid,
		FormatValid:     res.FormatValid,
		ProcessingTime:  res.ProcessingTime.Seconds(),
		Errors:          errs,
		Statistics:      stats,
		Summary: jsonSummary{
			TotalErrors:   res.ErrorCount(),
			TotalWarnings: res.WarningCount(),
			SuccessRate:   success,
			OverallValid:  res.IsValid(),
		},
		GeneratedAt: formatInstant(rep.GeneratedAt),
		Version:     rep.Version,
	}
	if len(rep.Distribution) > 0 {
		out.DistributionAnalysis = &jsonDistribution{
			Summary: analysis.Summarize(rep.Distribution),
			Columns: rep.Distribution,
		}
	}
	return out
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

package presenter

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/deecheck/internal/analysis"
	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
)

// Report is everything a renderer needs for one file
type Report struct {
	Result       model.ValidationResult
	Distribution []analysis.ColumnDistribution
	GeneratedAt  time.Time
	Version      string
}

// Renderer writes a Report in one output format
type Renderer interface {
	Name() string
	Extension() string
	Render(w io.Writer, rep Report) error
}

// Format names a report format on the command line
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatAll      Format = "all"
)

// ParseFormats parses a comma separated format list. "all" expands to
// every format; duplicates are dropped.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	add := func(f Format) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, part := range strings.Split(s, ",") {
		switch f := Format(strings.ToLower(strings.TrimSpace(part))); f {
		case FormatAll:
			add(FormatMarkdown)
			add(FormatHTML)
			add(FormatJSON)
		case FormatMarkdown, FormatHTML, FormatJSON:
			add(f)
		case "md":
			add(FormatMarkdown)
		case "":
		default:
			return nil, fmt.Errorf("unknown report format: %q (want markdown, html, json or all)", part)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no report format given")
	}
	return out, nil
}

// RendererFor returns the renderer of a single format
func RendererFor(f Format) (Renderer, error) {
	switch f {
	case FormatMarkdown:
		return NewMarkdownRenderer()
	case FormatHTML:
		return NewHTMLRenderer()
	case FormatJSON:
		return NewJSONRenderer(), nil
	default:
		return nil, fmt.Errorf("no renderer for format %q", f)
	}
}

// ReportName builds the collision-free base name of a report:
// <stem>_<YYYYMMDD_HHMMSS>_<id>
func ReportName(fileName string, at time.Time, id string) string {
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	name := stem + "_" + at.Format("20060102_150405")
	if id != "" {
		name += "_" + id
	}
	return name
}

// Stat is an error count with its share of all entries, in percent
type Stat struct {
	Key   string
	Count int
	Ratio float64
}

// RowStat counts entries on one row
type RowStat struct {
	Row   int
	Count int
}

// TypeStats counts entries per error type, most frequent first
func TypeStats(r model.ValidationResult) []Stat {
	return withRatio(r.CountByType(), len(r.Errors))
}

// ColumnStats counts entries per column, most frequent first
func ColumnStats(r model.ValidationResult) []Stat {
	return withRatio(r.CountByColumn(), len(r.Errors))
}

func withRatio(counts []model.Count, total int) []Stat {
	out := make([]Stat, 0, len(counts))
	for _, c := range counts {
		out = append(out, Stat{Key: c.Key, Count: c.Count, Ratio: analysis.Percentage(c.Count, total)})
	}
	return out
}

// RowStats counts entries per row in ascending row order
func RowStats(r model.ValidationResult) []RowStat {
	byRow := r.ErrorsByRow()
	out := make([]RowStat, 0, len(byRow))
	for row, errs := range byRow {
		out = append(out, RowStat{Row: row, Count: len(errs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

// SuccessPercent is the success rate in percent, rounded to two decimals
func SuccessPercent(r model.ValidationResult) float64 {
	return math.Round(r.SuccessRate()*10000) / 100
}

// Recommendations turns the error mix into actionable advice, most
// frequent error type first
func Recommendations(r model.ValidationResult) []string {
	if len(r.Errors) == 0 {
		return nil
	}
	var out []string
	for _, c := range r.CountByType() {
		info, ok := model.LookupErrorInfo(model.ErrorType(c.Key))
		if !ok {
			continue
		}
		out = append(out, fmt.Sprintf("[%s] %s (%d): %s", info.Impact, info.Description, c.Count, info.Suggestion))
	}
	if cols := ColumnStats(r); len(cols) > 0 && cols[0].Key != "" {
		out = append(out, fmt.Sprintf("Start with column %q, which has the most errors (%d)", cols[0].Key, cols[0].Count))
	}
	return out
}

// RowLabel renders a row position; sub-rows of a JSONL array line are
// shown as "line.element", file-level entries as "-"
func RowLabel(e model.ValidationError) string {
	switch {
	case e.RowNumber == 0:
		return "-"
	case e.SubRow > 0:
		return strconv.Itoa(e.RowNumber) + "." + strconv.Itoa(e.SubRow)
	default:
		return strconv.Itoa(e.RowNumber)
	}
}

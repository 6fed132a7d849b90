package presenter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/deecheck/internal/analysis"
	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
)

// DefaultErrorPreview is how many errors a verbose run prints per file
const DefaultErrorPreview = 10

// CLIPresenter writes human-readable progress and summaries
type CLIPresenter struct {
	output  io.Writer
	verbose bool
	preview int
}

// NewCLIPresenter creates a new CLI presenter. Verbose output lists the
// first errors of every failed file.
func NewCLIPresenter(output io.Writer, verbose bool) *CLIPresenter {
	return &CLIPresenter{output: output, verbose: verbose, preview: DefaultErrorPreview}
}

// PresentResult prints one line per file
func (p *CLIPresenter) PresentResult(res model.ValidationResult) {
	mark := "✓"
	if !res.IsValid() {
		mark = "✗"
	}
	fmt.Fprintf(p.output, "%s %s  rows=%s errors=%d warnings=%d (%s)\n",
		mark, res.FileName, FormatCount(res.TotalRows), res.ErrorCount(), res.WarningCount(),
		res.ProcessingTime.Round(time.Millisecond))

	if !p.verbose || len(res.Errors) == 0 {
		return
	}
	for i, e := range res.Errors {
		if i == p.preview {
			fmt.Fprintf(p.output, "    ... %d more\n", len(res.Errors)-p.preview)
			break
		}
		fmt.Fprintf(p.output, "    row %s, %s: [%s] %s\n", RowLabel(e), e.ColumnName, e.ErrorType, e.Message)
	}
}

// PresentSummary prints the folder totals
func (p *CLIPresenter) PresentSummary(s model.BatchSummary) {
	fmt.Fprintf(p.output, "\nValidation summary\n")
	fmt.Fprintf(p.output, "  Files:      %d\n", s.Files)
	fmt.Fprintf(p.output, "  Passed:     %d\n", s.Passed)
	fmt.Fprintf(p.output, "  Failed:     %d\n", s.Failed)
	fmt.Fprintf(p.output, "  Rows:       %s\n", FormatCount(s.TotalRows))
	fmt.Fprintf(p.output, "  Errors:     %s\n", FormatCount(s.TotalErrors))
	if s.Warnings > 0 {
		fmt.Fprintf(p.output, "  Warnings:   %s\n", FormatCount(s.Warnings))
	}
	fmt.Fprintf(p.output, "  Time:       %.2fs\n", s.Elapsed.Seconds())
	fmt.Fprintf(p.output, "  Throughput: %s rows/s\n", FormatCount(int(s.RowsPerSecond())))
}

// PresentReports lists written report files
func (p *CLIPresenter) PresentReports(paths []string) {
	for _, path := range paths {
		fmt.Fprintf(p.output, "  report: %s\n", path)
	}
}

// PresentDistribution prints a short per-column analysis digest
func (p *CLIPresenter) PresentDistribution(file string, dists []analysis.ColumnDistribution) {
	if len(dists) == 0 {
		return
	}
	sum := analysis.Summarize(dists)
	fmt.Fprintf(p.output, "  distribution of %s: %d columns (%d categorical, %d numerical)\n",
		file, sum.TotalColumns, sum.CategoricalColumns, sum.NumericalColumns)
	for _, d := range dists {
		switch {
		case d.IsCategorical():
			top := make([]string, 0, 3)
			for i, c := range d.Categories {
				if i == 3 {
					break
				}
				top = append(top, fmt.Sprintf("%s=%d", c.Value, c.Count))
			}
			fmt.Fprintf(p.output, "    %s: %d unique, nulls %.1f%%, top %s\n",
				d.ColumnName, d.UniqueCount, d.NullPercentage, strings.Join(top, " "))
		case d.Stats != nil:
			fmt.Fprintf(p.output, "    %s: min %.2f max %.2f mean %.2f median %.2f, nulls %.1f%%\n",
				d.ColumnName, d.Stats.Min, d.Stats.Max, d.Stats.Mean, d.Stats.Median, d.NullPercentage)
		default:
			fmt.Fprintf(p.output, "    %s: no numeric values\n", d.ColumnName)
		}
	}
}

// PresentConfig prints the summary shown by check-config
func (p *CLIPresenter) PresentConfig(path string, cfg *model.ValidationConfig) {
	fi := cfg.FileInfo
	fmt.Fprintf(p.output, "✓ %s is valid\n\n", path)
	fmt.Fprintf(p.output, "File info:\n")
	fmt.Fprintf(p.output, "  Type:          %s\n", fi.FileType)
	fmt.Fprintf(p.output, "  Encoding:      %s\n", fi.EncodingOrDefault())
	if fi.FileType == model.FileTypeCSV {
		delim := "(inferred)"
		if fi.DelimiterDeclared() {
			delim = fmt.Sprintf("%q", fi.Delimiter)
		}
		fmt.Fprintf(p.output, "  Delimiter:     %s\n", delim)
		fmt.Fprintf(p.output, "  Header:        %t\n", fi.HasHeader)
	}
	if fi.ExpectedRows > 0 {
		fmt.Fprintf(p.output, "  Expected rows: %s\n", FormatCount(fi.ExpectedRows))
	}
	if fi.JSONRootPath != "" {
		fmt.Fprintf(p.output, "  Root path:     %s\n", fi.JSONRootPath)
	}
	if fi.JSONSchema != nil {
		fmt.Fprintf(p.output, "  JSON schema:   yes\n")
	}

	required := len(cfg.RequiredColumns())
	fmt.Fprintf(p.output, "\nColumns:\n")
	fmt.Fprintf(p.output, "  Total:    %d\n", len(cfg.Rules))
	fmt.Fprintf(p.output, "  Required: %d\n", required)
	fmt.Fprintf(p.output, "  Optional: %d\n", len(cfg.Rules)-required)

	byType := make(map[model.DataType]int)
	for _, r := range cfg.Rules {
		byType[r.Type]++
	}
	fmt.Fprintf(p.output, "  Types:\n")
	for _, t := range model.AllDataTypes() {
		if n := byType[t]; n > 0 {
			fmt.Fprintf(p.output, "    %-9s %d\n", t.String()+":", n)
		}
	}
	if cfg.Distribution != nil {
		fmt.Fprintf(p.output, "\nDistribution analysis: %d columns\n", len(cfg.Distribution.Columns))
	}
}

// PresentWrite prints the outcome of writing a file
func (p *CLIPresenter) PresentWrite(action, path string) {
	fmt.Fprintf(p.output, "%s %s\n", action, path)
}

// PresentError prints an error
func (p *CLIPresenter) PresentError(err error) error {
	fmt.Fprintf(p.output, "✗ Error: %v\n", err)
	return err
}

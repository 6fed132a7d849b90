package presenter

import (
	"fmt"
	htmltemplate "html/template"
	"io"
	"strconv"
	"strings"
	texttemplate "text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/YoshitsuguKoike/deecheck/internal/analysis"
	"github.com/YoshitsuguKoike/deecheck/internal/embed"
)

const timestampLayout = "2006-01-02 15:04:05"

// executor is the common surface of text/template and html/template
type executor interface {
	Execute(w io.Writer, data any) error
}

// TemplateRenderer renders a report through an embedded template
type TemplateRenderer struct {
	name string
	ext  string
	tmpl executor
}

func (r *TemplateRenderer) Name() string      { return r.name }
func (r *TemplateRenderer) Extension() string { return r.ext }

// Render executes the template against rep
func (r *TemplateRenderer) Render(w io.Writer, rep Report) error {
	if err := r.tmpl.Execute(w, newReportView(rep)); err != nil {
		return fmt.Errorf("render %s report: %w", r.name, err)
	}
	return nil
}

// NewMarkdownRenderer parses the embedded Markdown template
func NewMarkdownRenderer() (*TemplateRenderer, error) {
	src, err := embed.ReportTemplate("report.md.tmpl")
	if err != nil {
		return nil, err
	}
	t, err := texttemplate.New("report.md").Funcs(texttemplate.FuncMap(templateFuncs())).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse markdown template: %w", err)
	}
	return &TemplateRenderer{name: string(FormatMarkdown), ext: ".md", tmpl: t}, nil
}

// NewHTMLRenderer parses the embedded HTML template. Values are escaped
// by html/template.
func NewHTMLRenderer() (*TemplateRenderer, error) {
	src, err := embed.ReportTemplate("report.html.tmpl")
	if err != nil {
		return nil, err
	}
	t, err := htmltemplate.New("report.html").Funcs(htmltemplate.FuncMap(templateFuncs())).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	return &TemplateRenderer{name: string(FormatHTML), ext: ".html", tmpl: t}, nil
}

func templateFuncs() map[string]any {
	return map[string]any{
		"num":   FormatCount,
		"pct":   func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) + "%" },
		"fixed": func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
		"passfail": func(ok bool) string {
			if ok {
				return "PASS"
			}
			return "FAIL"
		},
		"passclass": func(ok bool) string {
			if ok {
				return "pass"
			}
			return "fail"
		},
		"yesno": func(b bool) string {
			if b {
				return "yes"
			}
			return "no"
		},
		"cell": markdownCell,
	}
}

// FormatCount renders n with thousands separators
func FormatCount(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

func markdownCell(s string) string {
	return cellReplacer.Replace(s)
}

type errorView struct {
	Row      string
	Column   string
	Type     string
	Severity string
	Actual   string
	Expected string
	Message  string
}

// reportView is the flattened data the report templates read
type reportView struct {
	FileName        string
	Timestamp       string
	TotalRows       int
	TotalColumns    int
	ProcessingTime  string
	StructuralValid bool
	FormatValid     bool
	OverallValid    bool
	ErrorCount      int
	WarningCount    int
	SuccessRate     string
	Errors          []errorView
	TypeStats       []Stat
	ColumnStats     []Stat
	RowStats        []RowStat
	Distribution    []analysis.ColumnDistribution
	Recommendations []string
	GeneratedAt     string
	Version         string
}

func newReportView(rep Report) reportView {
	res := rep.Result
	v := reportView{
		FileName:        res.FileName,
		Timestamp:       res.Timestamp.Format(timestampLayout),
		TotalRows:       res.TotalRows,
		TotalColumns:    res.TotalColumns,
		ProcessingTime:  strconv.FormatFloat(res.ProcessingTime.Seconds(), 'f', 3, 64),
		StructuralValid: res.StructuralValid,
		FormatValid:     res.FormatValid,
		OverallValid:    res.IsValid(),
		ErrorCount:      res.ErrorCount(),
		WarningCount:    res.WarningCount(),
		SuccessRate:     strconv.FormatFloat(SuccessPercent(res), 'f', 1, 64),
		TypeStats:       TypeStats(res),
		ColumnStats:     ColumnStats(res),
		RowStats:        RowStats(res),
		Distribution:    rep.Distribution,
		Recommendations: Recommendations(res),
		GeneratedAt:     rep.GeneratedAt.Format(timestampLayout),
		Version:         rep.Version,
	}
	for _, e := range res.Errors {
		v.Errors = append(v.Errors, errorView{
			Row:      RowLabel(e),
			Column:   e.ColumnName,
			Type:     string(e.ErrorType),
			Severity: string(e.Severity),
			Actual:   e.ActualValue,
			Expected: e.ExpectedValue,
			Message:  e.Message,
		})
	}
	return v
}

// Package analysis computes per-column value distributions in a single
// streaming pass alongside validation.
package analysis

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/common"
)

// NumericRatio is the share of non-null values that must look numeric
// for an auto column to be analyzed as numerical
const NumericRatio = 0.8

var numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][+-]?\d+)?$`)

// Record is the read side of a source record
type Record interface {
	Lookup(name string) (any, bool)
}

// Category is one categorical value and its frequency
type Category struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Bin is one histogram bucket. The last bin is closed on both ends.
type Bin struct {
	Range      [2]float64 `json:"range"`
	Count      int        `json:"count"`
	Percentage float64    `json:"percentage"`
}

// Stats summarizes numerical values. Quartiles use linear interpolation.
type Stats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// ColumnDistribution is the analysis result for one column
type ColumnDistribution struct {
	ColumnName     string                 `json:"column_name"`
	DataType       model.DistributionKind `json:"data_type"`
	TotalCount     int                    `json:"total_count"`
	NullCount      int                    `json:"null_count"`
	NullPercentage float64                `json:"null_percentage"`

	Categories      []Category `json:"categories,omitempty"`
	OtherCount      int        `json:"other_count,omitempty"`
	OtherPercentage float64    `json:"other_percentage,omitempty"`
	UniqueCount     int        `json:"unique_count,omitempty"`

	Bins          []Bin  `json:"bins,omitempty"`
	AutoGenerated bool   `json:"auto_generated,omitempty"`
	Stats         *Stats `json:"stats,omitempty"`
}

// IsCategorical reports whether the categorical fields are populated
func (d ColumnDistribution) IsCategorical() bool {
	return d.DataType == model.DistributionCategorical
}

type accumulator struct {
	col     model.DistributionColumn
	total   int
	nulls   int
	nonNull int
	counts  map[string]int
	order   map[string]int
	numbers []float64
}

// Analyzer accumulates values for the configured columns. It is not safe
// for concurrent use; create one per file.
type Analyzer struct {
	accs []*accumulator
}

// New creates an analyzer; a nil config analyzes nothing
func New(cfg *model.DistributionConfig) *Analyzer {
	a := &Analyzer{}
	if cfg == nil {
		return a
	}
	for _, c := range cfg.Columns {
		acc := &accumulator{col: c}
		if c.Kind != model.DistributionNumerical {
			acc.counts = make(map[string]int)
			acc.order = make(map[string]int)
		}
		a.accs = append(a.accs, acc)
	}
	return a
}

// Observe adds one record's values
func (a *Analyzer) Observe(rec Record) {
	for _, acc := range a.accs {
		v, ok := rec.Lookup(acc.col.Name)
		acc.add(v, ok)
	}
}

func (acc *accumulator) add(v any, present bool) {
	acc.total++
	if common.IsEmpty(v, present) {
		acc.nulls++
		return
	}
	acc.nonNull++
	if acc.counts != nil {
		key := common.Render(v)
		if _, seen := acc.order[key]; !seen {
			acc.order[key] = len(acc.order)
		}
		acc.counts[key]++
	}
	if acc.col.Kind != model.DistributionCategorical {
		if f, ok := toNumber(v); ok {
			acc.numbers = append(acc.numbers, f)
		}
	}
}

func toNumber(v any) (float64, bool) {
	var s string
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Results returns one distribution per configured column, in config order
func (a *Analyzer) Results() []ColumnDistribution {
	out := make([]ColumnDistribution, 0, len(a.accs))
	for _, acc := range a.accs {
		out = append(out, acc.result())
	}
	return out
}

func (acc *accumulator) kind() model.DistributionKind {
	if acc.col.Kind != model.DistributionAuto {
		return acc.col.Kind
	}
	if acc.nonNull > 0 && float64(len(acc.numbers))/float64(acc.nonNull) >= NumericRatio {
		return model.DistributionNumerical
	}
	return model.DistributionCategorical
}

func (acc *accumulator) result() ColumnDistribution {
	d := ColumnDistribution{
		ColumnName:     acc.col.Name,
		DataType:       acc.kind(),
		TotalCount:     acc.total,
		NullCount:      acc.nulls,
		NullPercentage: Percentage(acc.nulls, acc.total),
	}
	if d.DataType == model.DistributionCategorical {
		acc.categorical(&d)
	} else {
		acc.numerical(&d)
	}
	return d
}

func (acc *accumulator) categorical(d *ColumnDistribution) {
	limit := acc.col.MaxCategories
	if limit <= 0 {
		limit = model.DefaultMaxCategories
	}
	keys := make([]string, 0, len(acc.counts))
	for k := range acc.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := acc.counts[keys[i]], acc.counts[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return acc.order[keys[i]] < acc.order[keys[j]]
	})

	d.UniqueCount = len(keys)
	for i, k := range keys {
		n := acc.counts[k]
		if i >= limit {
			d.OtherCount += n
			continue
		}
		d.Categories = append(d.Categories, Category{Value: k, Count: n, Percentage: Percentage(n, acc.total)})
	}
	d.OtherPercentage = Percentage(d.OtherCount, acc.total)
}

func (acc *accumulator) numerical(d *ColumnDistribution) {
	if len(acc.numbers) == 0 {
		return
	}
	values := append([]float64(nil), acc.numbers...)
	sort.Float64s(values)
	d.Stats = computeStats(values)

	edges := acc.col.Bins
	if len(edges) < 2 {
		count := acc.col.BinCount
		if count <= 0 {
			count = model.DefaultBinCount
		}
		edges = AutoBins(values[0], values[len(values)-1], count)
		d.AutoGenerated = true
	}
	counts := Histogram(values, edges)
	for i := 0; i+1 < len(edges); i++ {
		d.Bins = append(d.Bins, Bin{
			Range:      [2]float64{edges[i], edges[i+1]},
			Count:      counts[i],
			Percentage: Percentage(counts[i], acc.total),
		})
	}
}

// Percentage returns count/total as a percentage rounded to two decimals
func Percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}

// AutoBins spaces count+1 edges evenly between lo and hi. A constant
// column gets a single narrow bin.
func AutoBins(lo, hi float64, count int) []float64 {
	if lo == hi {
		return []float64{lo, hi + 0.1}
	}
	edges := make([]float64, count+1)
	step := (hi - lo) / float64(count)
	for i := range edges {
		edges[i] = lo + step*float64(i)
	}
	edges[count] = hi
	return edges
}

// Histogram counts values per bin. Bins are half-open except the last,
// which includes its upper edge; values outside all bins are dropped.
func Histogram(values, edges []float64) []int {
	if len(edges) < 2 {
		return nil
	}
	counts := make([]int, len(edges)-1)
	last := len(edges) - 1
	for _, v := range values {
		if v < edges[0] || v > edges[last] {
			continue
		}
		if v == edges[last] {
			counts[last-1]++
			continue
		}
		i := sort.SearchFloat64s(edges, v)
		if i < len(edges) && edges[i] == v {
			counts[i]++
		} else {
			counts[i-1]++
		}
	}
	return counts
}

func computeStats(sorted []float64) *Stats {
	n := float64(len(sorted))
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / n
	var sq float64
	for _, v := range sorted {
		sq += (v - mean) * (v - mean)
	}
	return &Stats{
		Mean:   mean,
		Median: Quantile(sorted, 0.5),
		Std:    math.Sqrt(sq / n),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q25:    Quantile(sorted, 0.25),
		Q75:    Quantile(sorted, 0.75),
	}
}

// Quantile interpolates linearly between the closest ranks of sorted
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// Summary counts analyzed columns by kind
type Summary struct {
	TotalColumns       int `json:"total_columns"`
	CategoricalColumns int `json:"categorical_columns"`
	NumericalColumns   int `json:"numerical_columns"`
}

// Summarize builds the summary for results
func Summarize(results []ColumnDistribution) Summary {
	s := Summary{TotalColumns: len(results)}
	for _, r := range results {
		if r.IsCategorical() {
			s.CategoricalColumns++
		} else {
			s.NumericalColumns++
		}
	}
	return s
}

package common

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
)

// MaxValueLength bounds the rendered actual_value, in characters
const MaxValueLength = 100

// Truncate cuts s to MaxValueLength characters, marking the cut with "..."
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxValueLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxValueLength]) + "..."
}

// Render converts a raw record value to the text shown in reports
func Render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// IsEmpty reports whether a value counts as missing: absent, null or blank text
func IsEmpty(v any, present bool) bool {
	if !present || v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// FormatNumber prints a bound without a trailing ".0"
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatRat prints an exact bound; integers keep every digit
func FormatRat(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	f, _ := r.Float64()
	return FormatNumber(f)
}

// DescribeRange renders inclusive numeric bounds, e.g. "0 <= value <= 120"
func DescribeRange(r model.Range) string {
	return describeBounds(r.Min, r.Max, "value", FormatNumber)
}

// DescribeLength renders inclusive length bounds, e.g. "length >= 2"
func DescribeLength(l model.Length) string {
	var lo, hi *float64
	if l.Min != nil {
		f := float64(*l.Min)
		lo = &f
	}
	if l.Max != nil {
		f := float64(*l.Max)
		hi = &f
	}
	return describeBounds(lo, hi, "length", FormatNumber)
}

func describeBounds(lo, hi *float64, subject string, format func(float64) string) string {
	switch {
	case lo != nil && hi != nil:
		return fmt.Sprintf("%s <= %s <= %s", format(*lo), subject, format(*hi))
	case lo != nil:
		return fmt.Sprintf("%s >= %s", subject, format(*lo))
	case hi != nil:
		return fmt.Sprintf("%s <= %s", subject, format(*hi))
	default:
		return "any " + subject
	}
}

// DescribeAllowed renders a categorical set in declaration order
func DescribeAllowed(values []string) string {
	return "one of [" + strings.Join(values, ", ") + "]"
}

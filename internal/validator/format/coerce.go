package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/itchyny/timefmt-go"
	"github.com/nyaruka/phonenumbers"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/common"
)

var (
	integerPattern = regexp.MustCompile(`^[+-]?\d+$`)
	floatPattern   = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// isoLayouts are tried in order when a datetime rule has no format
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

const isoExpected = "ISO-8601 (YYYY-MM-DD[THH:MM:SS[.fff][Z|±hh:mm]])"

var booleanTokens = map[string]bool{
	"true": true, "false": false,
	"1": true, "0": false,
	"yes": true, "no": false,
}

// failure describes a coercion error
type failure struct {
	errType  model.ErrorType
	expected string
	message  string
}

type coercer func(v *Validator, rule model.ValidationRule, raw any) (any, *failure)

// coercers holds one entry per DataType; a test checks every variant is present
var coercers = map[model.DataType]coercer{
	model.TypeInteger:  coerceInteger,
	model.TypeFloat:    coerceFloat,
	model.TypeString:   coerceString,
	model.TypeDatetime: coerceDatetime,
	model.TypeBoolean:  coerceBoolean,
	model.TypeEmail:    coerceEmail,
	model.TypePhone:    coercePhone,
	model.TypeObject:   coerceObject,
	model.TypeArray:    coerceArray,
	model.TypeNull:     coerceNull,
}

func typeFailure(raw any, expected string) *failure {
	return &failure{
		errType:  model.ErrFormatInvalidType,
		expected: expected,
		message:  fmt.Sprintf("value %q is not a valid %s", common.Truncate(common.Render(raw)), expected),
	}
}

// scalarText renders a scalar; containers are reported as not scalar
func scalarText(raw any) (string, bool) {
	switch raw.(type) {
	case map[string]any, []any:
		return "", false
	}
	return strings.TrimSpace(common.Render(raw)), true
}

// numberText returns the trimmed text of a numeric candidate
func numberText(raw any, pattern *regexp.Regexp) (string, bool) {
	if _, ok := raw.(bool); ok {
		return "", false
	}
	s, ok := scalarText(raw)
	if !ok || !pattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// ParseInteger parses a base-10 integer exactly, beyond int64 if needed
func ParseInteger(s string) (*big.Int, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return big.NewInt(n), true
	}
	if !errors.Is(err, strconv.ErrRange) {
		return nil, false
	}
	return new(big.Int).SetString(s, 10)
}

func coerceInteger(_ *Validator, _ model.ValidationRule, raw any) (any, *failure) {
	s, ok := numberText(raw, integerPattern)
	if !ok {
		return nil, typeFailure(raw, "integer")
	}
	n, ok := ParseInteger(s)
	if !ok {
		return nil, typeFailure(raw, "integer")
	}
	return n, nil
}

func coerceFloat(_ *Validator, _ model.ValidationRule, raw any) (any, *failure) {
	s, ok := numberText(raw, floatPattern)
	if !ok {
		return nil, typeFailure(raw, "float")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, typeFailure(raw, "float")
	}
	return f, nil
}

func coerceString(_ *Validator, _ model.ValidationRule, raw any) (any, *failure) {
	if _, ok := scalarText(raw); !ok {
		return nil, typeFailure(raw, "string")
	}
	return common.Render(raw), nil
}

func coerceDatetime(_ *Validator, rule model.ValidationRule, raw any) (any, *failure) {
	s, ok := scalarText(raw)
	expected := rule.Format
	if expected == "" {
		expected = isoExpected
	}
	fail := &failure{
		errType:  model.ErrFormatInvalidDatetime,
		expected: expected,
		message:  fmt.Sprintf("value %q does not match datetime format %s", common.Truncate(s), expected),
	}
	if !ok {
		return nil, fail
	}
	t, err := ParseDatetime(s, rule.Format)
	if err != nil {
		return nil, fail
	}
	return t, nil
}

// ParseDatetime parses s with a strftime format ("%Y-%m-%d"), a Go
// reference layout, or ISO-8601 layouts when format is empty.
func ParseDatetime(s, format string) (time.Time, error) {
	switch {
	case format == "":
		var lastErr error
		for _, layout := range isoLayouts {
			t, err := time.Parse(layout, s)
			if err == nil {
				return t, nil
			}
			lastErr = err
		}
		return time.Time{}, lastErr
	case strings.Contains(format, "%"):
		return timefmt.Parse(s, format)
	default:
		return time.Parse(format, s)
	}
}

func coerceBoolean(_ *Validator, _ model.ValidationRule, raw any) (any, *failure) {
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	s, ok := scalarText(raw)
	if ok {
		if b, known := booleanTokens[strings.ToLower(s)]; known {
			return b, nil
		}
	}
	return nil, typeFailure(raw, "boolean (true/false, 1/0, yes/no)")
}

func coerceEmail(v *Validator, _ model.ValidationRule, raw any) (any, *failure) {
	s, ok := scalarText(raw)
	if ok && v.validEmail(s) {
		return s, nil
	}
	return nil, &failure{
		errType:  model.ErrFormatInvalidEmail,
		expected: "email address (local@domain)",
		message:  fmt.Sprintf("value %q is not a valid email address", common.Truncate(common.Render(raw))),
	}
}

func (v *Validator) validEmail(s string) bool {
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	if !strings.Contains(domain, ".") {
		return false
	}
	if err := v.checker.Var(s, "required,email"); err != nil {
		return false
	}
	return v.checker.Var(domain, "hostname_rfc1123") == nil
}

func coercePhone(_ *Validator, rule model.ValidationRule, raw any) (any, *failure) {
	s, ok := scalarText(raw)
	fail := &failure{
		errType:  model.ErrFormatInvalidPhone,
		expected: "phone number valid in region " + rule.PhoneRegion(),
		message:  fmt.Sprintf("value %q is not a valid phone number", common.Truncate(common.Render(raw))),
	}
	if !ok {
		return nil, fail
	}
	num, err := phonenumbers.Parse(s, rule.PhoneRegion())
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return nil, fail
	}
	return s, nil
}

func coerceObject(_ *Validator, _ model.ValidationRule, raw any) (any, *failure) {
	if s, ok := raw.(string); ok {
		raw = decodeEmbedded(s)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, typeFailure(raw, "object")
	}
	return obj, nil
}

func coerceArray(_ *Validator, _ model.ValidationRule, raw any) (any, *failure) {
	if s, ok := raw.(string); ok {
		raw = decodeEmbedded(s)
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, typeFailure(raw, "array")
	}
	return arr, nil
}

// coerceNull only sees non-empty values; empty ones pass before coercion
func coerceNull(_ *Validator, _ model.ValidationRule, raw any) (any, *failure) {
	return nil, typeFailure(raw, "null")
}

// decodeEmbedded reads a JSON document stored in a text cell, as CSV files
// carry object and array columns. Undecodable text is returned unchanged.
func decodeEmbedded(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return s
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return s
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return s
	}
	return v
}

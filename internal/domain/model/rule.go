package model

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
)

// Range holds inclusive numeric bounds. A nil side is unbounded.
// MinExact and MaxExact, when set, carry the bound as written in the
// config so integers beyond float64 precision compare exactly.
type Range struct {
	Min *float64
	Max *float64

	MinExact *big.Rat
	MaxExact *big.Rat
}

// Bounds returns both sides as exact rationals; nil is unbounded
func (r Range) Bounds() (lo, hi *big.Rat) {
	return exactBound(r.MinExact, r.Min), exactBound(r.MaxExact, r.Max)
}

func exactBound(x *big.Rat, f *float64) *big.Rat {
	if x != nil {
		return x
	}
	if f == nil {
		return nil
	}
	return RatFromFloat(*f)
}

// RatFromFloat converts f through its shortest decimal form, so 0.1
// becomes exactly 1/10. NaN and infinities yield nil.
func RatFromFloat(f float64) *big.Rat {
	x, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok {
		return nil
	}
	return x
}

// Length holds inclusive character-count bounds. A nil side is unbounded.
type Length struct {
	Min *int
	Max *int
}

// DefaultPhoneRegion is used when a phone rule has no region
const DefaultPhoneRegion = "KR"

// ValidationRule describes one field's expected type and constraints.
// Rules are built once by the config loader and never mutated afterwards.
type ValidationRule struct {
	Name     string
	Type     DataType
	Required bool

	Range         *Range
	Length        *Length
	AllowedValues []string
	CaseSensitive bool

	// Pattern is compiled to match the whole value
	Pattern       *regexp.Regexp
	PatternSource string

	// Format is a strftime ("%Y-%m-%d") or Go reference layout for datetime rules
	Format string

	// Region is the default ISO 3166 region for phone rules
	Region string

	// Fields describes the children of an object rule (one level)
	Fields []ValidationRule
	// Items describes each element of an array rule (one level)
	Items *ValidationRule
}

// CompileFullMatch compiles pattern so that partial matches fail
func CompileFullMatch(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// EffectiveRange returns the range only for numeric types
func (r ValidationRule) EffectiveRange() (Range, bool) {
	if r.Range == nil || !r.Type.IsNumeric() {
		return Range{}, false
	}
	return *r.Range, true
}

// EffectiveLength returns the length bounds only for string types
func (r ValidationRule) EffectiveLength() (Length, bool) {
	if r.Length == nil || !r.Type.IsStringLike() {
		return Length{}, false
	}
	return *r.Length, true
}

// EffectivePattern returns the compiled pattern only for string types
func (r ValidationRule) EffectivePattern() (*regexp.Regexp, bool) {
	if r.Pattern == nil || !r.Type.IsStringLike() {
		return nil, false
	}
	return r.Pattern, true
}

// EffectiveAllowedValues returns the categorical set only for scalar types
func (r ValidationRule) EffectiveAllowedValues() ([]string, bool) {
	if len(r.AllowedValues) == 0 || !r.Type.IsScalar() {
		return nil, false
	}
	return r.AllowedValues, true
}

// EffectiveFields returns nested object rules only for object types
func (r ValidationRule) EffectiveFields() ([]ValidationRule, bool) {
	if len(r.Fields) == 0 || r.Type != TypeObject {
		return nil, false
	}
	return r.Fields, true
}

// EffectiveItems returns the element rule only for array types
func (r ValidationRule) EffectiveItems() (ValidationRule, bool) {
	if r.Items == nil || r.Type != TypeArray {
		return ValidationRule{}, false
	}
	return *r.Items, true
}

// PhoneRegion returns the configured region or the default
func (r ValidationRule) PhoneRegion() string {
	if r.Region == "" {
		return DefaultPhoneRegion
	}
	return r.Region
}

// Package format checks one record's field values against the rule set:
// type coercion, range, length, categorical membership, pattern and
// one level of nested object/array description.
package format

import (
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/common"
)

// Record is the view of a source record the validator needs
type Record interface {
	Lookup(name string) (any, bool)
}

// Validator holds the rule set. It keeps no per-record state, so one
// instance may validate records from several goroutines.
type Validator struct {
	rules   []model.ValidationRule
	checker *validator.Validate
	folded  map[string]map[string]bool
}

// New prepares a validator for rules
func New(rules []model.ValidationRule) *Validator {
	v := &Validator{
		rules:   rules,
		checker: validator.New(),
		folded:  make(map[string]map[string]bool),
	}
	for _, r := range rules {
		v.prepareFolded(r.Name, r)
	}
	return v
}

func (v *Validator) prepareFolded(key string, r model.ValidationRule) {
	if allowed, ok := r.EffectiveAllowedValues(); ok && !r.CaseSensitive {
		set := make(map[string]bool, len(allowed))
		for _, a := range allowed {
			set[fold(a)] = true
		}
		v.folded[key] = set
	}
	for _, child := range r.Fields {
		v.prepareFolded(key+"."+child.Name, child)
	}
	if r.Items != nil {
		v.prepareFolded(key+"[]", *r.Items)
	}
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// ValidateRecord returns every format error found in rec. Validation of a
// field never stops validation of the other fields.
func (v *Validator) ValidateRecord(row, subRow int, rec Record) []model.ValidationError {
	issues := common.NewIssues(row, subRow)
	for _, rule := range v.rules {
		raw, present := rec.Lookup(rule.Name)
		v.checkField(issues, fieldCtx{column: rule.Name, key: rule.Name}, rule, raw, present)
	}
	return issues.List
}

// fieldCtx names a field for reporting (column) and for rule-derived
// lookups (key, where array positions collapse to "[]")
type fieldCtx struct {
	column string
	key    string
	nested bool
}

func (v *Validator) checkField(is *common.Issues, fc fieldCtx, rule model.ValidationRule, raw any, present bool) {
	if common.IsEmpty(raw, present) {
		if rule.Required && rule.Type != model.TypeNull {
			is.Add(fc.column, model.ErrFormatMissingRequired, "", "non-empty value",
				fmt.Sprintf("required field %q is missing", fc.column))
		}
		return
	}

	coerce, ok := coercers[rule.Type]
	if !ok {
		is.Add(fc.column, model.ErrFormatInvalidType, common.Render(raw), rule.Type.String(),
			fmt.Sprintf("unsupported type %s", rule.Type))
		return
	}
	value, fail := coerce(v, rule, raw)
	if fail != nil {
		errType := fail.errType
		if fc.nested {
			errType = model.ErrFormatNestedSchema
		}
		is.Add(fc.column, errType, common.Render(raw), fail.expected, fail.message)
		return
	}

	v.checkRange(is, fc, rule, value)
	v.checkLength(is, fc, rule, raw)
	v.checkCategory(is, fc, rule, raw)
	v.checkPattern(is, fc, rule, raw)
	v.checkNested(is, fc, rule, value)
}

func (v *Validator) checkRange(is *common.Issues, fc fieldCtx, rule model.ValidationRule, value any) {
	rng, ok := rule.EffectiveRange()
	if !ok {
		return
	}
	var (
		x      *big.Rat
		actual string
	)
	switch n := value.(type) {
	case *big.Int:
		x, actual = new(big.Rat).SetInt(n), n.String()
	case float64:
		x, actual = model.RatFromFloat(n), common.FormatNumber(n)
	}
	if x == nil {
		return
	}
	lo, hi := rng.Bounds()
	if lo != nil && x.Cmp(lo) < 0 {
		bound := common.FormatRat(lo)
		is.Add(fc.column, model.ErrFormatOutOfRange, actual, ">= "+bound,
			fmt.Sprintf("value %s is less than minimum %s", actual, bound))
		return
	}
	if hi != nil && x.Cmp(hi) > 0 {
		bound := common.FormatRat(hi)
		is.Add(fc.column, model.ErrFormatOutOfRange, actual, "<= "+bound,
			fmt.Sprintf("value %s is greater than maximum %s", actual, bound))
	}
}

func (v *Validator) checkLength(is *common.Issues, fc fieldCtx, rule model.ValidationRule, raw any) {
	bounds, ok := rule.EffectiveLength()
	if !ok {
		return
	}
	s := common.Render(raw)
	n := utf8.RuneCountInString(s)
	if bounds.Min != nil && n < *bounds.Min {
		is.Add(fc.column, model.ErrFormatInvalidLength, s, fmt.Sprintf("length >= %d", *bounds.Min),
			fmt.Sprintf("length %d is shorter than minimum %d", n, *bounds.Min))
		return
	}
	if bounds.Max != nil && n > *bounds.Max {
		is.Add(fc.column, model.ErrFormatInvalidLength, s, fmt.Sprintf("length <= %d", *bounds.Max),
			fmt.Sprintf("length %d is longer than maximum %d", n, *bounds.Max))
	}
}

func (v *Validator) checkCategory(is *common.Issues, fc fieldCtx, rule model.ValidationRule, raw any) {
	allowed, ok := rule.EffectiveAllowedValues()
	if !ok {
		return
	}
	s := strings.TrimSpace(common.Render(raw))
	if rule.CaseSensitive {
		for _, a := range allowed {
			if s == a {
				return
			}
		}
	} else if v.folded[fc.key][fold(s)] {
		return
	}
	is.Add(fc.column, model.ErrFormatInvalidCategory, s, common.DescribeAllowed(allowed),
		fmt.Sprintf("value %q is not an allowed category", common.Truncate(s)))
}

func (v *Validator) checkPattern(is *common.Issues, fc fieldCtx, rule model.ValidationRule, raw any) {
	re, ok := rule.EffectivePattern()
	if !ok {
		return
	}
	s := common.Render(raw)
	if re.MatchString(s) {
		return
	}
	is.Add(fc.column, model.ErrFormatInvalidPattern, s, "pattern: "+rule.PatternSource,
		fmt.Sprintf("value %q does not match pattern %s", common.Truncate(s), rule.PatternSource))
}

func (v *Validator) checkNested(is *common.Issues, fc fieldCtx, rule model.ValidationRule, value any) {
	if fields, ok := rule.EffectiveFields(); ok {
		obj, _ := value.(map[string]any)
		for _, child := range fields {
			raw, present := obj[child.Name]
			v.checkField(is, fieldCtx{
				column: fc.column + "." + child.Name,
				key:    fc.key + "." + child.Name,
				nested: true,
			}, child, raw, present)
		}
	}
	if items, ok := rule.EffectiveItems(); ok {
		arr, _ := value.([]any)
		for i, el := range arr {
			v.checkField(is, fieldCtx{
				column: fmt.Sprintf("%s[%d]", fc.column, i),
				key:    fc.key + "[]",
				nested: true,
			}, items, el, true)
		}
	}
}

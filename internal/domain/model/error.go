package model

import (
	"sort"
	"strings"
)

// ErrorType is the stable identifier of a validation failure kind
type ErrorType string

// Structural errors
const (
	ErrStructuralInvalidFormat       ErrorType = "structural_invalid_format"
	ErrStructuralInvalidEncoding     ErrorType = "structural_invalid_encoding"
	ErrStructuralInvalidDelimiter    ErrorType = "structural_invalid_delimiter"
	ErrStructuralColumnCountMismatch ErrorType = "structural_column_count_mismatch"
	ErrStructuralHeaderMismatch      ErrorType = "structural_header_mismatch"
	ErrStructuralUnknownHeader       ErrorType = "structural_unknown_header"
	ErrStructuralRowCountMismatch    ErrorType = "structural_row_count_mismatch"
	ErrStructuralEmptyFile           ErrorType = "structural_empty_file"
	ErrStructuralInvalidJSON         ErrorType = "structural_invalid_json"
	ErrStructuralRootPathNotFound    ErrorType = "structural_root_path_not_found"
	ErrStructuralSchemaViolation     ErrorType = "structural_schema_violation"
)

// Format errors
const (
	ErrFormatMissingRequired ErrorType = "format_missing_required"
	ErrFormatInvalidType     ErrorType = "format_invalid_type"
	ErrFormatOutOfRange      ErrorType = "format_out_of_range"
	ErrFormatInvalidLength   ErrorType = "format_invalid_length"
	ErrFormatInvalidCategory ErrorType = "format_invalid_category"
	ErrFormatInvalidPattern  ErrorType = "format_invalid_pattern"
	ErrFormatInvalidDatetime ErrorType = "format_invalid_datetime"
	ErrFormatInvalidEmail    ErrorType = "format_invalid_email"
	ErrFormatInvalidPhone    ErrorType = "format_invalid_phone"
	ErrFormatNestedSchema    ErrorType = "format_nested_schema"
)

// System errors
const (
	ErrSystemFileNotFound     ErrorType = "system_file_not_found"
	ErrSystemPermissionDenied ErrorType = "system_permission_denied"
	ErrSystemIOError          ErrorType = "system_io_error"
	ErrSystemTimeout          ErrorType = "system_timeout"
	ErrSystemConfigError      ErrorType = "system_config_error"
)

// ErrorCategory groups error types for the result booleans
type ErrorCategory string

const (
	CategoryStructural ErrorCategory = "structural"
	CategoryFormat     ErrorCategory = "format"
	CategorySystem     ErrorCategory = "system"
)

// Category derives the category from the identifier prefix
func (t ErrorType) Category() ErrorCategory {
	switch {
	case strings.HasPrefix(string(t), "format_"):
		return CategoryFormat
	case strings.HasPrefix(string(t), "system_"):
		return CategorySystem
	default:
		return CategoryStructural
	}
}

// String returns the identifier
func (t ErrorType) String() string {
	return string(t)
}

// Severity tells whether an error flips the validity booleans
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DefaultSeverity returns the severity the engine assigns to t.
// Advisory checks are warnings; everything else is an error.
func (t ErrorType) DefaultSeverity() Severity {
	switch t {
	case ErrStructuralRowCountMismatch, ErrStructuralUnknownHeader:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// ImpactLevel ranks error types for report recommendations
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// ErrorInfo documents one error type
type ErrorInfo struct {
	Type        ErrorType
	Impact      ImpactLevel
	Description string
	Suggestion  string
}

var errorRegistry = map[ErrorType]ErrorInfo{
	ErrStructuralInvalidFormat:       {ErrStructuralInvalidFormat, ImpactHigh, "File layout is not valid for its declared type", "Check that the file is well-formed CSV (RFC 4180) or JSON"},
	ErrStructuralInvalidEncoding:     {ErrStructuralInvalidEncoding, ImpactMedium, "File cannot be decoded with the declared encoding", "Save the file as UTF-8 or declare the correct encoding"},
	ErrStructuralInvalidDelimiter:    {ErrStructuralInvalidDelimiter, ImpactMedium, "Delimiter does not split rows consistently", "Use the same delimiter on every row or fix file_info.delimiter"},
	ErrStructuralColumnCountMismatch: {ErrStructuralColumnCountMismatch, ImpactHigh, "Row has a different number of columns than expected", "Check for missing or extra delimiters and unbalanced quotes"},
	ErrStructuralHeaderMismatch:      {ErrStructuralHeaderMismatch, ImpactHigh, "Header column count differs from the configured columns", "Align the header row with the columns section of the config"},
	ErrStructuralUnknownHeader:       {ErrStructuralUnknownHeader, ImpactLow, "Header names a column that has no rule", "Add a rule for the column or rename the header"},
	ErrStructuralRowCountMismatch:    {ErrStructuralRowCountMismatch, ImpactHigh, "Row count differs from expected_rows", "Check that the data was exported completely"},
	ErrStructuralEmptyFile:           {ErrStructuralEmptyFile, ImpactCritical, "File is empty", "Use a file that contains data"},
	ErrStructuralInvalidJSON:         {ErrStructuralInvalidJSON, ImpactHigh, "JSON could not be parsed", "Check brackets, quotes and trailing commas"},
	ErrStructuralRootPathNotFound:    {ErrStructuralRootPathNotFound, ImpactCritical, "json_root_path does not resolve inside the document", "Fix json_root_path or the document structure"},
	ErrStructuralSchemaViolation:     {ErrStructuralSchemaViolation, ImpactHigh, "Record shape violates the JSON schema", "Compare the record with file_info.json_schema"},
	ErrFormatMissingRequired:         {ErrFormatMissingRequired, ImpactHigh, "Required field is missing", "Provide a value for every required field"},
	ErrFormatInvalidType:             {ErrFormatInvalidType, ImpactMedium, "Value does not match the declared type", "Correct the value to the declared data type"},
	ErrFormatOutOfRange:              {ErrFormatOutOfRange, ImpactMedium, "Value is outside the allowed range", "Keep values within the configured min and max"},
	ErrFormatInvalidLength:           {ErrFormatInvalidLength, ImpactLow, "String length is outside the allowed bounds", "Adjust the string length"},
	ErrFormatInvalidCategory:         {ErrFormatInvalidCategory, ImpactMedium, "Value is not one of the allowed values", "Pick a value from allowed_values"},
	ErrFormatInvalidPattern:          {ErrFormatInvalidPattern, ImpactMedium, "Value does not match the pattern", "Make sure the value satisfies the regular expression"},
	ErrFormatInvalidDatetime:         {ErrFormatInvalidDatetime, ImpactMedium, "Date or time does not match the format", "Write dates in the configured format"},
	ErrFormatInvalidEmail:            {ErrFormatInvalidEmail, ImpactMedium, "Email address is malformed", "Use a valid mailbox address"},
	ErrFormatInvalidPhone:            {ErrFormatInvalidPhone, ImpactMedium, "Phone number is not valid for its region", "Use a valid number, with country code when outside the default region"},
	ErrFormatNestedSchema:            {ErrFormatNestedSchema, ImpactMedium, "Nested field does not match its description", "Check the nested fields or items of the value"},
	ErrSystemFileNotFound:            {ErrSystemFileNotFound, ImpactCritical, "File was not found", "Check the file path"},
	ErrSystemPermissionDenied:        {ErrSystemPermissionDenied, ImpactCritical, "File cannot be read", "Check read permissions"},
	ErrSystemIOError:                 {ErrSystemIOError, ImpactCritical, "I/O error while reading the file", "Check whether another program holds the file"},
	ErrSystemTimeout:                 {ErrSystemTimeout, ImpactCritical, "Validation exceeded the per-file timeout", "Raise the timeout or split the file"},
	ErrSystemConfigError:             {ErrSystemConfigError, ImpactCritical, "Configuration is invalid", "Check the YAML config format and values"},
}

// LookupErrorInfo returns the registry entry for t
func LookupErrorInfo(t ErrorType) (ErrorInfo, bool) {
	info, ok := errorRegistry[t]
	return info, ok
}

// AllErrorTypes returns every registered type, sorted by identifier
func AllErrorTypes() []ErrorType {
	types := make([]ErrorType, 0, len(errorRegistry))
	for t := range errorRegistry {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ErrorTypesByCategory filters AllErrorTypes by category
func ErrorTypesByCategory(c ErrorCategory) []ErrorType {
	var out []ErrorType
	for _, t := range AllErrorTypes() {
		if t.Category() == c {
			out = append(out, t)
		}
	}
	return out
}

// ErrorTypesByImpact filters AllErrorTypes by impact level
func ErrorTypesByImpact(level ImpactLevel) []ErrorType {
	var out []ErrorType
	for _, t := range AllErrorTypes() {
		if errorRegistry[t].Impact == level {
			out = append(out, t)
		}
	}
	return out
}

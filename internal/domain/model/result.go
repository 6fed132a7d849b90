package model

import (
	"sort"
	"time"
)

// ValidationError is one recorded failure.
// RowNumber is 1-based by physical position; 0 marks file-level errors.
type ValidationError struct {
	RowNumber int `json:"row_number"`
	// SubRow is the 1-based element index inside a JSONL array line; 0 otherwise
	SubRow        int       `json:"sub_row,omitempty"`
	ColumnName    string    `json:"column_name"`
	ErrorType     ErrorType `json:"error_type"`
	ActualValue   string    `json:"actual_value"`
	ExpectedValue string    `json:"expected_value"`
	Message       string    `json:"message"`
	Severity      Severity  `json:"severity"`
}

// IsWarning reports whether the error is advisory only
func (e ValidationError) IsWarning() bool {
	return e.Severity == SeverityWarning
}

// ValidationResult is the outcome of one file run. It is immutable once returned.
type ValidationResult struct {
	FileName        string
	TotalRows       int
	TotalColumns    int
	StructuralValid bool
	FormatValid     bool
	Errors          []ValidationError
	ProcessingTime  time.Duration
	Timestamp       time.Time
	// HeaderRow is the physical line of a CSV header; 0 when there is none
	HeaderRow int
}

// IsValid reports whether both categories passed
func (r ValidationResult) IsValid() bool {
	return r.StructuralValid && r.FormatValid
}

// ErrorCount counts entries with error severity
func (r ValidationResult) ErrorCount() int {
	n := 0
	for _, e := range r.Errors {
		if !e.IsWarning() {
			n++
		}
	}
	return n
}

// WarningCount counts entries with warning severity
func (r ValidationResult) WarningCount() int {
	return len(r.Errors) - r.ErrorCount()
}

// rowKey identifies one record; JSONL array elements share a line
type rowKey struct{ row, sub int }

// FailedRows counts distinct records that carry at least one error.
// File-level and header errors are not records.
func (r ValidationResult) FailedRows() int {
	seen := make(map[rowKey]struct{})
	for _, e := range r.Errors {
		if e.RowNumber <= 0 || e.IsWarning() {
			continue
		}
		if r.HeaderRow > 0 && e.RowNumber == r.HeaderRow && e.SubRow == 0 {
			continue
		}
		seen[rowKey{e.RowNumber, e.SubRow}] = struct{}{}
	}
	return len(seen)
}

// SuccessRate is the share of rows without errors, in [0, 1].
// An empty or aborted run with no rows is 1 when valid and 0 otherwise.
func (r ValidationResult) SuccessRate() float64 {
	if r.TotalRows == 0 {
		if r.IsValid() {
			return 1
		}
		return 0
	}
	failed := r.FailedRows()
	if failed > r.TotalRows {
		failed = r.TotalRows
	}
	return float64(r.TotalRows-failed) / float64(r.TotalRows)
}

// ErrorsByType groups entries by error type, preserving discovery order inside each group
func (r ValidationResult) ErrorsByType() map[ErrorType][]ValidationError {
	out := make(map[ErrorType][]ValidationError)
	for _, e := range r.Errors {
		out[e.ErrorType] = append(out[e.ErrorType], e)
	}
	return out
}

// ErrorsByColumn groups entries by column name
func (r ValidationResult) ErrorsByColumn() map[string][]ValidationError {
	out := make(map[string][]ValidationError)
	for _, e := range r.Errors {
		out[e.ColumnName] = append(out[e.ColumnName], e)
	}
	return out
}

// ErrorsByRow groups entries by row number
func (r ValidationResult) ErrorsByRow() map[int][]ValidationError {
	out := make(map[int][]ValidationError)
	for _, e := range r.Errors {
		out[e.RowNumber] = append(out[e.RowNumber], e)
	}
	return out
}

// Count pairs a key with an occurrence count
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// CountByType returns per-type counts, most frequent first, ties by key
func (r ValidationResult) CountByType() []Count {
	m := make(map[string]int)
	for _, e := range r.Errors {
		m[string(e.ErrorType)]++
	}
	return sortedCounts(m)
}

// CountByColumn returns per-column counts, most frequent first, ties by key
func (r ValidationResult) CountByColumn() []Count {
	m := make(map[string]int)
	for _, e := range r.Errors {
		m[e.ColumnName]++
	}
	return sortedCounts(m)
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

package common

import "github.com/YoshitsuguKoike/deecheck/internal/domain/model"

// Issues accumulates errors for one row (or for the file when Row is 0)
type Issues struct {
	Row    int
	SubRow int
	List   []model.ValidationError
}

// NewIssues creates an accumulator bound to a row position
func NewIssues(row, subRow int) *Issues {
	return &Issues{Row: row, SubRow: subRow}
}

// Add appends an error with the default severity of its type
func (is *Issues) Add(column string, t model.ErrorType, actual, expected, message string) {
	is.List = append(is.List, model.ValidationError{
		RowNumber:     is.Row,
		SubRow:        is.SubRow,
		ColumnName:    column,
		ErrorType:     t,
		ActualValue:   Truncate(actual),
		ExpectedValue: expected,
		Message:       message,
		Severity:      t.DefaultSeverity(),
	})
}

// Len returns the number of accumulated errors
func (is *Issues) Len() int {
	return len(is.List)
}

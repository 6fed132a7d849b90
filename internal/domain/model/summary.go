package model

import "time"

// BatchSummary aggregates the results of a folder run
type BatchSummary struct {
	Files       int
	Passed      int
	Failed      int
	TotalRows   int
	TotalErrors int
	Warnings    int
	// Elapsed is the summed per-file processing time
	Elapsed time.Duration
}

// Summarize folds results into a BatchSummary
func Summarize(results []ValidationResult) BatchSummary {
	s := BatchSummary{Files: len(results)}
	for _, r := range results {
		if r.IsValid() {
			s.Passed++
		} else {
			s.Failed++
		}
		s.TotalRows += r.TotalRows
		s.TotalErrors += r.ErrorCount()
		s.Warnings += r.WarningCount()
		s.Elapsed += r.ProcessingTime
	}
	return s
}

// RowsPerSecond is the average throughput; zero when no time was recorded
func (s BatchSummary) RowsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.TotalRows) / s.Elapsed.Seconds()
}

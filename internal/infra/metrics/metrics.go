// Package metrics records validation outcomes as Prometheus metrics. The
// CLI is short lived, so metrics are exported with WriteTextfile for the
// node_exporter textfile collector instead of being served over HTTP.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
)

const namespace = "deecheck"

// Recorder holds the validation metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	files    *prometheus.CounterVec
	rows     prometheus.Counter
	errors   *prometheus.CounterVec
	duration prometheus.Histogram
}

// New registers the validation metrics on registry. A nil registry gets a
// fresh one.
func New(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	r := &Recorder{
		registry: registry,
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_validated_total",
			Help:      "Files validated, by outcome.",
		}, []string{"outcome"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Records read across all validated files.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Validation errors and warnings, by category and type.",
		}, []string{"category", "type", "severity"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time spent validating one file.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
	}
	registry.MustRegister(r.files, r.rows, r.errors, r.duration)
	return r
}

// Registry exposes the underlying registry, e.g. for tests
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Observe records one finished file
func (r *Recorder) Observe(res model.ValidationResult) {
	if r == nil {
		return
	}
	outcome := "passed"
	if !res.IsValid() {
		outcome = "failed"
	}
	r.files.WithLabelValues(outcome).Inc()
	r.rows.Add(float64(res.TotalRows))
	r.duration.Observe(res.ProcessingTime.Seconds())
	for _, e := range res.Errors {
		r.errors.WithLabelValues(string(e.ErrorType.Category()), string(e.ErrorType), string(e.Severity)).Inc()
	}
}

// WriteTextfile writes the current metric values in the text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

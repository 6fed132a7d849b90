// Package validation runs the engine over single files and folders, feeds
// the optional distribution analysis and metrics, and persists reports.
package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deecheck/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/deecheck/internal/analysis"
	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	"github.com/YoshitsuguKoike/deecheck/internal/engine"
	dfs "github.com/YoshitsuguKoike/deecheck/internal/infra/fs"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/metrics"
)

// Outcome is the result of one file plus what was derived from it
type Outcome struct {
	Path         string
	Result       model.ValidationResult
	Distribution []analysis.ColumnDistribution
	// Reports lists the written report paths
	Reports []string
	// ReportErr is set when at least one report could not be written
	ReportErr error
}

// Service validates files against one shared, read-only config
type Service struct {
	cfg *model.ValidationConfig

	fs            afero.Fs
	listener      engine.Listener
	logger        *slog.Logger
	recorder      *metrics.Recorder
	renderers     []presenter.Renderer
	distribution  *model.DistributionConfig
	concurrency   int
	fileTimeout   time.Duration
	progressEvery int
	now           func() time.Time
	newID         func() string
	version       string
}

// Option configures a Service
type Option func(*Service)

// WithFs sets the filesystem inputs are read from and reports are written to
func WithFs(fs afero.Fs) Option {
	return func(s *Service) { s.fs = fs }
}

// WithListener sets the progress sink shared by every run
func WithListener(l engine.Listener) Option {
	return func(s *Service) { s.listener = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records every finished file on r
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithRenderers sets the report formats written for every file
func WithRenderers(rs ...presenter.Renderer) Option {
	return func(s *Service) { s.renderers = rs }
}

// WithAnalysis enables distribution analysis. A nil config disables it.
func WithAnalysis(dc *model.DistributionConfig) Option {
	return func(s *Service) { s.distribution = dc }
}

// WithConcurrency bounds the number of files validated at once
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithFileTimeout limits each file's run; zero means no limit
func WithFileTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.fileTimeout = d
		}
	}
}

func WithProgressInterval(n int) Option {
	return func(s *Service) { s.progressEvery = n }
}

// WithClock replaces time.Now, for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the ULID generator used in report names
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// WithVersion stamps reports with the tool version
func WithVersion(v string) Option {
	return func(s *Service) { s.version = v }
}

// NewService creates a validation service. cfg must already be validated
// and is never mutated.
func NewService(cfg *model.ValidationConfig, opts ...Option) *Service {
	s := &Service{
		cfg:           cfg,
		fs:            afero.NewOsFs(),
		listener:      engine.NopListener{},
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency:   1,
		progressEvery: engine.DefaultProgressInterval,
		now:           time.Now,
		newID:         func() string { return ulid.Make().String() },
		version:       "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateFile validates one file. Every failure is reported inside the
// returned result.
func (s *Service) ValidateFile(ctx context.Context, path string) model.ValidationResult {
	return s.Run(ctx, path, "").Result
}

// Run validates one file, analyzes it when enabled and writes its reports
// to outputDir. An empty outputDir writes nothing.
func (s *Service) Run(ctx context.Context, path, outputDir string) Outcome {
	cfg := s.cfg
	if ft, err := model.FileTypeFromPath(path); err == nil && ft != cfg.FileInfo.FileType {
		cfg = cfg.WithFileType(ft)
	}

	if s.fileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fileTimeout)
		defer cancel()
	}

	opts := []engine.Option{
		engine.WithFs(s.fs),
		engine.WithListener(s.listener),
		engine.WithClock(s.now),
		engine.WithProgressInterval(s.progressEvery),
	}
	var an *analysis.Analyzer
	if s.distribution != nil && len(s.distribution.Columns) > 0 {
		an = analysis.New(s.distribution)
		opts = append(opts, engine.WithObserver(engine.ObserverFunc(func(rec engine.Record) { an.Observe(rec) })))
	}

	// a fresh engine per file; the error is only ErrEngineReused
	res, _ := engine.New(cfg, opts...).Run(ctx, path)
	s.recorder.Observe(res)

	out := Outcome{Path: path, Result: res}
	if an != nil && res.TotalRows > 0 {
		out.Distribution = an.Results()
	}
	s.logger.Debug("file validated",
		"file", path,
		"rows", res.TotalRows,
		"errors", res.ErrorCount(),
		"valid", res.IsValid(),
		"elapsed", res.ProcessingTime)

	if outputDir != "" && len(s.renderers) > 0 {
		out.Reports, out.ReportErr = s.WriteReports(outputDir, out)
		if out.ReportErr != nil {
			s.logger.Warn("report write failed", "file", path, "error", out.ReportErr)
		}
	}
	return out
}

// ValidateFolder validates every discovered file in dir, writing reports
// to outputDir, and returns one result per file in discovery order.
func (s *Service) ValidateFolder(ctx context.Context, dir, outputDir string) ([]model.ValidationResult, error) {
	outcomes, err := s.RunFolder(ctx, dir, outputDir)
	results := make([]model.ValidationResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.Result
	}
	return results, err
}

// RunFolder runs up to the configured concurrency of files in parallel.
// Once ctx is done no new file is dispatched; files already running see
// the cancellation, and the outcomes of every dispatched file are returned
// together with ctx.Err().
func (s *Service) RunFolder(ctx context.Context, dir, outputDir string) ([]Outcome, error) {
	files, err := dfs.Discover(s.fs, dir, outputDir)
	if err != nil {
		return nil, err
	}
	s.logger.Info("files discovered", "dir", dir, "count", len(files), "concurrency", s.concurrency)

	outcomes := make([]Outcome, len(files))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency) // Semaphore for concurrency control
	dispatched := 0

dispatch:
	for i, f := range files {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		// both cases may be ready at once; never start a file after cancel
		if ctx.Err() != nil {
			<-sem
			break dispatch
		}
		dispatched = i + 1

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = s.Run(ctx, path, outputDir)
		}(i, f.Path)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.logger.Warn("folder validation cancelled",
			"dir", dir, "dispatched", dispatched, "skipped", len(files)-dispatched)
		return outcomes[:dispatched], err
	}
	return outcomes, nil
}

// WriteReports renders out in every configured format and writes each
// report atomically into outputDir. All formats of one file share a name.
func (s *Service) WriteReports(outputDir string, out Outcome) ([]string, error) {
	rep := presenter.Report{
		Result:       out.Result,
		Distribution: out.Distribution,
		GeneratedAt:  s.now(),
		Version:      s.version,
	}
	at := out.Result.Timestamp
	if at.IsZero() {
		at = rep.GeneratedAt
	}
	base := presenter.ReportName(out.Result.FileName, at, s.newID())

	var paths []string
	var errs []error
	for _, r := range s.renderers {
		var buf bytes.Buffer
		if err := r.Render(&buf, rep); err != nil {
			errs = append(errs, fmt.Errorf("render %s report: %w", r.Name(), err))
			continue
		}
		path := filepath.Join(outputDir, base+r.Extension())
		if err := dfs.WriteFileAtomic(s.fs, path, buf.Bytes(), 0644); err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}

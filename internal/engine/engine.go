// Package engine drives one validation run over one file: it opens the
// file, runs structural inspection, streams records through the structural
// and format validators and assembles the ValidationResult.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/charset"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/source"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/common"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/format"
	"github.com/YoshitsuguKoike/deecheck/internal/validator/structural"
)

// ErrEngineReused is returned when Run is called a second time
var ErrEngineReused = errors.New("engine already ran; create one engine per file")

const (
	// DefaultPrefixSize is the number of bytes inspected before streaming
	DefaultPrefixSize = 64 * 1024
	// DefaultProgressInterval is the number of rows between progress events
	DefaultProgressInterval = 1000

	cancelCheckMask = 255
)

// State is a step of the per-file state machine
type State int

const (
	StateOpening State = iota
	StateStructuralCheck
	StateStreaming
	StateFinalizing
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateStructuralCheck:
		return "structural_check"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// Engine validates exactly one file
type Engine struct {
	cfg           *model.ValidationConfig
	fs            afero.Fs
	listener      Listener
	now           func() time.Time
	progressEvery int
	prefixSize    int
	observers     []RecordObserver

	used  atomic.Bool
	state atomic.Int32
}

// Option configures an Engine
type Option func(*Engine)

// WithFs sets the filesystem files are read from
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) { e.fs = fs }
}

// WithListener sets the progress sink
func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listener = l
		}
	}
}

// WithClock replaces time.Now, for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithProgressInterval sets how many rows pass between progress events
func WithProgressInterval(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.progressEvery = n
		}
	}
}

// WithPrefixSize sets how many bytes structural inspection reads up front
func WithPrefixSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.prefixSize = n
		}
	}
}

// WithObserver adds a sink that sees every record that passed structural checks
func WithObserver(o RecordObserver) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// New creates an engine for one run against cfg. cfg must already be validated.
func New(cfg *model.ValidationConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:           cfg,
		fs:            afero.NewOsFs(),
		listener:      NopListener{},
		now:           time.Now,
		progressEvery: DefaultProgressInterval,
		prefixSize:    DefaultPrefixSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current state
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// run carries the in-flight result of one Run
type run struct {
	path  string
	start time.Time
	res   model.ValidationResult
}

// Run validates path. Every failure is reported inside the result; the
// error is non-nil only when the engine was already used.
func (e *Engine) Run(ctx context.Context, path string) (model.ValidationResult, error) {
	if !e.used.CompareAndSwap(false, true) {
		return model.ValidationResult{}, ErrEngineReused
	}

	r := &run{path: path, start: e.now()}
	r.res.FileName = filepath.Base(path)
	e.listener.ValidationStarted(path, e.cfg.FileInfo.ExpectedRows)

	e.setState(StateOpening)
	if err := ctx.Err(); err != nil {
		return e.abort(r, timeoutIssue(err)), nil
	}
	f, err := e.fs.Open(path)
	if err != nil {
		return e.abort(r, systemIssue(err)), nil
	}
	defer f.Close()
	if fi, err := f.Stat(); err == nil && fi.IsDir() {
		return e.abort(r, systemIssue(fmt.Errorf("%s is a directory", path))), nil
	}

	e.setState(StateStructuralCheck)
	sv, err := structural.New(e.cfg)
	if err != nil {
		return e.abort(r, configIssue(err)), nil
	}
	br := bufio.NewReaderSize(f, e.prefixSize)
	prefix, err := br.Peek(e.prefixSize)
	eof := errors.Is(err, io.EOF)
	if err != nil && !eof {
		return e.abort(r, systemIssue(err)), nil
	}
	prelude := sv.Inspect(prefix, eof)
	if prelude.Fatal {
		return e.abort(r, prelude.Issues...), nil
	}
	r.res.Errors = append(r.res.Errors, prelude.Issues...)

	decoded, err := charset.NewReader(br, e.cfg.FileInfo.EncodingOrDefault())
	if err != nil {
		return e.abort(r, configIssue(err)), nil
	}
	src, err := source.Open(decoded, source.Options{
		Info:      e.cfg.FileInfo,
		Delimiter: prelude.Delimiter,
		Columns:   e.cfg.ColumnNames(),
	})
	if err != nil {
		return e.abort(r, openIssue(e.cfg.FileInfo.FileType, err)), nil
	}
	if hp, ok := src.(source.HeaderProvider); ok && e.cfg.FileInfo.HasHeader {
		r.res.HeaderRow = hp.HeaderRow()
		r.res.Errors = append(r.res.Errors, sv.CheckHeader(hp.Header(), r.res.HeaderRow)...)
	}

	e.setState(StateStreaming)
	fv := format.New(e.cfg.Rules)
	rows := 0
	for {
		if rows&cancelCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return e.abort(r, timeoutIssue(err)), nil
			}
		}
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			issue := streamIssue(e.cfg.FileInfo.FileType, err)
			if rows == 0 {
				return e.abort(r, issue), nil
			}
			r.res.Errors = append(r.res.Errors, issue)
			break
		}

		rows++
		issues, usable := sv.CheckRecord(rec)
		r.res.Errors = append(r.res.Errors, issues...)
		if usable {
			r.res.Errors = append(r.res.Errors, fv.ValidateRecord(rec.RowNumber, rec.SubRow, rec)...)
			for _, o := range e.observers {
				o.Observe(rec)
			}
		}
		if rows%e.progressEvery == 0 {
			e.listener.Progress(path, rows, e.cfg.FileInfo.ExpectedRows)
		}
	}

	e.setState(StateFinalizing)
	r.res.Errors = append(r.res.Errors, sv.Finish(rows)...)
	r.res.TotalRows = rows
	r.res.TotalColumns = len(e.cfg.Rules)
	if e.cfg.FileInfo.FileType == model.FileTypeCSV && sv.Width() > 0 {
		r.res.TotalColumns = sv.Width()
	}
	r.res.StructuralValid, r.res.FormatValid = validity(r.res.Errors)
	e.finish(r)
	e.setState(StateDone)
	return r.res, nil
}

func (e *Engine) abort(r *run, issues ...model.ValidationError) model.ValidationResult {
	r.res.Errors = issues
	r.res.TotalRows = 0
	r.res.TotalColumns = 0
	r.res.StructuralValid = false
	r.res.FormatValid = false
	e.finish(r)
	e.setState(StateAborted)
	return r.res
}

func (e *Engine) finish(r *run) {
	end := e.now()
	r.res.ProcessingTime = end.Sub(r.start)
	r.res.Timestamp = end
	e.listener.ValidationCompleted(r.path, r.res.ErrorCount(), r.res.ProcessingTime)
}

// validity derives the result booleans. Warnings never count; system
// errors count as structural.
func validity(errs []model.ValidationError) (structuralValid, formatValid bool) {
	structuralValid, formatValid = true, true
	for _, e := range errs {
		if e.IsWarning() {
			continue
		}
		if e.ErrorType.Category() == model.CategoryFormat {
			formatValid = false
		} else {
			structuralValid = false
		}
	}
	return structuralValid, formatValid
}

func fileIssue(t model.ErrorType, actual, expected, message string) model.ValidationError {
	is := common.NewIssues(0, 0)
	is.Add("file", t, actual, expected, message)
	return is.List[0]
}

func systemIssue(err error) model.ValidationError {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fileIssue(model.ErrSystemFileNotFound, err.Error(), "existing file", "file not found")
	case errors.Is(err, os.ErrPermission):
		return fileIssue(model.ErrSystemPermissionDenied, err.Error(), "readable file", "permission denied")
	default:
		return fileIssue(model.ErrSystemIOError, err.Error(), "readable file", fmt.Sprintf("i/o error: %v", err))
	}
}

func configIssue(err error) model.ValidationError {
	return fileIssue(model.ErrSystemConfigError, err.Error(), "valid configuration", err.Error())
}

func timeoutIssue(err error) model.ValidationError {
	return fileIssue(model.ErrSystemTimeout, err.Error(), "completion before deadline", "validation cancelled: "+err.Error())
}

func openIssue(ft model.FileType, err error) model.ValidationError {
	switch {
	case errors.Is(err, source.ErrRootPathNotFound), errors.Is(err, source.ErrNotContainer):
		return fileIssue(model.ErrStructuralRootPathNotFound, err.Error(), "array or object at json_root_path", "root path not found: "+err.Error())
	case ft.IsJSONFamily():
		return fileIssue(model.ErrStructuralInvalidJSON, err.Error(), "valid JSON", "JSON cannot be parsed: "+err.Error())
	default:
		return fileIssue(model.ErrStructuralInvalidFormat, err.Error(), "valid "+string(ft), "file cannot be parsed: "+err.Error())
	}
}

func streamIssue(ft model.FileType, err error) model.ValidationError {
	row := 0
	var se *source.StreamError
	if errors.As(err, &se) {
		row = se.Row
		err = se.Err
	}
	t := model.ErrSystemIOError
	switch {
	case ft == model.FileTypeJSON:
		t = model.ErrStructuralInvalidJSON
	case errors.Is(err, bufio.ErrTooLong):
		t = model.ErrStructuralInvalidFormat
	}
	is := common.NewIssues(row, 0)
	is.Add("row", t, "", "readable record", fmt.Sprintf("reading stopped: %v", err))
	return is.List[0]
}

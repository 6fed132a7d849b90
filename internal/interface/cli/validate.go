package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deecheck/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/deecheck/internal/application/usecase/validation"
	"github.com/YoshitsuguKoike/deecheck/internal/buildinfo"
	"github.com/YoshitsuguKoike/deecheck/internal/domain/model"
	infraConfig "github.com/YoshitsuguKoike/deecheck/internal/infra/config"
	"github.com/YoshitsuguKoike/deecheck/internal/infra/metrics"
)

// ErrValidationFailed is returned by validate --strict when a file fails
var ErrValidationFailed = errors.New("validation failed")

// ValidateOptions holds the flags of the validate command
type ValidateOptions struct {
	ConfigPath  string
	Input       string
	Output      string
	Format      string
	Analyze     bool
	Concurrency int
	Timeout     time.Duration
	MetricsFile string
	Verbose     bool
	Strict      bool
}

func newValidateCmd(app *appContext) *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a file or every data file in a folder",
		Long: `Validate a CSV, JSON or JSONL file, or every such file directly inside a
folder, against a YAML config. One report per file and format is written to
the output directory.`,
		Example: `  deecheck validate -c rules.yml -i users.csv
  deecheck validate -c rules.yml -i data/ -o reports --format json,html --concurrency 4`,
		RunE: func(c *cobra.Command, _ []string) error {
			if !c.Flags().Changed("format") {
				opts.Format = app.cfg.ReportFormats()
			}
			if !c.Flags().Changed("output") {
				opts.Output = app.cfg.OutputDir()
			}
			if !c.Flags().Changed("concurrency") {
				opts.Concurrency = app.cfg.Concurrency()
			}
			if !c.Flags().Changed("timeout") {
				opts.Timeout = app.cfg.FileTimeout()
			}
			if !c.Flags().Changed("metrics-file") {
				opts.MetricsFile = app.cfg.MetricsFile()
			}
			opts.Analyze = opts.Analyze || app.cfg.Analyze()
			return runValidate(c, app, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML validation config (required)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "File or folder to validate (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Report directory (default from settings: reports)")
	cmd.Flags().StringVar(&opts.Format, "format", "all", "Report formats: markdown, html, json or all (comma separated)")
	cmd.Flags().BoolVar(&opts.Analyze, "analyze", false, "Run column distribution analysis")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Files validated in parallel (default: number of CPUs)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Per-file timeout, e.g. 90s (0 disables)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "List the first errors of every file")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit with an error when any file fails validation")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runValidate(c *cobra.Command, app *appContext, opts *ValidateOptions) error {
	ctx := c.Context()
	out := presenter.NewCLIPresenter(c.OutOrStdout(), opts.Verbose)

	cfg, err := infraConfig.LoadValidationConfig(app.fs, opts.ConfigPath)
	if err != nil {
		return err
	}
	renderers, err := renderersFor(opts.Format)
	if err != nil {
		return err
	}
	if opts.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", opts.Concurrency)
	}
	fi, err := app.fs.Stat(opts.Input)
	if err != nil {
		return fmt.Errorf("input path not found: %s", opts.Input)
	}

	var dist *model.DistributionConfig
	if opts.Analyze {
		dist = cfg.Distribution
		if dist == nil {
			dist = infraConfig.DefaultDistribution(cfg)
		}
	}
	var rec *metrics.Recorder
	if opts.MetricsFile != "" {
		rec = metrics.New(nil)
	}

	svc := validation.NewService(cfg,
		validation.WithFs(app.fs),
		validation.WithListener(logListener{logger: app.logger}),
		validation.WithLogger(app.logger),
		validation.WithMetrics(rec),
		validation.WithRenderers(renderers...),
		validation.WithAnalysis(dist),
		validation.WithConcurrency(opts.Concurrency),
		validation.WithFileTimeout(opts.Timeout),
		validation.WithProgressInterval(app.cfg.ProgressInterval()),
		validation.WithVersion(buildinfo.GetVersion()),
	)

	var (
		outcomes []validation.Outcome
		runErr   error
	)
	if fi.IsDir() {
		outcomes, runErr = svc.RunFolder(ctx, opts.Input, opts.Output)
		if runErr == nil && len(outcomes) == 0 {
			return fmt.Errorf("no csv, json or jsonl files found in %s", opts.Input)
		}
	} else {
		if _, err := model.FileTypeFromPath(opts.Input); err != nil {
			return fmt.Errorf("%s: %w", opts.Input, err)
		}
		outcomes = []validation.Outcome{svc.Run(ctx, opts.Input, opts.Output)}
	}

	results := make([]model.ValidationResult, 0, len(outcomes))
	var reportErrs []error
	for _, o := range outcomes {
		results = append(results, o.Result)
		out.PresentResult(o.Result)
		out.PresentDistribution(o.Result.FileName, o.Distribution)
		out.PresentReports(o.Reports)
		if o.ReportErr != nil {
			reportErrs = append(reportErrs, o.ReportErr)
		}
	}
	summary := model.Summarize(results)
	if fi.IsDir() {
		out.PresentSummary(summary)
	}

	if err := rec.WriteTextfile(opts.MetricsFile); err != nil {
		reportErrs = append(reportErrs, err)
	}
	if runErr != nil {
		return fmt.Errorf("validation of %s stopped after %d files: %w", opts.Input, len(outcomes), runErr)
	}
	if len(reportErrs) > 0 {
		return errors.Join(reportErrs...)
	}
	if opts.Strict && summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrValidationFailed, summary.Failed, summary.Files)
	}
	return nil
}

func renderersFor(formats string) ([]presenter.Renderer, error) {
	fmts, err := presenter.ParseFormats(formats)
	if err != nil {
		return nil, err
	}
	renderers := make([]presenter.Renderer, 0, len(fmts))
	for _, f := range fmts {
		r, err := presenter.RendererFor(f)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, r)
	}
	return renderers, nil
}

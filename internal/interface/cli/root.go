package cli

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deecheck/internal/app/config"
	infraConfig "github.com/YoshitsuguKoike/deecheck/internal/infra/config"
	"github.com/YoshitsuguKoike/deecheck/internal/interface/cli/version"
)

// appContext holds what every command shares once the root pre-run has loaded it
type appContext struct {
	fs     afero.Fs
	getenv func(string) string
	cfg    config.Config
	logger *slog.Logger
}

// NewRoot builds the deecheck command tree over the real filesystem and environment
func NewRoot() *cobra.Command {
	return newRoot(afero.NewOsFs(), os.Getenv)
}

func newRoot(fsys afero.Fs, getenv func(string) string) *cobra.Command {
	app := &appContext{fs: fsys, getenv: getenv}
	var (
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "deecheck",
		Short: "Validate CSV, JSON and JSONL files against YAML rules",
		Long: `deecheck checks data files for structural correctness (encoding, delimiter,
column counts, parseability) and format correctness (types, ranges, lengths,
categories, patterns) and writes Markdown, HTML and JSON reports.`,
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			// Priority: flags > environment > .deecheck.json > defaults
			cfg, loadErr := infraConfig.LoadSettings(app.fs, ".", app.getenv)
			if loadErr != nil {
				// Continue with defaults if loading fails
				cfg = config.NewAppConfig(
					runtime.NumCPU(), 0, 1000,
					"all", "reports", "", false,
					"warn", "text",
					"default", "",
				)
			}
			app.cfg = cfg

			level, format := cfg.LogLevel(), cfg.LogFormat()
			if c.Flags().Changed("log-level") {
				level = logLevel
			}
			if c.Flags().Changed("log-format") {
				format = logFormat
			}
			app.logger = NewLogger(c.ErrOrStderr(), level, format)
			if loadErr != nil {
				app.logger.Warn("settings ignored, using defaults", "error", loadErr)
			}
			app.logger.Debug("settings loaded", "source", cfg.ConfigSource(), "path", cfg.SettingPath())
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	cmd.AddCommand(newValidateCmd(app))
	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newCheckConfigCmd(app))
	cmd.AddCommand(newAnalyzeCmd(app))
	cmd.AddCommand(version.NewCommand())
	return cmd
}

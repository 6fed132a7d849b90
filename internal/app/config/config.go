package config

import "time"

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (JSON, ENV, defaults)
// and ensures the app layer doesn't depend on infrastructure details.
type Config interface {
	// Execution
	Concurrency() int           // Files validated in parallel (DEECHECK_CONCURRENCY)
	FileTimeout() time.Duration // Per-file timeout, zero for none (DEECHECK_FILE_TIMEOUT)
	ProgressInterval() int      // Rows between progress events (DEECHECK_PROGRESS_INTERVAL)

	// Output
	ReportFormats() string // Comma separated report formats (DEECHECK_REPORT_FORMATS)
	OutputDir() string     // Report directory (DEECHECK_OUTPUT_DIR)
	MetricsFile() string   // Prometheus textfile path, empty to disable (DEECHECK_METRICS_FILE)
	Analyze() bool         // Run distribution analysis on validate (DEECHECK_ANALYZE)

	// Logging
	LogLevel() string  // debug, info, warn or error (DEECHECK_LOG_LEVEL)
	LogFormat() string // text or json (DEECHECK_LOG_FORMAT)

	// Metadata
	ConfigSource() string // Source of configuration: "json", "env", or "default"
	SettingPath() string  // Path to the settings file if one was loaded
}

// AppConfig is the concrete implementation of Config interface.
type AppConfig struct {
	concurrency      int
	fileTimeout      time.Duration
	progressInterval int

	reportFormats string
	outputDir     string
	metricsFile   string
	analyze       bool

	logLevel  string
	logFormat string

	configSource string
	settingPath  string
}

// NewAppConfig creates a new AppConfig with all values
func NewAppConfig(
	concurrency int,
	fileTimeout time.Duration,
	progressInterval int,
	reportFormats string,
	outputDir string,
	metricsFile string,
	analyze bool,
	logLevel string,
	logFormat string,
	configSource string,
	settingPath string,
) *AppConfig {
	return &AppConfig{
		concurrency:      concurrency,
		fileTimeout:      fileTimeout,
		progressInterval: progressInterval,
		reportFormats:    reportFormats,
		outputDir:        outputDir,
		metricsFile:      metricsFile,
		analyze:          analyze,
		logLevel:         logLevel,
		logFormat:        logFormat,
		configSource:     configSource,
		settingPath:      settingPath,
	}
}

// Concurrency returns the worker pool size
func (c *AppConfig) Concurrency() int {
	return c.concurrency
}

// FileTimeout returns the per-file timeout
func (c *AppConfig) FileTimeout() time.Duration {
	return c.fileTimeout
}

// ProgressInterval returns the rows between progress events
func (c *AppConfig) ProgressInterval() int {
	return c.progressInterval
}

// ReportFormats returns the configured report formats
func (c *AppConfig) ReportFormats() string {
	return c.reportFormats
}

// OutputDir returns the report directory
func (c *AppConfig) OutputDir() string {
	return c.outputDir
}

// MetricsFile returns the Prometheus textfile path
func (c *AppConfig) MetricsFile() string {
	return c.metricsFile
}

// Analyze reports whether validate runs distribution analysis by default
func (c *AppConfig) Analyze() bool {
	return c.analyze
}

// LogLevel returns the log level name
func (c *AppConfig) LogLevel() string {
	return c.logLevel
}

// LogFormat returns the log format name
func (c *AppConfig) LogFormat() string {
	return c.logFormat
}

// ConfigSource returns where the configuration came from
func (c *AppConfig) ConfigSource() string {
	return c.configSource
}

// SettingPath returns the settings file path
func (c *AppConfig) SettingPath() string {
	return c.settingPath
}

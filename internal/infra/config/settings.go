package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deecheck/internal/app/config"
)

// SettingFileName is the optional settings file looked up in the base directory
const SettingFileName = ".deecheck.json"

// RawSettings represents the structure of the settings file.
// JSON tags are used for marshaling/unmarshaling.
type RawSettings struct {
	// Execution
	Concurrency      *int    `json:"concurrency"`
	FileTimeout      *string `json:"file_timeout"`
	ProgressInterval *int    `json:"progress_interval"`

	// Output
	ReportFormats *string `json:"report_formats"`
	OutputDir     *string `json:"output_dir"`
	MetricsFile   *string `json:"metrics_file"`
	Analyze       *bool   `json:"analyze"`

	// Logging
	LogLevel  *string `json:"log_level"`
	LogFormat *string `json:"log_format"`
}

// LoadSettings loads the application settings.
// Priority: environment > settings file > defaults
func LoadSettings(fsys afero.Fs, baseDir string, getenv func(string) string) (*config.AppConfig, error) {
	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	jsonPath := filepath.Join(baseDir, SettingFileName)
	if data, err := afero.ReadFile(fsys, jsonPath); err == nil {
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
		}
		configSource = "json"
		settingPath = jsonPath
	}

	if getenv != nil && applyEnv(settings, getenv) {
		configSource = "env"
	}

	applyDefaults(settings)

	if err := checkSettings(settings); err != nil {
		return nil, err
	}
	return buildAppConfig(settings, configSource, settingPath), nil
}

// applyDefaults fills in default values for any nil fields
func applyDefaults(settings *RawSettings) {
	if settings.Concurrency == nil {
		v := runtime.NumCPU()
		settings.Concurrency = &v
	}
	if settings.FileTimeout == nil {
		v := "0s" // no per-file timeout
		settings.FileTimeout = &v
	}
	if settings.ProgressInterval == nil {
		v := 1000
		settings.ProgressInterval = &v
	}

	if settings.ReportFormats == nil {
		v := "all"
		settings.ReportFormats = &v
	}
	if settings.OutputDir == nil {
		v := "reports"
		settings.OutputDir = &v
	}
	if settings.MetricsFile == nil {
		v := ""
		settings.MetricsFile = &v
	}
	if settings.Analyze == nil {
		v := false
		settings.Analyze = &v
	}

	if settings.LogLevel == nil {
		v := "warn" // Default to WARN level
		settings.LogLevel = &v
	}
	if settings.LogFormat == nil {
		v := "text"
		settings.LogFormat = &v
	}
}

// checkSettings rejects values no command could run with
func checkSettings(settings *RawSettings) error {
	if *settings.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", *settings.Concurrency)
	}
	if _, err := toDuration(*settings.FileTimeout); err != nil {
		return fmt.Errorf("file_timeout: %w", err)
	}
	if *settings.ProgressInterval < 0 {
		return fmt.Errorf("progress_interval must not be negative, got %d", *settings.ProgressInterval)
	}
	switch strings.ToLower(*settings.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", *settings.LogFormat)
	}
	return nil
}

// buildAppConfig converts RawSettings to AppConfig
func buildAppConfig(settings *RawSettings, configSource, settingPath string) *config.AppConfig {
	timeout, _ := toDuration(*settings.FileTimeout)
	return config.NewAppConfig(
		*settings.Concurrency,
		timeout,
		*settings.ProgressInterval,
		*settings.ReportFormats,
		*settings.OutputDir,
		*settings.MetricsFile,
		*settings.Analyze,
		strings.ToLower(*settings.LogLevel),
		strings.ToLower(*settings.LogFormat),
		configSource,
		settingPath,
	)
}

// toDuration accepts Go durations ("90s") or plain seconds ("90")
func toDuration(s string) (time.Duration, error) {
	return parseDuration(strings.TrimSpace(s))
}

// CreateDefaultSettings creates a default settings file content
func CreateDefaultSettings() []byte {
	settings := &RawSettings{}
	applyDefaults(settings)

	data, _ := json.MarshalIndent(settings, "", "  ")
	return data
}

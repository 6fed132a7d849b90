package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by LoadSettings
const (
	EnvConcurrency      = "DEECHECK_CONCURRENCY"
	EnvFileTimeout      = "DEECHECK_FILE_TIMEOUT"
	EnvProgressInterval = "DEECHECK_PROGRESS_INTERVAL"
	EnvReportFormats    = "DEECHECK_REPORT_FORMATS"
	EnvOutputDir        = "DEECHECK_OUTPUT_DIR"
	EnvMetricsFile      = "DEECHECK_METRICS_FILE"
	EnvAnalyze          = "DEECHECK_ANALYZE"
	EnvLogLevel         = "DEECHECK_LOG_LEVEL"
	EnvLogFormat        = "DEECHECK_LOG_FORMAT"
)

// applyEnv overrides settings from the environment and reports whether
// any variable was set. Unparsable numbers are ignored.
func applyEnv(settings *RawSettings, getenv func(string) string) bool {
	found := false
	get := func(k string) (string, bool) {
		v := strings.TrimSpace(getenv(k))
		if v != "" {
			found = true
		}
		return v, v != ""
	}
	toInt := func(k string, dst **int) {
		if v, ok := get(k); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = &n
			}
		}
	}
	toStr := func(k string, dst **string) {
		if v, ok := get(k); ok {
			*dst = &v
		}
	}

	toInt(EnvConcurrency, &settings.Concurrency)
	toStr(EnvFileTimeout, &settings.FileTimeout)
	toInt(EnvProgressInterval, &settings.ProgressInterval)
	toStr(EnvReportFormats, &settings.ReportFormats)
	toStr(EnvOutputDir, &settings.OutputDir)
	toStr(EnvMetricsFile, &settings.MetricsFile)
	if v, ok := get(EnvAnalyze); ok {
		b := toBool(v)
		settings.Analyze = &b
	}
	toStr(EnvLogLevel, &settings.LogLevel)
	toStr(EnvLogFormat, &settings.LogFormat)
	return found
}

// parseDuration accepts "90s", "2m" or a plain number of seconds
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return d, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}

// toBool converts various string representations to boolean
func toBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

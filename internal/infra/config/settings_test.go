package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name            string
		file            map[string]any
		envVars         map[string]string
		wantConcurrency int
		wantTimeout     time.Duration
		wantFormats     string
		wantLevel       string
		wantSource      string
	}{
		{
			name:            "Default values only",
			wantConcurrency: runtime.NumCPU(),
			wantTimeout:     0,
			wantFormats:     "all",
			wantLevel:       "warn",
			wantSource:      "default",
		},
		{
			name: "Environment variables only",
			envVars: map[string]string{
				EnvConcurrency:   "3",
				EnvFileTimeout:   "120",
				EnvLogLevel:      "DEBUG",
				EnvReportFormats: "json",
			},
			wantConcurrency: 3,
			wantTimeout:     120 * time.Second,
			wantFormats:     "json",
			wantLevel:       "debug",
			wantSource:      "env",
		},
		{
			name: "JSON file only",
			file: map[string]any{
				"concurrency":    2,
				"file_timeout":   "90s",
				"report_formats": "markdown",
			},
			wantConcurrency: 2,
			wantTimeout:     90 * time.Second,
			wantFormats:     "markdown",
			wantLevel:       "warn",
			wantSource:      "json",
		},
		{
			name: "JSON with ENV override",
			file: map[string]any{
				"concurrency":  2,
				"file_timeout": "90s",
			},
			envVars: map[string]string{
				EnvConcurrency: "8",
			},
			wantConcurrency: 8,
			wantTimeout:     90 * time.Second,
			wantFormats:     "all",
			wantLevel:       "warn",
			wantSource:      "env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			if tt.file != nil {
				data, err := json.Marshal(tt.file)
				require.NoError(t, err)
				require.NoError(t, afero.WriteFile(fsys, "/work/"+SettingFileName, data, 0644))
			}

			cfg, err := LoadSettings(fsys, "/work", envMap(tt.envVars))
			require.NoError(t, err)
			assert.Equal(t, tt.wantConcurrency, cfg.Concurrency())
			assert.Equal(t, tt.wantTimeout, cfg.FileTimeout())
			assert.Equal(t, tt.wantFormats, cfg.ReportFormats())
			assert.Equal(t, tt.wantLevel, cfg.LogLevel())
			assert.Equal(t, tt.wantSource, cfg.ConfigSource())
			assert.Equal(t, 1000, cfg.ProgressInterval())
			assert.Equal(t, "reports", cfg.OutputDir())
		})
	}
}

func TestLoadSettings_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "zero concurrency", env: map[string]string{EnvConcurrency: "0"}},
		{name: "bad timeout", env: map[string]string{EnvFileTimeout: "soon"}},
		{name: "negative timeout", env: map[string]string{EnvFileTimeout: "-5s"}},
		{name: "bad log format", env: map[string]string{EnvLogFormat: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSettings(afero.NewMemMapFs(), "/work", envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadSettings_BadJSON(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/work/"+SettingFileName, []byte("{"), 0644))
	_, err := LoadSettings(fsys, "/work", nil)
	assert.Error(t, err)
}

func TestToBool(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"on", true},
		{" true ", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"random", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, toBool(tt.input))
		})
	}
}

func TestApplyEnv_Analyze(t *testing.T) {
	s := &RawSettings{}
	assert.True(t, applyEnv(s, envMap(map[string]string{EnvAnalyze: "on"})))
	require.NotNil(t, s.Analyze)
	assert.True(t, *s.Analyze)

	s = &RawSettings{}
	assert.False(t, applyEnv(s, envMap(nil)))
	assert.Nil(t, s.Analyze)
}

func TestCreateDefaultSettings(t *testing.T) {
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(CreateDefaultSettings(), &decoded))
	assert.Equal(t, "warn", decoded["log_level"])
	assert.Equal(t, "all", decoded["report_formats"])
	assert.Equal(t, 1000.0, decoded["progress_interval"])
}

package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logpkg "github.com/maxviazov/gamelog-sync/internal/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		config         *logpkg.LoggerConfig
		expectError    bool
		validateOutput func(zerolog.Logger) bool
	}{
		{
			name: "valid production environment",
			config: &logpkg.LoggerConfig{
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
				Env:            "prod",
				Level:          "info",
				TimeField:      "timestamp",
				TimeFormat:     "unix",
				Fields:         map[string]interface{}{"key": "value"},
			},
			validateOutput: func(logger zerolog.Logger) bool {
				return zerolog.GlobalLevel() == zerolog.InfoLevel
			},
		},
		{
			name: "invalid configuration - wrong env",
			config: &logpkg.LoggerConfig{
				ServiceName: "bad-service",
				Env:         "wrong-env", // not allowed by validator
				Level:       "debug",
			},
			expectError: true,
		},
		{
			name: "valid development environment with debug level",
			config: &logpkg.LoggerConfig{
				ServiceName: "test-service",
				Env:         "dev",
				Level:       "debug",
				WithCaller:  true,
				Stacktrace:  true,
			},
			validateOutput: func(logger zerolog.Logger) bool {
				return logger.GetLevel() == zerolog.DebugLevel
			},
		},
		{
			name: "invalid log level",
			config: &logpkg.LoggerConfig{
				Env:   "prod",
				Level: "invalid-level", // not allowed
			},
			expectError: true,
		},
		{
			name: "invalid format",
			config: &logpkg.LoggerConfig{
				Env:    "prod",
				Format: "xml",
			},
			expectError: true,
		},
		{
			name: "valid staging environment with warn level",
			config: &logpkg.LoggerConfig{
				Env:        "staging",
				Level:      "warn",
				TimeFormat: "rfc3339",
				Stacktrace: true,
			},
			validateOutput: func(logger zerolog.Logger) bool {
				return zerolog.GlobalLevel() == zerolog.WarnLevel
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l, err := logpkg.New(test.config)
			if test.expectError {
				assert.NotNil(t, err)
				return
			}
			assert.NoError(t, err)
			if test.validateOutput != nil {
				assert.True(t, test.validateOutput(l))
			}
		})
	}
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

func TestNew_RotatingFileSink(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })
	path := filepath.Join(t.TempDir(), "logs", "sync.log")

	l, err := logpkg.New(&logpkg.LoggerConfig{
		Env:          "prod",
		Level:        "info",
		OutputTarget: "stderr",
		File:         logpkg.FileConfig{Path: path},
	})
	require.NoError(t, err)

	l.Info().Str("probe", "rotating").Msg("hello file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"probe":"rotating"`))
	assert.True(t, strings.Contains(string(data), `"service":"gamelog-sync"`))
}

package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzchen/limitboard/pkg/config"
)

func testConfig(level, format string) *config.Config {
	return &config.Config{
		Env:       "development",
		LogLevel:  level,
		LogFormat: format,
	}
}

func TestNew(t *testing.T) {
	log := New(testConfig("debug", "json"))
	require.NotNil(t, log)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestWithFields(t *testing.T) {
	log := New(testConfig("error", "json"))

	child := log.WithFields(map[string]interface{}{
		"provider": "eastmoney",
		"page":     2,
	})
	require.NotNil(t, child)

	// The parent must be unchanged (child loggers are copies)
	assert.NotSame(t, log, child)
	assert.NotSame(t, log, log.WithField("k", "v"))
	assert.NotSame(t, log, log.WithError(assert.AnError))
}

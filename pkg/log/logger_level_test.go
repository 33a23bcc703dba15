package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"", LevelInfo},
		{"bogus", LevelInfo},
		{"  Error  ", LevelError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.in), "input %q", tt.in)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger := NewLogger(LevelError)
	assert.Equal(t, LevelError, logger.level)

	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, logger.level)
}

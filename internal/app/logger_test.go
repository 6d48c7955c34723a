package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLogLevel(&Config{LogLevel: tc.in}), tc.in)
	}
	assert.Equal(t, slog.LevelInfo, parseLogLevel(nil))
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	logger := NewLogger(&Config{LogFormat: "pretty", LogLevel: "warn"})
	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
}

package cliutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupSlog(t *testing.T) {
	assert := assert.New(t)
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logPath := filepath.Join(t.TempDir(), "jose.log")
	t.Setenv("JOSE_LOG_LEVEL", "debug")
	t.Setenv("JOSE_LOG_FMT", "json")
	t.Setenv("JOSE_LOG_FILE", logPath)

	logger, err := SetupSlog(LogOptions{})
	require.NoError(t, err)
	assert.True(logger.Enabled(context.Background(), slog.LevelDebug))
	slog.Default().Debug("hello", "system", "test")

	buf, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(string(buf), `"msg":"hello"`)

	// explicit options take precedence over env
	logger, err = SetupSlog(LogOptions{LogLevel: "warn", LogFormat: "text", LogPath: "-"})
	require.NoError(t, err)
	assert.False(logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestSetupSlogErrors(t *testing.T) {
	assert := assert.New(t)
	prev := slog.Default()
	defer slog.SetDefault(prev)

	_, err := SetupSlog(LogOptions{LogLevel: "loud"})
	assert.Error(err)
	_, err = SetupSlog(LogOptions{LogFormat: "xml"})
	assert.Error(err)
}

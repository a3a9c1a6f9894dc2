package cliutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type LogOptions struct {
	// path to write to; "" or "-" for stderr
	LogPath string

	// text|json
	LogFormat string

	// info|debug|warn|error
	LogLevel string
}

func firstenv(env_var_names ...string) string {
	for _, env_var_name := range env_var_names {
		val := os.Getenv(env_var_name)
		if val != "" {
			return val
		}
	}
	return ""
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %#v", s)
}

// SetupSlog integrates passed in options and env vars, and installs the result as the slog default.
//
// passing default cliutil.LogOptions{} is ok.
//
// JOSE_LOG_LEVEL=info|debug|warn|error
//
// JOSE_LOG_FMT=text|json
//
// JOSE_LOG_FILE=path (or "-" or "" for stderr)
//
// Output defaults to stderr so that command output on stdout stays clean.
func SetupSlog(options LogOptions) (*slog.Logger, error) {
	if options.LogLevel == "" {
		options.LogLevel = firstenv("JOSE_LOG_LEVEL", "GOLOG_LOG_LEVEL")
	}
	level, err := parseLevel(options.LogLevel)
	if err != nil {
		return nil, err
	}
	hopts := slog.HandlerOptions{Level: level}

	if options.LogFormat == "" {
		options.LogFormat = firstenv("JOSE_LOG_FMT", "GOLOG_LOG_FMT")
	}
	format := strings.ToLower(options.LogFormat)
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("invalid log format: %#v", options.LogFormat)
	}

	if options.LogPath == "" {
		options.LogPath = firstenv("JOSE_LOG_FILE", "GOLOG_FILE")
	}
	var out io.Writer = os.Stderr
	if options.LogPath != "" && options.LogPath != "-" {
		f, err := os.OpenFile(options.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", options.LogPath, err)
		}
		out = f
	}

	var handler slog.Handler = slog.NewTextHandler(out, &hopts)
	if format == "json" {
		handler = slog.NewJSONHandler(out, &hopts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

package internal

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the JSON logger. console is stdout for the HTTP server and
// stderr for the MCP server, whose stdout carries the protocol. The returned
// closer releases the log file, if any.
func newLogger(cfg ApplicationConfig, console io.Writer) (*slog.Logger, io.Closer) {
	var out io.Writer = console
	var closer io.Closer = io.NopCloser(nil)
	if cfg.Log.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return logger, closer
}

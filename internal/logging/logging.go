// Package logging builds gpioctl's diagnostic loggers. Client commands stay
// silent unless a log file is configured, so stdout carries nothing but daemon
// replies. Log files are rotated by size through lumberjack.
package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for gpioctl log files.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 14
)

// NewRotatingWriter opens a compressed, size-rotated log file at path. The
// file and its directory are created on first write.
func NewRotatingWriter(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
		Compress:   true,
	}
}

// NewLogger creates a structured logger that writes to the given writer.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns a debug-level logger writing to a rotating file at path, and
// the closer for that file. An empty path yields a logger that discards
// everything, so console output is left untouched.
func Open(path string) (*slog.Logger, io.Closer) {
	if path == "" {
		return slog.New(slog.DiscardHandler), nopCloser{}
	}
	w := NewRotatingWriter(path)
	return NewLogger(w, slog.LevelDebug), w
}

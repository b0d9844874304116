// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for Trask services.
//
// The logger is a thin layer over the standard library slog package with
// two destinations:
//
//   - stdout: JSON output for container log collection (default)
//   - log file: optional, one file per service per day
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("starting task api", "port", port)
//
// # File Logging
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogDir:  "/var/log/trask",
//	    Service: "taskapi",
//	})
//	defer logger.Close()
//
// # Thread Safety
//
// Logger is safe for concurrent use; the underlying slog.Logger is
// thread-safe and the file handle is only touched by Close.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// Levels
// =============================================================================

// Level is the minimum severity a logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a
// Level. Unknown names default to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds logger configuration.
type Config struct {
	// Level is the minimum severity to emit. Default: LevelInfo.
	Level Level

	// LogDir enables file logging when non-empty. The directory is
	// created if needed; files are named {service}_{date}.log.
	LogDir string

	// Service names the component in file names and log attributes.
	// Default: "trask".
	Service string
}

// =============================================================================
// Logger
// =============================================================================

// Logger wraps slog with optional file output.
type Logger struct {
	logger *slog.Logger
	file   *os.File
}

// New creates a Logger from config.
//
// File logging failures are not fatal: if the log directory cannot be
// created or the file cannot be opened, the logger falls back to stdout
// only and reports the problem there.
func New(config Config) *Logger {
	if config.Service == "" {
		config.Service = "trask"
	}

	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	var out io.Writer = os.Stdout
	var file *os.File

	if config.LogDir != "" {
		f, err := openLogFile(config.LogDir, config.Service)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: file output disabled: %v\n", err)
		} else {
			file = f
			out = io.MultiWriter(os.Stdout, f)
		}
	}

	handler := slog.NewJSONHandler(out, opts)
	return &Logger{
		logger: slog.New(handler).With("service", config.Service),
		file:   file,
	}
}

// Default returns a stdout-only logger at info level.
func Default() *Logger {
	return New(Config{Level: LevelInfo})
}

// Slog returns the underlying slog.Logger, suitable for
// slog.SetDefault so that package-level slog calls share destinations.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// Debug logs at debug level with key-value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Info logs at info level with key-value pairs.
func (l *Logger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

// Warn logs at warn level with key-value pairs.
func (l *Logger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// Error logs at error level with key-value pairs.
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	return l.file.Close()
}

// openLogFile creates the log directory and opens today's log file for
// appending.
func openLogFile(dir, service string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

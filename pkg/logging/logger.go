// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging setup for Aleutian services.
//
// Built on the standard library slog package. The default is
// human-readable text on stderr; servers opt into JSON and an optional
// log file. Setup installs the configured logger as the slog default,
// so components log through plain slog calls and stay decoupled from
// this package.
//
// This package does NOT redact sensitive data. Callers must ensure
// tokens and secrets are not logged.
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

// Config configures logger setup. The zero value writes Info+ text to
// stderr.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	// Unrecognized values fall back to info.
	Level string

	// Service is added to every entry as the "service" attribute.
	Service string

	// JSON switches stderr output to JSON. File output is always JSON.
	JSON bool

	// LogDir, when set, also writes entries to
	// "{Service}_{YYYY-MM-DD}.log" in that directory. Supports a
	// leading ~ for the home directory. The directory is created with
	// 0750 permissions.
	LogDir string

	// Quiet disables stderr output. Only useful together with LogDir.
	Quiet bool
}

// Logger holds the configured slog logger and the file handle behind it.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Setup builds the logger and installs it as the slog default.
//
// Outputs:
//
//	*Logger - Call Close on shutdown when file logging is enabled.
//	error - Non-nil if the log directory or file cannot be created.
func Setup(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level)

	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, os.Stderr)
	}

	var file *os.File
	if cfg.LogDir != "" {
		dir, err := expandHome(cfg.LogDir)
		if err != nil {
			return nil, fmt.Errorf("resolve log dir: %w", err)
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		name := fmt.Sprintf("%s_%s.log", cfg.Service, time.Now().Format("2006-01-02"))
		file, err = os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, file)
	}

	var out io.Writer = io.Discard
	if len(writers) == 1 {
		out = writers[0]
	} else if len(writers) > 1 {
		out = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.JSON || file != nil {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	slog.SetDefault(logger)

	return &Logger{Logger: logger, file: file}, nil
}

// Close flushes and closes the log file, if any. Safe on a stderr-only
// logger.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// parseLevel maps a level name onto slog.Level, defaulting to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandHome resolves a leading ~ to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

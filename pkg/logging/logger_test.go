// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetup_StderrOnly(t *testing.T) {
	logger, err := Setup(Config{Service: "test"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close on stderr-only logger: %v", err)
	}
}

func TestSetup_FileLogging(t *testing.T) {
	dir := t.TempDir()

	logger, err := Setup(Config{
		Service: "swarmviz",
		LogDir:  dir,
		Quiet:   true,
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	logger.Info("test entry", "key", "value")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	name := "swarmviz_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	// File entries are JSON with the service attribute.
	line := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log entry is not JSON: %v\n%s", err, line)
	}
	if entry["msg"] != "test entry" || entry["service"] != "swarmviz" {
		t.Errorf("entry = %v", entry)
	}
}

func TestSetup_CreatesLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, err := Setup(Config{Service: "test", LogDir: dir, Quiet: true})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("log dir not created: %v", err)
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package swarm

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/graph"
)

// Default engine configuration values.
const (
	DefaultPort      = 8080
	DefaultQueueSize = 1024
	DefaultCollabTTL = 30 * time.Second
)

// Config configures the swarm service.
type Config struct {
	// Port is the HTTP listen port.
	Port int `yaml:"port" json:"port"`

	// QueueSize bounds the mutation work queue feeding the engine loop.
	QueueSize int `yaml:"queue_size" json:"queueSize"`

	// CollabTTL is the lifetime of ephemeral collaboration edges.
	CollabTTL time.Duration `yaml:"collab_ttl" json:"collabTtl"`

	// GC configures the eviction sweeper.
	GC graph.SweepConfig `yaml:"gc" json:"gc"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:      DefaultPort,
		QueueSize: DefaultQueueSize,
		CollabTTL: DefaultCollabTTL,
		GC:        graph.DefaultSweepConfig(),
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	}
	if c.GC.MaxNodes <= 0 || c.GC.MaxEdges <= 0 {
		return fmt.Errorf("%w: gc thresholds must be positive", ErrInvalidConfig)
	}
	if c.GC.MaxAge <= 0 {
		return fmt.Errorf("%w: gc max age must be positive", ErrInvalidConfig)
	}
	if c.GC.Enabled && c.GC.Interval <= 0 {
		return fmt.Errorf("%w: gc interval must be positive when enabled", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig loads configuration with priority: env > file > defaults.
//
// Inputs:
//
//	configPath - Path to a YAML/JSON config file (optional, can be empty;
//	a missing file falls back to defaults).
//
// Outputs:
//
//	Config - Merged configuration.
//	error - Non-nil if the file exists but is invalid, or if validation fails.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(config *Config) {
	if v := os.Getenv("SWARM_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Port = i
		}
	}
	if v := os.Getenv("SWARM_QUEUE_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.QueueSize = i
		}
	}
	if v := os.Getenv("SWARM_COLLAB_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.CollabTTL = d
		}
	}
	if v := os.Getenv("SWARM_GC_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.GC.Enabled = b
		}
	}
	if v := os.Getenv("SWARM_GC_MAX_NODES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.GC.MaxNodes = i
		}
	}
	if v := os.Getenv("SWARM_GC_MAX_EDGES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.GC.MaxEdges = i
		}
	}
	if v := os.Getenv("SWARM_GC_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.GC.MaxAge = d
		}
	}
	if v := os.Getenv("SWARM_GC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.GC.Interval = d
		}
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command swarmviz starts the Aleutian Swarm visualization server.
//
// Aleutian Swarm maintains a live, in-memory graph of an agent swarm:
//   - Event ingestion (swarm init, agent spawns, task lifecycle, file ops)
//   - Graph snapshots, analytics, and bounded-memory eviction
//   - WebSocket delta streams (one snapshot, then every mutation in order)
//
// Usage:
//
//	go run ./cmd/swarmviz
//	go run ./cmd/swarmviz -port 9090
//	go run ./cmd/swarmviz -config config/swarm.yaml
//	go run ./cmd/swarmviz -simulate
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/swarm/health
//
//	# Ingest an event
//	curl -X POST http://localhost:8080/v1/swarm/events \
//	  -H "Content-Type: application/json" \
//	  -d '{"type": "swarm-init", "data": {"id": "swarm-1", "name": "demo"}}'
//
//	# Graph snapshot and analytics
//	curl http://localhost:8080/v1/swarm/graph | jq
//	curl http://localhost:8080/v1/swarm/stats | jq
//
//	# Eviction status and manual sweep
//	curl http://localhost:8080/v1/swarm/gc | jq
//	curl -X POST http://localhost:8080/v1/swarm/gc/trigger | jq
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianSwarm/pkg/logging"
	"github.com/AleutianAI/AleutianSwarm/services/swarm"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/ingest"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/sim"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	simulate := flag.Bool("simulate", false, "Generate synthetic swarm activity")
	logDir := flag.String("log-dir", "", "Directory for JSON log files (optional)")
	logJSON := flag.Bool("log-json", false, "Emit JSON logs on stderr")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	logger, err := logging.Setup(logging.Config{
		Level:   level,
		Service: "swarmviz",
		JSON:    *logJSON,
		LogDir:  *logDir,
	})
	if err != nil {
		slog.Error("Failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := run(*port, *configPath, *debug, *simulate); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(port int, configPath string, debug, simulate bool) error {
	// Set Gin mode
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := swarm.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port != 0 {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	// Telemetry first so every component's meters are live
	shutdown, err := telemetry.Init(context.Background(), telemetry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	eng := swarm.NewEngine(cfg)
	eng.Start()

	handlers := swarm.NewHandlers(eng)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.Middleware("swarm.http"))
	if debug {
		router.Use(gin.Logger())
	}

	if mh := telemetry.MetricsHandler(); mh != nil {
		router.GET("/metrics", gin.WrapH(mh))
	}

	v1 := router.Group("/v1")
	swarm.RegisterRoutes(v1, handlers)

	// Optional demo traffic
	simCtx, stopSim := context.WithCancel(context.Background())
	defer stopSim()
	if simulate {
		simulator := sim.New(func(ev *ingest.Event) {
			if err := eng.Ingest(simCtx, ev); err != nil {
				slog.Debug("Simulator event dropped", "error", err)
			}
		})
		go simulator.Run(simCtx)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting Aleutian Swarm server",
			"address", srv.Addr,
			"gc_enabled", cfg.GC.Enabled,
			"simulate", simulate,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		slog.Info("Shutting down Aleutian Swarm server", "signal", sig.String())
	}

	stopSim()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("HTTP server shutdown failed", "error", err)
	}
	if err := eng.Stop(ctx); err != nil {
		slog.Warn("Engine shutdown failed", "error", err)
	}
	return nil
}

// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command taskapi starts the Trask task-tracking HTTP server.
//
// This is the main entry point for the containerized API service. It
// reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - TASKAPI_PORT: HTTP server port (default: 8300)
//   - TASKAPI_DATA_DIR: document store directory (default: ./data)
//   - SECRET_KEY: session token signing secret (required)
//   - TASKAPI_CORS_ORIGIN: browser origin allowed with credentials (optional)
//   - TASKAPI_SWEEP_INTERVAL: sweeper cycle interval, e.g. "24h" (default: 24h)
//   - TASKAPI_SWEEP_MAX_AGE: age before anonymous tasks are removed (default: 168h)
//   - TASKAPI_DISABLE_SWEEP: "true" turns the sweeper off
//   - TASKAPI_DISABLE_METRICS: "true" turns the /metrics endpoint off
//   - TASKAPI_LOG_LEVEL: debug, info, warn, error (default: info)
//   - TASKAPI_LOG_DIR: enables file logging when set
//
// # Usage
//
//	# Build
//	go build -o taskapi ./cmd/taskapi
//
//	# Run
//	SECRET_KEY=change-me ./taskapi
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/traskapp/trask/pkg/logging"
	"github.com/traskapp/trask/services/taskapi"
)

func main() {
	// Setup structured logging
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("TASKAPI_LOG_LEVEL")),
		LogDir:  os.Getenv("TASKAPI_LOG_DIR"),
		Service: "taskapi",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		log.Fatal("SECRET_KEY environment variable is required")
	}

	// Build configuration from environment variables
	cfg := taskapi.Config{
		Port:           getEnvInt("TASKAPI_PORT", 8300),
		DataDir:        getEnvString("TASKAPI_DATA_DIR", "./data"),
		SecretKey:      secret,
		CORSOrigin:     os.Getenv("TASKAPI_CORS_ORIGIN"),
		GinMode:        os.Getenv("GIN_MODE"),
		SweepInterval:  getEnvDuration("TASKAPI_SWEEP_INTERVAL", 0),
		SweepMaxAge:    getEnvDuration("TASKAPI_SWEEP_MAX_AGE", 0),
		DisableSweep:   getEnvBool("TASKAPI_DISABLE_SWEEP"),
		DisableMetrics: getEnvBool("TASKAPI_DISABLE_METRICS"),
	}

	slog.Info("Starting task API",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"cors_origin", cfg.CORSOrigin,
	)

	svc, err := taskapi.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create task API service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Task API error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool reports whether the environment variable parses as true.
func getEnvBool(key string) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && value
}

// getEnvDuration returns the environment variable as a duration or a
// default. Zero means "use the service default".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

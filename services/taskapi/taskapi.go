// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package taskapi provides the core task-tracking API service.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, the document store, session tokens, the
// ownership reconciler, the anonymous-task sweeper, and metrics.
//
// # Usage
//
//	cfg := taskapi.Config{Port: 8300, DataDir: "/var/lib/trask", SecretKey: secret}
//	svc, err := taskapi.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package taskapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/traskapp/trask/services/taskapi/auth"
	"github.com/traskapp/trask/services/taskapi/middleware"
	"github.com/traskapp/trask/services/taskapi/observability"
	"github.com/traskapp/trask/services/taskapi/reconcile"
	"github.com/traskapp/trask/services/taskapi/routes"
	"github.com/traskapp/trask/services/taskapi/storage"
	"github.com/traskapp/trask/services/taskapi/sweeper"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the task API service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	// Cleanup of background components is automatic on return.
	Run() error

	// Router returns the underlying Gin engine for testing. Callers must
	// not modify the registered routes.
	Router() *gin.Engine

	// Close releases the store and background components without running
	// the server. Run() performs this itself on return.
	Close() error
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds task API configuration options.
//
// All fields except SecretKey have sensible defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 8300.
	Port int

	// DataDir is the directory for the document store.
	// Default: "./data". Ignored when InMemory is true.
	DataDir string

	// InMemory runs the document store without disk persistence.
	// Intended for tests.
	InMemory bool

	// SecretKey signs session tokens. Required.
	SecretKey string

	// TokenTTL is the session token lifetime. Default: 7 days.
	TokenTTL time.Duration

	// CORSOrigin is the browser origin allowed to call the API with
	// credentials. Empty disables CORS headers.
	CORSOrigin string

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Empty uses the GIN_MODE env var or Gin's default.
	GinMode string

	// DisableSweep turns off the background anonymous-task sweeper. The
	// sweeper permanently deletes unclaimed tasks; keep it running unless
	// retention is handled elsewhere.
	DisableSweep bool

	// SweepInterval is how often the sweeper runs. Default: 24 hours.
	SweepInterval time.Duration

	// SweepMaxAge is the age past which unclaimed anonymous tasks are
	// removed. Default: 7 days.
	SweepMaxAge time.Duration

	// DisableMetrics turns off the /metrics endpoint and the per-request
	// metrics middleware.
	DisableMetrics bool
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8300
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = auth.DefaultTokenTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = sweeper.DefaultConfig().Interval
	}
	if cfg.SweepMaxAge == 0 {
		cfg.SweepMaxAge = sweeper.DefaultConfig().MaxAge
	}
	return cfg
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// All fields are read-only after New() returns; the store and sweeper
// manage their own internal synchronization.
type service struct {
	config     Config
	store      *storage.Store
	tokens     *auth.TokenManager
	reconciler *reconcile.Reconciler
	sweeper    *sweeper.Sweeper
	metrics    *observability.Metrics
	registry   *prometheus.Registry
	router     *gin.Engine
}

// New creates a task API Service with the given configuration.
//
// # Description
//
// Initializes all components in dependency order:
//
//  1. Applies configuration defaults
//  2. Opens the document store (disk or in-memory)
//  3. Creates the session token manager
//  4. Registers Prometheus metrics on a per-instance registry
//  5. Creates the ownership reconciler
//  6. Starts the anonymous-task sweeper (if enabled)
//  7. Sets up HTTP routes
//
// # Inputs
//
//   - cfg: Service configuration. SecretKey is required; everything else
//     has defaults.
//
// # Outputs
//
//   - Service: Ready-to-run service.
//   - error: Non-nil if the secret is missing or the store cannot open.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	tokens, err := auth.NewTokenManager(s.config.SecretKey, s.config.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	s.tokens = tokens

	storeCfg := storage.DefaultConfig(s.config.DataDir)
	if s.config.InMemory {
		storeCfg = storage.InMemoryConfig()
	}
	storeCfg.Logger = slog.Default()

	s.store, err = storage.Open(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	s.registry = prometheus.NewRegistry()
	s.metrics = observability.New(s.registry)

	s.reconciler = reconcile.New(s.store, s.metrics)

	if !s.config.DisableSweep {
		s.sweeper = sweeper.New(s.store, sweeper.Config{
			Interval: s.config.SweepInterval,
			MaxAge:   s.config.SweepMaxAge,
		}, s.metrics)
		if err := s.sweeper.Start(context.Background()); err != nil {
			s.cleanup()
			return nil, fmt.Errorf("failed to start sweeper: %w", err)
		}
	}

	s.initRouter()

	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting task API server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Close releases the store and background components.
func (s *service) Close() error {
	s.cleanup()
	return nil
}

// initRouter sets up the Gin HTTP router with middleware and all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(middleware.CORS(s.config.CORSOrigin))

	var gatherer prometheus.Gatherer
	if !s.config.DisableMetrics {
		s.router.Use(observability.RequestMetrics(s.metrics))
		gatherer = s.registry
	}
	routes.SetupRoutes(s.router, s.store, s.tokens, s.reconciler, s.metrics, gatherer)
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.sweeper != nil {
		if err := s.sweeper.Stop(); err != nil {
			slog.Warn("sweeper stop error", "error", err)
		}
		s.sweeper = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("store close error", "error", err)
		}
		s.store = nil
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)

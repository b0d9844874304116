// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sweeper removes stale anonymous tasks in the background.
//
// Anonymous tasks whose caller never registers are orphaned forever: the
// cookie expires after a month and nothing can ever claim them. The
// sweeper deletes anonymous tasks older than a configured age on a
// periodic cycle. Reconciled tasks are never touched.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/traskapp/trask/services/taskapi/observability"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds configuration for the sweeper.
//
// # Fields
//
//   - Interval: How often to run a sweep cycle. Default: 24 hours.
//   - MaxAge: Anonymous tasks older than this are removed. Default: 7 days.
type Config struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// DefaultConfig returns production defaults: daily cycles removing
// anonymous tasks older than seven days.
func DefaultConfig() Config {
	return Config{
		Interval: 24 * time.Hour,
		MaxAge:   7 * 24 * time.Hour,
	}
}

// Store is the storage surface the sweeper needs.
type Store interface {
	DeleteAnonymousTasksBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// =============================================================================
// Sweeper
// =============================================================================

// Sweeper runs periodic cleanup cycles on a background goroutine.
//
// # Thread Safety
//
// All public methods are thread-safe; a mutex protects the running state.
// Uses the ticker + done channel pattern for graceful shutdown.
type Sweeper struct {
	store   Store
	config  Config
	metrics *observability.Metrics

	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// New creates a Sweeper. metrics may be nil in tests.
func New(store Store, config Config, metrics *observability.Metrics) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultConfig().MaxAge
	}
	return &Sweeper{
		store:   store,
		config:  config,
		metrics: metrics,
	}
}

// Start launches the background sweep loop. Returns an error if the
// sweeper is already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sweeper already running")
	}
	s.running = true
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)

	slog.Info("anonymous task sweeper started",
		"interval", s.config.Interval.String(),
		"max_age", s.config.MaxAge.String(),
	)
	return nil
}

// Stop signals the sweep loop to exit. Safe to call once.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("sweeper not running")
	}
	s.running = false
	close(s.done)
	return nil
}

func (s *Sweeper) loop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunCycle(ctx)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunCycle performs one sweep immediately. Exposed so operators (and
// tests) can trigger a cycle without waiting for the ticker.
func (s *Sweeper) RunCycle(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.MaxAge)

	deleted, err := s.store.DeleteAnonymousTasksBefore(ctx, cutoff)
	if err != nil {
		slog.Error("sweep cycle failed", "error", err)
		if s.metrics != nil {
			s.metrics.SweepCyclesTotal.WithLabelValues("error").Inc()
		}
		return
	}

	if deleted > 0 {
		slog.Info("sweep cycle completed", "deleted", deleted, "cutoff", cutoff)
	}
	if s.metrics != nil {
		s.metrics.SweepCyclesTotal.WithLabelValues("success").Inc()
		s.metrics.SweptTasksTotal.Add(float64(deleted))
	}
}

// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the task API.
//
// # Description
//
// Metrics cover the HTTP surface (request counts and latency) and the
// domain operations that matter operationally: task creation by identity
// kind, ownership reconciliations, and the anonymous-task sweeper.
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Each service instance
// owns its registry; tests construct metrics against a fresh registry so
// nothing collides globally.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "trask"

// Subsystem for task API metrics
const apiSubsystem = "taskapi"

// Metrics holds all Prometheus metrics for the task API.
type Metrics struct {
	// RequestsTotal counts HTTP requests.
	// Labels: method, path (route template), status
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures request latency.
	// Labels: method, path
	RequestDurationSeconds *prometheus.HistogramVec

	// TasksCreatedTotal counts task creations by identity kind.
	// Labels: identity (authenticated, anonymous)
	TasksCreatedTotal *prometheus.CounterVec

	// ReconciliationsTotal counts ownership reconciliation attempts.
	// Labels: trigger (login, register), outcome (success, error)
	ReconciliationsTotal *prometheus.CounterVec

	// ReconciledTasksTotal counts tasks migrated to accounts.
	ReconciledTasksTotal prometheus.Counter

	// SweptTasksTotal counts stale anonymous tasks removed by the sweeper.
	SweptTasksTotal prometheus.Counter

	// SweepCyclesTotal counts sweeper cycles.
	// Labels: outcome (success, error)
	SweepCyclesTotal *prometheus.CounterVec
}

// New registers and returns the task API metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: apiSubsystem,
			Name:      "requests_total",
			Help:      "HTTP requests by method, route, and status.",
		}, []string{"method", "path", "status"}),

		RequestDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: apiSubsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		TasksCreatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: apiSubsystem,
			Name:      "tasks_created_total",
			Help:      "Tasks created by identity kind.",
		}, []string{"identity"}),

		ReconciliationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: apiSubsystem,
			Name:      "reconciliations_total",
			Help:      "Ownership reconciliation attempts by trigger and outcome.",
		}, []string{"trigger", "outcome"}),

		ReconciledTasksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: apiSubsystem,
			Name:      "reconciled_tasks_total",
			Help:      "Anonymous tasks migrated to authenticated accounts.",
		}),

		SweptTasksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: apiSubsystem,
			Name:      "swept_tasks_total",
			Help:      "Stale anonymous tasks removed by the sweeper.",
		}),

		SweepCyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: apiSubsystem,
			Name:      "sweep_cycles_total",
			Help:      "Sweeper cycles by outcome.",
		}, []string{"outcome"}),
	}
}

// RequestMetrics returns a gin middleware recording request counts and
// latency. Uses the route template (c.FullPath) rather than the raw URL so
// task IDs don't explode label cardinality.
func RequestMetrics(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.RequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.RequestDurationSeconds.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}

// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package reconcile migrates anonymous task ownership onto authenticated
// accounts.
//
// # Description
//
// When a caller who created tasks anonymously logs in or registers, every
// task tagged with their cookie identifier is reassigned to the account in
// one atomic store transaction. The operation runs exactly once per
// successful login/registration, before the response is sent, and the
// handler clears the identifier cookie only after the store acknowledges
// the transfer.
//
// # Failure Policy
//
// A failed reconciliation fails the whole login or registration. Identity
// and task-ownership transfer are one logical unit from the caller's
// perspective; completing authentication while silently dropping their
// tasks is worse than asking them to retry. On the registration path the
// account insert shares the transaction with the bulk update, so failure
// rolls both back.
//
// # Idempotence
//
// Reconciling an identifier that matches zero tasks is a successful no-op.
// After the first reconciliation cleared an identifier, a second call with
// the same identifier migrates nothing and returns no error.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/traskapp/trask/services/taskapi/datatypes"
	"github.com/traskapp/trask/services/taskapi/observability"
)

// Store is the storage surface the reconciler needs.
type Store interface {
	ClaimAnonymousTasks(ctx context.Context, anonymousID, userID string) (int, error)
	CreateUserClaimingTasks(ctx context.Context, user *datatypes.User, anonymousID string) (*datatypes.User, int, error)
}

// Reconciler performs the one-time ownership transfer.
type Reconciler struct {
	store   Store
	metrics *observability.Metrics
}

// New creates a Reconciler. metrics may be nil in tests.
func New(store Store, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{store: store, metrics: metrics}
}

// Reconcile migrates anonymousID's tasks onto userID at login time.
//
// An empty anonymousID (no cookie presented) is a no-op. Returns the
// number of tasks migrated; zero matches are success, so a login with a
// cookie that matches nothing still succeeds.
func (r *Reconciler) Reconcile(ctx context.Context, anonymousID, userID string) (int, error) {
	if anonymousID == "" {
		return 0, nil
	}

	migrated, err := r.store.ClaimAnonymousTasks(ctx, anonymousID, userID)
	r.record("login", migrated, err)
	if err != nil {
		return 0, err
	}

	slog.Info("reconciled anonymous tasks",
		"trigger", "login",
		"user_id", userID,
		"migrated", migrated,
	)
	return migrated, nil
}

// RegisterClaiming creates a new account and migrates anonymousID's tasks
// onto it in the same store transaction. An empty anonymousID just creates
// the account.
func (r *Reconciler) RegisterClaiming(ctx context.Context, user *datatypes.User, anonymousID string) (*datatypes.User, int, error) {
	created, migrated, err := r.store.CreateUserClaimingTasks(ctx, user, anonymousID)
	if anonymousID != "" {
		r.record("register", migrated, err)
	}
	if err != nil {
		return nil, 0, err
	}

	if anonymousID != "" {
		slog.Info("reconciled anonymous tasks",
			"trigger", "register",
			"user_id", created.ID,
			"migrated", migrated,
		)
	}
	return created, migrated, nil
}

func (r *Reconciler) record(trigger string, migrated int, err error) {
	if r.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.metrics.ReconciliationsTotal.WithLabelValues(trigger, outcome).Inc()
	if err == nil && migrated > 0 {
		r.metrics.ReconciledTasksTotal.Add(float64(migrated))
	}
}

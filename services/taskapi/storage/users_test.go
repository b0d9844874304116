// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traskapp/trask/services/taskapi/datatypes"
)

func TestCreateUser_GeneratesID(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateUser(context.Background(), &datatypes.User{
		Email:        "new@example.com",
		PasswordHash: "$2a$10$hash",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	mustCreateUser(t, s, "taken@example.com")

	_, err := s.CreateUser(context.Background(), &datatypes.User{
		Email:        "taken@example.com",
		PasswordHash: "$2a$10$hash",
	})
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestGetUserByEmail(t *testing.T) {
	s := newTestStore(t)
	created := mustCreateUser(t, s, "lookup@example.com")

	found, err := s.GetUserByEmail(context.Background(), "lookup@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "lookup@example.com", found.Email)
	assert.NotEmpty(t, found.PasswordHash, "stored hash must survive the round trip")

	_, err = s.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserClaimingTasks_MigratesOnRegistration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, anonymousTask("pre-signup", "anon-reg"))
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, anonymousTask("also pre-signup", "anon-reg"))
	require.NoError(t, err)

	user, migrated, err := s.CreateUserClaimingTasks(ctx, &datatypes.User{
		Email:        "signup@example.com",
		PasswordHash: "$2a$10$hash",
	}, "anon-reg")
	require.NoError(t, err)
	assert.Equal(t, 2, migrated)

	owned, err := s.ListTasksByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestCreateUserClaimingTasks_DuplicateEmailRollsBackClaim(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "taken@example.com")

	task, err := s.CreateTask(ctx, anonymousTask("must stay anonymous", "anon-rb"))
	require.NoError(t, err)

	_, _, err = s.CreateUserClaimingTasks(ctx, &datatypes.User{
		Email:        "taken@example.com",
		PasswordHash: "$2a$10$hash",
	}, "anon-rb")
	assert.ErrorIs(t, err, ErrEmailInUse)

	// The failed registration must not have claimed the task.
	reloaded, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsAnonymous)
	assert.Equal(t, "anon-rb", reloaded.AnonymousIdentifier)
	assert.Empty(t, reloaded.OwnerUserID)

	still, err := s.ListTasksByAnonymousID(ctx, "anon-rb")
	require.NoError(t, err)
	assert.Len(t, still, 1)
}

func TestUserJSON_NeverExposesPasswordHash(t *testing.T) {
	user := datatypes.User{
		ID:           "u-1",
		Email:        "safe@example.com",
		PasswordHash: "$2a$10$supersecret",
	}
	raw, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "supersecret")
	assert.NotContains(t, string(raw), "passwordHash")
}

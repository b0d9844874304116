// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/traskapp/trask/services/taskapi/datatypes"
)

// storedUser is the persistence envelope for users. datatypes.User tags
// PasswordHash `json:"-"` so it can never serialize outward; the envelope
// re-adds it for the store only.
type storedUser struct {
	datatypes.User
	PasswordHash string `json:"passwordHash"`
}

func toStored(u *datatypes.User) *storedUser {
	return &storedUser{User: *u, PasswordHash: u.PasswordHash}
}

func (su *storedUser) toUser() *datatypes.User {
	u := su.User
	u.PasswordHash = su.PasswordHash
	return &u
}

// =============================================================================
// User operations
// =============================================================================

// CreateUser persists a new user and returns it with its generated ID.
// Returns ErrEmailInUse if the email is taken.
func (s *Store) CreateUser(ctx context.Context, user *datatypes.User) (*datatypes.User, error) {
	created, _, err := s.CreateUserClaimingTasks(ctx, user, "")
	return created, err
}

// CreateUserClaimingTasks persists a new user and, when anonymousID is
// non-empty, reassigns that identifier's tasks onto the new account in the
// same transaction.
//
// # Description
//
// This is the registration path of the ownership reconciler. Account
// creation and task migration are one logical unit: if the bulk
// reassignment fails, the transaction rolls back and no user is created.
// Registration then fails as a whole rather than completing with orphaned
// anonymous tasks.
//
// # Outputs
//
//   - *datatypes.User: The created user with generated ID.
//   - int: Number of tasks migrated (0 when anonymousID is empty or
//     matches nothing).
//   - error: ErrEmailInUse, or a wrapped store error.
func (s *Store) CreateUserClaimingTasks(ctx context.Context, user *datatypes.User, anonymousID string) (*datatypes.User, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	u := *user
	u.ID = uuid.NewString()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if anonymousID != "" {
		u.AnonymousIdentifier = anonymousID
	}

	if !validKeyPart(anonymousID) {
		return nil, 0, fmt.Errorf("anonymous identifier: %w", ErrInvalidIdentifier)
	}

	var migrated int
	err := s.db.Update(func(txn *badger.Txn) error {
		// Unique email check.
		_, err := txn.Get(userEmailKey(u.Email))
		if err == nil {
			return ErrEmailInUse
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if anonymousID != "" {
			migrated, err = claimTasksTxn(txn, anonymousID, u.ID)
			if err != nil {
				return err
			}
		}

		if err := putUserTxn(txn, &u); err != nil {
			return err
		}
		return txn.Set(userEmailKey(u.Email), []byte(u.ID))
	})
	if err != nil {
		if errors.Is(err, ErrEmailInUse) {
			return nil, 0, ErrEmailInUse
		}
		return nil, 0, fmt.Errorf("failed to create user: %w", err)
	}
	return &u, migrated, nil
}

// GetUser returns the user with the given id, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*datatypes.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var u *datatypes.User
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getUserTxn(txn, id)
		if err != nil {
			return err
		}
		u = found
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail resolves a user through the unique email index, or
// returns ErrNotFound.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*datatypes.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var u *datatypes.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if err != nil {
			return err
		}
		var userID string
		if err := item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		}); err != nil {
			return err
		}

		found, err := getUserTxn(txn, userID)
		if err != nil {
			return err
		}
		u = found
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) || errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// =============================================================================
// Transaction helpers
// =============================================================================

func getUserTxn(txn *badger.Txn, id string) (*datatypes.User, error) {
	var su storedUser
	if err := getJSON(txn, userKey(id), &su); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return su.toUser(), nil
}

func putUserTxn(txn *badger.Txn, u *datatypes.User) error {
	return putJSON(txn, userKey(u.ID), toStored(u))
}

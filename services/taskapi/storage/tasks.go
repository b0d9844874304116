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
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/traskapp/trask/services/taskapi/datatypes"
)

// =============================================================================
// Task CRUD
// =============================================================================

// CreateTask persists a new task and returns it with its generated ID.
//
// The task must already be tagged with exactly one owner (OwnerUserID or
// AnonymousIdentifier); the matching owner index entry is written in the
// same transaction.
func (s *Store) CreateTask(ctx context.Context, task *datatypes.Task) (*datatypes.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !validKeyPart(task.OwnerUserID) || !validKeyPart(task.AnonymousIdentifier) {
		return nil, fmt.Errorf("task owner tag: %w", ErrInvalidIdentifier)
	}

	t := *task
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := putJSON(txn, taskKey(t.ID), &t); err != nil {
			return err
		}
		if key, ok := taskOwnerIndex(&t); ok {
			return txn.Set(key, nil)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &t, nil
}

// GetTask returns the task with the given id, or ErrNotFound.
func (s *Store) GetTask(ctx context.Context, id string) (*datatypes.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var t datatypes.Task
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, taskKey(id), &t)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// ListTasksByUser returns all tasks owned by userID.
func (s *Store) ListTasksByUser(ctx context.Context, userID string) ([]datatypes.Task, error) {
	return s.listByIndex(ctx, []byte("idx:task:user:"+userID+":"))
}

// ListTasksByAnonymousID returns all tasks correlated to an anonymous
// identifier.
func (s *Store) ListTasksByAnonymousID(ctx context.Context, anonymousID string) ([]datatypes.Task, error) {
	if !validKeyPart(anonymousID) {
		return nil, fmt.Errorf("anonymous identifier: %w", ErrInvalidIdentifier)
	}
	return s.listByIndex(ctx, []byte("idx:task:anon:"+anonymousID+":"))
}

// UpdateTask applies a partial update to the task with the given id.
// Fields absent from the patch are preserved. Ownership fields are never
// touched by a patch, so owner index entries stay valid.
func (s *Store) UpdateTask(ctx context.Context, id string, patch datatypes.TaskPatch) (*datatypes.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var t datatypes.Task
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, taskKey(id), &t); err != nil {
			return err
		}
		patch.Apply(&t)
		return putJSON(txn, taskKey(id), &t)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return &t, nil
}

// DeleteTask removes the task and its owner index entry.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var t datatypes.Task
		if err := getJSON(txn, taskKey(id), &t); err != nil {
			return err
		}
		if key, ok := taskOwnerIndex(&t); ok {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return txn.Delete(taskKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// =============================================================================
// Reconciliation bulk update
// =============================================================================

// ClaimAnonymousTasks reassigns every task correlated to anonymousID onto
// userID, and records the identifier on the user document.
//
// # Description
//
// Runs as a single read-write transaction: every task where
// AnonymousIdentifier == anonymousID and OwnerUserID is empty gets
// OwnerUserID = userID, IsAnonymous = false, AnonymousIdentifier cleared,
// and its owner index entry moved from the anon index to the user index.
// Tasks created microseconds apart under the same identifier are migrated
// together or not at all.
//
// The OwnerUserID guard mirrors the write path invariant: a task that
// already belongs to someone is never re-claimed.
//
// # Inputs
//
//   - ctx: Cancellation check before the transaction starts.
//   - anonymousID: The identifier from the caller's cookie. Must be
//     non-empty and must not contain the key separator.
//   - userID: The now-authenticated user. Must exist.
//
// # Outputs
//
//   - int: Number of tasks migrated. Zero when the identifier matches
//     nothing, which is not an error.
//   - error: Non-nil if the user does not exist or the transaction fails.
//     On error nothing is migrated.
func (s *Store) ClaimAnonymousTasks(ctx context.Context, anonymousID, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if anonymousID == "" {
		return 0, fmt.Errorf("anonymous identifier cannot be empty")
	}
	if !validKeyPart(anonymousID) {
		return 0, fmt.Errorf("anonymous identifier: %w", ErrInvalidIdentifier)
	}

	var migrated int
	err := s.db.Update(func(txn *badger.Txn) error {
		u, err := getUserTxn(txn, userID)
		if err != nil {
			return err
		}

		migrated, err = claimTasksTxn(txn, anonymousID, userID)
		if err != nil {
			return err
		}

		// Bookkeeping: remember which identifier this account absorbed.
		u.AnonymousIdentifier = anonymousID
		return putUserTxn(txn, u)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to claim anonymous tasks: %w", err)
	}
	return migrated, nil
}

// claimTasksTxn performs the bulk reassignment inside an open transaction.
// Shared by ClaimAnonymousTasks (login) and CreateUserClaimingTasks
// (registration).
func claimTasksTxn(txn *badger.Txn, anonymousID, userID string) (int, error) {
	prefix := []byte("idx:task:anon:" + anonymousID + ":")

	// Collect matching task IDs first; mutating while iterating the same
	// prefix is fragile.
	var taskIDs []string
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().Key()
		taskIDs = append(taskIDs, string(key[len(prefix):]))
	}
	it.Close()

	migrated := 0
	for _, id := range taskIDs {
		var t datatypes.Task
		if err := getJSON(txn, taskKey(id), &t); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Dangling index entry; drop it instead of failing the
				// whole claim.
				if err := txn.Delete(taskAnonIndexKey(anonymousID, id)); err != nil {
					return 0, err
				}
				continue
			}
			return 0, err
		}
		if t.OwnerUserID != "" {
			// Already owned; should be impossible, checked anyway.
			continue
		}

		t.OwnerUserID = userID
		t.IsAnonymous = false
		t.AnonymousIdentifier = ""

		if err := putJSON(txn, taskKey(id), &t); err != nil {
			return 0, err
		}
		if err := txn.Delete(taskAnonIndexKey(anonymousID, id)); err != nil {
			return 0, err
		}
		if err := txn.Set(taskUserIndexKey(userID, id), nil); err != nil {
			return 0, err
		}
		migrated++
	}
	return migrated, nil
}

// =============================================================================
// Cleanup
// =============================================================================

// DeleteAnonymousTasksBefore removes anonymous tasks created before
// cutoff. Used by the background sweeper; tasks already reconciled to an
// account are never touched.
func (s *Store) DeleteAnonymousTasksBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	prefix := []byte("idx:task:anon:")
	deleted := 0

	err := s.db.Update(func(txn *badger.Txn) error {
		var indexKeys [][]byte
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		for it.Rewind(); it.Valid(); it.Next() {
			indexKeys = append(indexKeys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range indexKeys {
			rest := string(key[len(prefix):])
			sep := strings.LastIndexByte(rest, ':')
			if sep < 0 {
				continue
			}
			taskID := rest[sep+1:]

			var t datatypes.Task
			if err := getJSON(txn, taskKey(taskID), &t); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// Dangling index entry; drop it.
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}
			if t.Owned() || !t.CreatedAt.Before(cutoff) {
				continue
			}

			if err := txn.Delete(taskKey(taskID)); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale anonymous tasks: %w", err)
	}
	return deleted, nil
}

// =============================================================================
// Helpers
// =============================================================================

// listByIndex loads the task documents named by an owner index prefix.
func (s *Store) listByIndex(ctx context.Context, prefix []byte) ([]datatypes.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tasks := []datatypes.Task{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			taskID := string(key[len(prefix):])

			var t datatypes.Task
			if err := getJSON(txn, taskKey(taskID), &t); err != nil {
				return err
			}
			tasks = append(tasks, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// taskOwnerIndex returns the owner index key for a task, if it has an
// owner tag.
func taskOwnerIndex(t *datatypes.Task) ([]byte, bool) {
	if t.OwnerUserID != "" {
		return taskUserIndexKey(t.OwnerUserID, t.ID), true
	}
	if t.AnonymousIdentifier != "" {
		return taskAnonIndexKey(t.AnonymousIdentifier, t.ID), true
	}
	return nil, false
}

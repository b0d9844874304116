// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage persists tasks and users as JSON documents in BadgerDB.
//
// BadgerDB gives the service an embedded document store with low-latency
// access and serializable read-write transactions. The transactional model
// matters here: the ownership reconciliation is a set-based bulk update
// that must be atomic with respect to concurrent task writes, and a single
// Badger transaction provides exactly that.
//
// # Key Layout
//
//	tasks:<taskID>                    task document (JSON)
//	users:<userID>                    user document (JSON)
//	users:email:<email>               unique email index -> userID
//	idx:task:user:<userID>:<taskID>   owner index for authenticated tasks
//	idx:task:anon:<anonID>:<taskID>   owner index for anonymous tasks
//
// Every task carries exactly one owner index entry; the reconciler moves
// entries from the anon index to the user index inside the same
// transaction that rewrites the documents.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// =============================================================================
// Errors
// =============================================================================

// ErrNotFound is returned when a task or user id does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailInUse is returned when creating a user with a taken email.
var ErrEmailInUse = errors.New("email already in use")

// ErrInvalidIdentifier is returned when an owner identifier cannot be
// embedded in a composite index key.
var ErrInvalidIdentifier = errors.New("invalid owner identifier")

// =============================================================================
// Configuration
// =============================================================================

// Config holds configuration for the document store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output.
	// If nil, BadgerDB logging is disabled.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Default: 5 minutes. Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	// Default: 0.5.
	GCDiscardRatio float64
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration optimized for testing: in-memory
// mode, no sync writes, GC disabled.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
		GCInterval: 0,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// =============================================================================
// Store
// =============================================================================

// Store is the document store for tasks and users.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions provide isolation;
// no additional locking is held across requests.
type Store struct {
	db     *badger.DB
	gcStop chan struct{}
}

// Open creates and opens a Store with the given configuration.
//
// # Description
//
// Opens a BadgerDB database at the configured path, or in memory if
// InMemory is true. Creates the directory if it doesn't exist and starts
// the value-log GC loop when GCInterval is non-zero.
//
// # Inputs
//
//   - cfg: Store configuration. Path is required unless InMemory is true.
//
// # Outputs
//
//   - *Store: The opened store. Caller must call Close() when done.
//   - error: Non-nil if the path is invalid or the database cannot open.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("storage path is required for persistent mode")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	s := &Store{db: db}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gcStop = make(chan struct{})
		go s.gcLoop(cfg.GCInterval, cfg.GCDiscardRatio, s.gcStop)
	}

	return s, nil
}

// Close stops background GC and closes the database.
func (s *Store) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		s.gcStop = nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}

// gcLoop runs value log garbage collection until Close.
func (s *Store) gcLoop(interval time.Duration, discardRatio float64, stop <-chan struct{}) {
	if discardRatio <= 0 {
		discardRatio = 0.5
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// RunValueLogGC reclaims at most one log file per call;
			// loop until there is nothing left to reclaim.
			for {
				if err := s.db.RunValueLogGC(discardRatio); err != nil {
					break
				}
			}
		case <-stop:
			return
		}
	}
}

// =============================================================================
// Keys and JSON helpers
// =============================================================================

func taskKey(id string) []byte {
	return []byte("tasks:" + id)
}

func userKey(id string) []byte {
	return []byte("users:" + id)
}

func userEmailKey(email string) []byte {
	return []byte("users:email:" + email)
}

func taskUserIndexKey(userID, taskID string) []byte {
	return []byte("idx:task:user:" + userID + ":" + taskID)
}

func taskAnonIndexKey(anonymousID, taskID string) []byte {
	return []byte("idx:task:anon:" + anonymousID + ":" + taskID)
}

// validKeyPart reports whether s can be embedded in a composite index
// key. An identifier containing the separator would place its entries
// inside another identifier's prefix scan.
func validKeyPart(s string) bool {
	return !strings.Contains(s, ":")
}

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return txn.Set(key, data)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the wire and storage types shared across the
// task API service: tasks, users, and the request identity model.
//
// All types marshal to JSON for both the HTTP surface and the document
// store, so field tags here define the persisted layout as well as the
// API responses.
package datatypes

import (
	"fmt"
	"time"
)

// =============================================================================
// Enumerations
// =============================================================================

// TaskStatus is the workflow column a task sits in.
type TaskStatus string

const (
	StatusToDo        TaskStatus = "To-Do"
	StatusInProgress  TaskStatus = "In-Progress"
	StatusNeedsReview TaskStatus = "Needs-Review"
	StatusCompleted   TaskStatus = "Completed"
)

// TaskPriority is the urgency level of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

// Valid reports whether s is one of the known workflow statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusNeedsReview, StatusCompleted:
		return true
	}
	return false
}

// Valid reports whether p is one of the known priority levels.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// =============================================================================
// Task
// =============================================================================

// Task is a single board item.
//
// # Ownership Invariant
//
// After creation exactly one of OwnerUserID and AnonymousIdentifier is
// non-empty. Anonymous tasks carry IsAnonymous=true and an identifier that
// correlates them to a cookie-holding caller; the ownership reconciler flips
// an anonymous task to owned exactly once, at login or registration, and
// the transition is never reverted.
type Task struct {
	// ID is store-generated and immutable.
	ID string `json:"id"`

	// Title is required and non-empty.
	Title string `json:"title"`

	Status   TaskStatus   `json:"status"`
	Priority TaskPriority `json:"priority"`

	// DueDate defaults to tomorrow at creation time.
	DueDate time.Time `json:"dueDate"`

	// OwnerUserID references the owning user. Empty while anonymous.
	OwnerUserID string `json:"ownerUserId,omitempty"`

	// IsAnonymous is true until the task is reconciled to an account.
	IsAnonymous bool `json:"isAnonymous"`

	// AnonymousIdentifier correlates the task to a not-yet-authenticated
	// caller. Empty once reconciled.
	AnonymousIdentifier string `json:"anonymousIdentifier,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// ApplyDefaults fills zero-valued fields with their creation-time defaults.
func (t *Task) ApplyDefaults(now time.Time) {
	if t.Status == "" {
		t.Status = StatusToDo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.DueDate.IsZero() {
		t.DueDate = now.AddDate(0, 0, 1)
	}
}

// Validate checks the task's field values. It does not check ownership
// tagging; that happens at creation after identity resolution.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid task status: %q", t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid task priority: %q", t.Priority)
	}
	return nil
}

// Owned reports whether the task has been reconciled to (or created by)
// an authenticated user.
func (t *Task) Owned() bool {
	return t.OwnerUserID != ""
}

// =============================================================================
// TaskPatch
// =============================================================================

// TaskPatch is a partial task update. Nil fields are left untouched by
// the store, so a round-trip through update preserves anything the caller
// did not send.
type TaskPatch struct {
	Title    *string       `json:"title,omitempty"`
	Status   *TaskStatus   `json:"status,omitempty"`
	Priority *TaskPriority `json:"priority,omitempty"`
	DueDate  *time.Time    `json:"dueDate,omitempty"`
}

// Validate checks the fields that are present.
func (p *TaskPatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("invalid task status: %q", *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("invalid task priority: %q", *p.Priority)
	}
	return nil
}

// Apply copies the present fields onto t.
func (p *TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
}

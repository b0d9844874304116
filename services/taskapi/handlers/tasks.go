// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/traskapp/trask/services/taskapi/datatypes"
	"github.com/traskapp/trask/services/taskapi/gate"
	"github.com/traskapp/trask/services/taskapi/identity"
	"github.com/traskapp/trask/services/taskapi/middleware"
	"github.com/traskapp/trask/services/taskapi/observability"
	"github.com/traskapp/trask/services/taskapi/storage"
)

type createTaskRequest struct {
	Title    string                 `json:"title" binding:"required"`
	Status   datatypes.TaskStatus   `json:"status"`
	Priority datatypes.TaskPriority `json:"priority"`
	DueDate  *time.Time             `json:"dueDate"`
}

// CreateTask creates a task for either an authenticated or an anonymous
// caller. Callers with no identity at all get a fresh anonymous identifier
// minted and set as a cookie alongside the response.
func CreateTask(store *storage.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Task title is required"})
			return
		}

		task := &datatypes.Task{
			Title:    req.Title,
			Status:   req.Status,
			Priority: req.Priority,
		}
		if req.DueDate != nil {
			task.DueDate = *req.DueDate
		}
		task.ApplyDefaults(time.Now())
		if err := task.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id := middleware.GetIdentity(c)
		identityLabel := "anonymous"
		switch {
		case id.IsAuthenticated():
			task.OwnerUserID = id.UserID
			identityLabel = "authenticated"
		case id.IsAnonymous():
			task.IsAnonymous = true
			task.AnonymousIdentifier = id.AnonymousID
		default:
			// First contact: mint an identifier and instruct the caller
			// to keep it for a month.
			minted := identity.NewIdentifier()
			identity.SetAnonymousCookie(c, minted)
			task.IsAnonymous = true
			task.AnonymousIdentifier = minted
		}

		created, err := store.CreateTask(c.Request.Context(), task)
		if err != nil {
			slog.Error("failed to create task", "error", err, "identity", identityLabel)
			if id.IsAuthenticated() {
				c.JSON(http.StatusInternalServerError,
					gin.H{"error": "Error creating task for authenticated user"})
			} else {
				c.JSON(http.StatusInternalServerError,
					gin.H{"error": "Error creating task for anonymous user"})
			}
			return
		}

		if metrics != nil {
			metrics.TasksCreatedTotal.WithLabelValues(identityLabel).Inc()
		}
		c.JSON(http.StatusCreated, created)
	}
}

// GetAllTasks lists the caller's tasks, scoped to their identity. A caller
// with no resolvable identity has nothing to list against.
func GetAllTasks(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := middleware.GetIdentity(c)
		if err := gate.AuthorizeList(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User identification missing"})
			return
		}

		var tasks []datatypes.Task
		var err error
		if id.IsAuthenticated() {
			tasks, err = store.ListTasksByUser(c.Request.Context(), id.UserID)
		} else {
			tasks, err = store.ListTasksByAnonymousID(c.Request.Context(), id.AnonymousID)
		}
		if err != nil {
			slog.Error("failed to list tasks", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching tasks"})
			return
		}

		c.JSON(http.StatusOK, tasks)
	}
}

// GetTaskByID fetches a single task by id.
func GetTaskByID(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := store.GetTask(c.Request.Context(), c.Param("taskId"))
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		if err != nil {
			slog.Error("failed to fetch task", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching task"})
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

// UpdateTask applies a partial update to a task the caller owns.
func UpdateTask(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("taskId")

		var patch datatypes.TaskPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := patch.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task, err := store.GetTask(c.Request.Context(), taskID)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		if err != nil {
			slog.Error("failed to fetch task for update", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating task"})
			return
		}

		// Ownership is checked against a snapshot. A reconciliation
		// committing between this check and the write can only change the
		// owner fields, which a patch never carries.
		if err := gate.AuthorizeMutation(middleware.GetIdentity(c), task); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		updated, err := store.UpdateTask(c.Request.Context(), taskID, patch)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		if err != nil {
			slog.Error("failed to update task", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating task"})
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

// DeleteTask deletes a task the caller owns.
func DeleteTask(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("taskId")

		task, err := store.GetTask(c.Request.Context(), taskID)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		if err != nil {
			slog.Error("failed to fetch task for delete", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting task"})
			return
		}

		// Same snapshot window as UpdateTask; deletion re-reads the task
		// inside its own transaction, so the index entry removed always
		// matches the state deleted.
		if err := gate.AuthorizeMutation(middleware.GetIdentity(c), task); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		if err := store.DeleteTask(c.Request.Context(), taskID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
				return
			}
			slog.Error("failed to delete task", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting task"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

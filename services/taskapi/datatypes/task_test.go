// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	task := Task{Title: "bare"}
	task.ApplyDefaults(now)

	assert.Equal(t, StatusToDo, task.Status)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, now.AddDate(0, 0, 1), task.DueDate, "due date defaults to one day out")
}

func TestApplyDefaults_DoesNotOverrideExplicitValues(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, 14)

	task := Task{
		Title:    "explicit",
		Status:   StatusNeedsReview,
		Priority: PriorityHigh,
		DueDate:  due,
	}
	task.ApplyDefaults(now)

	assert.Equal(t, StatusNeedsReview, task.Status)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, due, task.DueDate)
}

func TestStatusAndPriority_Valid(t *testing.T) {
	for _, s := range []TaskStatus{StatusToDo, StatusInProgress, StatusNeedsReview, StatusCompleted} {
		assert.True(t, s.Valid(), "status %q", s)
	}
	assert.False(t, TaskStatus("Done").Valid())
	assert.False(t, TaskStatus("").Valid())

	for _, p := range []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh} {
		assert.True(t, p.Valid(), "priority %q", p)
	}
	assert.False(t, TaskPriority("Urgent").Valid())
}

func TestTaskValidate(t *testing.T) {
	valid := Task{Title: "ok"}
	valid.ApplyDefaults(time.Now())
	assert.NoError(t, valid.Validate())

	missingTitle := valid
	missingTitle.Title = ""
	assert.Error(t, missingTitle.Validate())

	badStatus := valid
	badStatus.Status = "Done"
	assert.Error(t, badStatus.Validate())

	badPriority := valid
	badPriority.Priority = "Urgent"
	assert.Error(t, badPriority.Validate())
}

func TestTaskOwned(t *testing.T) {
	assert.True(t, (&Task{OwnerUserID: "u-1"}).Owned())
	assert.False(t, (&Task{AnonymousIdentifier: "anon-1", IsAnonymous: true}).Owned())
	assert.False(t, (&Task{}).Owned())
}

func TestTaskPatch_ApplyIsPartial(t *testing.T) {
	task := Task{Title: "before"}
	task.ApplyDefaults(time.Now())
	originalDue := task.DueDate

	status := StatusCompleted
	patch := TaskPatch{Status: &status}
	assert.NoError(t, patch.Validate())
	patch.Apply(&task)

	assert.Equal(t, "before", task.Title)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, originalDue, task.DueDate)
}

func TestTaskPatch_ValidateRejectsBadValues(t *testing.T) {
	badStatus := TaskStatus("Done")
	assert.Error(t, (&TaskPatch{Status: &badStatus}).Validate())

	badPriority := TaskPriority("Urgent")
	assert.Error(t, (&TaskPatch{Priority: &badPriority}).Validate())

	empty := ""
	assert.Error(t, (&TaskPatch{Title: &empty}).Validate())
}

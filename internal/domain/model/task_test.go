package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalDistinguishesAbsentFromNull(t *testing.T) {
	var body struct {
		AssignedTo Optional[string] `json:"assignedTo"`
		DueDate    Optional[string] `json:"dueDate"`
		Title      Optional[string] `json:"title"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"assignedTo": null, "dueDate": "2025-01-02"}`), &body))

	assert.True(t, body.AssignedTo.Set)
	assert.Nil(t, body.AssignedTo.Value)
	require.True(t, body.DueDate.Set)
	assert.Equal(t, "2025-01-02", *body.DueDate.Value)
	assert.False(t, body.Title.Set)
}

func TestTaskPatchApply(t *testing.T) {
	assignee := "user-b"
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{ID: "t1", Title: "Write report", Priority: PriorityHigh, Status: StatusPending, OwnerID: "user-a", AssigneeID: &assignee, DueDate: &due}

	status := StatusInProgress
	TaskPatch{Status: &status, DueDate: Null[time.Time]()}.Apply(task)

	assert.Equal(t, StatusInProgress, task.Status)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, "Write report", task.Title)
	assert.True(t, task.IsAssignedTo("user-b"))
	assert.True(t, task.IsOwnedBy("user-a"))

	TaskPatch{AssigneeID: Null[string]()}.Apply(task)
	assert.False(t, task.IsAssignedTo("user-b"))
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, PriorityLow.Valid())
	assert.False(t, TaskPriority("urgent").Valid())
	assert.True(t, StatusInProgress.Valid())
	assert.False(t, TaskStatus("done").Valid())
	assert.True(t, TaskPatch{}.IsEmpty())
	assert.False(t, TaskPatch{AssigneeID: Some("x")}.IsEmpty())
}

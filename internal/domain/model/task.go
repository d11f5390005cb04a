package model

import (
	"encoding/json"
	"time"
)

type TaskPriority string
type TaskStatus string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"

	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Task struct {
	ID          string       `json:"id" bson:"_id"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description" bson:"description"`
	Priority    TaskPriority `json:"priority" bson:"priority"`
	Status      TaskStatus   `json:"status" bson:"status"`
	DueDate     *time.Time   `json:"dueDate" bson:"dueDate"`
	OwnerID     string       `json:"-" bson:"user"`
	AssigneeID  *string      `json:"-" bson:"assignedTo"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`

	// Expanded for responses, never stored.
	Owner    *UserSummary `json:"owner" bson:"-"`
	Assignee *UserSummary `json:"assignedTo" bson:"-"`
}

func (t *Task) IsOwnedBy(userID string) bool {
	return t.OwnerID == userID
}

func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// Optional distinguishes an absent JSON key from an explicit null.
// Set reports whether the key was present; a nil Value with Set means "clear".
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

func Null[T any]() Optional[T] { return Optional[T]{Set: true} }

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// TaskPatch is a partial update: only non-nil / Set fields are written.
// It has no owner field; ownership never changes after creation.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *TaskPriority
	Status      *TaskStatus
	DueDate     Optional[time.Time]
	AssigneeID  Optional[string]
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Status == nil && !p.DueDate.Set && !p.AssigneeID.Set
}

// Apply writes the patch onto t in memory, mirroring what the stores do.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Value
	}
	if p.AssigneeID.Set {
		t.AssigneeID = p.AssigneeID.Value
	}
}

type TaskOrder int

const (
	NewestCreatedFirst TaskOrder = iota
	NewestUpdatedFirst
)

// TaskFilter selects tasks for listing. An empty ParticipantID means all tasks.
type TaskFilter struct {
	ParticipantID string
	Status        TaskStatus
	OrderBy       TaskOrder
	Limit         int
}

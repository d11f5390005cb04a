package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"taskini/internal/common"
	"taskini/internal/domain/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCreateTaskDefaults(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newFixture(alice)
	ctx := context.Background()

	task, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "  X  "})
	require.NoError(t, err)
	assert.Equal(t, "X", task.Title)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Nil(t, task.DueDate)
	require.NotNil(t, task.Owner)
	assert.Equal(t, alice.ID, task.Owner.ID)
	assert.Nil(t, task.Assignee)

	got, err := f.taskSvc.Get(ctx, callerOf(alice), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, alice.ID, got.OwnerID)
}

func TestCreateTaskValidation(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newFixture(alice)

	cases := map[string]CreateTaskRequest{
		"empty title":      {Title: ""},
		"blank title":      {Title: "   "},
		"bad priority":     {Title: "X", Priority: "urgent"},
		"bad status":       {Title: "X", Status: "done"},
		"bad due date":     {Title: "X", DueDate: strPtr("next week")},
		"unknown assignee": {Title: "X", AssignedTo: strPtr(uuid.NewString())},
		"garbage assignee": {Title: "X", AssignedTo: strPtr("nope")},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.taskSvc.Create(context.Background(), callerOf(alice), req)
			assert.True(t, errors.Is(err, common.ErrValidation), "got %v", err)
		})
	}
	assert.Equal(t, 0, f.tasks.Calls("Create"))
}

func TestCreateTaskWithDueDateAndAssignee(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	bob := newUser(t, "bob", model.RoleMember)
	f := newFixture(alice, bob)

	task, err := f.taskSvc.Create(context.Background(), callerOf(alice), CreateTaskRequest{
		Title:      "Ship",
		Priority:   "high",
		DueDate:    strPtr("2026-03-01"),
		AssignedTo: strPtr(bob.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *task.DueDate)
	require.NotNil(t, task.Assignee)
	assert.Equal(t, bob.ID, task.Assignee.ID)
	assert.Equal(t, bob.Email, task.Assignee.Email)
}

func TestGetTaskVisibility(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	bob := newUser(t, "bob", model.RoleMember)
	eve := newUser(t, "eve", model.RoleMember)
	admin := newUser(t, "root", model.RoleAdmin)
	f := newFixture(alice, bob, eve, admin)
	ctx := context.Background()

	task, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "T", AssignedTo: strPtr(bob.ID)})
	require.NoError(t, err)

	for _, u := range []model.User{alice, bob, admin} {
		_, err := f.taskSvc.Get(ctx, callerOf(u), task.ID)
		assert.NoError(t, err, u.Name)
	}

	_, err = f.taskSvc.Get(ctx, callerOf(eve), task.ID)
	assert.True(t, errors.Is(err, common.ErrForbidden))
	assert.Equal(t, "Not authorized to access this task", common.PublicMessage(err))

	_, err = f.taskSvc.Get(ctx, callerOf(alice), uuid.NewString())
	assert.True(t, errors.Is(err, common.ErrNotFound))

	before := f.tasks.Calls("FindByID")
	_, err = f.taskSvc.Get(ctx, callerOf(alice), "not-an-id")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, before, f.tasks.Calls("FindByID"), "malformed id never reaches the store")
}

func TestAssigneeMayUpdateButNotDelete(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	bob := newUser(t, "bob", model.RoleMember)
	f := newFixture(alice, bob)
	ctx := context.Background()

	task, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "T", AssignedTo: strPtr(bob.ID)})
	require.NoError(t, err)

	err = f.taskSvc.Delete(ctx, callerOf(bob), task.ID)
	assert.True(t, errors.Is(err, common.ErrForbidden))

	updated, err := f.taskSvc.Update(ctx, callerOf(bob), task.ID, UpdateTaskRequest{Status: strPtr("in-progress")})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)

	_, stillThere := f.tasks.Get(task.ID)
	assert.True(t, stillThere)
}

func TestDeniedAccessLogsReason(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	alice := newUser(t, "alice", model.RoleMember)
	bob := newUser(t, "bob", model.RoleMember)
	carol := newUser(t, "carol", model.RoleMember)
	f := newFixture(alice, bob, carol)
	ctx := context.Background()

	task, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "T", AssignedTo: strPtr(bob.ID)})
	require.NoError(t, err)

	err = f.taskSvc.Delete(ctx, callerOf(bob), task.ID)
	require.Error(t, err)
	assert.Equal(t, "Not authorized to delete this task", err.Error())
	assert.Contains(t, buf.String(), "Denied delete of task "+task.ID+" to user "+bob.ID+": assignee-cannot-delete")

	_, err = f.taskSvc.Get(ctx, callerOf(carol), task.ID)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "Denied read of task "+task.ID+" to user "+carol.ID+": not-participant")
}

func TestListTasksScope(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	bob := newUser(t, "bob", model.RoleMember)
	carol := newUser(t, "carol", model.RoleMember)
	admin := newUser(t, "root", model.RoleAdmin)
	f := newFixture(alice, bob, carol, admin)
	ctx := context.Background()

	_, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "a1"})
	require.NoError(t, err)
	_, err = f.taskSvc.Create(ctx, callerOf(bob), CreateTaskRequest{Title: "b1", AssignedTo: strPtr(alice.ID)})
	require.NoError(t, err)
	_, err = f.taskSvc.Create(ctx, callerOf(carol), CreateTaskRequest{Title: "c1"})
	require.NoError(t, err)

	all, err := f.taskSvc.List(ctx, callerOf(admin))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := f.taskSvc.List(ctx, callerOf(alice))
	require.NoError(t, err)
	titles := []string{}
	for _, task := range mine {
		titles = append(titles, task.Title)
		assert.NotNil(t, task.Owner)
	}
	assert.ElementsMatch(t, []string{"a1", "b1"}, titles)

	none, err := f.taskSvc.List(ctx, model.Caller{ID: uuid.NewString(), Role: model.RoleMember})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUpdateTaskPartialAndIdempotent(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newFixture(alice)
	ctx := context.Background()

	task, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "T", Description: "keep me", DueDate: strPtr("2026-01-02T15:04:05Z")})
	require.NoError(t, err)

	req := UpdateTaskRequest{Status: strPtr("completed")}
	first, err := f.taskSvc.Update(ctx, callerOf(alice), task.ID, req)
	require.NoError(t, err)
	second, err := f.taskSvc.Update(ctx, callerOf(alice), task.ID, req)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, second.Status)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, "keep me", second.Description)
	assert.Equal(t, "T", second.Title)
	require.NotNil(t, second.DueDate)
	assert.Equal(t, alice.ID, second.OwnerID)
}

func TestUpdateTaskFromJSONClearsNullFields(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	bob := newUser(t, "bob", model.RoleMember)
	f := newFixture(alice, bob)
	ctx := context.Background()

	task, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "T", DueDate: strPtr("2026-01-02"), AssignedTo: strPtr(bob.ID)})
	require.NoError(t, err)

	var req UpdateTaskRequest
	body := `{"dueDate": null, "assignedTo": null, "user": "` + bob.ID + `", "color": "red"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	updated, err := f.taskSvc.Update(ctx, callerOf(alice), task.ID, req)
	require.NoError(t, err)
	assert.Nil(t, updated.DueDate)
	assert.Nil(t, updated.AssigneeID)
	assert.Nil(t, updated.Assignee)
	assert.Equal(t, alice.ID, updated.OwnerID, "owner is never reassigned")
}

func TestUpdateTaskValidation(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newFixture(alice)
	ctx := context.Background()
	task, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "T"})
	require.NoError(t, err)

	cases := map[string]UpdateTaskRequest{
		"blank title":      {Title: strPtr(" ")},
		"bad status":       {Status: strPtr("archived")},
		"bad priority":     {Priority: strPtr("p0")},
		"unknown assignee": {AssignedTo: model.Some(uuid.NewString())},
		"bad due date":     {DueDate: model.Some("31/12/2026")},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.taskSvc.Update(ctx, callerOf(alice), task.ID, req)
			assert.True(t, errors.Is(err, common.ErrValidation), "got %v", err)
		})
	}
	assert.Equal(t, 0, f.tasks.Calls("Update"))
}

func TestUpdateAndDeleteMissingTask(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newFixture(alice)
	ctx := context.Background()

	_, err := f.taskSvc.Update(ctx, callerOf(alice), uuid.NewString(), UpdateTaskRequest{Title: strPtr("x")})
	assert.True(t, errors.Is(err, common.ErrNotFound))
	err = f.taskSvc.Delete(ctx, callerOf(alice), "123")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestAdminMayDeleteAnyTask(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	admin := newUser(t, "root", model.RoleAdmin)
	f := newFixture(alice, admin)
	ctx := context.Background()

	task, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "T"})
	require.NoError(t, err)
	require.NoError(t, f.taskSvc.Delete(ctx, callerOf(admin), task.ID))
	_, err = f.taskSvc.Get(ctx, callerOf(alice), task.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestTaskLifecycleAcrossUsers(t *testing.T) {
	a := newUser(t, "a", model.RoleMember)
	b := newUser(t, "b", model.RoleMember)
	admin := newUser(t, "root", model.RoleAdmin)
	f := newFixture(a, b, admin)
	ctx := context.Background()

	task, err := f.taskSvc.Create(ctx, callerOf(a), CreateTaskRequest{Title: "Write report", Priority: "high"})
	require.NoError(t, err)

	_, err = f.taskSvc.Update(ctx, callerOf(a), task.ID, UpdateTaskRequest{AssignedTo: model.Some(b.ID)})
	require.NoError(t, err)

	_, err = f.taskSvc.Update(ctx, callerOf(b), task.ID, UpdateTaskRequest{Status: strPtr("in-progress")})
	require.NoError(t, err)

	seen, err := f.taskSvc.Get(ctx, callerOf(a), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, seen.Status)
	assert.Equal(t, model.PriorityHigh, seen.Priority)
	require.NotNil(t, seen.Assignee)
	assert.Equal(t, b.ID, seen.Assignee.ID)

	require.NoError(t, f.taskSvc.Delete(ctx, callerOf(a), task.ID))
	for _, u := range []model.User{a, b, admin} {
		_, err := f.taskSvc.Get(ctx, callerOf(u), task.ID)
		assert.True(t, errors.Is(err, common.ErrNotFound), u.Name)
	}
}

func TestListCompletedTasks(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	bob := newUser(t, "bob", model.RoleAdmin)
	f := newFixture(alice, bob)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	f.tasks.Clock = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for i := 0; i < CompletedHistoryLimit+5; i++ {
		task, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "done"})
		require.NoError(t, err)
		_, err = f.taskSvc.Update(ctx, callerOf(alice), task.ID, UpdateTaskRequest{Status: strPtr("completed")})
		require.NoError(t, err)
	}
	_, err := f.taskSvc.Create(ctx, callerOf(alice), CreateTaskRequest{Title: "open"})
	require.NoError(t, err)
	_, err = f.taskSvc.Create(ctx, callerOf(bob), CreateTaskRequest{Title: "bob's", Status: "completed"})
	require.NoError(t, err)

	history, err := f.taskSvc.ListCompleted(ctx, callerOf(alice))
	require.NoError(t, err)
	assert.Len(t, history, CompletedHistoryLimit)
	for i, task := range history {
		assert.Equal(t, model.StatusCompleted, task.Status)
		assert.Equal(t, alice.ID, task.OwnerID)
		if i > 0 {
			assert.False(t, task.UpdatedAt.After(history[i-1].UpdatedAt), "newest updated first")
		}
	}

	// Admins only see their own history here.
	adminHistory, err := f.taskSvc.ListCompleted(ctx, callerOf(bob))
	require.NoError(t, err)
	assert.Len(t, adminHistory, 1)
}

func TestParseDueDate(t *testing.T) {
	due, err := parseDueDate("")
	require.NoError(t, err)
	assert.Nil(t, due)

	due, err = parseDueDate("2026-05-06T07:08:09+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 6, 5, 8, 9, 0, time.UTC), *due)

	_, err = parseDueDate("tomorrow")
	assert.True(t, errors.Is(err, common.ErrValidation))
}

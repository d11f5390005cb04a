package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"taskini/internal/common"
	"taskini/internal/domain/model"
	"taskini/internal/domain/policy"
	"taskini/internal/domain/repository"

	"github.com/google/uuid"
)

type TaskService struct {
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	directory *UserDirectory
}

func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, directory *UserDirectory) *TaskService {
	return &TaskService{taskRepo: taskRepo, userRepo: userRepo, directory: directory}
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	DueDate     *string `json:"dueDate"`
	AssignedTo  *string `json:"assignedTo"`
}

// UpdateTaskRequest only touches keys present in the body; null clears
// dueDate and assignedTo. Any owner field in the body is ignored.
type UpdateTaskRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *string                `json:"priority"`
	Status      *string                `json:"status"`
	DueDate     model.Optional[string] `json:"dueDate"`
	AssignedTo  model.Optional[string] `json:"assignedTo"`
}

var errTaskNotFound = common.NewError(common.ErrNotFound, "Task not found")

func forbidden(op policy.Operation) error {
	switch op {
	case policy.OpUpdate:
		return common.NewError(common.ErrForbidden, "Not authorized to update this task")
	case policy.OpDelete:
		return common.NewError(common.ErrForbidden, "Not authorized to delete this task")
	}
	return common.NewError(common.ErrForbidden, "Not authorized to access this task")
}

// load resolves an existing task and runs the gate on it.
func (s *TaskService) load(ctx context.Context, caller model.Caller, id string, op policy.Operation) (*model.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errTaskNotFound
	}
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task %s: %w", id, err)
	}
	if d := policy.CanAccess(caller, task, op); !d.Allowed {
		log.Printf("INFO: Denied %s of task %s to user %s: %s", op, id, caller.ID, d.Reason)
		return nil, forbidden(op)
	}
	return task, nil
}

func (s *TaskService) expand(ctx context.Context, tasks ...*model.Task) error {
	if err := s.directory.Expand(ctx, tasks...); err != nil {
		return fmt.Errorf("failed to expand tasks: %w", err)
	}
	return nil
}

func (s *TaskService) expandList(ctx context.Context, tasks []model.Task) ([]model.Task, error) {
	if tasks == nil {
		return []model.Task{}, nil
	}
	ptrs := make([]*model.Task, len(tasks))
	for i := range tasks {
		ptrs[i] = &tasks[i]
	}
	if err := s.expand(ctx, ptrs...); err != nil {
		return nil, err
	}
	return tasks, nil
}

// List returns the caller's visible tasks, newest created first.
func (s *TaskService) List(ctx context.Context, caller model.Caller) ([]model.Task, error) {
	filter := policy.ListScope(caller).Filter()
	filter.OrderBy = model.NewestCreatedFirst
	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return s.expandList(ctx, tasks)
}

// ListCompleted returns up to 50 completed tasks the caller owns or is
// assigned, most recently updated first. Admins get only their own history.
func (s *TaskService) ListCompleted(ctx context.Context, caller model.Caller) ([]model.Task, error) {
	tasks, err := s.taskRepo.List(ctx, model.TaskFilter{
		ParticipantID: caller.ID,
		Status:        model.StatusCompleted,
		OrderBy:       model.NewestUpdatedFirst,
		Limit:         CompletedHistoryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tasks: %w", err)
	}
	return s.expandList(ctx, tasks)
}

// CompletedHistoryLimit caps the profile's completed-task history.
const CompletedHistoryLimit = 50

func (s *TaskService) Get(ctx context.Context, caller model.Caller, id string) (*model.Task, error) {
	task, err := s.load(ctx, caller, id, policy.OpRead)
	if err != nil {
		return nil, err
	}
	if err := s.expand(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, caller model.Caller, req CreateTaskRequest) (*model.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, common.NewError(common.ErrValidation, "Please provide a task title")
	}
	priority := model.PriorityMedium
	if req.Priority != "" {
		priority = model.TaskPriority(req.Priority)
		if !priority.Valid() {
			return nil, common.NewError(common.ErrValidation, "Invalid priority %q", req.Priority)
		}
	}
	status := model.StatusPending
	if req.Status != "" {
		status = model.TaskStatus(req.Status)
		if !status.Valid() {
			return nil, common.NewError(common.ErrValidation, "Invalid status %q", req.Status)
		}
	}

	now := time.Now().UTC()
	task := &model.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: req.Description,
		Priority:    priority,
		Status:      status,
		OwnerID:     caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = due
	}
	if req.AssignedTo != nil && *req.AssignedTo != "" {
		if err := s.checkAssignee(ctx, *req.AssignedTo); err != nil {
			return nil, err
		}
		assignee := *req.AssignedTo
		task.AssigneeID = &assignee
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	if err := s.expand(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, caller model.Caller, id string, req UpdateTaskRequest) (*model.Task, error) {
	task, err := s.load(ctx, caller, id, policy.OpUpdate)
	if err != nil {
		return nil, err
	}
	patch, err := s.buildPatch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !patch.IsEmpty() {
		task, err = s.taskRepo.Update(ctx, id, patch)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, errTaskNotFound
			}
			return nil, fmt.Errorf("failed to update task %s: %w", id, err)
		}
	}
	if err := s.expand(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) buildPatch(ctx context.Context, req UpdateTaskRequest) (model.TaskPatch, error) {
	var patch model.TaskPatch
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return patch, common.NewError(common.ErrValidation, "Please provide a task title")
		}
		patch.Title = &title
	}
	patch.Description = req.Description
	if req.Priority != nil {
		p := model.TaskPriority(*req.Priority)
		if !p.Valid() {
			return patch, common.NewError(common.ErrValidation, "Invalid priority %q", *req.Priority)
		}
		patch.Priority = &p
	}
	if req.Status != nil {
		st := model.TaskStatus(*req.Status)
		if !st.Valid() {
			return patch, common.NewError(common.ErrValidation, "Invalid status %q", *req.Status)
		}
		patch.Status = &st
	}
	if req.DueDate.Set {
		patch.DueDate = model.Null[time.Time]()
		if req.DueDate.Value != nil {
			due, err := parseDueDate(*req.DueDate.Value)
			if err != nil {
				return patch, err
			}
			if due != nil {
				patch.DueDate = model.Some(*due)
			}
		}
	}
	if req.AssignedTo.Set {
		patch.AssigneeID = model.Null[string]()
		if v := req.AssignedTo.Value; v != nil && *v != "" {
			if err := s.checkAssignee(ctx, *v); err != nil {
				return patch, err
			}
			patch.AssigneeID = model.Some(*v)
		}
	}
	return patch, nil
}

func (s *TaskService) Delete(ctx context.Context, caller model.Caller, id string) error {
	if _, err := s.load(ctx, caller, id, policy.OpDelete); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return errTaskNotFound
		}
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

func (s *TaskService) checkAssignee(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.NewError(common.ErrValidation, "Assigned user does not exist")
	}
	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewError(common.ErrValidation, "Assigned user does not exist")
		}
		return fmt.Errorf("failed to look up assignee %s: %w", id, err)
	}
	return nil
}

var dueDateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// parseDueDate accepts an RFC 3339 timestamp or a bare date. An empty
// string means no due date.
func parseDueDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, common.NewError(common.ErrValidation, "Invalid due date %q", v)
}

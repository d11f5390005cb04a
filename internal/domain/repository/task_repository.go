package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskini/internal/common"
	"taskini/internal/domain/model"
)

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id string) (*model.Task, error)
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	// Update applies patch to a single task and returns the stored result.
	Update(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, id string) error
	// CountByStatus returns the number of tasks per status. Statuses with no
	// tasks are absent.
	CountByStatus(ctx context.Context) (map[model.TaskStatus]int64, error)
}

const taskColumns = `id, title, description, priority, status, due_date, owner_id, assignee_id, created_at, updated_at`

type pgTaskRepository struct {
	db *sql.DB
}

func NewPgTaskRepository(db *sql.DB) TaskRepository {
	return &pgTaskRepository{db: db}
}

func scanTask(row rowScanner) (*model.Task, error) {
	task := &model.Task{}
	var dueDate sql.NullTime
	var assigneeID sql.NullString
	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.Priority, &task.Status, &dueDate,
		&task.OwnerID, &assigneeID, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	if assigneeID.Valid {
		id := assigneeID.String
		task.AssigneeID = &id
	}
	return task, nil
}

func (r *pgTaskRepository) Create(ctx context.Context, t *model.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.OwnerID, t.AssigneeID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("pgTaskRepository.Create: %w", err)
	}
	return nil
}

func (r *pgTaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTaskRepository.FindByID: %w", err)
	}
	return task, nil
}

// listQuery renders filter into SQL; split out so it can be checked without a database.
func listQuery(filter model.TaskFilter) (string, []interface{}) {
	var where []string
	var args []interface{}
	if filter.ParticipantID != "" {
		args = append(args, filter.ParticipantID)
		where = append(where, fmt.Sprintf("(owner_id = $%d OR assignee_id = $%d)", len(args), len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if filter.OrderBy == model.NewestUpdatedFirst {
		b.WriteString(" ORDER BY updated_at DESC")
	} else {
		b.WriteString(" ORDER BY created_at DESC")
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		b.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	return b.String(), args
}

func (r *pgTaskRepository) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	query, args := listQuery(filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgTaskRepository.List: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("pgTaskRepository.List: scan: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTaskRepository.List: %w", err)
	}
	return tasks, nil
}

func taskUpdate(patch model.TaskPatch) *pgUpdate {
	u := &pgUpdate{}
	u.setString("title", patch.Title)
	u.setString("description", patch.Description)
	if patch.Priority != nil {
		u.set("priority", *patch.Priority)
	}
	if patch.Status != nil {
		u.set("status", *patch.Status)
	}
	if patch.DueDate.Set {
		u.set("due_date", patch.DueDate.Value)
	}
	if patch.AssigneeID.Set {
		u.set("assignee_id", patch.AssigneeID.Value)
	}
	return u
}

func (r *pgTaskRepository) Update(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	query, args := taskUpdate(patch).build("tasks", taskColumns, id)
	task, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTaskRepository.Update: %w", err)
	}
	return task, nil
}

func (r *pgTaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgTaskRepository.Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgTaskRepository.Delete: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgTaskRepository) CountByStatus(ctx context.Context) (map[model.TaskStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("pgTaskRepository.CountByStatus: %w", err)
	}
	defer rows.Close()

	counts := map[model.TaskStatus]int64{}
	for rows.Next() {
		var status model.TaskStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("pgTaskRepository.CountByStatus: scan: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTaskRepository.CountByStatus: %w", err)
	}
	return counts, nil
}

// Package repotest provides in-memory repositories for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taskini/internal/common"
	"taskini/internal/domain/model"
)

// Users is a map-backed repository.UserRepository. Set an Err* field to make
// the matching method fail.
type Users struct {
	mu    sync.Mutex
	byID  map[string]model.User
	calls map[string]int

	ErrList        error
	ErrFindByIDs   error
	ErrUpdatePhoto error
}

func NewUsers(users ...model.User) *Users {
	u := &Users{byID: map[string]model.User{}, calls: map[string]int{}}
	for _, user := range users {
		u.byID[user.ID] = user
	}
	return u
}

// Calls reports how often method was invoked.
func (u *Users) Calls(method string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[method]
}

// Get returns the stored user for assertions.
func (u *Users) Get(id string) (model.User, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	return user, ok
}

func (u *Users) Create(_ context.Context, user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls["Create"]++
	for _, existing := range u.byID {
		if strings.EqualFold(existing.Email, user.Email) {
			return common.NewError(common.ErrConflict, "User with this email already exists")
		}
	}
	u.byID[user.ID] = *user
	return nil
}

func (u *Users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls["FindByEmail"]++
	for _, user := range u.byID {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, common.ErrNotFound
}

func (u *Users) FindByID(_ context.Context, id string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls["FindByID"]++
	user, ok := u.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &user, nil
}

func (u *Users) FindByIDs(_ context.Context, ids []string) ([]model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls["FindByIDs"]++
	if u.ErrFindByIDs != nil {
		return nil, u.ErrFindByIDs
	}
	var out []model.User
	for _, id := range ids {
		if user, ok := u.byID[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (u *Users) List(_ context.Context) ([]model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls["List"]++
	if u.ErrList != nil {
		return nil, u.ErrList
	}
	out := make([]model.User, 0, len(u.byID))
	for _, user := range u.byID {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (u *Users) Count(_ context.Context) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls["Count"]++
	if u.ErrList != nil {
		return 0, u.ErrList
	}
	return int64(len(u.byID)), nil
}

func (u *Users) UpdateProfile(_ context.Context, id string, update model.ProfileUpdate) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls["UpdateProfile"]++
	user, ok := u.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&user.Name, update.Name)
	set(&user.Bio, update.Bio)
	set(&user.Phone, update.Phone)
	set(&user.Department, update.Department)
	set(&user.Position, update.Position)
	user.UpdatedAt = time.Now().UTC()
	u.byID[id] = user
	return &user, nil
}

func (u *Users) UpdatePassword(_ context.Context, id string, hashedPassword string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls["UpdatePassword"]++
	user, ok := u.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	user.HashedPassword = hashedPassword
	u.byID[id] = user
	return nil
}

func (u *Users) UpdatePhoto(_ context.Context, id string, photoRef string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls["UpdatePhoto"]++
	if u.ErrUpdatePhoto != nil {
		return u.ErrUpdatePhoto
	}
	user, ok := u.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	user.ProfilePhoto = photoRef
	u.byID[id] = user
	return nil
}

// Tasks is a map-backed repository.TaskRepository.
type Tasks struct {
	mu   sync.Mutex
	byID map[string]model.Task
	// Clock stamps UpdatedAt on writes; tests may replace it.
	Clock func() time.Time
	calls map[string]int
}

func NewTasks(tasks ...model.Task) *Tasks {
	t := &Tasks{byID: map[string]model.Task{}, Clock: time.Now, calls: map[string]int{}}
	for _, task := range tasks {
		t.byID[task.ID] = task
	}
	return t
}

func (t *Tasks) Calls(method string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[method]
}

func (t *Tasks) Get(id string) (model.Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.byID[id]
	return task, ok
}

func (t *Tasks) Create(_ context.Context, task *model.Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls["Create"]++
	stored := *task
	stored.Owner, stored.Assignee = nil, nil
	t.byID[task.ID] = stored
	return nil
}

func (t *Tasks) FindByID(_ context.Context, id string) (*model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls["FindByID"]++
	task, ok := t.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &task, nil
}

func (t *Tasks) List(_ context.Context, filter model.TaskFilter) ([]model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls["List"]++
	var out []model.Task
	for _, task := range t.byID {
		if filter.ParticipantID != "" && !task.IsOwnedBy(filter.ParticipantID) && !task.IsAssignedTo(filter.ParticipantID) {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.OrderBy == model.NewestUpdatedFirst {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (t *Tasks) Update(_ context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls["Update"]++
	task, ok := t.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	patch.Apply(&task)
	task.UpdatedAt = t.Clock().UTC()
	t.byID[id] = task
	return &task, nil
}

func (t *Tasks) Delete(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls["Delete"]++
	if _, ok := t.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(t.byID, id)
	return nil
}

func (t *Tasks) CountByStatus(_ context.Context) (map[model.TaskStatus]int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls["CountByStatus"]++
	counts := map[model.TaskStatus]int64{}
	for _, task := range t.byID {
		counts[task.Status]++
	}
	return counts, nil
}

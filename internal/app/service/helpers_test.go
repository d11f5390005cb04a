package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskini/internal/common/security"
	"taskini/internal/domain/model"
	"taskini/internal/domain/repository/repotest"
	"taskini/internal/platform/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupJWT(t *testing.T) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	security.InitJWT()
	t.Cleanup(func() { config.AppConfig = prev })
}

func newUser(t *testing.T, name, role string) model.User {
	t.Helper()
	hash, err := security.HashPassword("password1")
	require.NoError(t, err)
	now := time.Now().UTC()
	return model.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          name + "@example.com",
		HashedPassword: hash,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func callerOf(u model.User) model.Caller {
	return model.Caller{ID: u.ID, Role: u.Role}
}

type fakeSessions struct {
	mu        sync.Mutex
	revoked   map[string]time.Time
	events    []model.SessionEvent
	revokeErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{revoked: map[string]time.Time{}}
}

func (f *fakeSessions) Revoke(_ context.Context, id string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked[id] = until
	return nil
}

func (f *fakeSessions) Publish(_ context.Context, event model.SessionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakePhotos struct {
	mu        sync.Mutex
	files     map[string][]byte
	deleteErr error
	deletes   []string
}

func newFakePhotos() *fakePhotos {
	return &fakePhotos{files: map[string][]byte{}}
}

func (f *fakePhotos) Store(_ context.Context, name string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := "profiles/" + name
	f.files[ref] = data
	return ref, nil
}

func (f *fakePhotos) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, ref)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.files, ref)
	return nil
}

type fakeQueue struct {
	refs []string
}

func (f *fakeQueue) Enqueue(_ context.Context, ref string) error {
	f.refs = append(f.refs, ref)
	return nil
}

type fixture struct {
	users     *repotest.Users
	tasks     *repotest.Tasks
	directory *UserDirectory
	taskSvc   *TaskService
}

func newFixture(users ...model.User) *fixture {
	f := &fixture{users: repotest.NewUsers(users...), tasks: repotest.NewTasks()}
	f.directory = NewUserDirectory(f.users, nil)
	f.taskSvc = NewTaskService(f.tasks, f.users, f.directory)
	return f
}

var errBoom = errors.New("boom")

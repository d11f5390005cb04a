package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"taskini/internal/common"
	"taskini/internal/common/security"
	"taskini/internal/domain/model"
	"taskini/internal/domain/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileFixture struct {
	users   *repotest.Users
	photos  *fakePhotos
	cleanup *fakeQueue
	svc     *ProfileService
}

func newProfileFixture(users ...model.User) *profileFixture {
	f := &profileFixture{users: repotest.NewUsers(users...), photos: newFakePhotos(), cleanup: &fakeQueue{}}
	f.svc = NewProfileService(f.users, f.photos, f.cleanup, NewUserDirectory(f.users, nil))
	f.svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return f
}

func TestGetProfile(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newProfileFixture(alice)

	user, err := f.svc.GetProfile(context.Background(), callerOf(alice))
	require.NoError(t, err)
	assert.Equal(t, alice.Email, user.Email)
}

func TestUpdateProfileOnlyEditableFields(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newProfileFixture(alice)
	ctx := context.Background()

	bio := "hello"
	user, err := f.svc.UpdateProfile(ctx, callerOf(alice), model.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello", user.Bio)
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, alice.Email, user.Email)
	assert.Equal(t, model.RoleMember, user.Role)

	blank := "  "
	_, err = f.svc.UpdateProfile(ctx, callerOf(alice), model.ProfileUpdate{Name: &blank})
	assert.True(t, errors.Is(err, common.ErrValidation))

	// empty update is a read
	user, err = f.svc.UpdateProfile(ctx, callerOf(alice), model.ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "hello", user.Bio)
	assert.Equal(t, 1, f.users.Calls("UpdateProfile"))
}

func TestChangePassword(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newProfileFixture(alice)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, callerOf(alice), ChangePasswordRequest{CurrentPassword: "password1"})
	assert.True(t, errors.Is(err, common.ErrValidation))

	err = f.svc.ChangePassword(ctx, callerOf(alice), ChangePasswordRequest{CurrentPassword: "password1", NewPassword: "short"})
	assert.True(t, errors.Is(err, common.ErrValidation))

	err = f.svc.ChangePassword(ctx, callerOf(alice), ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newpass1"})
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	stored, _ := f.users.Get(alice.ID)
	assert.Equal(t, alice.HashedPassword, stored.HashedPassword, "credential untouched")

	require.NoError(t, f.svc.ChangePassword(ctx, callerOf(alice), ChangePasswordRequest{CurrentPassword: "password1", NewPassword: "newpass1"}))
	stored, _ = f.users.Get(alice.ID)
	assert.True(t, security.CheckPasswordHash("newpass1", stored.HashedPassword))
}

func TestUploadPhotoValidation(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newProfileFixture(alice)
	ctx := context.Background()

	cases := []struct {
		name     string
		filename string
		data     []byte
		mime     string
	}{
		{"empty", "me.png", nil, "image/png"},
		{"too large", "me.png", bytes.Repeat([]byte{1}, MaxPhotoBytes+1), "image/png"},
		{"pdf", "me.pdf", []byte("%PDF"), "application/pdf"},
		{"wrong extension", "me.exe", []byte("x"), "image/png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.UploadPhoto(ctx, callerOf(alice), tc.filename, tc.data, tc.mime)
			assert.True(t, errors.Is(err, common.ErrValidation), "got %v", err)
		})
	}
	assert.Empty(t, f.photos.files)
}

func TestUploadPhotoReplacesOld(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newProfileFixture(alice)
	ctx := context.Background()

	first, err := f.svc.UploadPhoto(ctx, callerOf(alice), "My Face.PNG", []byte("one"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "uploads/profiles/"+alice.ID+"-1700000000-my-face.png", first)

	f.svc.now = func() time.Time { return time.Unix(1700000100, 0) }
	second, err := f.svc.UploadPhoto(ctx, callerOf(alice), "other.jpg", []byte("two"), "image/jpeg; charset=binary")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	stored, _ := f.users.Get(alice.ID)
	assert.Equal(t, second, stored.ProfilePhoto)
	assert.Len(t, f.photos.files, 1, "old photo removed")
	assert.Contains(t, f.photos.deletes, strings.TrimPrefix(first, PhotoPathPrefix))
	assert.Empty(t, f.cleanup.refs)
}

func TestUploadPhotoQueuesFailedRemoval(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	alice.ProfilePhoto = "uploads/profiles/old.png"
	f := newProfileFixture(alice)
	f.photos.deleteErr = errBoom

	photo, err := f.svc.UploadPhoto(context.Background(), callerOf(alice), "new.gif", []byte("gif"), "image/gif")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(photo, ".gif"))
	assert.Equal(t, []string{"profiles/old.png"}, f.cleanup.refs)
}

func TestUploadPhotoRecordFailureRemovesNewFile(t *testing.T) {
	alice := newUser(t, "alice", model.RoleMember)
	f := newProfileFixture(alice)
	f.users.ErrUpdatePhoto = errBoom

	_, err := f.svc.UploadPhoto(context.Background(), callerOf(alice), "a.png", []byte("x"), "image/png")
	require.Error(t, err)
	assert.Equal(t, 500, common.HTTPStatusFromError(err))
	assert.Empty(t, f.photos.files)
}

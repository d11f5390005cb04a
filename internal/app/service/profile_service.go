package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"taskini/internal/common"
	"taskini/internal/common/security"
	"taskini/internal/domain/model"
	"taskini/internal/domain/repository"

	"github.com/gosimple/slug"
)

const (
	MaxPhotoBytes = 5 << 20
	// PhotoPathPrefix is prepended to a storage ref to form the profilePhoto value.
	PhotoPathPrefix = "uploads/"
)

var allowedPhotoTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

var allowedPhotoExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true}

// PhotoStore is the part of platform/storage.Storage profiles use.
type PhotoStore interface {
	Store(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// CleanupQueue receives photo refs whose inline removal failed.
type CleanupQueue interface {
	Enqueue(ctx context.Context, ref string) error
}

type ProfileService struct {
	userRepo  repository.UserRepository
	photos    PhotoStore
	cleanup   CleanupQueue
	directory *UserDirectory
	now       func() time.Time
}

func NewProfileService(userRepo repository.UserRepository, photos PhotoStore, cleanup CleanupQueue, directory *UserDirectory) *ProfileService {
	return &ProfileService{userRepo: userRepo, photos: photos, cleanup: cleanup, directory: directory, now: time.Now}
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

var errUserNotFound = common.NewError(common.ErrNotFound, "User not found")

func (s *ProfileService) GetProfile(ctx context.Context, caller model.Caller) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("failed to load profile %s: %w", caller.ID, err)
	}
	return user, nil
}

// UpdateProfile writes only the editable profile fields; email and role never change here.
func (s *ProfileService) UpdateProfile(ctx context.Context, caller model.Caller, update model.ProfileUpdate) (*model.User, error) {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, common.NewError(common.ErrValidation, "Name cannot be empty")
		}
		update.Name = &name
	}
	if update.IsEmpty() {
		return s.GetProfile(ctx, caller)
	}
	user, err := s.userRepo.UpdateProfile(ctx, caller.ID, update)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile %s: %w", caller.ID, err)
	}
	s.directory.Invalidate(ctx, caller.ID)
	return user, nil
}

func (s *ProfileService) ChangePassword(ctx context.Context, caller model.Caller, req ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return common.NewError(common.ErrValidation, "Please provide current and new password")
	}
	if len(req.NewPassword) < security.MinPasswordLength {
		return common.NewError(common.ErrValidation, "Password must be at least %d characters", security.MinPasswordLength)
	}
	user, err := s.GetProfile(ctx, caller)
	if err != nil {
		return err
	}
	if !security.CheckPasswordHash(req.CurrentPassword, user.HashedPassword) {
		return common.NewError(common.ErrUnauthorized, "Current password is incorrect")
	}
	hashed, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, caller.ID, hashed); err != nil {
		return fmt.Errorf("failed to update password for %s: %w", caller.ID, err)
	}
	return nil
}

// UploadPhoto replaces the caller's photo and returns the new profilePhoto value.
func (s *ProfileService) UploadPhoto(ctx context.Context, caller model.Caller, filename string, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", common.NewError(common.ErrValidation, "Please upload an image file")
	}
	if len(data) > MaxPhotoBytes {
		return "", common.NewError(common.ErrValidation, "Image must be 5MB or smaller")
	}
	mimeType = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	defaultExt, ok := allowedPhotoTypes[mimeType]
	if !ok {
		return "", common.NewError(common.ErrValidation, "Only image files are allowed (jpeg, jpg, png, gif)")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		ext = defaultExt
	}
	if !allowedPhotoExts[ext] {
		return "", common.NewError(common.ErrValidation, "Only image files are allowed (jpeg, jpg, png, gif)")
	}

	user, err := s.GetProfile(ctx, caller)
	if err != nil {
		return "", err
	}

	stem := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if stem == "" {
		stem = "photo"
	}
	name := fmt.Sprintf("%s-%d-%s.%s", caller.ID, s.now().Unix(), stem, ext)
	ref, err := s.photos.Store(ctx, name, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}
	photoPath := PhotoPathPrefix + ref
	if err := s.userRepo.UpdatePhoto(ctx, caller.ID, photoPath); err != nil {
		if delErr := s.photos.Delete(ctx, ref); delErr != nil {
			log.Printf("WARN: could not remove orphaned photo %s: %v", ref, delErr)
		}
		return "", fmt.Errorf("failed to record photo for %s: %w", caller.ID, err)
	}
	s.directory.Invalidate(ctx, caller.ID)

	if old := strings.TrimPrefix(user.ProfilePhoto, PhotoPathPrefix); old != "" && old != ref {
		s.removeOldPhoto(ctx, old)
	}
	return photoPath, nil
}

func (s *ProfileService) removeOldPhoto(ctx context.Context, ref string) {
	err := s.photos.Delete(ctx, ref)
	if err == nil {
		return
	}
	log.Printf("WARN: removing old photo %s failed, queueing for cleanup: %v", ref, err)
	if s.cleanup == nil {
		return
	}
	if err := s.cleanup.Enqueue(ctx, ref); err != nil {
		log.Printf("ERROR: could not queue photo %s for cleanup: %v", ref, err)
	}
}

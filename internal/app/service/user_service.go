package service

import (
	"context"
	"fmt"

	"taskini/internal/domain/model"
	"taskini/internal/domain/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// ListUsers returns the public directory used to pick assignees.
func (s *UserService) ListUsers(ctx context.Context) ([]model.DirectoryEntry, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	entries := make([]model.DirectoryEntry, 0, len(users))
	for i := range users {
		entries = append(entries, users[i].DirectoryEntry())
	}
	return entries, nil
}

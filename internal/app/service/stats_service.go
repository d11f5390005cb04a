package service

import (
	"context"
	"fmt"
	"log"

	"taskini/internal/domain/model"
	"taskini/internal/domain/repository"
	"taskini/internal/platform/cache"
)

// QueueLength reports the pending photo cleanup backlog.
type QueueLength interface {
	Len(ctx context.Context) (int64, error)
}

type Stats struct {
	Users          int64                      `json:"users"`
	Tasks          int64                      `json:"tasks"`
	TasksByStatus  map[model.TaskStatus]int64 `json:"tasksByStatus"`
	PendingCleanup int64                      `json:"pendingPhotoCleanup"`
	SummaryCache   *cache.StatsSnapshot       `json:"summaryCache,omitempty"`
}

// StatsService gathers the admin dashboard numbers.
type StatsService struct {
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	cleanup  QueueLength
	cache    *cache.Cache
}

func NewStatsService(userRepo repository.UserRepository, taskRepo repository.TaskRepository, cleanup QueueLength, c *cache.Cache) *StatsService {
	return &StatsService{userRepo: userRepo, taskRepo: taskRepo, cleanup: cleanup, cache: c}
}

func (s *StatsService) Collect(ctx context.Context) (*Stats, error) {
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	byStatus, err := s.taskRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	stats := &Stats{
		Users: users,
		TasksByStatus: map[model.TaskStatus]int64{
			model.StatusPending:    0,
			model.StatusInProgress: 0,
			model.StatusCompleted:  0,
		},
	}
	for status, n := range byStatus {
		stats.TasksByStatus[status] = n
		stats.Tasks += n
	}
	if s.cleanup != nil {
		n, err := s.cleanup.Len(ctx)
		if err != nil {
			log.Printf("WARN: reading cleanup queue length: %v", err)
		}
		stats.PendingCleanup = n
	}
	if s.cache != nil {
		snap := s.cache.Stats()
		stats.SummaryCache = &snap
	}
	return stats, nil
}

package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"

	"taskini/internal/domain/model"

	"golang.org/x/sync/singleflight"
)

// SummaryCache is the subset of platform/cache.Cache the directory needs.
type SummaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Versions(ctx context.Context, keys ...string) ([]int64, error)
	SetIfVersion(ctx context.Context, key string, value interface{}, version int64) (bool, error)
	Bump(ctx context.Context, key string) error
}

// UserDirectory resolves user ids to summaries for task responses.
// Lookups go through the cache first; concurrent misses for the same id set
// share one store round trip.
//
// A summary read before Invalidate is never written back after it: loads
// record each key's version first and SetIfVersion refuses a bumped key.
type UserDirectory struct {
	users UserReader
	cache SummaryCache
	group singleflight.Group
	// generation keeps callers that arrive after Invalidate from joining
	// a load that started before it.
	generation atomic.Uint64
}

// UserReader is the read side of repository.UserRepository.
type UserReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

func NewUserDirectory(users UserReader, cache SummaryCache) *UserDirectory {
	return &UserDirectory{users: users, cache: cache}
}

func summaryKey(id string) string { return "user:summary:" + id }

// Summaries returns a summary for every id that exists. Unknown ids are absent.
func (d *UserDirectory) Summaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error) {
	out := make(map[string]model.UserSummary, len(ids))
	var missing []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if d.cache != nil {
			var s model.UserSummary
			found, err := d.cache.Get(ctx, summaryKey(id), &s)
			if err != nil {
				log.Printf("WARN: summary cache read for %s: %v", id, err)
			}
			if found {
				out[id] = s
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	sort.Strings(missing)
	flightKey := fmt.Sprintf("%d|%s", d.generation.Load(), strings.Join(missing, ","))
	v, err, _ := d.group.Do(flightKey, func() (interface{}, error) {
		versions := d.versions(ctx, missing)
		users, err := d.users.FindByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		loaded := make(map[string]model.UserSummary, len(users))
		for i := range users {
			s := users[i].Summary()
			loaded[s.ID] = s
			version, ok := versions[s.ID]
			if !ok {
				continue
			}
			if _, err := d.cache.SetIfVersion(ctx, summaryKey(s.ID), s, version); err != nil {
				log.Printf("WARN: summary cache write for %s: %v", s.ID, err)
			}
		}
		return loaded, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load user summaries: %w", err)
	}
	for id, s := range v.(map[string]model.UserSummary) {
		out[id] = s
	}
	return out, nil
}

// versions maps each id to its cache version. Ids missing from the result
// are not written back.
func (d *UserDirectory) versions(ctx context.Context, ids []string) map[string]int64 {
	if d.cache == nil {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = summaryKey(id)
	}
	vs, err := d.cache.Versions(ctx, keys...)
	if err != nil {
		log.Printf("WARN: summary cache versions: %v", err)
		return nil
	}
	out := make(map[string]int64, len(ids))
	for i, id := range ids {
		out[id] = vs[i]
	}
	return out
}

// Invalidate drops the cached summary after a profile or photo change.
func (d *UserDirectory) Invalidate(ctx context.Context, id string) {
	d.generation.Add(1)
	if d.cache == nil {
		return
	}
	if err := d.cache.Bump(ctx, summaryKey(id)); err != nil {
		log.Printf("WARN: summary cache invalidate for %s: %v", id, err)
	}
}

// Expand fills Owner and Assignee on each task.
func (d *UserDirectory) Expand(ctx context.Context, tasks ...*model.Task) error {
	ids := make([]string, 0, 2*len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.OwnerID)
		if t.AssigneeID != nil {
			ids = append(ids, *t.AssigneeID)
		}
	}
	summaries, err := d.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if s, ok := summaries[t.OwnerID]; ok {
			owner := s
			t.Owner = &owner
		}
		t.Assignee = nil
		if t.AssigneeID != nil {
			if s, ok := summaries[*t.AssigneeID]; ok {
				assignee := s
				t.Assignee = &assignee
			}
		}
	}
	return nil
}

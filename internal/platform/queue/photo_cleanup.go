package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PhotoCleanupJob is one stored photo that still has to be removed.
type PhotoCleanupJob struct {
	Ref        string    `json:"ref"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	NotBefore  time.Time `json:"not_before,omitzero"`
	LastError  string    `json:"last_error,omitempty"`
}

// PhotoCleanupQueue is a Redis list of PhotoCleanupJob values.
// Producers LPUSH, the worker BRPOPs, so the oldest job is handled first.
// Retries wait in a sorted set scored by due time until PromoteDue moves
// them back onto the list.
type PhotoCleanupQueue struct {
	rdb  *redis.Client
	name string
}

func NewPhotoCleanupQueue(rdb *redis.Client, name string) *PhotoCleanupQueue {
	return &PhotoCleanupQueue{rdb: rdb, name: name}
}

func (q *PhotoCleanupQueue) Name() string { return q.name }

func (q *PhotoCleanupQueue) delayedKey() string { return q.name + ":delayed" }

// Enqueue schedules ref for removal.
func (q *PhotoCleanupQueue) Enqueue(ctx context.Context, ref string) error {
	return q.push(ctx, PhotoCleanupJob{Ref: ref, EnqueuedAt: time.Now().UTC()})
}

func (q *PhotoCleanupQueue) push(ctx context.Context, job PhotoCleanupJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal cleanup job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("push cleanup job for %s: %w", job.Ref, err)
	}
	return nil
}

// Defer parks job until due.
func (q *PhotoCleanupQueue) Defer(ctx context.Context, job PhotoCleanupJob, due time.Time) error {
	job.NotBefore = due.UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal cleanup job: %w", err)
	}
	z := redis.Z{Score: float64(due.UnixMilli()), Member: data}
	if err := q.rdb.ZAdd(ctx, q.delayedKey(), z).Err(); err != nil {
		return fmt.Errorf("defer cleanup job for %s: %w", job.Ref, err)
	}
	return nil
}

var promoteDue = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", "0", ARGV[2])
for _, job in ipairs(due) do
    redis.call("LPUSH", KEYS[2], job)
    redis.call("ZREM", KEYS[1], job)
end
return #due
`)

// PromoteDue moves up to 100 deferred jobs whose due time is at or before
// now onto the list and reports how many moved.
func (q *PhotoCleanupQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	n, err := promoteDue.Run(ctx, q.rdb, []string{q.delayedKey(), q.name}, now.UnixMilli(), 100).Int()
	if err != nil {
		return 0, fmt.Errorf("promote due cleanup jobs: %w", err)
	}
	return n, nil
}

// Pop blocks up to timeout for the next job. It returns (nil, nil) on timeout.
func (q *PhotoCleanupQueue) Pop(ctx context.Context, timeout time.Duration) (*PhotoCleanupJob, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// res is [queueName, value]
	if len(res) < 2 || res[1] == "" {
		return nil, nil
	}
	var job PhotoCleanupJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode cleanup job %q: %w", res[1], err)
	}
	return &job, nil
}

// Len counts ready and deferred jobs.
func (q *PhotoCleanupQueue) Len(ctx context.Context) (int64, error) {
	pipe := q.rdb.Pipeline()
	ready := pipe.LLen(ctx, q.name)
	deferred := pipe.ZCard(ctx, q.delayedKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return ready.Val() + deferred.Val(), nil
}

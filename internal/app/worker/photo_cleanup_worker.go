package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskini/internal/platform/queue"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PhotoDeleter removes a stored photo by ref.
type PhotoDeleter interface {
	Delete(ctx context.Context, ref string) error
}

type Options struct {
	LockTTL     time.Duration
	MaxAttempts int
	// PopTimeout bounds each blocking pop so shutdown is noticed promptly.
	PopTimeout time.Duration
	// RetryDelay is the pause after a Redis failure.
	RetryDelay time.Duration
	// Backoff is the wait before the first retry of a failed removal. It
	// doubles per attempt up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// PhotoCleanupWorker drains the cleanup queue, retrying failed removals.
type PhotoCleanupWorker struct {
	rdb    *redis.Client
	queue  *queue.PhotoCleanupQueue
	photos PhotoDeleter
	opts   Options
	now    func() time.Time
}

func NewPhotoCleanupWorker(rdb *redis.Client, q *queue.PhotoCleanupQueue, photos PhotoDeleter, opts Options) *PhotoCleanupWorker {
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 5 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 30 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Minute
	}
	if opts.MaxBackoff < opts.Backoff {
		opts.MaxBackoff = opts.Backoff
	}
	return &PhotoCleanupWorker{rdb: rdb, queue: q, photos: photos, opts: opts, now: time.Now}
}

var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Start blocks until ctx is cancelled.
func (w *PhotoCleanupWorker) Start(ctx context.Context) {
	log.Println("INFO: Photo cleanup worker started, listening to queue:", w.queue.Name())
	for {
		if ctx.Err() != nil {
			log.Println("INFO: Photo cleanup worker stopping...")
			return
		}
		if _, err := w.processNext(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Printf("ERROR: Photo cleanup queue '%s': %v", w.queue.Name(), err)
			select {
			case <-ctx.Done():
			case <-time.After(w.opts.RetryDelay):
			}
		}
	}
}

// processNext moves due retries onto the queue, then handles at most one job
// and reports whether one was popped.
func (w *PhotoCleanupWorker) processNext(ctx context.Context) (bool, error) {
	if _, err := w.queue.PromoteDue(ctx, w.now()); err != nil {
		return false, err
	}
	job, err := w.queue.Pop(ctx, w.opts.PopTimeout)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.processWithLock(ctx, *job)
	return true, nil
}

func lockKey(queueName, ref string) string {
	return fmt.Sprintf("%s:lock:%s", queueName, ref)
}

func (w *PhotoCleanupWorker) processWithLock(ctx context.Context, job queue.PhotoCleanupJob) {
	key := lockKey(w.queue.Name(), job.Ref)
	lockValue := uuid.NewString()

	ok, err := w.rdb.SetNX(ctx, key, lockValue, w.opts.LockTTL).Result()
	if err != nil {
		log.Printf("ERROR: Failed to take cleanup lock for %s: %v", job.Ref, err)
		w.retryLater(ctx, job, w.opts.Backoff)
		return
	}
	if !ok {
		// Another worker is already removing this ref.
		log.Printf("INFO: Cleanup of %s already in progress elsewhere, skipping.", job.Ref)
		return
	}
	defer func() {
		deleted, err := releaseLock.Run(ctx, w.rdb, []string{key}, lockValue).Int64()
		if err != nil {
			log.Printf("ERROR: Failed to release cleanup lock for %s: %v", job.Ref, err)
		} else if deleted != 1 {
			log.Printf("WARN: Cleanup lock for %s expired before release.", job.Ref)
		}
	}()

	if err := w.photos.Delete(ctx, job.Ref); err != nil {
		job.Attempts++
		job.LastError = err.Error()
		if job.Attempts >= w.opts.MaxAttempts {
			log.Printf("ERROR: Giving up on photo %s after %d attempts: %v", job.Ref, job.Attempts, err)
			return
		}
		delay := w.backoff(job.Attempts)
		log.Printf("WARN: Removing photo %s failed (attempt %d/%d), retrying in %s: %v", job.Ref, job.Attempts, w.opts.MaxAttempts, delay, err)
		w.retryLater(ctx, job, delay)
		return
	}
	log.Printf("INFO: Removed replaced photo %s", job.Ref)
}

// backoff is Backoff doubled for every attempt after the first, capped at MaxBackoff.
func (w *PhotoCleanupWorker) backoff(attempts int) time.Duration {
	d := w.opts.Backoff
	for i := 1; i < attempts && d < w.opts.MaxBackoff; i++ {
		d *= 2
	}
	if d > w.opts.MaxBackoff {
		d = w.opts.MaxBackoff
	}
	return d
}

func (w *PhotoCleanupWorker) retryLater(ctx context.Context, job queue.PhotoCleanupJob, delay time.Duration) {
	if err := w.queue.Defer(ctx, job, w.now().Add(delay)); err != nil {
		log.Printf("ERROR: Failed to re-queue photo %s: %v", job.Ref, err)
	}
}

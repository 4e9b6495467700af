package sweep

import (
	"context"
	"time"

	"github.com/ironvault/sentryiam/pkg/cache"
)

const pendingInvalidationKey = "iam:cache:pending_invalidation"

// PendingQueue is a Redis-backed record of account ids whose cache
// invalidation failed and needs a retry, per the concurrency model's "post-
// commit invalidation errors are logged and retried by a background task".
// A hash rather than a list: re-enqueuing the same owner while a prior
// failure is still pending is a no-op rather than a pile-up of duplicates.
type PendingQueue struct {
	redis *cache.Client
}

func NewPendingQueue(redis *cache.Client) *PendingQueue {
	return &PendingQueue{redis: redis}
}

// Enqueue records ownerID as needing a retried invalidation, timestamped so
// an operator can see how long it's been stuck.
func (q *PendingQueue) Enqueue(ctx context.Context, ownerID string) error {
	return q.redis.HSet(ctx, pendingInvalidationKey, ownerID, time.Now().UTC().Format(time.RFC3339))
}

// Pending returns every owner id currently queued, keyed to its enqueue
// timestamp.
func (q *PendingQueue) Pending(ctx context.Context) (map[string]string, error) {
	return q.redis.HGetAll(ctx, pendingInvalidationKey)
}

func (q *PendingQueue) Clear(ctx context.Context, ownerID string) error {
	return q.redis.HDel(ctx, pendingInvalidationKey, ownerID)
}

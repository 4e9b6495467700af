package sweep

import "context"

// ContextInvalidator is satisfied by contextcache.Service.
type ContextInvalidator interface {
	InvalidateOwner(ctx context.Context, ownerID string) error
}

// InvalidationRetrier drains PendingQueue, re-attempting each owner's
// invalidation; an owner that fails again stays queued for the next sweep.
type InvalidationRetrier struct {
	queue    *PendingQueue
	contexts ContextInvalidator
}

func NewInvalidationRetrier(queue *PendingQueue, contexts ContextInvalidator) *InvalidationRetrier {
	return &InvalidationRetrier{queue: queue, contexts: contexts}
}

func (r *InvalidationRetrier) RetryPending(ctx context.Context) (int, error) {
	pending, err := r.queue.Pending(ctx)
	if err != nil {
		return 0, err
	}
	retried := 0
	for ownerID := range pending {
		if err := r.contexts.InvalidateOwner(ctx, ownerID); err != nil {
			continue
		}
		if err := r.queue.Clear(ctx, ownerID); err != nil {
			return retried, err
		}
		retried++
	}
	return retried, nil
}

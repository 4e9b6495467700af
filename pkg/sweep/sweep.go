// Package sweep runs the background maintenance jobs the request path
// can't: retrying invalidations a write orchestrator failed to apply, and
// reaping rows that have simply expired. Scheduling is cron-based
// (robfig/cron/v3) rather than the teacher's plain time.Ticker
// (pkg/webhooks/retry.go's RetryWorker), since sweep jobs run on independent
// schedules (a fast invalidation retry, a slow token/lockout reap) instead
// of a single fixed interval.
package sweep

import (
	"context"
	"sync"

	"github.com/ironvault/sentryiam/pkg/observability"
	"github.com/robfig/cron/v3"
)

// InvalidationRetrier is satisfied by contextcache.Service/authengine.Cache
// wrappers that can replay a previously failed cache invalidation.
type InvalidationRetrier interface {
	RetryPending(ctx context.Context) (retried int, err error)
}

// TokenReaper is satisfied by token.Manager.
type TokenReaper interface {
	CleanupExpiredTokens(ctx context.Context) (int, error)
}

// Sweeper owns a cron schedule of maintenance jobs. Each job run is
// serialized against concurrent runs of itself (cron's default), logs its
// outcome, and never lets one job's panic take down the others.
type Sweeper struct {
	cron   *cron.Cron
	logger *observability.Logger

	mu       sync.Mutex
	retrier  InvalidationRetrier
	reaper   TokenReaper
}

func New(logger *observability.Logger, retrier InvalidationRetrier, reaper TokenReaper) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		logger:  logger.WithField("component", "sweep"),
		retrier: retrier,
		reaper:  reaper,
	}
}

// Start registers the two jobs and begins the cron scheduler: the
// invalidation retry runs every minute (cheap, Redis-only), the expired-row
// reap runs hourly (a full table scan candidate, kept infrequent).
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("@every 1m", func() { s.runRetryInvalidations(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@hourly", func() { s.runReapExpired(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop blocks until any in-flight job run completes, then halts the
// scheduler.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Sweeper) runRetryInvalidations(ctx context.Context) {
	defer s.recoverPanic("retry_invalidations")
	if s.retrier == nil {
		return
	}
	n, err := s.retrier.RetryPending(ctx)
	if err != nil {
		s.logger.WithError(err).Error("invalidation retry sweep failed")
		return
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("replayed pending cache invalidations")
	}
}

func (s *Sweeper) runReapExpired(ctx context.Context) {
	defer s.recoverPanic("reap_expired_tokens")
	if s.reaper == nil {
		return
	}
	n, err := s.reaper.CleanupExpiredTokens(ctx)
	if err != nil {
		s.logger.WithError(err).Error("expired token reap failed")
		return
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("reaped expired tokens")
	}
}

func (s *Sweeper) recoverPanic(job string) {
	if r := recover(); r != nil {
		s.logger.WithField("job", job).WithField("panic", r).Error("sweep job panicked")
	}
}

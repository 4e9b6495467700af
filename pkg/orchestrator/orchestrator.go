// Package orchestrator implements the compound atomic write operations
// described in SPEC_FULL.md §4.8: register_tenant, register_account,
// bind_role_to_res, bind_api_to_ui_res, transfer_app_ownership. Each ends by
// emitting precisely scoped cache invalidations, never a blanket flush.
// register_tenant's create-then-provision-defaults-then-seed-initial-state
// shape is grounded on the teacher's pkg/orgs/service.go CreateOrganization
// (org row -> default quotas -> initial usage period), generalized from a
// two-step to a multi-step atomic sequence using database/sql transactions
// the way pkg/storage/postgres.go's PublishVersion does (BeginTx, deferred
// Rollback, explicit Commit).
package orchestrator

import (
	"context"
	"database/sql"
	"time"

	"github.com/ironvault/sentryiam/pkg/async"
	"github.com/ironvault/sentryiam/pkg/audit"
	"github.com/ironvault/sentryiam/pkg/authengine"
	"github.com/ironvault/sentryiam/pkg/contextcache"
	"github.com/ironvault/sentryiam/pkg/relstore"
	"github.com/ironvault/sentryiam/pkg/sweep"
	"github.com/ironvault/sentryiam/pkg/token"
	"github.com/ironvault/sentryiam/pkg/webhooks"
)

// Orchestrator coordinates multi-table writes and the cache updates they
// trigger. The authengine/contextcache/token dependencies are applied after
// the owning transaction commits, since all three act on Redis (or, for
// token, a separate table reached through their own manager) rather than
// participating directly in the orchestrator's SQL transaction.
//
// audit and hooks are optional: a nil audit.Logger or *webhooks.WebhookManager
// disables the corresponding side effect rather than panicking, so callers
// that don't need a compliance trail or external notifications can leave
// them unset.
type Orchestrator struct {
	db       *sql.DB
	rels     *relstore.Store
	engine   *authengine.Engine
	contexts *contextcache.Service
	tokens   *token.Manager
	pending  *sweep.PendingQueue
	audit    audit.Logger
	hooks    *webhooks.WebhookManager
}

func NewOrchestrator(db *sql.DB, rels *relstore.Store, engine *authengine.Engine, contexts *contextcache.Service, tokens *token.Manager, pending *sweep.PendingQueue) *Orchestrator {
	return &Orchestrator{db: db, rels: rels, engine: engine, contexts: contexts, tokens: tokens, pending: pending}
}

// WithAudit attaches an audit.Logger that records every provisioning and
// binding operation this orchestrator performs. Returns o for chaining.
func (o *Orchestrator) WithAudit(logger audit.Logger) *Orchestrator {
	o.audit = logger
	return o
}

// WithWebhooks attaches a webhooks.WebhookManager that fires external
// notifications for tenant/account provisioning and ownership transfers.
// Returns o for chaining.
func (o *Orchestrator) WithWebhooks(hooks *webhooks.WebhookManager) *Orchestrator {
	o.hooks = hooks
	return o
}

// logAdmin records an admin-action audit event. Failures are swallowed: a
// broken audit sink must never unwind an already-committed write.
func (o *Orchestrator) logAdmin(ctx context.Context, eventType audit.EventType, resourceType audit.ResourceType, resourceID, message string) {
	if o.audit == nil {
		return
	}
	_ = o.audit.Log(ctx, &audit.AuditEvent{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Status:       audit.EventStatusSuccess,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Message:      message,
	})
}

// dispatch fires a webhook event in the background via async.SafeGoNoError,
// so a slow or panicking delivery never blocks the caller that just
// completed an orchestrator operation.
func (o *Orchestrator) dispatch(ctx context.Context, eventType webhooks.EventType, data map[string]interface{}) {
	if o.hooks == nil {
		return
	}
	async.SafeGoNoError(ctx, 10*time.Second, string(eventType), func(ctx context.Context) {
		_ = o.hooks.Dispatch(ctx, &webhooks.Event{Type: eventType, Data: data})
	})
}

// invalidateOwner clears an account's cached context. A failure here must
// not unwind an already-committed write: it's logged via the queued retry
// instead, matching the concurrency model's "invalidation errors are logged
// and retried by a background task" rather than surfaced as an operation
// failure.
func (o *Orchestrator) invalidateOwner(ctx context.Context, ownerID string) error {
	if o.contexts == nil {
		return nil
	}
	if err := o.contexts.InvalidateOwner(ctx, ownerID); err != nil {
		if o.pending != nil {
			return o.pending.Enqueue(ctx, ownerID)
		}
		return err
	}
	return nil
}

package orchestrator

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/ironvault/sentryiam/pkg/audit"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/ironvault/sentryiam/pkg/itemstore"
	"github.com/ironvault/sentryiam/pkg/relstore"
	"github.com/ironvault/sentryiam/pkg/webhooks"
)

// TransferAppOwnership reassigns an app's owner field, optionally granting
// the new owner the app's admin role and optionally dropping the old
// owner's membership. The "never leave an app with zero admin members"
// invariant is enforced before any row is touched: if RemoveOldOwner would
// strip the last remaining admin-role binding, the whole operation fails.
func (o *Orchestrator) TransferAppOwnership(ctx context.Context, req TransferAppOwnershipRequest) error {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "begin tx: %v", err)
	}
	defer tx.Rollback()

	var oldOwner, ownPaths string
	err = tx.QueryRowContext(ctx, `SELECT owner, own_paths FROM items WHERE id = $1 AND kind = $2`, req.AppID, itemstore.KindApp).
		Scan(&oldOwner, &ownPaths)
	if err == sql.ErrNoRows {
		return iamerrors.Wrap(iamerrors.ErrNotFound, "app %s not found", req.AppID)
	}
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "lookup app: %v", err)
	}

	if req.RemoveOldOwner {
		var remaining int
		err := tx.QueryRowContext(ctx, `
			SELECT count(*) FROM rels WHERE tag = 'AccountRole' AND to_item_id = $1 AND from_id != $2`,
			req.AdminRoleID, oldOwner).Scan(&remaining)
		if err != nil {
			return iamerrors.Wrap(iamerrors.ErrInternal, "count remaining admins: %v", err)
		}
		if remaining == 0 && !req.RebindAdminRole {
			return iamerrors.Wrap(iamerrors.ErrPolicyViolation, "app %s would be left with zero admin members", req.AppID)
		}
	}

	now := time.Now().UTC()

	if req.RebindAdminRole {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT count(*) > 0 FROM rels WHERE tag = 'AccountRole' AND from_id = $1 AND to_item_id = $2`,
			req.NewOwnerID, req.AdminRoleID).Scan(&exists)
		if err != nil {
			return iamerrors.Wrap(iamerrors.ErrInternal, "check existing admin binding: %v", err)
		}
		if !exists {
			if err := insertRel(ctx, tx, now, relRow{
				ID: uuid.NewString(), Tag: "AccountRole", FromKind: relstore.FromItem, FromID: req.NewOwnerID,
				ToItemID: req.AdminRoleID, OwnPaths: ownPaths,
			}); err != nil {
				return err
			}
		}
	}

	if req.RemoveOldOwner {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM rels WHERE tag = 'AccountRole' AND from_id = $1 AND to_item_id = $2`,
			oldOwner, req.AdminRoleID); err != nil {
			return iamerrors.Wrap(iamerrors.ErrInternal, "remove old owner admin binding: %v", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM rels WHERE tag = 'AccountApp' AND from_id = $1 AND to_item_id = $2`,
			oldOwner, req.AppID); err != nil {
			return iamerrors.Wrap(iamerrors.ErrInternal, "remove old owner app membership: %v", err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE items SET owner = $1, update_time = $2 WHERE id = $3`,
		req.NewOwnerID, now, req.AppID)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "update app owner: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return iamerrors.Wrap(iamerrors.ErrNotFound, "app %s not found", req.AppID)
	}

	if err := tx.Commit(); err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "commit transfer_app_ownership tx: %v", err)
	}

	if err := o.invalidateOwner(ctx, oldOwner); err != nil {
		return err
	}
	if err := o.invalidateOwner(ctx, req.NewOwnerID); err != nil {
		return err
	}

	o.logAdmin(ctx, audit.EventTypeAdminAppOwnerTransfer, audit.ResourceTypeApp, req.AppID,
		"app "+req.AppID+" ownership transferred from "+oldOwner+" to "+req.NewOwnerID)
	o.dispatch(ctx, webhooks.EventAppOwnerTransferred, map[string]interface{}{
		"app_id":    req.AppID,
		"old_owner": oldOwner,
		"new_owner": req.NewOwnerID,
	})

	return nil
}

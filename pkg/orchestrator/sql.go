package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ironvault/sentryiam/pkg/certconf"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/ironvault/sentryiam/pkg/itemstore"
	"github.com/ironvault/sentryiam/pkg/relstore"
)

// itemRow, relRow mirror the column shapes itemstore.Store and relstore.Store
// already establish; the orchestrator writes them with raw SQL against a
// *sql.Tx because those stores only take a *sql.DB and can't join a shared
// transaction.

type itemRow struct {
	ID         string
	Code       string
	Name       string
	Kind       itemstore.Kind
	DomainID   string
	ScopeLevel itemstore.ScopeLevel
	OwnPaths   string
	Owner      string
	Ext        json.RawMessage
}

func insertItem(ctx context.Context, tx *sql.Tx, now time.Time, row itemRow) error {
	ext := row.Ext
	if ext == nil {
		ext = json.RawMessage("{}")
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO items (id, code, name, kind, domain_id, scope_level, own_paths, owner, disabled, ext, create_time, update_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		row.ID, row.Code, row.Name, row.Kind, row.DomainID, row.ScopeLevel, row.OwnPaths, row.Owner, false,
		[]byte(ext), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return iamerrors.Wrap(iamerrors.ErrConflict, "item with code %q already exists for kind %q domain %q", row.Code, row.Kind, row.DomainID)
		}
		return iamerrors.Wrap(iamerrors.ErrInternal, "insert item %s: %v", row.ID, err)
	}
	return nil
}

func insertCertConf(ctx context.Context, tx *sql.Tx, now time.Time, cc certconf.CertConf) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cert_confs (id, kind, supplier, rel_item_id, ak_rule, sk_rule, sk_encrypted, sk_need,
			repeatable, repeatable_window, expire_sec, sk_lock_cycle_sec, sk_lock_err_times, sk_lock_duration_sec,
			coexist_num, status, create_time, update_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		cc.ID, cc.Kind, cc.Supplier, cc.RelItemID, cc.AKRule, cc.SKRule, cc.SKEncrypted, cc.SKNeed,
		cc.Repeatable, cc.RepeatableWindow, cc.ExpireSec, cc.SKLockCycleSec, cc.SKLockErrTimes, cc.SKLockDurationSec,
		cc.CoexistNum, cc.Status, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return iamerrors.Wrap(iamerrors.ErrConflict, "an enabled cert-conf already exists for kind %q supplier %q item %q", cc.Kind, cc.Supplier, cc.RelItemID)
		}
		return iamerrors.Wrap(iamerrors.ErrInternal, "insert cert_conf %s: %v", cc.ID, err)
	}
	return nil
}

func insertCert(ctx context.Context, tx *sql.Tx, now time.Time, c certconf.Cert) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO certs (id, ak, sk, kind, supplier, rel_cert_conf_id, rel_kind, rel_id,
			start_time, end_time, status, ext, create_time, update_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		c.ID, c.AK, c.SK, c.Kind, c.Supplier, c.RelCertConfID, c.RelKind, c.RelID,
		c.StartTime, c.EndTime, c.Status, c.Ext, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return iamerrors.Wrap(iamerrors.ErrConflict, "cert with ak %q already exists for cert_conf %s", c.AK, c.RelCertConfID)
		}
		return iamerrors.Wrap(iamerrors.ErrInternal, "insert cert %s: %v", c.ID, err)
	}
	return nil
}

type relRow struct {
	ID       string
	Tag      string
	FromKind relstore.FromKind
	FromID   string
	ToItemID string
	OwnPaths string
}

func insertRel(ctx context.Context, tx *sql.Tx, now time.Time, row relRow) error {
	id := row.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO rels (id, tag, from_kind, from_id, to_item_id, from_own_paths, to_own_paths, ext, env, create_time, update_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		id, row.Tag, row.FromKind, row.FromID, row.ToItemID, row.OwnPaths, row.OwnPaths,
		[]byte("{}"), []byte("[]"), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return iamerrors.Wrap(iamerrors.ErrConflict, "rel %s/%s/%s/%s already exists", row.Tag, row.FromKind, row.FromID, row.ToItemID)
		}
		return iamerrors.Wrap(iamerrors.ErrInternal, "insert rel: %v", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }
	if pe, ok := err.(sqlStater); ok {
		return pe.SQLState() == "23505"
	}
	return false
}

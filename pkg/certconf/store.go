package certconf

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
)

// Store is the raw CRUD layer for CertConf and Cert rows.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateCertConf inserts a new cert-conf, enforcing invariant 5 (at most one
// enabled CertConf per (kind, supplier, rel_item_id)) via a partial unique
// index the migration creates on (kind, supplier, rel_item_id) WHERE
// status = 'enabled'.
func (s *Store) CreateCertConf(ctx context.Context, cc *CertConf) error {
	if cc.ID == "" {
		cc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cc.CreateTime = now
	cc.UpdateTime = now
	if cc.Status == "" {
		cc.Status = StatusEnabled
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cert_confs (id, kind, supplier, rel_item_id, ak_rule, sk_rule, sk_encrypted, sk_need,
			repeatable, repeatable_window, expire_sec, sk_lock_cycle_sec, sk_lock_err_times, sk_lock_duration_sec,
			coexist_num, status, create_time, update_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		cc.ID, cc.Kind, cc.Supplier, cc.RelItemID, cc.AKRule, cc.SKRule, cc.SKEncrypted, cc.SKNeed,
		cc.Repeatable, cc.RepeatableWindow, cc.ExpireSec, cc.SKLockCycleSec, cc.SKLockErrTimes, cc.SKLockDurationSec,
		cc.CoexistNum, cc.Status, cc.CreateTime, cc.UpdateTime)
	if err != nil {
		if isUniqueViolation(err) {
			return iamerrors.Wrap(iamerrors.ErrConflict, "an enabled cert-conf already exists for kind %q supplier %q item %q", cc.Kind, cc.Supplier, cc.RelItemID)
		}
		return iamerrors.Wrap(iamerrors.ErrInternal, "insert cert_conf failed")
	}
	return nil
}

func (s *Store) GetCertConf(ctx context.Context, id string) (*CertConf, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, supplier, rel_item_id, ak_rule, sk_rule, sk_encrypted, sk_need,
			repeatable, repeatable_window, expire_sec, sk_lock_cycle_sec, sk_lock_err_times, sk_lock_duration_sec,
			coexist_num, status, create_time, update_time
		FROM cert_confs WHERE id = $1`, id)
	return scanCertConf(row)
}

// GetCertConfByRel looks up the enabled cert-conf for (kind, rel_item_id),
// the shape a login request (cert_kind, rel_app_id) needs to resolve before
// it can call CertService.Verify.
func (s *Store) GetCertConfByRel(ctx context.Context, kind, relItemID string) (*CertConf, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, supplier, rel_item_id, ak_rule, sk_rule, sk_encrypted, sk_need,
			repeatable, repeatable_window, expire_sec, sk_lock_cycle_sec, sk_lock_err_times, sk_lock_duration_sec,
			coexist_num, status, create_time, update_time
		FROM cert_confs WHERE kind = $1 AND rel_item_id = $2 AND status = $3`, kind, relItemID, StatusEnabled)
	return scanCertConf(row)
}

// SetCertConfStatus updates the status column; lockout-cache clearing is the
// caller's (CertConfService's) responsibility per §4.9.
func (s *Store) SetCertConfStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cert_confs SET status = $1, update_time = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "update cert_conf status failed")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return iamerrors.Wrap(iamerrors.ErrNotFound, "cert_conf %s not found", id)
	}
	return nil
}

func scanCertConf(row *sql.Row) (*CertConf, error) {
	var cc CertConf
	err := row.Scan(&cc.ID, &cc.Kind, &cc.Supplier, &cc.RelItemID, &cc.AKRule, &cc.SKRule, &cc.SKEncrypted, &cc.SKNeed,
		&cc.Repeatable, &cc.RepeatableWindow, &cc.ExpireSec, &cc.SKLockCycleSec, &cc.SKLockErrTimes, &cc.SKLockDurationSec,
		&cc.CoexistNum, &cc.Status, &cc.CreateTime, &cc.UpdateTime)
	if err == sql.ErrNoRows {
		return nil, iamerrors.Wrap(iamerrors.ErrNotFound, "cert_conf not found")
	}
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "scan cert_conf failed")
	}
	return &cc, nil
}

// CreateCert inserts a new credential instance.
func (s *Store) CreateCert(ctx context.Context, c *Cert) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreateTime = now
	c.UpdateTime = now
	if c.Status == "" {
		c.Status = StatusEnabled
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO certs (id, ak, sk, kind, supplier, rel_cert_conf_id, rel_kind, rel_id,
			start_time, end_time, status, ext, create_time, update_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		c.ID, c.AK, c.SK, c.Kind, c.Supplier, c.RelCertConfID, c.RelKind, c.RelID,
		c.StartTime, c.EndTime, c.Status, c.Ext, c.CreateTime, c.UpdateTime)
	if err != nil {
		if isUniqueViolation(err) {
			return iamerrors.Wrap(iamerrors.ErrConflict, "cert with ak %q already exists for cert_conf %s", c.AK, c.RelCertConfID)
		}
		return iamerrors.Wrap(iamerrors.ErrInternal, "insert cert failed")
	}
	return nil
}

func (s *Store) GetCertByAK(ctx context.Context, certConfID, ak string) (*Cert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ak, sk, kind, supplier, rel_cert_conf_id, rel_kind, rel_id, start_time, end_time, status, ext, create_time, update_time
		FROM certs WHERE rel_cert_conf_id = $1 AND ak = $2`, certConfID, ak)
	return scanCert(row)
}

// GetCertByRelItem looks up a cert bound (RelKindItem) to relItemID under a
// given cert-conf, used by FindExternal to locate third-party bindings.
func (s *Store) GetCertByRelItem(ctx context.Context, certConfID, relItemID string) (*Cert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ak, sk, kind, supplier, rel_cert_conf_id, rel_kind, rel_id, start_time, end_time, status, ext, create_time, update_time
		FROM certs WHERE rel_cert_conf_id = $1 AND rel_kind = $2 AND rel_id = $3`, certConfID, RelKindItem, relItemID)
	return scanCert(row)
}

func (s *Store) GetCert(ctx context.Context, id string) (*Cert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ak, sk, kind, supplier, rel_cert_conf_id, rel_kind, rel_id, start_time, end_time, status, ext, create_time, update_time
		FROM certs WHERE id = $1`, id)
	return scanCert(row)
}

// UpdateSK replaces a cert's hashed secret, bumping update_time.
func (s *Store) UpdateSK(ctx context.Context, id, hashedSK string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE certs SET sk = $1, update_time = $2 WHERE id = $3`,
		hashedSK, time.Now().UTC(), id)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "update cert sk failed")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return iamerrors.Wrap(iamerrors.ErrNotFound, "cert %s not found", id)
	}
	return nil
}

// RecentSKs returns the hashed history of an account's previous N secrets
// for the cert's cert_conf, newest first, used to enforce repeatable=false.
func (s *Store) RecentSKs(ctx context.Context, certID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hashed_sk FROM cert_sk_history WHERE cert_id = $1 ORDER BY create_time DESC LIMIT $2`,
		certID, limit)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "sk history query failed")
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, iamerrors.Wrap(iamerrors.ErrInternal, "scan sk history failed")
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// RecordSKHistory appends a replaced secret's hash to the history table.
func (s *Store) RecordSKHistory(ctx context.Context, certID, hashedSK string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cert_sk_history (id, cert_id, hashed_sk, create_time) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), certID, hashedSK, time.Now().UTC())
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "insert sk history failed")
	}
	return nil
}

func scanCert(row *sql.Row) (*Cert, error) {
	var c Cert
	err := row.Scan(&c.ID, &c.AK, &c.SK, &c.Kind, &c.Supplier, &c.RelCertConfID, &c.RelKind, &c.RelID,
		&c.StartTime, &c.EndTime, &c.Status, &c.Ext, &c.CreateTime, &c.UpdateTime)
	if err == sql.ErrNoRows {
		return nil, iamerrors.Wrap(iamerrors.ErrNotFound, "cert not found")
	}
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "scan cert failed")
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }
	if pe, ok := err.(sqlStater); ok {
		return pe.SQLState() == "23505"
	}
	return false
}

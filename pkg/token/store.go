package token

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
)

// Store persists token records in Postgres. Grounded on the teacher's
// pkg/auth/token.go TokenManager's commented storage plan, completed with
// the raw database/sql pattern used throughout this module's stores.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, t *Token) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreateTime.IsZero() {
		t.CreateTime = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (id, owner_id, kind, token_hash, prefix, name, expires_at, create_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.OwnerID, t.Kind, t.TokenHash, t.Prefix, t.Name, t.ExpiresAt, t.CreateTime)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "create token: %v", err)
	}
	return nil
}

func (s *Store) GetByHash(ctx context.Context, hash string) (*Token, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, kind, token_hash, prefix, name, expires_at, last_used_at, create_time, revoked_at
		FROM tokens WHERE token_hash = $1`, hash)
	return scanToken(row)
}

func (s *Store) Get(ctx context.Context, id string) (*Token, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, kind, token_hash, prefix, name, expires_at, last_used_at, create_time, revoked_at
		FROM tokens WHERE id = $1`, id)
	return scanToken(row)
}

// ListActiveByOwner returns an owner's non-revoked tokens, oldest first.
func (s *Store) ListActiveByOwner(ctx context.Context, ownerID string) ([]*Token, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, token_hash, prefix, name, expires_at, last_used_at, create_time, revoked_at
		FROM tokens WHERE owner_id = $1 AND revoked_at IS NULL ORDER BY create_time ASC`, ownerID)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "list tokens: %v", err)
	}
	defer rows.Close()

	var out []*Token
	for rows.Next() {
		t, err := scanTokenRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) TouchLastUsed(ctx context.Context, id string, when time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tokens SET last_used_at = $2 WHERE id = $1`, id, when)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "touch token: %v", err)
	}
	return nil
}

func (s *Store) Revoke(ctx context.Context, id string, when time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, when)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "revoke token: %v", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return iamerrors.Wrap(iamerrors.ErrNotFound, "token %s", id)
	}
	return nil
}

// Revoked identifies a token that a bulk revoke operation turned off, enough
// for the caller to also drop its cache entry.
type Revoked struct {
	ID        string
	TokenHash string
}

func (s *Store) RevokeAllForOwner(ctx context.Context, ownerID string, when time.Time) ([]Revoked, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE tokens SET revoked_at = $2 WHERE owner_id = $1 AND revoked_at IS NULL RETURNING id, token_hash`,
		ownerID, when)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "revoke owner tokens: %v", err)
	}
	defer rows.Close()

	var out []Revoked
	for rows.Next() {
		var r Revoked
		if err := rows.Scan(&r.ID, &r.TokenHash); err != nil {
			return nil, iamerrors.Wrap(iamerrors.ErrInternal, "scan revoked token: %v", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteExpired removes tokens past their expiry, returning the count removed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, iamerrors.Wrap(iamerrors.ErrInternal, "cleanup expired tokens: %v", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(row scanner) (*Token, error) {
	t, err := scanTokenRows(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, iamerrors.Wrap(iamerrors.ErrNotFound, "token")
		}
		return nil, err
	}
	return t, nil
}

func scanTokenRows(row scanner) (*Token, error) {
	var t Token
	var expiresAt, lastUsedAt, revokedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Kind, &t.TokenHash, &t.Prefix, &t.Name,
		&expiresAt, &lastUsedAt, &t.CreateTime, &revokedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}
	if expiresAt.Valid {
		t.ExpiresAt = &expiresAt.Time
	}
	if lastUsedAt.Valid {
		t.LastUsedAt = &lastUsedAt.Time
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return &t, nil
}

package relstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
)

// Store is the raw CRUD layer for Rel: insert, lookup, delete. Visibility
// and env-predicate rules live one layer up in Checker.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Exists reports whether (tag, from_kind, from_id, to_item_id) is already
// present, the uniqueness check §4.4 requires before insert.
func (s *Store) Exists(ctx context.Context, tag string, fromKind FromKind, fromID, toItemID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM rels WHERE tag = $1 AND from_kind = $2 AND from_id = $3 AND to_item_id = $4`,
		tag, fromKind, fromID, toItemID).Scan(&count)
	if err != nil {
		return false, iamerrors.Wrap(iamerrors.ErrInternal, "rel existence check failed")
	}
	return count > 0, nil
}

// Add inserts a new Rel. Callers must have already checked Exists and
// endpoint visibility (Checker.Add does both).
func (s *Store) Add(ctx context.Context, rel *Rel) error {
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rel.CreateTime = now
	rel.UpdateTime = now
	if rel.Ext == nil {
		rel.Ext = json.RawMessage("{}")
	}
	envJSON, err := json.Marshal(rel.Env)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInvalidInput, "marshal rel env failed")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rels (id, tag, from_kind, from_id, to_item_id, from_own_paths, to_own_paths, ext, env, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rel.ID, rel.Tag, rel.FromKind, rel.FromID, rel.ToItemID, rel.FromOwnPaths, rel.ToOwnPaths,
		[]byte(rel.Ext), envJSON, rel.CreateTime, rel.UpdateTime)
	if err != nil {
		if isUniqueViolation(err) {
			return iamerrors.Wrap(iamerrors.ErrConflict, "rel %s/%s/%s/%s already exists", rel.Tag, rel.FromKind, rel.FromID, rel.ToItemID)
		}
		return iamerrors.Wrap(iamerrors.ErrInternal, "insert rel failed")
	}
	return nil
}

// Delete hard-deletes a Rel by id. No cascading: the orchestrator is
// responsible for any compound cleanup.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rels WHERE id = $1`, id)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "delete rel failed")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return iamerrors.Wrap(iamerrors.ErrNotFound, "rel %s not found", id)
	}
	return nil
}

// FindFrom returns every Rel whose from(kind,id) matches, optionally
// restricted by tag (empty = any).
func (s *Store) FindFrom(ctx context.Context, fromKind FromKind, fromID, tag string) ([]Rel, error) {
	query := `
		SELECT id, tag, from_kind, from_id, to_item_id, from_own_paths, to_own_paths, ext, env, create_time, update_time
		FROM rels WHERE from_kind = $1 AND from_id = $2 AND ($3 = '' OR tag = $3)
		ORDER BY create_time`
	return s.query(ctx, query, fromKind, fromID, tag)
}

// FindTo returns every Rel pointing at to_item_id, optionally restricted by
// tag.
func (s *Store) FindTo(ctx context.Context, toItemID, tag string) ([]Rel, error) {
	query := `
		SELECT id, tag, from_kind, from_id, to_item_id, from_own_paths, to_own_paths, ext, env, create_time, update_time
		FROM rels WHERE to_item_id = $1 AND ($2 = '' OR tag = $2)
		ORDER BY create_time`
	return s.query(ctx, query, toItemID, tag)
}

// PaginateByTag returns a page of Rels for a tag, ordered by create_time
// ascending or descending.
func (s *Store) PaginateByTag(ctx context.Context, tag string, desc bool, limit, offset int) ([]Rel, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}
	query := `
		SELECT id, tag, from_kind, from_id, to_item_id, from_own_paths, to_own_paths, ext, env, create_time, update_time
		FROM rels WHERE tag = $1
		ORDER BY create_time ` + order + `
		LIMIT $2 OFFSET $3`
	return s.query(ctx, query, tag, limit, offset)
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) ([]Rel, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "query rels failed")
	}
	defer rows.Close()

	var rels []Rel
	for rows.Next() {
		var rel Rel
		var ext, env []byte
		if err := rows.Scan(&rel.ID, &rel.Tag, &rel.FromKind, &rel.FromID, &rel.ToItemID,
			&rel.FromOwnPaths, &rel.ToOwnPaths, &ext, &env, &rel.CreateTime, &rel.UpdateTime); err != nil {
			return nil, iamerrors.Wrap(iamerrors.ErrInternal, "scan rel failed")
		}
		rel.Ext = json.RawMessage(ext)
		if len(env) > 0 {
			if err := json.Unmarshal(env, &rel.Env); err != nil {
				return nil, iamerrors.Wrap(iamerrors.ErrInternal, "unmarshal rel env failed")
			}
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }
	if pe, ok := err.(sqlStater); ok {
		return pe.SQLState() == "23505"
	}
	return false
}

package itemstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
)

// Store is the Postgres-backed CRUD layer for Item, mirroring the teacher's
// pkg/rbac Store: raw database/sql, $N placeholders, JSON-marshaled
// extension column, dynamic SET clauses for partial updates.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new item. ID is generated if empty.
func (s *Store) Create(ctx context.Context, item *Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreateTime = now
	item.UpdateTime = now
	if item.Ext == nil {
		item.Ext = json.RawMessage("{}")
	}

	query := `
		INSERT INTO items (id, code, name, kind, domain_id, scope_level, own_paths, owner, disabled, ext, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.Code, item.Name, item.Kind, item.DomainID, item.ScopeLevel,
		item.OwnPaths, item.Owner, item.Disabled, []byte(item.Ext), item.CreateTime, item.UpdateTime)
	if err != nil {
		if isUniqueViolation(err) {
			return iamerrors.Wrap(iamerrors.ErrConflict, "item with code %q already exists for kind %q domain %q", item.Code, item.Kind, item.DomainID)
		}
		return iamerrors.Wrap(iamerrors.ErrInternal, "insert item failed")
	}
	return nil
}

// Get fetches an item by id.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	query := `
		SELECT id, code, name, kind, domain_id, scope_level, own_paths, owner, disabled, ext, create_time, update_time
		FROM items WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

// GetByCode fetches an item by its (kind, domain, code) uniqueness key.
func (s *Store) GetByCode(ctx context.Context, kind Kind, domainID, code string) (*Item, error) {
	query := `
		SELECT id, code, name, kind, domain_id, scope_level, own_paths, owner, disabled, ext, create_time, update_time
		FROM items WHERE kind = $1 AND domain_id = $2 AND code = $3`
	return s.scanOne(s.db.QueryRowContext(ctx, query, kind, domainID, code))
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanOne(row scanner) (*Item, error) {
	var item Item
	var ext []byte
	err := row.Scan(&item.ID, &item.Code, &item.Name, &item.Kind, &item.DomainID, &item.ScopeLevel,
		&item.OwnPaths, &item.Owner, &item.Disabled, &ext, &item.CreateTime, &item.UpdateTime)
	if err == sql.ErrNoRows {
		return nil, iamerrors.Wrap(iamerrors.ErrNotFound, "item not found")
	}
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "scan item failed")
	}
	item.Ext = json.RawMessage(ext)
	return &item, nil
}

// ListByOwnPathsPrefix lists items visible under an own_paths prefix,
// optionally filtered by kind.
func (s *Store) ListByOwnPathsPrefix(ctx context.Context, prefix string, kind Kind) ([]*Item, error) {
	query := `
		SELECT id, code, name, kind, domain_id, scope_level, own_paths, owner, disabled, ext, create_time, update_time
		FROM items WHERE (own_paths = $1 OR own_paths LIKE $2) AND ($3 = '' OR kind = $3)
		ORDER BY create_time`
	rows, err := s.db.QueryContext(ctx, query, prefix, prefix+"/%", string(kind))
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "list items failed")
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update applies a partial update; only non-nil fields are written, matching
// the teacher's dynamic-SET-clause idiom in pkg/rbac/store.go UpdateRole.
type Update struct {
	Name     *string
	Disabled *bool
	Ext      json.RawMessage
}

func (s *Store) Update(ctx context.Context, id string, u Update) error {
	setClauses := []string{"update_time = $1"}
	args := []interface{}{time.Now().UTC()}
	argIdx := 2

	if u.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *u.Name)
		argIdx++
	}
	if u.Disabled != nil {
		setClauses = append(setClauses, fmt.Sprintf("disabled = $%d", argIdx))
		args = append(args, *u.Disabled)
		argIdx++
	}
	if u.Ext != nil {
		setClauses = append(setClauses, fmt.Sprintf("ext = $%d", argIdx))
		args = append(args, []byte(u.Ext))
		argIdx++
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE items SET %s WHERE id = $%d", joinClauses(setClauses), argIdx)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "update item failed")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return iamerrors.Wrap(iamerrors.ErrNotFound, "item %s not found", id)
	}
	return nil
}

// Delete removes an item, failing with PolicyViolation-adjacent Conflict if
// the caller hasn't already verified no dependent rel/cert exists (the
// orchestrator enforces that check before calling Delete).
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "delete item failed")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return iamerrors.Wrap(iamerrors.ErrNotFound, "item %s not found", id)
	}
	return nil
}

func joinClauses(clauses []string) string {
	out := ""
	for i, c := range clauses {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

func isUniqueViolation(err error) bool {
	// lib/pq reports unique_violation as SQLSTATE 23505; the teacher's
	// stores match on this via pq.Error in the same way.
	type sqlStater interface{ SQLState() string }
	if pe, ok := err.(sqlStater); ok {
		return pe.SQLState() == "23505"
	}
	return false
}

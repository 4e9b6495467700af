package settree

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/ironvault/sentryiam/pkg/syscode"
)

// Store is the Postgres-backed CRUD layer for SetCate/SetItem, following the
// same raw database/sql + $N placeholder idiom as pkg/itemstore.Store.
type Store struct {
	db       *sql.DB
	alloc    *syscode.Allocator
	segWidth int
}

func NewStore(db *sql.DB, alloc *syscode.Allocator, segWidth int) *Store {
	return &Store{db: db, alloc: alloc, segWidth: segWidth}
}

// CreateCate allocates a sys_code for a new child of parent and inserts the
// cate row.
func (s *Store) CreateCate(ctx context.Context, setID, parentSysCode, name string, sort int) (*SetCate, error) {
	sysCode, err := s.alloc.AllocateSibling(ctx, setID, parentSysCode)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cate := &SetCate{
		ID:         uuid.NewString(),
		RelSetID:   setID,
		SysCode:    sysCode,
		Name:       name,
		Sort:       sort,
		CreateTime: now,
		UpdateTime: now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO set_cates (id, rel_set_id, sys_code, name, sort, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cate.ID, cate.RelSetID, cate.SysCode, cate.Name, cate.Sort, cate.CreateTime, cate.UpdateTime)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "insert set_cate failed")
	}
	return cate, nil
}

// ListCates returns every cate in a set, ordered by sort then sys_code
// (matching §4.3's sibling ordering tie-break).
func (s *Store) ListCates(ctx context.Context, setID string) ([]SetCate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rel_set_id, sys_code, name, sort, create_time, update_time
		FROM set_cates WHERE rel_set_id = $1 ORDER BY sort, sys_code`, setID)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "list set_cates failed")
	}
	defer rows.Close()

	var cates []SetCate
	for rows.Next() {
		var c SetCate
		if err := rows.Scan(&c.ID, &c.RelSetID, &c.SysCode, &c.Name, &c.Sort, &c.CreateTime, &c.UpdateTime); err != nil {
			return nil, iamerrors.Wrap(iamerrors.ErrInternal, "scan set_cate failed")
		}
		cates = append(cates, c)
	}
	return cates, rows.Err()
}

// DeleteCate removes a cate, enforcing §4.3's rule that deletion fails if any
// descendant cate or attached SetItem exists.
func (s *Store) DeleteCate(ctx context.Context, setID, sysCode string) error {
	var descendantCount int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM set_cates WHERE rel_set_id = $1 AND sys_code LIKE $2 AND sys_code <> $2`,
		setID, sysCode+"%").Scan(&descendantCount)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "descendant check failed")
	}
	if descendantCount > 0 {
		return iamerrors.Wrap(iamerrors.ErrConflict, "cate %s has descendant cates", sysCode)
	}

	var itemCount int
	err = s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM set_items WHERE rel_set_id = $1 AND rel_set_cate_sys_code = $2`,
		setID, sysCode).Scan(&itemCount)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "item check failed")
	}
	if itemCount > 0 {
		return iamerrors.Wrap(iamerrors.ErrConflict, "cate %s has attached items", sysCode)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM set_cates WHERE rel_set_id = $1 AND sys_code = $2`, setID, sysCode)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "delete set_cate failed")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return iamerrors.Wrap(iamerrors.ErrNotFound, "cate %s not found", sysCode)
	}
	return nil
}

// AttachItem links an item to a cate. Uniqueness on
// (rel_set_id, rel_set_cate_sys_code, rel_item_id) is enforced by a DB
// constraint; duplicates surface as Conflict.
func (s *Store) AttachItem(ctx context.Context, setID, cateSysCode, itemID string, sort int) (*SetItem, error) {
	item := &SetItem{
		ID:                uuid.NewString(),
		RelSetID:          setID,
		RelSetCateSysCode: cateSysCode,
		RelItemID:         itemID,
		Sort:              sort,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO set_items (id, rel_set_id, rel_set_cate_sys_code, rel_item_id, sort)
		VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.RelSetID, item.RelSetCateSysCode, item.RelItemID, item.Sort)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, iamerrors.Wrap(iamerrors.ErrConflict, "item %s already attached to cate %s", itemID, cateSysCode)
		}
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "attach set_item failed")
	}
	return item, nil
}

// DetachItem removes a single item attachment.
func (s *Store) DetachItem(ctx context.Context, setID, cateSysCode, itemID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM set_items WHERE rel_set_id = $1 AND rel_set_cate_sys_code = $2 AND rel_item_id = $3`,
		setID, cateSysCode, itemID)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "detach set_item failed")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return iamerrors.Wrap(iamerrors.ErrNotFound, "item %s not attached to cate %s", itemID, cateSysCode)
	}
	return nil
}

// ListItems returns every SetItem attached to a given cate.
func (s *Store) ListItems(ctx context.Context, setID, cateSysCode string) ([]SetItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rel_set_id, rel_set_cate_sys_code, rel_item_id, sort
		FROM set_items WHERE rel_set_id = $1 AND rel_set_cate_sys_code = $2 ORDER BY sort`,
		setID, cateSysCode)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "list set_items failed")
	}
	defer rows.Close()

	var items []SetItem
	for rows.Next() {
		var it SetItem
		if err := rows.Scan(&it.ID, &it.RelSetID, &it.RelSetCateSysCode, &it.RelItemID, &it.Sort); err != nil {
			return nil, iamerrors.Wrap(iamerrors.ErrInternal, "scan set_item failed")
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// AllItemsInSet returns every SetItem in a set, used by the tree builder to
// compute rollup counts without one query per cate.
func (s *Store) AllItemsInSet(ctx context.Context, setID string) ([]SetItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rel_set_id, rel_set_cate_sys_code, rel_item_id, sort
		FROM set_items WHERE rel_set_id = $1`, setID)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "list set_items failed")
	}
	defer rows.Close()

	var items []SetItem
	for rows.Next() {
		var it SetItem
		if err := rows.Scan(&it.ID, &it.RelSetID, &it.RelSetCateSysCode, &it.RelItemID, &it.Sort); err != nil {
			return nil, iamerrors.Wrap(iamerrors.ErrInternal, "scan set_item failed")
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }
	if pe, ok := err.(sqlStater); ok {
		return pe.SQLState() == "23505"
	}
	return false
}

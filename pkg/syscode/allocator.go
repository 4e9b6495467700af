package syscode

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/ironvault/sentryiam/pkg/synclock"
)

// MaxSiblingQuerier finds the lexicographically greatest existing child
// sys_code of parent within a set, restricted to the exact child depth
// (len(parent)+segWidth). Implemented against *sql.DB/*sql.Tx in callers;
// kept as an interface here so allocator tests can stub it without a
// database.
type MaxSiblingQuerier interface {
	MaxSiblingSysCode(ctx context.Context, setID, parent string, childLen int) (string, error)
}

// Allocator allocates sys_codes for new SetCate siblings under a distributed
// lock keyed by set_id, per §5's single serialization point.
type Allocator struct {
	locker   *synclock.Locker
	queries  MaxSiblingQuerier
	segWidth int
}

func NewAllocator(locker *synclock.Locker, queries MaxSiblingQuerier, segWidth int) *Allocator {
	return &Allocator{locker: locker, queries: queries, segWidth: segWidth}
}

func lockKey(setID string) string {
	return "iam:cache:syscode:lock:" + setID
}

// AllocateSibling computes and returns the next sys_code for a new child of
// parent within setID, serializing with other allocations on the same set.
func (a *Allocator) AllocateSibling(ctx context.Context, setID, parent string) (string, error) {
	var result string
	err := a.locker.WithLock(ctx, lockKey(setID), func(ctx context.Context) error {
		childLen := len(parent) + a.segWidth
		maxSibling, err := a.queries.MaxSiblingSysCode(ctx, setID, parent, childLen)
		if err != nil {
			return iamerrors.Wrap(iamerrors.ErrInternal, "max sibling query failed for set %s", setID)
		}
		code, err := NextSibling(parent, maxSibling, a.segWidth)
		if err != nil {
			return err
		}
		result = code
		return nil
	})
	return result, err
}

// SQLMaxSiblingQuerier implements MaxSiblingQuerier against a Postgres
// rbum_set_cate-shaped table: columns (rel_set_id, sys_code).
type SQLMaxSiblingQuerier struct {
	DB *sql.DB
}

func (q *SQLMaxSiblingQuerier) MaxSiblingSysCode(ctx context.Context, setID, parent string, childLen int) (string, error) {
	query := `
		SELECT sys_code FROM rbum_set_cate
		WHERE rel_set_id = $1 AND sys_code LIKE $2 AND char_length(sys_code) = $3
		ORDER BY sys_code DESC LIMIT 1`
	var sysCode string
	err := q.DB.QueryRowContext(ctx, query, setID, fmt.Sprintf("%s%%", parent), childLen).Scan(&sysCode)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sysCode, nil
}

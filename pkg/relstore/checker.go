package relstore

import (
	"context"
	"time"

	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/ironvault/sentryiam/pkg/scopepath"
)

// VisibilityLevels resolves an endpoint's own_paths/scope_level for
// visibility checks. Callers implement this against pkg/itemstore (items)
// or pkg/certconf (certs).
type VisibilityLevels interface {
	EndpointLevel(ctx context.Context, kind FromKind, id string) (ownPaths string, level scopepath.ScopeLevel, err error)
}

// Checker layers scope visibility and env-predicate evaluation on top of
// Store's raw CRUD, mirroring pkg/rbac.PermissionChecker wrapping
// pkg/rbac.Store.
type Checker struct {
	store  *Store
	levels VisibilityLevels
}

func NewChecker(store *Store, levels VisibilityLevels) *Checker {
	return &Checker{store: store, levels: levels}
}

// Add creates a new Rel after verifying uniqueness and that both endpoints
// are visible to ctx.
func (c *Checker) Add(ctx context.Context, sctx scopepath.Context, tag string, fromKind FromKind, fromID, toItemID string, env []Env, ext []byte) (*Rel, error) {
	exists, err := c.store.Exists(ctx, tag, fromKind, fromID, toItemID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, iamerrors.Wrap(iamerrors.ErrConflict, "rel %s/%s/%s/%s already exists", tag, fromKind, fromID, toItemID)
	}

	fromPaths, fromLevel, err := c.levels.EndpointLevel(ctx, fromKind, fromID)
	if err != nil {
		return nil, err
	}
	if !scopepath.IsVisible(fromPaths, fromLevel, sctx) {
		return nil, iamerrors.Wrap(iamerrors.ErrForbidden, "from endpoint %s not visible", fromID)
	}
	toPaths, toLevel, err := c.levels.EndpointLevel(ctx, FromItem, toItemID)
	if err != nil {
		return nil, err
	}
	if !scopepath.IsVisible(toPaths, toLevel, sctx) {
		return nil, iamerrors.Wrap(iamerrors.ErrForbidden, "to endpoint %s not visible", toItemID)
	}

	rel := &Rel{
		Tag:          tag,
		FromKind:     fromKind,
		FromID:       fromID,
		ToItemID:     toItemID,
		FromOwnPaths: fromPaths,
		ToOwnPaths:   toPaths,
		Env:          env,
	}
	if ext != nil {
		rel.Ext = ext
	}
	if err := c.store.Add(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// FindFromVisible returns FindFrom results restricted to rels whose
// endpoints are visible to ctx.
func (c *Checker) FindFromVisible(ctx context.Context, sctx scopepath.Context, fromKind FromKind, fromID, tag string) ([]Rel, error) {
	rels, err := c.store.FindFrom(ctx, fromKind, fromID, tag)
	if err != nil {
		return nil, err
	}
	return filterVisible(rels, sctx), nil
}

// FindToVisible returns FindTo results restricted to rels whose endpoints
// are visible to ctx.
func (c *Checker) FindToVisible(ctx context.Context, sctx scopepath.Context, toItemID, tag string) ([]Rel, error) {
	rels, err := c.store.FindTo(ctx, toItemID, tag)
	if err != nil {
		return nil, err
	}
	return filterVisible(rels, sctx), nil
}

// ActiveNow returns the subset of rels whose env predicates are satisfied at
// the given instant.
func ActiveNow(rels []Rel, now time.Time) []Rel {
	var out []Rel
	for _, r := range rels {
		if r.EnvSatisfied(now) {
			out = append(out, r)
		}
	}
	return out
}

func filterVisible(rels []Rel, sctx scopepath.Context) []Rel {
	var out []Rel
	for _, r := range rels {
		if scopepath.IsAncestor(r.FromOwnPaths, sctx.OwnPaths) && scopepath.IsAncestor(r.ToOwnPaths, sctx.OwnPaths) {
			out = append(out, r)
			continue
		}
		if scopepath.IsAncestor(sctx.OwnPaths, r.FromOwnPaths) || scopepath.IsAncestor(sctx.OwnPaths, r.ToOwnPaths) {
			out = append(out, r)
		}
	}
	return out
}

// Package scopepath implements the own-paths string algebra: the
// slash-separated ancestry of scope ids (system, tenant, app, private) that
// every item in the authorization engine carries as its own_paths field.
//
// own_paths format: ^([^/]+(/[^/]+){0,3})?$, depth 0..4. The empty string is
// the system root.
package scopepath

import (
	"strings"

	"github.com/ironvault/sentryiam/pkg/iamerrors"
)

// ScopeLevel is the ordinal depth of an own_paths value.
type ScopeLevel int

const (
	Global ScopeLevel = iota
	System
	Tenant
	App
	Private
)

const maxDepth = 4

// Level returns the number of non-empty segments in paths.
func Level(paths string) int {
	segs := Split(paths)
	return len(segs)
}

// Split returns the non-empty segments of an own_paths string, in order.
func Split(paths string) []string {
	if paths == "" {
		return nil
	}
	return strings.Split(paths, "/")
}

// Join recombines segments into an own_paths string.
func Join(segs []string) string {
	return strings.Join(segs, "/")
}

// Context is the resolved identity envelope carried through a single
// operation: its own_paths plus the opaque owner id. Owner is never part of
// the paths algebra.
type Context struct {
	OwnPaths string
	Owner    string
}

// Degrade returns a ctx whose own_paths is target, provided target is an
// ancestor (shallower, prefix-compatible) or a deeper descendant of the
// current own_paths. Any other relationship is rejected.
func Degrade(ctx Context, target string) (Context, error) {
	if err := Validate(target); err != nil {
		return Context{}, err
	}
	cur := ctx.OwnPaths
	switch {
	case target == cur:
		return Context{OwnPaths: target, Owner: ctx.Owner}, nil
	case IsAncestor(target, cur):
		// going shallower: target must be a genuine ancestor of cur.
		return Context{OwnPaths: target, Owner: ctx.Owner}, nil
	case IsAncestor(cur, target):
		// going deeper: cur must be a genuine ancestor (prefix) of target.
		return Context{OwnPaths: target, Owner: ctx.Owner}, nil
	default:
		return Context{}, iamerrors.Wrap(iamerrors.ErrForbidden, "own_paths %q is not reachable from %q", target, cur)
	}
}

// IsAncestor reports whether ancestor is a strict or equal slash-boundary
// prefix of descendant. The system root ("") is an ancestor of everything.
func IsAncestor(ancestor, descendant string) bool {
	if ancestor == "" {
		return true
	}
	if ancestor == descendant {
		return true
	}
	return strings.HasPrefix(descendant, ancestor+"/")
}

// IsVisible reports whether an item at itemPaths with the given scope level
// is visible to a context at ctx. System/global-scoped items (scope_level
// Global or System) are visible to everyone; otherwise the item's own_paths
// must be an ancestor of ctx.OwnPaths and its scope level must not exceed
// the context's own depth.
func IsVisible(itemPaths string, itemLevel ScopeLevel, ctx Context) bool {
	if itemLevel == Global || itemLevel == System {
		return true
	}
	if !IsAncestor(itemPaths, ctx.OwnPaths) {
		return false
	}
	return int(itemLevel) <= Level(ctx.OwnPaths)
}

// CanWrite reports whether ctx may write an item whose own_paths is
// itemPaths: ctx.OwnPaths must be a slash-boundary prefix of itemPaths (or
// equal to it).
func CanWrite(itemPaths string, ctx Context) bool {
	return IsAncestor(ctx.OwnPaths, itemPaths)
}

// Validate checks the own_paths format and depth bound.
func Validate(paths string) error {
	if paths == "" {
		return nil
	}
	segs := strings.Split(paths, "/")
	if len(segs) > maxDepth {
		return iamerrors.Wrap(iamerrors.ErrInvalidInput, "own_paths %q exceeds max depth %d", paths, maxDepth)
	}
	for _, s := range segs {
		if s == "" {
			return iamerrors.Wrap(iamerrors.ErrInvalidInput, "own_paths %q has an empty segment", paths)
		}
	}
	return nil
}

// LevelForDepth maps a raw segment count to the canonical ScopeLevel used by
// Item.scope_level (0 root .. 3 private, offset by one here since Global/
// System share depth 0 and are distinguished by the item's declared kind,
// not by own_paths alone).
func LevelForDepth(depth int) ScopeLevel {
	switch depth {
	case 0:
		return System
	case 1:
		return Tenant
	case 2:
		return App
	default:
		return Private
	}
}

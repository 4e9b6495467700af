// Package contextcache implements the per-token login context described in
// SPEC_FULL.md §4.7: resolving a verified Cert into a TardisContext, caching
// it for O(1) request-time lookup, and invalidating it on the triggers
// §4.7 lists (cert reset, role/rel changes, app/tenant disable).
package contextcache

import "time"

// TardisContext is the cached authorization context for one live token.
type TardisContext struct {
	OwnPaths  string   `json:"own_paths"`
	Owner     string   `json:"owner"`
	AK        string   `json:"ak"`
	Roles     []string `json:"roles"`
	Groups    []string `json:"groups"`
	TokenKind string   `json:"token_kind"`
}

// Session is the result of a successful login: the plaintext token to hand
// back to the caller once, plus the context now cached under it.
type Session struct {
	Token     string
	Context   TardisContext
	ExpiresAt time.Time
}

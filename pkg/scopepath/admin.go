package scopepath

import "strings"

// WithTenant narrows ctx to the given tenant, replacing own_paths entirely.
// Used by orchestrator operations that need a tenant-scoped view without a
// context-cache round trip.
func (ctx Context) WithTenant(tenantID string) Context {
	return Context{OwnPaths: tenantID, Owner: ctx.Owner}
}

// WithApp narrows ctx to tenant/app, preserving the tenant segment if ctx is
// already scoped to it.
func (ctx Context) WithApp(tenantID, appID string) Context {
	return Context{OwnPaths: tenantID + "/" + appID, Owner: ctx.Owner}
}

// AsSystem elevates ctx to the system root. Callers must independently
// verify the operation is permitted at system scope; this performs no
// authorization check of its own.
func (ctx Context) AsSystem() Context {
	return Context{OwnPaths: "", Owner: ctx.Owner}
}

// TenantOf returns the tenant segment of ctx.OwnPaths, or "" if ctx is at
// system scope or shallower.
func (ctx Context) TenantOf() string {
	segs := Split(ctx.OwnPaths)
	if len(segs) == 0 {
		return ""
	}
	return segs[0]
}

// AppOf returns the "tenant/app" prefix of ctx.OwnPaths, or "" if ctx has no
// app segment.
func (ctx Context) AppOf() string {
	segs := Split(ctx.OwnPaths)
	if len(segs) < 2 {
		return ""
	}
	return strings.Join(segs[:2], "/")
}

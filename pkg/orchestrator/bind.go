package orchestrator

import (
	"context"

	"github.com/ironvault/sentryiam/pkg/audit"
	"github.com/ironvault/sentryiam/pkg/relstore"
)

// BindRoleToRes persists a ResRole rel then applies the §4.6 build-up rule
// through the authengine: a direct grant if resID is an API, or propagation
// to every API the resID UI element reaches.
func (o *Orchestrator) BindRoleToRes(ctx context.Context, roleID, resID, ownPaths string, env []relstore.Env) error {
	rel := &relstore.Rel{Tag: "ResRole", FromKind: relstore.FromItem, FromID: roleID, ToItemID: resID,
		FromOwnPaths: ownPaths, ToOwnPaths: ownPaths, Env: env}
	if err := o.rels.Add(ctx, rel); err != nil {
		return err
	}
	if err := o.engine.OnResRoleAdded(ctx, roleID, resID, env); err != nil {
		return err
	}
	o.logAdmin(ctx, audit.EventTypeAuthzRoleResBind, audit.ResourceTypeRoleResBind, rel.ID,
		"role "+roleID+" bound to resource "+resID)
	return nil
}

// UnbindRoleFromRes removes a previously bound ResRole rel and lets the
// authengine decide, per the "multiple paths" tear-down rule, whether the
// role still reaches the resource's APIs through some other binding.
func (o *Orchestrator) UnbindRoleFromRes(ctx context.Context, relID, roleID, resID string) error {
	if err := o.rels.Delete(ctx, relID); err != nil {
		return err
	}
	if err := o.engine.OnResRoleRemoved(ctx, roleID, resID); err != nil {
		return err
	}
	o.logAdmin(ctx, audit.EventTypeAuthzRoleResUnbind, audit.ResourceTypeRoleResBind, relID,
		"role "+roleID+" unbound from resource "+resID)
	return nil
}

// BindAPIToUIRes persists a ResApi rel then lets the authengine grant the
// API every role already bound to the UI resource.
func (o *Orchestrator) BindAPIToUIRes(ctx context.Context, apiResID, uiResID, ownPaths string) error {
	rel := &relstore.Rel{Tag: "ResApi", FromKind: relstore.FromItem, FromID: apiResID, ToItemID: uiResID,
		FromOwnPaths: ownPaths, ToOwnPaths: ownPaths}
	if err := o.rels.Add(ctx, rel); err != nil {
		return err
	}
	return o.engine.OnResApiAdded(ctx, apiResID, uiResID)
}

// UnbindAPIFromUIRes removes a ResApi rel and lets the authengine decide
// whether each role on the UI resource still reaches the API via another
// menu or element.
func (o *Orchestrator) UnbindAPIFromUIRes(ctx context.Context, relID, apiResID, uiResID string) error {
	if err := o.rels.Delete(ctx, relID); err != nil {
		return err
	}
	return o.engine.OnResApiRemoved(ctx, apiResID, uiResID)
}

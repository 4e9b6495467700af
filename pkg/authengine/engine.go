package authengine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/ironvault/sentryiam/pkg/itemstore"
	"github.com/ironvault/sentryiam/pkg/relstore"
)

const (
	tagResRole = "ResRole"
	tagResApi  = "ResApi"
)

// Engine maintains the (res_code, method) -> roles cache in response to
// ResRole/ResApi rel changes and answers authorization queries against it.
type Engine struct {
	items *itemstore.Store
	rels  *relstore.Store
	cache *Cache
}

func NewEngine(items *itemstore.Store, rels *relstore.Store, cache *Cache) *Engine {
	return &Engine{items: items, rels: rels, cache: cache}
}

func apiKeyOf(item *itemstore.Item) (Key, itemstore.ResExt, error) {
	var ext itemstore.ResExt
	if err := json.Unmarshal(item.Ext, &ext); err != nil {
		return Key{}, ext, iamerrors.Wrap(iamerrors.ErrInternal, "unmarshal res ext for %s: %v", item.ID, err)
	}
	return Key{Code: item.Code, Method: ext.Method}, ext, nil
}

func (e *Engine) entryForAPI(ctx context.Context, apiItem *itemstore.Item) (Key, Entry, error) {
	key, ext, err := apiKeyOf(apiItem)
	if err != nil {
		return Key{}, Entry{}, err
	}
	existing, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		return Key{}, Entry{}, err
	}
	if !ok {
		existing = newEntry()
	}
	existing.NeedLogin = ext.NeedLogin
	existing.CryptoReq = ext.CryptoReq
	existing.CryptoResp = ext.CryptoResp
	existing.DoubleAuth = ext.DoubleAuth
	return key, existing, nil
}

func (e *Engine) grantRole(ctx context.Context, apiItem *itemstore.Item, roleID string, env []relstore.Env) error {
	key, entry, err := e.entryForAPI(ctx, apiItem)
	if err != nil {
		return err
	}
	entry.Roles[roleID] = true
	if len(env) > 0 {
		entry.RoleEnv[roleID] = env
	}
	return e.cache.Put(ctx, key, entry)
}

func (e *Engine) revokeRole(ctx context.Context, apiItem *itemstore.Item, roleID string) error {
	key, entry, err := e.entryForAPI(ctx, apiItem)
	if err != nil {
		return err
	}
	delete(entry.Roles, roleID)
	delete(entry.RoleEnv, roleID)
	return e.cache.Put(ctx, key, entry)
}

// OnResRoleAdded handles a freshly-added ResRole(roleID, resID) rel: direct
// grant if resID is an API, propagated to every API reached via ResApi if
// resID is a menu/element.
func (e *Engine) OnResRoleAdded(ctx context.Context, roleID, resID string, env []relstore.Env) error {
	res, err := e.items.Get(ctx, resID)
	if err != nil {
		return err
	}
	var ext itemstore.ResExt
	if err := json.Unmarshal(res.Ext, &ext); err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "unmarshal res ext: %v", err)
	}

	if ext.Kind == itemstore.ResKindAPI {
		return e.grantRole(ctx, res, roleID, env)
	}

	edges, err := e.rels.FindTo(ctx, resID, tagResApi)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		apiItem, err := e.items.Get(ctx, edge.FromID)
		if err != nil {
			return err
		}
		if err := e.grantRole(ctx, apiItem, roleID, env); err != nil {
			return err
		}
	}
	return nil
}

// OnResApiAdded handles a freshly-added ResApi(apiResID, uiResID) rel:
// grants every role already bound to uiResID via ResRole at the API.
func (e *Engine) OnResApiAdded(ctx context.Context, apiResID, uiResID string) error {
	apiItem, err := e.items.Get(ctx, apiResID)
	if err != nil {
		return err
	}
	edges, err := e.rels.FindTo(ctx, uiResID, tagResRole)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		if err := e.grantRole(ctx, apiItem, edge.FromID, edge.Env); err != nil {
			return err
		}
	}
	return nil
}

// reaches reports whether roleID still grants access to apiResID through
// any surviving ResRole/ResApi path: a direct ResRole(roleID, apiResID)
// edge, or a ResRole(roleID, uiRes) edge paired with a surviving
// ResApi(apiResID, uiRes) edge.
func (e *Engine) reaches(ctx context.Context, roleID, apiResID string) (bool, error) {
	direct, err := e.rels.Exists(ctx, tagResRole, relstore.FromItem, roleID, apiResID)
	if err != nil {
		return false, err
	}
	if direct {
		return true, nil
	}

	roleEdges, err := e.rels.FindFrom(ctx, relstore.FromItem, roleID, tagResRole)
	if err != nil {
		return false, err
	}
	for _, re := range roleEdges {
		linked, err := e.rels.Exists(ctx, tagResApi, relstore.FromItem, apiResID, re.ToItemID)
		if err != nil {
			return false, err
		}
		if linked {
			return true, nil
		}
	}
	return false, nil
}

// OnResRoleRemoved handles a just-deleted ResRole(roleID, resID) rel.
// Removal from the cache is conditional: the role stays bound to an API if
// any other surviving path still reaches it (the "multiple paths" case).
func (e *Engine) OnResRoleRemoved(ctx context.Context, roleID, resID string) error {
	res, err := e.items.Get(ctx, resID)
	if err != nil {
		return err
	}
	var ext itemstore.ResExt
	if err := json.Unmarshal(res.Ext, &ext); err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "unmarshal res ext: %v", err)
	}

	if ext.Kind == itemstore.ResKindAPI {
		still, err := e.reaches(ctx, roleID, resID)
		if err != nil {
			return err
		}
		if still {
			return nil
		}
		return e.revokeRole(ctx, res, roleID)
	}

	edges, err := e.rels.FindTo(ctx, resID, tagResApi)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		apiItem, err := e.items.Get(ctx, edge.FromID)
		if err != nil {
			return err
		}
		still, err := e.reaches(ctx, roleID, edge.FromID)
		if err != nil {
			return err
		}
		if still {
			continue
		}
		if err := e.revokeRole(ctx, apiItem, roleID); err != nil {
			return err
		}
	}
	return nil
}

// OnResApiRemoved handles a just-deleted ResApi(apiResID, uiResID) rel: every
// role bound to uiResID via ResRole loses the API grant unless it still
// reaches apiResID through another menu/element.
func (e *Engine) OnResApiRemoved(ctx context.Context, apiResID, uiResID string) error {
	apiItem, err := e.items.Get(ctx, apiResID)
	if err != nil {
		return err
	}
	edges, err := e.rels.FindTo(ctx, uiResID, tagResRole)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		still, err := e.reaches(ctx, edge.FromID, apiResID)
		if err != nil {
			return err
		}
		if still {
			continue
		}
		if err := e.revokeRole(ctx, apiItem, edge.FromID); err != nil {
			return err
		}
	}
	return nil
}

// OnAPIModified refreshes an API entry's flags in place without touching its
// role set, for crypto/login/double-auth attribute edits.
func (e *Engine) OnAPIModified(ctx context.Context, apiResID string) error {
	apiItem, err := e.items.Get(ctx, apiResID)
	if err != nil {
		return err
	}
	key, entry, err := e.entryForAPI(ctx, apiItem)
	if err != nil {
		return err
	}
	return e.cache.Put(ctx, key, entry)
}

// OnAPIRemoved drops an API's cache entry entirely, for disable or delete.
func (e *Engine) OnAPIRemoved(ctx context.Context, code, method string) error {
	return e.cache.Delete(ctx, Key{Code: code, Method: method})
}

// Authorize grants access when the caller's role set intersects the entry's
// roles (honoring any env window on the granting role) or the resource does
// not require login.
func (e *Engine) Authorize(ctx context.Context, code, method string, callerRoles map[string]bool, now time.Time) (bool, Entry, error) {
	entry, ok, err := e.cache.Get(ctx, Key{Code: code, Method: method})
	if err != nil {
		return false, Entry{}, err
	}
	if !ok {
		return false, Entry{}, nil
	}
	if !entry.NeedLogin {
		return true, entry, nil
	}
	return len(entry.satisfiedRoles(callerRoles, now)) > 0, entry, nil
}

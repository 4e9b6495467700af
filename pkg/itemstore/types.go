// Package itemstore implements the generic persisted Item entity shared by
// every first-class object in the authorization engine (roles, resources,
// tenants, apps, accounts). Grounded on the teacher's pkg/rbac Store pattern
// (raw database/sql CRUD, JSON-marshaled extension columns, ON CONFLICT
// upserts), generalized from a single roles table to a polymorphic items
// table carrying a per-kind JSON extension payload (see SPEC_FULL.md §9,
// "Scope-level polymorphism").
package itemstore

import (
	"encoding/json"
	"strconv"
	"time"
)

// ScopeLevel mirrors scopepath.ScopeLevel without importing it, so this
// package stays free of a dependency cycle; callers convert at the
// boundary.
type ScopeLevel int

const (
	ScopeGlobal ScopeLevel = iota
	ScopeSystem
	ScopeTenant
	ScopeApp
	ScopePrivate
)

// Kind identifies what an Item specializes into.
type Kind string

const (
	KindTenant  Kind = "tenant"
	KindApp     Kind = "app"
	KindAccount Kind = "account"
	KindRole    Kind = "role"
	KindRes     Kind = "res"
)

// Item is the common row shape for every entity kind the engine tracks.
type Item struct {
	ID         string
	Code       string
	Name       string
	Kind       Kind
	DomainID   string
	ScopeLevel ScopeLevel
	OwnPaths   string
	Owner      string
	Disabled   bool
	Ext        json.RawMessage
	CreateTime time.Time
	UpdateTime time.Time
}

// RoleKind distinguishes system/tenant/app-scoped roles.
type RoleKind string

const (
	RoleKindSystem RoleKind = "system"
	RoleKindTenant RoleKind = "tenant"
	RoleKindApp    RoleKind = "app"
)

// RoleExt is the Role specialization's extension payload, marshaled into
// Item.Ext.
type RoleExt struct {
	Kind         RoleKind `json:"kind"`
	InEmbed      bool     `json:"in_embed"`
	InBase       bool     `json:"in_base"`
	ExtendRoleID string   `json:"extend_role_id,omitempty"`
}

// ResKind distinguishes the flavors of resource this engine authorizes.
type ResKind string

const (
	ResKindAPI        ResKind = "api"
	ResKindMenu       ResKind = "menu"
	ResKindEle        ResKind = "ele"
	ResKindProduct    ResKind = "product"
	ResKindSpec       ResKind = "spec"
	ResKindDataGuard  ResKind = "data_guard"
)

// ResExt is the Res specialization's extension payload.
type ResExt struct {
	Kind          ResKind `json:"kind"`
	Method        string  `json:"method,omitempty"`
	Hide          bool    `json:"hide"`
	Action        string  `json:"action,omitempty"`
	CryptoReq     bool    `json:"crypto_req"`
	CryptoResp    bool    `json:"crypto_resp"`
	DoubleAuth    bool    `json:"double_auth"`
	NeedLogin     bool    `json:"need_login"`
}

// APICode formats the canonical API res code: {kind_int}/{method}/{path}.
func APICode(kindInt int, method, path string) string {
	return strconv.Itoa(kindInt) + "/" + method + "/" + path
}

package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ironvault/sentryiam/pkg/audit"
	"github.com/ironvault/sentryiam/pkg/certconf"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/ironvault/sentryiam/pkg/itemstore"
	"github.com/ironvault/sentryiam/pkg/relstore"
	"github.com/ironvault/sentryiam/pkg/webhooks"
)

// RegisterTenant provisions a brand new tenant atomically: the tenant item,
// a default password cert-conf, an admin account and its cert, a tenant-admin
// and app-admin role template, a default console menu/API resource pair
// bound to the tenant-admin role, and an initial session token. Every table
// write happens inside one transaction; the role-resource binding's cache
// side effects and the token issuance happen only after commit, since both
// touch Redis rather than Postgres and can't themselves roll back with the
// transaction.
func (o *Orchestrator) RegisterTenant(ctx context.Context, req RegisterTenantRequest) (*RegisterTenantResult, error) {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "begin tx: %v", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res := &RegisterTenantResult{}

	res.TenantID = uuid.NewString()
	tenantPaths := res.TenantID
	if err := insertItem(ctx, tx, now, itemRow{
		ID: res.TenantID, Code: req.TenantCode, Name: req.TenantName, Kind: itemstore.KindTenant,
		DomainID: req.DomainID, ScopeLevel: itemstore.ScopeTenant, OwnPaths: tenantPaths, Owner: "",
	}); err != nil {
		return nil, err
	}

	res.AdminCertConfID = uuid.NewString()
	if err := insertCertConf(ctx, tx, now, certconf.CertConf{
		ID: res.AdminCertConfID, Kind: req.CertKind, Supplier: req.CertSupplier, RelItemID: res.TenantID,
		SKEncrypted: true, SKNeed: true, Repeatable: false, RepeatableWindow: 3,
		ExpireSec: 3600, SKLockCycleSec: 300, SKLockErrTimes: 5, SKLockDurationSec: 900,
		CoexistNum: 3, Status: certconf.StatusEnabled,
	}); err != nil {
		return nil, err
	}

	res.TenantAdminRoleID = uuid.NewString()
	tenantAdminExt, _ := json.Marshal(itemstore.RoleExt{Kind: itemstore.RoleKindTenant, InBase: true})
	if err := insertItem(ctx, tx, now, itemRow{
		ID: res.TenantAdminRoleID, Code: "tenant-admin", Name: "Tenant Administrator", Kind: itemstore.KindRole,
		DomainID: req.DomainID, ScopeLevel: itemstore.ScopeTenant, OwnPaths: tenantPaths, Owner: res.TenantID,
		Ext: tenantAdminExt,
	}); err != nil {
		return nil, err
	}

	res.AppAdminRoleID = uuid.NewString()
	appAdminExt, _ := json.Marshal(itemstore.RoleExt{Kind: itemstore.RoleKindApp, InBase: true})
	if err := insertItem(ctx, tx, now, itemRow{
		ID: res.AppAdminRoleID, Code: "app-admin", Name: "App Administrator", Kind: itemstore.KindRole,
		DomainID: req.DomainID, ScopeLevel: itemstore.ScopeTenant, OwnPaths: tenantPaths, Owner: res.TenantID,
		Ext: appAdminExt,
	}); err != nil {
		return nil, err
	}

	res.ConsoleAPIResID = uuid.NewString()
	apiExt, _ := json.Marshal(itemstore.ResExt{Kind: itemstore.ResKindAPI, Method: "GET", NeedLogin: true})
	if err := insertItem(ctx, tx, now, itemRow{
		ID: res.ConsoleAPIResID, Code: itemstore.APICode(1, "GET", "/console"), Name: "Console API",
		Kind: itemstore.KindRes, DomainID: req.DomainID, ScopeLevel: itemstore.ScopeTenant, OwnPaths: tenantPaths,
		Owner: res.TenantID, Ext: apiExt,
	}); err != nil {
		return nil, err
	}

	res.ConsoleMenuResID = uuid.NewString()
	menuExt, _ := json.Marshal(itemstore.ResExt{Kind: itemstore.ResKindMenu, NeedLogin: true})
	if err := insertItem(ctx, tx, now, itemRow{
		ID: res.ConsoleMenuResID, Code: "console-menu", Name: "Console", Kind: itemstore.KindRes,
		DomainID: req.DomainID, ScopeLevel: itemstore.ScopeTenant, OwnPaths: tenantPaths, Owner: res.TenantID,
		Ext: menuExt,
	}); err != nil {
		return nil, err
	}

	if err := insertRel(ctx, tx, now, relRow{
		Tag: "ResApi", FromKind: relstore.FromItem, FromID: res.ConsoleAPIResID, ToItemID: res.ConsoleMenuResID,
		OwnPaths: tenantPaths,
	}); err != nil {
		return nil, err
	}
	if err := insertRel(ctx, tx, now, relRow{
		Tag: "ResRole", FromKind: relstore.FromItem, FromID: res.TenantAdminRoleID, ToItemID: res.ConsoleMenuResID,
		OwnPaths: tenantPaths,
	}); err != nil {
		return nil, err
	}

	res.AdminAccountID = uuid.NewString()
	if err := insertItem(ctx, tx, now, itemRow{
		ID: res.AdminAccountID, Code: req.AdminAK, Name: "Tenant Admin Account", Kind: itemstore.KindAccount,
		DomainID: req.DomainID, ScopeLevel: itemstore.ScopeTenant, OwnPaths: tenantPaths, Owner: res.TenantID,
	}); err != nil {
		return nil, err
	}
	if err := insertRel(ctx, tx, now, relRow{
		Tag: "AccountRole", FromKind: relstore.FromItem, FromID: res.AdminAccountID, ToItemID: res.TenantAdminRoleID,
		OwnPaths: tenantPaths,
	}); err != nil {
		return nil, err
	}

	hashedSK, err := certconf.HashSecret(req.AdminSK)
	if err != nil {
		return nil, err
	}
	res.AdminCertID = uuid.NewString()
	if err := insertCert(ctx, tx, now, certconf.Cert{
		ID: res.AdminCertID, AK: req.AdminAK, SK: hashedSK, Kind: req.CertKind, Supplier: req.CertSupplier,
		RelCertConfID: res.AdminCertConfID, RelKind: certconf.RelKindItem, RelID: res.AdminAccountID,
		StartTime: now, Status: certconf.StatusEnabled,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "commit register_tenant tx: %v", err)
	}

	if err := o.engine.OnResApiAdded(ctx, res.ConsoleAPIResID, res.ConsoleMenuResID); err != nil {
		return nil, err
	}
	if err := o.engine.OnResRoleAdded(ctx, res.TenantAdminRoleID, res.ConsoleMenuResID, nil); err != nil {
		return nil, err
	}

	if o.tokens != nil {
		plaintext, _, err := o.tokens.CreateToken(ctx, res.AdminAccountID, req.CertKind, "initial", time.Hour, 0)
		if err != nil {
			return nil, err
		}
		res.Token = plaintext
	}

	o.logAdmin(ctx, audit.EventTypeAdminTenantCreate, audit.ResourceTypeTenant, res.TenantID,
		"tenant "+req.TenantCode+" registered")
	o.dispatch(ctx, webhooks.EventTenantRegistered, map[string]interface{}{
		"tenant_id":   res.TenantID,
		"tenant_code": req.TenantCode,
	})

	return res, nil
}

// RegisterAccount provisions an account inside an already-existing app's
// scope: the account item, its primary cert, and an account-app rel.
func (o *Orchestrator) RegisterAccount(ctx context.Context, req RegisterAccountRequest) (*RegisterAccountResult, error) {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "begin tx: %v", err)
	}
	defer tx.Rollback()

	var appOwnPaths, appDomainID string
	err = tx.QueryRowContext(ctx, `SELECT own_paths, domain_id FROM items WHERE id = $1 AND kind = $2`,
		req.AppID, itemstore.KindApp).Scan(&appOwnPaths, &appDomainID)
	if err == sql.ErrNoRows {
		return nil, iamerrors.Wrap(iamerrors.ErrNotFound, "app %s not found", req.AppID)
	}
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "lookup app: %v", err)
	}

	now := time.Now().UTC()
	res := &RegisterAccountResult{}

	res.AccountID = uuid.NewString()
	accountPaths := appOwnPaths + "/" + res.AccountID
	if err := insertItem(ctx, tx, now, itemRow{
		ID: res.AccountID, Code: req.AK, Name: req.AK, Kind: itemstore.KindAccount, DomainID: appDomainID,
		ScopeLevel: itemstore.ScopePrivate, OwnPaths: accountPaths, Owner: req.AppID,
	}); err != nil {
		return nil, err
	}

	res.CertConfID = uuid.NewString()
	if err := insertCertConf(ctx, tx, now, certconf.CertConf{
		ID: res.CertConfID, Kind: req.CertKind, Supplier: req.CertSupplier, RelItemID: res.AccountID,
		SKEncrypted: true, SKNeed: true, Repeatable: false, RepeatableWindow: 3,
		ExpireSec: req.ExpireSec, SKLockCycleSec: req.SKLockCycleSec, SKLockErrTimes: req.SKLockErrTimes,
		SKLockDurationSec: req.SKLockDurationSec, CoexistNum: req.CoexistNum, Status: certconf.StatusEnabled,
	}); err != nil {
		return nil, err
	}

	hashedSK, err := certconf.HashSecret(req.SK)
	if err != nil {
		return nil, err
	}
	res.CertID = uuid.NewString()
	if err := insertCert(ctx, tx, now, certconf.Cert{
		ID: res.CertID, AK: req.AK, SK: hashedSK, Kind: req.CertKind, Supplier: req.CertSupplier,
		RelCertConfID: res.CertConfID, RelKind: certconf.RelKindItem, RelID: res.AccountID,
		StartTime: now, Status: certconf.StatusEnabled,
	}); err != nil {
		return nil, err
	}

	res.AppRelID = uuid.NewString()
	if err := insertRel(ctx, tx, now, relRow{
		ID: res.AppRelID, Tag: "AccountApp", FromKind: relstore.FromItem, FromID: res.AccountID,
		ToItemID: req.AppID, OwnPaths: accountPaths,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "commit register_account tx: %v", err)
	}

	o.logAdmin(ctx, audit.EventTypeAdminAccountCreate, audit.ResourceTypeAccount, res.AccountID,
		"account "+req.AK+" registered under app "+req.AppID)
	o.dispatch(ctx, webhooks.EventAccountRegistered, map[string]interface{}{
		"account_id": res.AccountID,
		"app_id":     req.AppID,
	})

	return res, nil
}

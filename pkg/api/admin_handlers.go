package api

import (
	"net/http"

	"github.com/ironvault/sentryiam/pkg/httputil"
	"github.com/ironvault/sentryiam/pkg/itemstore"
	"github.com/ironvault/sentryiam/pkg/middleware"
	"github.com/ironvault/sentryiam/pkg/orchestrator"
	"github.com/ironvault/sentryiam/pkg/relstore"
)

// registerAdminRoutes wires the §4.8 provisioning and binding operations,
// and the plain item/rel CRUD the engine's roles and resources sit on.
// Every route requires a resolved caller; RequireScope gates each one
// against the (res_code, method) pair the operation is registered under.
func (s *Server) registerAdminRoutes() {
	admin := s.router.PathPrefix("/iam").Subrouter()
	admin.Use(s.authMiddleware(false))

	admin.Handle("/tenants", s.scoped("iam/tenant", http.MethodPost, http.HandlerFunc(s.handleRegisterTenant))).Methods(http.MethodPost)
	admin.Handle("/accounts", s.scoped("iam/account", http.MethodPost, http.HandlerFunc(s.handleRegisterAccount))).Methods(http.MethodPost)
	admin.Handle("/apps/{app_id}/transfer", s.scoped("iam/app/transfer", http.MethodPost, http.HandlerFunc(s.handleTransferAppOwnership))).Methods(http.MethodPost)

	admin.Handle("/roles", s.scoped("iam/role", http.MethodPost, http.HandlerFunc(s.handleCreateItem(itemstore.KindRole)))).Methods(http.MethodPost)
	admin.Handle("/roles/{id}", s.scoped("iam/role", http.MethodGet, http.HandlerFunc(s.handleGetItem))).Methods(http.MethodGet)
	admin.Handle("/resources", s.scoped("iam/res", http.MethodPost, http.HandlerFunc(s.handleCreateItem(itemstore.KindRes)))).Methods(http.MethodPost)
	admin.Handle("/resources/{id}", s.scoped("iam/res", http.MethodGet, http.HandlerFunc(s.handleGetItem))).Methods(http.MethodGet)

	admin.Handle("/bindings/role-res", s.scoped("iam/binding/role-res", http.MethodPost, http.HandlerFunc(s.handleBindRoleToRes))).Methods(http.MethodPost)
	admin.Handle("/bindings/role-res/{rel_id}", s.scoped("iam/binding/role-res", http.MethodDelete, http.HandlerFunc(s.handleUnbindRoleFromRes))).Methods(http.MethodDelete)

	admin.Handle("/cert-confs/{id}/backup", s.scoped("iam/certconf/backup", http.MethodPost, http.HandlerFunc(s.handleBackupCertConf))).Methods(http.MethodPost)
	admin.Handle("/cert-confs/{id}/restore", s.scoped("iam/certconf/backup", http.MethodPost, http.HandlerFunc(s.handleRestoreCertConf))).Methods(http.MethodPost)
}

// handleBackupCertConf exports a cert-conf's policy snapshot to S3.
func (s *Server) handleBackupCertConf(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "cert-conf backups are not configured")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	cc, err := s.certStore.GetCertConf(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}
	if err := s.backups.Export(r.Context(), cc); err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}
	httputil.WriteNoContent(w)
}

// handleRestoreCertConf fetches a previously exported policy snapshot. It
// returns the snapshot without writing it back; callers apply it through
// the normal cert-conf update path so the restore is reviewable first.
func (s *Server) handleRestoreCertConf(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "cert-conf backups are not configured")
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	cc, err := s.backups.Restore(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}
	httputil.WriteSuccess(w, cc)
}

// scoped wraps next with middleware.RequireScope for (code, method).
func (s *Server) scoped(code, method string, next http.Handler) http.Handler {
	return middleware.RequireScope(s.engine, code, method)(next)
}

type registerTenantRequest struct {
	DomainID     string `json:"domain_id"`
	TenantCode   string `json:"tenant_code"`
	TenantName   string `json:"tenant_name"`
	AdminAK      string `json:"admin_ak"`
	AdminSK      string `json:"admin_sk"`
	CertKind     string `json:"cert_kind"`
	CertSupplier string `json:"cert_supplier"`
}

func (s *Server) handleRegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req registerTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.TenantCode, "tenant_code") ||
		!httputil.RequireNonEmpty(w, req.AdminAK, "admin_ak") ||
		!httputil.RequireNonEmpty(w, req.AdminSK, "admin_sk") {
		return
	}

	result, err := s.orch.RegisterTenant(r.Context(), orchestrator.RegisterTenantRequest{
		DomainID:     req.DomainID,
		TenantCode:   req.TenantCode,
		TenantName:   req.TenantName,
		AdminAK:      req.AdminAK,
		AdminSK:      req.AdminSK,
		CertKind:     req.CertKind,
		CertSupplier: req.CertSupplier,
	})
	if err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}
	httputil.WriteCreated(w, result)
}

type registerAccountRequest struct {
	AppID             string `json:"app_id"`
	AK                string `json:"ak"`
	SK                string `json:"sk"`
	CertKind          string `json:"cert_kind"`
	CertSupplier      string `json:"cert_supplier"`
	ExpireSec         int    `json:"expire_sec"`
	SKLockCycleSec    int    `json:"sk_lock_cycle_sec"`
	SKLockErrTimes    int    `json:"sk_lock_err_times"`
	SKLockDurationSec int    `json:"sk_lock_duration_sec"`
	CoexistNum        int    `json:"coexist_num"`
}

func (s *Server) handleRegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req registerAccountRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.AppID, "app_id") ||
		!httputil.RequireNonEmpty(w, req.AK, "ak") ||
		!httputil.RequireNonEmpty(w, req.SK, "sk") {
		return
	}

	result, err := s.orch.RegisterAccount(r.Context(), orchestrator.RegisterAccountRequest{
		AppID:             req.AppID,
		AK:                req.AK,
		SK:                req.SK,
		CertKind:          req.CertKind,
		CertSupplier:      req.CertSupplier,
		ExpireSec:         req.ExpireSec,
		SKLockCycleSec:    req.SKLockCycleSec,
		SKLockErrTimes:    req.SKLockErrTimes,
		SKLockDurationSec: req.SKLockDurationSec,
		CoexistNum:        req.CoexistNum,
	})
	if err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}
	httputil.WriteCreated(w, result)
}

type transferAppOwnershipRequest struct {
	NewOwnerID      string `json:"new_owner_id"`
	AdminRoleID     string `json:"admin_role_id"`
	RebindAdminRole bool   `json:"rebind_admin_role"`
	RemoveOldOwner  bool   `json:"remove_old_owner"`
}

func (s *Server) handleTransferAppOwnership(w http.ResponseWriter, r *http.Request) {
	appID, ok := httputil.ParsePathStringOrError(w, r, "app_id")
	if !ok {
		return
	}
	var req transferAppOwnershipRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.NewOwnerID, "new_owner_id") {
		return
	}

	err := s.orch.TransferAppOwnership(r.Context(), orchestrator.TransferAppOwnershipRequest{
		AppID:           appID,
		NewOwnerID:      req.NewOwnerID,
		AdminRoleID:     req.AdminRoleID,
		RebindAdminRole: req.RebindAdminRole,
		RemoveOldOwner:  req.RemoveOldOwner,
	})
	if err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}
	httputil.WriteNoContent(w)
}

type createItemRequest struct {
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	DomainID   string             `json:"domain_id"`
	ScopeLevel itemstore.ScopeLevel `json:"scope_level"`
	OwnPaths   string             `json:"own_paths"`
	Owner      string             `json:"owner"`
	Ext        map[string]interface{} `json:"ext"`
}

// handleCreateItem returns a handler that creates an Item of kind.
// Roles and resources differ only in their Ext payload shape, which the
// caller supplies as free-form JSON re-marshaled into the item's Ext column.
func (s *Server) handleCreateItem(kind itemstore.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createItemRequest
		if !httputil.ParseJSONOrError(w, r, &req) {
			return
		}
		if !httputil.RequireNonEmpty(w, req.Code, "code") {
			return
		}

		ext, err := marshalExt(req.Ext)
		if err != nil {
			httputil.WriteValidationError(w, err.Error())
			return
		}

		item := &itemstore.Item{
			Code:       req.Code,
			Name:       req.Name,
			Kind:       kind,
			DomainID:   req.DomainID,
			ScopeLevel: req.ScopeLevel,
			OwnPaths:   req.OwnPaths,
			Owner:      req.Owner,
			Ext:        ext,
		}
		if err := s.items.Create(r.Context(), item); err != nil {
			httputil.WriteError(w, statusFor(err), err)
			return
		}
		httputil.WriteCreated(w, item)
	}
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	item, err := s.items.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}
	httputil.WriteSuccess(w, item)
}

type bindRoleToResRequest struct {
	RoleID   string          `json:"role_id"`
	ResID    string          `json:"res_id"`
	OwnPaths string          `json:"own_paths"`
	Env      []relstore.Env  `json:"env"`
}

func (s *Server) handleBindRoleToRes(w http.ResponseWriter, r *http.Request) {
	var req bindRoleToResRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.RoleID, "role_id") || !httputil.RequireNonEmpty(w, req.ResID, "res_id") {
		return
	}
	if err := s.orch.BindRoleToRes(r.Context(), req.RoleID, req.ResID, req.OwnPaths, req.Env); err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleUnbindRoleFromRes(w http.ResponseWriter, r *http.Request) {
	relID, ok := httputil.ParsePathStringOrError(w, r, "rel_id")
	if !ok {
		return
	}
	roleID := httputil.ParseQueryString(r, "role_id", "")
	resID := httputil.ParseQueryString(r, "res_id", "")
	if !httputil.RequireNonEmpty(w, roleID, "role_id") || !httputil.RequireNonEmpty(w, resID, "res_id") {
		return
	}
	if err := s.orch.UnbindRoleFromRes(r.Context(), relID, roleID, resID); err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}
	httputil.WriteNoContent(w)
}

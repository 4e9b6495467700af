package api

import (
	"net/http"
	"time"

	"github.com/ironvault/sentryiam/pkg/httputil"
	"github.com/ironvault/sentryiam/pkg/middleware"
)

// registerAuthRoutes wires the §4.7 login/logout/auth.check surface.
func (s *Server) registerAuthRoutes() {
	s.router.HandleFunc("/iam/login", s.handleLogin).Methods(http.MethodPost)

	logout := s.router.PathPrefix("/iam/logout").Subrouter()
	logout.Use(s.authMiddleware(false))
	logout.HandleFunc("", s.handleLogout).Methods(http.MethodPost)

	check := s.router.PathPrefix("/iam/auth").Subrouter()
	check.Use(s.authMiddleware(false))
	check.HandleFunc("/check", s.handleAuthCheck).Methods(http.MethodPost)
}

type loginRequest struct {
	RelAppID string `json:"rel_app_id"`
	AK       string `json:"ak"`
	SK       string `json:"sk"`
	CertKind string `json:"cert_kind"`
}

type loginResponse struct {
	AccountID string   `json:"account_id"`
	Token     string   `json:"token"`
	Roles     []string `json:"roles"`
	Groups    []string `json:"groups"`
	ExpiresAt string   `json:"expires_at"`
}

// handleLogin implements the `login` operation: resolve the app's cert-conf
// for cert_kind, verify ak/sk against it, and issue a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.RelAppID, "rel_app_id") ||
		!httputil.RequireNonEmpty(w, req.AK, "ak") ||
		!httputil.RequireNonEmpty(w, req.SK, "sk") ||
		!httputil.RequireNonEmpty(w, req.CertKind, "cert_kind") {
		return
	}

	ctx := r.Context()
	cc, err := s.certStore.GetCertConfByRel(ctx, req.CertKind, req.RelAppID)
	if err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}

	session, err := s.ctxs.Login(ctx, cc, req.AK, req.SK, req.RelAppID)
	if err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}

	httputil.WriteSuccess(w, loginResponse{
		AccountID: session.Context.Owner,
		Token:     session.Token,
		Roles:     session.Context.Roles,
		Groups:    session.Context.Groups,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleLogout implements the `logout` operation: revoke the bearer token
// and drop its cached context.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if len(token) > 7 && token[:7] == "Bearer " {
		token = token[7:]
	}
	if err := s.ctxs.Logout(r.Context(), token); err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}
	httputil.WriteNoContent(w)
}

type authCheckRequest struct {
	ResCode string `json:"res_code"`
	Method  string `json:"method"`
}

type authCheckResponse struct {
	Allowed    bool `json:"allowed"`
	NeedLogin  bool `json:"need_login"`
	CryptoReq  bool `json:"crypto_req"`
	CryptoResp bool `json:"crypto_resp"`
	DoubleAuth bool `json:"double_auth"`
}

// handleAuthCheck implements the `auth.check` operation for callers that
// want the authorization decision directly rather than through
// middleware.RequireScope (e.g. a gateway fronting other services).
func (s *Server) handleAuthCheck(w http.ResponseWriter, r *http.Request) {
	var req authCheckRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ResCode, "res_code") || !httputil.RequireNonEmpty(w, req.Method, "method") {
		return
	}

	tc := middleware.GetAuthContext(r)
	roles := map[string]bool{}
	if tc != nil {
		for _, role := range tc.Roles {
			roles[role] = true
		}
	}

	allowed, entry, err := s.engine.Authorize(r.Context(), req.ResCode, req.Method, roles, time.Now().UTC())
	if err != nil {
		httputil.WriteError(w, statusFor(err), err)
		return
	}

	httputil.WriteSuccess(w, authCheckResponse{
		Allowed:    allowed,
		NeedLogin:  entry.NeedLogin,
		CryptoReq:  entry.CryptoReq,
		CryptoResp: entry.CryptoResp,
		DoubleAuth: entry.DoubleAuth,
	})
}

// Package api implements the IAM HTTP surface: login/logout, the
// auth.check authorization query, and the admin operations for
// provisioning tenants, accounts, roles, resources and the bindings
// between them (SPEC_FULL.md §4.7, §4.8).
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ironvault/sentryiam/pkg/authengine"
	"github.com/ironvault/sentryiam/pkg/certconf"
	"github.com/ironvault/sentryiam/pkg/contextcache"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/ironvault/sentryiam/pkg/itemstore"
	"github.com/ironvault/sentryiam/pkg/middleware"
	"github.com/ironvault/sentryiam/pkg/orchestrator"
	"github.com/ironvault/sentryiam/pkg/relstore"
	"github.com/ironvault/sentryiam/pkg/token"
)

// Server wires the IAM HTTP handlers over the domain services. It holds no
// state of its own beyond the router and the service handles every handler
// needs.
type Server struct {
	router *mux.Router

	certStore *certconf.Store
	certs     *certconf.CertService
	certSvc   *certconf.CertConfService
	items     *itemstore.Store
	rels      *relstore.Store
	tokens    *token.Manager
	engine    *authengine.Engine
	ctxs      *contextcache.Service
	orch      *orchestrator.Orchestrator
	backups   *certconf.BackupClient
}

// Deps bundles every domain service the API layer calls into. Backups is
// optional: a nil value disables the backup/restore routes' S3 call and
// they respond 503 instead.
type Deps struct {
	CertStore *certconf.Store
	Certs     *certconf.CertService
	CertSvc   *certconf.CertConfService
	Items     *itemstore.Store
	Rels      *relstore.Store
	Tokens    *token.Manager
	Engine    *authengine.Engine
	Ctxs      *contextcache.Service
	Orch      *orchestrator.Orchestrator
	Backups   *certconf.BackupClient
}

// NewServer builds the router and registers every route group.
func NewServer(d Deps) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		certStore: d.CertStore,
		certs:     d.Certs,
		certSvc:   d.CertSvc,
		items:     d.Items,
		rels:      d.Rels,
		tokens:    d.Tokens,
		engine:    d.Engine,
		ctxs:      d.Ctxs,
		orch:      d.Orch,
		backups:   d.Backups,
	}
	s.registerAuthRoutes()
	s.registerAdminRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// authMiddleware builds the request-scoped auth.Handler for protected routes.
func (s *Server) authMiddleware(optional bool) func(http.Handler) http.Handler {
	return middleware.NewAuthMiddleware(s.ctxs, optional).Handler
}

// statusFor maps an iamerrors sentinel to the HTTP status the teacher's
// httputil.Write* helpers expect.
func statusFor(err error) int {
	switch {
	case iamerrors.IsNotFound(err):
		return http.StatusNotFound
	case iamerrors.IsConflict(err):
		return http.StatusConflict
	case iamerrors.IsForbidden(err):
		return http.StatusForbidden
	case iamerrors.IsUnauthorized(err):
		return http.StatusUnauthorized
	case iamerrors.IsLocked(err):
		return http.StatusLocked
	case iamerrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case iamerrors.IsPolicyViolation(err):
		return http.StatusUnprocessableEntity
	case iamerrors.IsResourceBusy(err):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

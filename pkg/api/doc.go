// Package api exposes the IAM domain over HTTP using gorilla/mux, the
// routing library the teacher's schema-registry API was built on.
//
// # Routes
//
// Unauthenticated:
//
//	POST /iam/login   - resolve a cert-conf for (cert_kind, rel_app_id), verify ak/sk, issue a token
//
// Require a resolved bearer token (middleware.AuthMiddleware):
//
//	POST   /iam/logout       - revoke the caller's token
//	POST   /iam/auth/check   - direct auth.check query (res_code, method) -> allowed + flags
//
// Require a resolved token AND a granting role for the route's
// (res_code, method) pair (middleware.RequireScope, see Server.scoped):
//
//	POST   /iam/tenants                      - provision a tenant (orchestrator.RegisterTenant)
//	POST   /iam/accounts                     - provision an account under an app (orchestrator.RegisterAccount)
//	POST   /iam/apps/{app_id}/transfer       - reassign app ownership
//	POST   /iam/roles, /iam/resources        - create a role/res item
//	GET    /iam/roles/{id}, /iam/resources/{id}
//	POST   /iam/bindings/role-res            - bind a role to a res (build-up rule, §4.6)
//	DELETE /iam/bindings/role-res/{rel_id}   - unbind (tear-down rule)
//	POST   /iam/cert-confs/{id}/backup       - export a cert-conf policy snapshot to S3
//	POST   /iam/cert-confs/{id}/restore      - fetch a previously exported snapshot (503 if S3 unconfigured)
//
// # Error mapping
//
// Every handler translates domain errors through statusFor, which switches
// on the iamerrors predicates (IsNotFound, IsConflict, ...) rather than
// inspecting error strings.
package api

// Package authengine maintains the denormalized (res_code, method) -> roles
// authorization cache described in SPEC_FULL.md §4.6: build-up and tear-down
// rules triggered by ResRole/ResApi rel changes, queried on every request.
// Grounded on the teacher's pkg/rbac/checker.go resolveRoleInheritance
// recursion, generalized from a single parent_role_id walk to the two-hop
// menu/element -> API graph this engine maintains instead.
package authengine

import (
	"time"

	"github.com/ironvault/sentryiam/pkg/relstore"
)

// Key identifies a cache entry: an API resource's code and HTTP method.
type Key struct {
	Code   string
	Method string
}

// String is the mixed_uri cache field: "{code}##{method}".
func (k Key) String() string {
	return k.Code + "##" + k.Method
}

// Entry is the authorization decision material for one (code, method) pair.
type Entry struct {
	Roles      map[string]bool       `json:"roles"`
	RoleEnv    map[string][]relstore.Env `json:"role_env,omitempty"`
	NeedLogin  bool                  `json:"need_login"`
	CryptoReq  bool                  `json:"crypto_req"`
	CryptoResp bool                  `json:"crypto_resp"`
	DoubleAuth bool                  `json:"double_auth"`
}

func newEntry() Entry {
	return Entry{Roles: map[string]bool{}, RoleEnv: map[string][]relstore.Env{}}
}

// satisfiedRoles returns the subset of candidate roles that grant access at
// now, honoring any env (time-window) constraint carried by the rel that
// bound the role.
func (e Entry) satisfiedRoles(candidates map[string]bool, now time.Time) []string {
	var out []string
	for roleID := range candidates {
		if !e.Roles[roleID] {
			continue
		}
		envs := e.RoleEnv[roleID]
		if len(envs) == 0 {
			out = append(out, roleID)
			continue
		}
		if (&relstore.Rel{Env: envs}).EnvSatisfied(now) {
			out = append(out, roleID)
		}
	}
	return out
}

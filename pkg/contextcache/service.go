package contextcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ironvault/sentryiam/pkg/certconf"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/ironvault/sentryiam/pkg/itemstore"
	"github.com/ironvault/sentryiam/pkg/relstore"
	"github.com/ironvault/sentryiam/pkg/token"
)

const (
	tagAccountRole  = "AccountRole"
	tagGroupMember  = "GroupMember"
)

// Service implements the §4.7 login/logout/invalidation flow: verify a
// cert, resolve the account's transitive role set and group memberships,
// issue a token, and cache the resulting context.
type Service struct {
	certs *certconf.CertService
	items *itemstore.Store
	rels  *relstore.Store
	toks  *token.Manager
	cache *Cache
}

func NewService(certs *certconf.CertService, items *itemstore.Store, rels *relstore.Store, toks *token.Manager, cache *Cache) *Service {
	return &Service{certs: certs, items: items, rels: rels, toks: toks, cache: cache}
}

// Login verifies ak/candidate against cc, then builds and caches a
// TardisContext for the resulting account, scoped to appID.
func (s *Service) Login(ctx context.Context, cc *certconf.CertConf, ak, candidate, appID string) (*Session, error) {
	cert, err := s.certs.Verify(ctx, cc, ak, candidate)
	if err != nil {
		return nil, err
	}
	accountID := cert.RelID

	account, err := s.items.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	roles, err := s.resolveRoles(ctx, accountID)
	if err != nil {
		return nil, err
	}
	groups, err := s.resolveGroups(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(cc.ExpireSec) * time.Second
	plaintext, _, err := s.toks.CreateToken(ctx, accountID, cc.Kind, "login", ttl, cc.CoexistNum)
	if err != nil {
		return nil, err
	}

	tc := TardisContext{
		OwnPaths:  account.OwnPaths,
		Owner:     accountID,
		AK:        ak,
		Roles:     roles,
		Groups:    groups,
		TokenKind: cc.Kind,
	}

	if err := s.cache.PutTokenInfo(ctx, plaintext, cc.Kind, accountID, ttl); err != nil {
		return nil, err
	}
	if err := s.cache.PutAccountRel(ctx, accountID, plaintext, cc.Kind); err != nil {
		return nil, err
	}
	if err := s.cache.PutAccountInfo(ctx, accountID, appID, tc); err != nil {
		return nil, err
	}

	return &Session{Token: plaintext, Context: tc, ExpiresAt: time.Now().UTC().Add(ttl)}, nil
}

// Resolve turns an already-issued plaintext token into the TardisContext a
// request should authorize against, for appID. It tries the cache first
// (token info, then the account's cached context); on a cache miss it falls
// back to validating the token against the store and rebuilding the
// context from scratch, repopulating the cache for the next call.
func (s *Service) Resolve(ctx context.Context, plaintext, appID string) (*TardisContext, error) {
	kind, accountID, ok, err := s.cache.GetTokenInfo(ctx, plaintext)
	if err != nil {
		return nil, err
	}
	if ok {
		if tc, hit, err := s.cache.GetAccountInfo(ctx, accountID, appID); err != nil {
			return nil, err
		} else if hit {
			return tc, nil
		}
		return s.rebuildContext(ctx, accountID, kind, plaintext, appID, nil)
	}

	rec, err := s.toks.ValidateToken(ctx, plaintext)
	if err != nil {
		return nil, err
	}
	return s.rebuildContext(ctx, rec.OwnerID, rec.Kind, plaintext, appID, rec.ExpiresAt)
}

// rebuildContext re-derives a TardisContext from the stores and repopulates
// the cache under plaintext/appID so the next Resolve is a cache hit.
func (s *Service) rebuildContext(ctx context.Context, accountID, kind, plaintext, appID string, expiresAt *time.Time) (*TardisContext, error) {
	account, err := s.items.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	roles, err := s.resolveRoles(ctx, accountID)
	if err != nil {
		return nil, err
	}
	groups, err := s.resolveGroups(ctx, accountID)
	if err != nil {
		return nil, err
	}

	tc := TardisContext{
		OwnPaths:  account.OwnPaths,
		Owner:     accountID,
		Roles:     roles,
		Groups:    groups,
		TokenKind: kind,
	}

	ttl := 15 * time.Minute
	if expiresAt != nil {
		if remaining := time.Until(*expiresAt); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.cache.PutTokenInfo(ctx, plaintext, kind, accountID, ttl); err != nil {
		return nil, err
	}
	if err := s.cache.PutAccountRel(ctx, accountID, plaintext, kind); err != nil {
		return nil, err
	}
	if err := s.cache.PutAccountInfo(ctx, accountID, appID, tc); err != nil {
		return nil, err
	}

	return &tc, nil
}

// Logout revokes the token and drops its cache entries.
func (s *Service) Logout(ctx context.Context, plaintext string) error {
	rec, err := s.toks.ValidateToken(ctx, plaintext)
	if err != nil {
		if iamerrors.IsUnauthorized(err) {
			return nil
		}
		return err
	}
	if err := s.toks.RevokeToken(ctx, rec.ID); err != nil {
		return err
	}
	if err := s.cache.DelTokenInfo(ctx, plaintext); err != nil {
		return err
	}
	return s.cache.DelAccountRel(ctx, rec.OwnerID, plaintext)
}

// InvalidateOwner clears every cached token and context for an account.
// Callers: cert modify/reset, role disable/delete, ResRole rel changes
// touching the account, app/tenant disable, account-role rel add/remove.
func (s *Service) InvalidateOwner(ctx context.Context, accountID string) error {
	tokens, err := s.cache.ListAccountTokens(ctx, accountID)
	if err != nil {
		return err
	}
	for tok := range tokens {
		if err := s.cache.DelTokenInfo(ctx, tok); err != nil {
			return err
		}
	}
	if err := s.cache.DelAccountRelAll(ctx, accountID); err != nil {
		return err
	}
	return s.cache.DelAccountInfoAll(ctx, accountID)
}

// resolveRoles returns accountID's directly-bound roles plus every role
// reached by following extend_role_id, deduplicated. Recursive-walk-with-
// visited-map shape, generalized from the teacher's single-parent
// resolveRoleInheritance to the spec's extend_role_id sub-instance chain.
func (s *Service) resolveRoles(ctx context.Context, accountID string) ([]string, error) {
	edges, err := s.rels.FindFrom(ctx, relstore.FromItem, accountID, tagAccountRole)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{}
	var walk func(roleID string) error
	walk = func(roleID string) error {
		if visited[roleID] {
			return nil
		}
		visited[roleID] = true
		role, err := s.items.Get(ctx, roleID)
		if err != nil {
			if iamerrors.IsNotFound(err) {
				return nil
			}
			return err
		}
		var ext itemstore.RoleExt
		if err := json.Unmarshal(role.Ext, &ext); err != nil {
			return iamerrors.Wrap(iamerrors.ErrInternal, "unmarshal role ext: %v", err)
		}
		if ext.ExtendRoleID != "" {
			if err := walk(ext.ExtendRoleID); err != nil {
				return err
			}
		}
		return nil
	}

	for _, edge := range edges {
		if err := walk(edge.ToItemID); err != nil {
			return nil, err
		}
	}

	roles := make([]string, 0, len(visited))
	for id := range visited {
		roles = append(roles, id)
	}
	return roles, nil
}

// resolveGroups returns the set-tree cate ids accountID is a member of, via
// the GroupMember rel (From = SetCate, To = account item).
func (s *Service) resolveGroups(ctx context.Context, accountID string) ([]string, error) {
	edges, err := s.rels.FindTo(ctx, accountID, tagGroupMember)
	if err != nil {
		return nil, err
	}
	groups := make([]string, 0, len(edges))
	for _, edge := range edges {
		if edge.FromKind == relstore.FromSetCate {
			groups = append(groups, edge.FromID)
		}
	}
	return groups, nil
}

package token

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ironvault/sentryiam/pkg/cache"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
)

// cacheKey is distinct from contextcache's iam:cache:token:{token} (which is
// keyed by the raw token for the hot login-context lookup); this is a
// read-through cache over the persisted tokens table, keyed by hash.
func cacheKey(hash string) string {
	return fmt.Sprintf("iam:cache:credential:%s", hash)
}

// cachedToken is the JSON payload stored at cacheKey(hash); it omits
// LastUsedAt since last-use tracking always goes through the store.
type cachedToken struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Kind      string     `json:"kind"`
	TokenHash string     `json:"token_hash"`
	Prefix    string     `json:"prefix"`
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func toCached(t *Token) cachedToken {
	return cachedToken{
		ID: t.ID, OwnerID: t.OwnerID, Kind: t.Kind, TokenHash: t.TokenHash,
		Prefix: t.Prefix, Name: t.Name, ExpiresAt: t.ExpiresAt, RevokedAt: t.RevokedAt,
	}
}

func (c cachedToken) toToken() *Token {
	return &Token{
		ID: c.ID, OwnerID: c.OwnerID, Kind: c.Kind, TokenHash: c.TokenHash,
		Prefix: c.Prefix, Name: c.Name, ExpiresAt: c.ExpiresAt, RevokedAt: c.RevokedAt,
	}
}

// cacheTTL bounds how long a validated token stays in the lookup cache;
// capped independently of the token's own expiry so a revoke is visible to
// new lookups within this window even if the cache write races the revoke.
const cacheTTL = 5 * time.Minute

// Manager issues, validates, and revokes tokens, enforcing the coexistence
// cap from the owning cert-conf. Satisfies certconf.TokenRevoker via
// RevokeAllForOwner.
type Manager struct {
	store *Store
	cache *cache.Client
	gen   *Generator
}

func NewManager(store *Store, c *cache.Client) *Manager {
	return &Manager{store: store, cache: c, gen: NewGenerator()}
}

// CreateToken issues a new token for ownerID. When the owner already holds
// coexistNum or more active tokens of this kind, the oldest are revoked
// first so the cap is never exceeded (coexistNum <= 0 means unlimited).
func (m *Manager) CreateToken(ctx context.Context, ownerID, kind, name string, ttl time.Duration, coexistNum int) (plaintext string, rec *Token, err error) {
	if coexistNum > 0 {
		active, err := m.store.ListActiveByOwner(ctx, ownerID)
		if err != nil {
			return "", nil, err
		}
		sameKind := active[:0]
		for _, t := range active {
			if t.Kind == kind {
				sameKind = append(sameKind, t)
			}
		}
		if len(sameKind) >= coexistNum {
			sort.Slice(sameKind, func(i, j int) bool { return sameKind[i].CreateTime.Before(sameKind[j].CreateTime) })
			evict := len(sameKind) - coexistNum + 1
			for i := 0; i < evict; i++ {
				if err := m.revokeAndUncache(ctx, sameKind[i]); err != nil {
					return "", nil, err
				}
			}
		}
	}

	plaintext, hash, prefix, err := m.gen.Generate(kind)
	if err != nil {
		return "", nil, iamerrors.Wrap(iamerrors.ErrInternal, "generate token: %v", err)
	}

	t := &Token{
		OwnerID:   ownerID,
		Kind:      kind,
		TokenHash: hash,
		Prefix:    prefix,
		Name:      name,
	}
	if ttl > 0 {
		exp := time.Now().UTC().Add(ttl)
		t.ExpiresAt = &exp
	}
	if err := m.store.Create(ctx, t); err != nil {
		return "", nil, err
	}
	return plaintext, t, nil
}

// ValidateToken looks a token up by its hash, serving from cache when
// present, and reports ErrUnauthorized for unknown, revoked, or expired
// tokens.
func (m *Manager) ValidateToken(ctx context.Context, plaintext string) (*Token, error) {
	hash := m.gen.Hash(plaintext)
	now := time.Now().UTC()

	if m.cache != nil {
		if raw, ok, err := m.cache.Get(ctx, cacheKey(hash)); err == nil && ok {
			var c cachedToken
			if err := json.Unmarshal([]byte(raw), &c); err == nil {
				t := c.toToken()
				if !t.Active(now) {
					return nil, iamerrors.Wrap(iamerrors.ErrUnauthorized, "token revoked or expired")
				}
				_ = m.store.TouchLastUsed(ctx, t.ID, now)
				return t, nil
			}
		}
	}

	t, err := m.store.GetByHash(ctx, hash)
	if err != nil {
		if iamerrors.IsNotFound(err) {
			return nil, iamerrors.Wrap(iamerrors.ErrUnauthorized, "unknown token")
		}
		return nil, err
	}
	if !t.Active(now) {
		return nil, iamerrors.Wrap(iamerrors.ErrUnauthorized, "token revoked or expired")
	}

	if m.cache != nil {
		if payload, err := json.Marshal(toCached(t)); err == nil {
			_ = m.cache.Set(ctx, cacheKey(hash), string(payload), cacheTTL)
		}
	}

	if err := m.store.TouchLastUsed(ctx, t.ID, now); err != nil {
		return nil, err
	}
	return t, nil
}

func (m *Manager) RevokeToken(ctx context.Context, tokenID string) error {
	t, err := m.store.Get(ctx, tokenID)
	if err != nil {
		return err
	}
	return m.revokeAndUncache(ctx, t)
}

func (m *Manager) revokeAndUncache(ctx context.Context, t *Token) error {
	if err := m.store.Revoke(ctx, t.ID, time.Now().UTC()); err != nil {
		return err
	}
	if m.cache != nil {
		_ = m.cache.Del(ctx, cacheKey(t.TokenHash))
	}
	return nil
}

// RevokeAllForOwner revokes every active token for an owner. Satisfies
// certconf.TokenRevoker: called whenever the owner's credential is reset,
// so all previously issued tokens stop validating immediately.
func (m *Manager) RevokeAllForOwner(ctx context.Context, ownerID string) error {
	revoked, err := m.store.RevokeAllForOwner(ctx, ownerID, time.Now().UTC())
	if err != nil {
		return err
	}
	if m.cache != nil {
		for _, r := range revoked {
			_ = m.cache.Del(ctx, cacheKey(r.TokenHash))
		}
	}
	return nil
}

func (m *Manager) ListUserTokens(ctx context.Context, ownerID string) ([]*Token, error) {
	return m.store.ListActiveByOwner(ctx, ownerID)
}

// CleanupExpiredTokens deletes rows past their expiry. The cache entries for
// those tokens are left to their own TTL; they expire well before any
// realistic token lifetime.
func (m *Manager) CleanupExpiredTokens(ctx context.Context) (int, error) {
	return m.store.DeleteExpired(ctx, time.Now().UTC())
}

package contextcache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ironvault/sentryiam/pkg/cache"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
)

// Cache wraps the three Redis key shapes §6 fixes for the login context,
// grounded verbatim on original_source/support/iam/tests/test_key_cache.rs.
type Cache struct {
	redis *cache.Client
}

func NewCache(redis *cache.Client) *Cache {
	return &Cache{redis: redis}
}

func tokenInfoKey(token string) string       { return "iam:cache:token:" + token }
func accountInfoKey(accountID string) string { return "iam:cache:account:info:" + accountID }
func accountRelKey(accountID string) string  { return "iam:cache:account:rel:" + accountID }

// PutTokenInfo stores the lightweight "{kind},{account_id}" marker a
// request-path lookup needs before it bothers loading the full context.
func (c *Cache) PutTokenInfo(ctx context.Context, token, kind, accountID string, ttl time.Duration) error {
	return c.redis.Set(ctx, tokenInfoKey(token), kind+","+accountID, ttl)
}

func (c *Cache) GetTokenInfo(ctx context.Context, token string) (kind, accountID string, ok bool, err error) {
	raw, found, err := c.redis.Get(ctx, tokenInfoKey(token))
	if err != nil || !found {
		return "", "", false, err
	}
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return "", "", false, iamerrors.Wrap(iamerrors.ErrInternal, "malformed token info cache value")
	}
	return parts[0], parts[1], true, nil
}

func (c *Cache) DelTokenInfo(ctx context.Context, token string) error {
	return c.redis.Del(ctx, tokenInfoKey(token))
}

// PutAccountRel indexes a live token under its owning account so every
// token for an account can be enumerated (and bulk-evicted) in one read.
func (c *Cache) PutAccountRel(ctx context.Context, accountID, token, kind string) error {
	return c.redis.HSet(ctx, accountRelKey(accountID), token, kind)
}

func (c *Cache) ListAccountTokens(ctx context.Context, accountID string) (map[string]string, error) {
	return c.redis.HGetAll(ctx, accountRelKey(accountID))
}

func (c *Cache) DelAccountRel(ctx context.Context, accountID string, tokens ...string) error {
	return c.redis.HDel(ctx, accountRelKey(accountID), tokens...)
}

func (c *Cache) DelAccountRelAll(ctx context.Context, accountID string) error {
	return c.redis.Del(ctx, accountRelKey(accountID))
}

// PutAccountInfo stores the full context for one (account, app) pair.
func (c *Cache) PutAccountInfo(ctx context.Context, accountID, appID string, tc TardisContext) error {
	payload, err := json.Marshal(tc)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "marshal context: %v", err)
	}
	return c.redis.HSet(ctx, accountInfoKey(accountID), appID, string(payload))
}

func (c *Cache) GetAccountInfo(ctx context.Context, accountID, appID string) (*TardisContext, bool, error) {
	raw, ok, err := c.redis.HGet(ctx, accountInfoKey(accountID), appID)
	if err != nil || !ok {
		return nil, false, err
	}
	var tc TardisContext
	if err := json.Unmarshal([]byte(raw), &tc); err != nil {
		return nil, false, iamerrors.Wrap(iamerrors.ErrInternal, "unmarshal context: %v", err)
	}
	return &tc, true, nil
}

func (c *Cache) DelAccountInfoAll(ctx context.Context, accountID string) error {
	return c.redis.Del(ctx, accountInfoKey(accountID))
}

package authengine

import (
	"context"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ironvault/sentryiam/pkg/cache"
)

// resCacheField is the Redis hash field at iam:cache:res for a (code,
// method) key. The field name is Key.String(); the value is the entry's
// JSON encoding.
const resHashKey = "iam:cache:res"

// Cache is the two-tier authorization cache: an in-process LRU in front of
// the shared Redis hash, invalidated by explicit per-key delete on both
// tiers. This is the wiring home for the teacher's otherwise-unused
// golang-lru dependency.
type Cache struct {
	l1    *lru.Cache[string, Entry]
	redis *cache.Client
}

// NewCache builds the two-tier cache. l1Size <= 0 falls back to a minimal
// usable L1 of 128 entries rather than failing to construct.
func NewCache(redis *cache.Client, l1Size int) (*Cache, error) {
	if l1Size <= 0 {
		l1Size = 128
	}
	l1, err := lru.New[string, Entry](l1Size)
	if err != nil {
		return nil, err
	}
	return &Cache{l1: l1, redis: redis}, nil
}

func (c *Cache) Get(ctx context.Context, key Key) (Entry, bool, error) {
	field := key.String()
	if e, ok := c.l1.Get(field); ok {
		return e, true, nil
	}

	raw, ok, err := c.redis.HGet(ctx, resHashKey, field)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false, err
	}
	c.l1.Add(field, e)
	return e, true, nil
}

func (c *Cache) Put(ctx context.Context, key Key, e Entry) error {
	field := key.String()
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := c.redis.HSet(ctx, resHashKey, field, string(payload)); err != nil {
		return err
	}
	c.l1.Add(field, e)
	return nil
}

func (c *Cache) Delete(ctx context.Context, key Key) error {
	field := key.String()
	c.l1.Remove(field)
	return c.redis.HDel(ctx, resHashKey, field)
}

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ironvault/sentryiam/pkg/storage"
)

func setupRedisClientTest(t *testing.T) (*RedisClient, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	config := storage.Config{
		RedisURL:        "redis://" + mr.Addr(),
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
	}

	client, err := NewRedisClient(config)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create Redis client: %v", err)
	}

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, mr, cleanup
}

func TestNewRedisClient_Success(t *testing.T) {
	client, _, cleanup := setupRedisClientTest(t)
	defer cleanup()
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(storage.Config{RedisURL: "not-a-url://::::"})
	if err == nil {
		t.Fatal("expected error for invalid redis URL")
	}
}

func TestNewRedisClient_ConnectionFailure(t *testing.T) {
	_, err := NewRedisClient(storage.Config{RedisURL: "redis://127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected connection failure")
	}
}

func TestRedisClient_Ping(t *testing.T) {
	client, _, cleanup := setupRedisClientTest(t)
	defer cleanup()
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestRedisClient_GetClient(t *testing.T) {
	client, _, cleanup := setupRedisClientTest(t)
	defer cleanup()
	if client.GetClient() == nil {
		t.Fatal("expected non-nil underlying client")
	}
}

func TestRedisClient_GetPoolStats(t *testing.T) {
	client, _, cleanup := setupRedisClientTest(t)
	defer cleanup()
	if client.GetPoolStats() == nil {
		t.Fatal("expected non-nil pool stats")
	}
}

func TestRedisClient_InvalidatePatterns(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()
	ctx := context.Background()

	mr.Set("iam:cache:token:abc", "x")
	mr.Set("iam:cache:token:def", "y")
	mr.Set("iam:cache:other:zzz", "z")

	if err := client.InvalidatePatterns(ctx, "iam:cache:token:*"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if mr.Exists("iam:cache:token:abc") || mr.Exists("iam:cache:token:def") {
		t.Fatal("expected matching keys to be removed")
	}
	if !mr.Exists("iam:cache:other:zzz") {
		t.Fatal("expected non-matching key to survive")
	}
}

func TestRedisClient_Incr(t *testing.T) {
	client, _, cleanup := setupRedisClientTest(t)
	defer cleanup()
	n, err := client.Incr(context.Background(), "counter")
	if err != nil || n != 1 {
		t.Fatalf("expected 1, got %d err %v", n, err)
	}
}

func TestRedisClient_Expire(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()
	mr.Set("key1", "v")
	if err := client.Expire(context.Background(), "key1", time.Minute); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
}

func TestRedisClient_TTL(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()
	mr.Set("key1", "v")
	mr.SetTTL("key1", time.Minute)
	ttl, err := client.TTL(context.Background(), "key1")
	if err != nil || ttl <= 0 {
		t.Fatalf("expected positive ttl, got %v err %v", ttl, err)
	}
}

func TestRedisClient_SetNX(t *testing.T) {
	client, _, cleanup := setupRedisClientTest(t)
	defer cleanup()
	ctx := context.Background()
	ok, err := client.SetNX(ctx, "lock1", "holder", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected lock acquired, got %v err %v", ok, err)
	}
	ok, err = client.SetNX(ctx, "lock1", "other", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected lock already held, got %v err %v", ok, err)
	}
}

func TestRedisClient_GetDel(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()
	mr.Set("key1", "value1")
	v, err := client.GetDel(context.Background(), "key1")
	if err != nil || v != "value1" {
		t.Fatalf("expected value1, got %q err %v", v, err)
	}
	if mr.Exists("key1") {
		t.Fatal("expected key to be deleted")
	}
}

func TestRedisClient_Close(t *testing.T) {
	client, mr, _ := setupRedisClientTest(t)
	defer mr.Close()
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

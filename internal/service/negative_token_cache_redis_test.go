package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisNegativeTokenCacheStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisNegativeTokenCacheStore(client, "test_negative"), mr
}

func TestRedisNegativeTokenCacheSetGet(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	hit, err := store.Get(ctx, "session", "tok1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatal("empty cache must miss")
	}

	if err := store.Set(ctx, "session", "tok1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	hit, err = store.Get(ctx, "session", "tok1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !hit {
		t.Fatal("expected a hit after set")
	}
}

func TestRedisNegativeTokenCacheExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "session", "tok1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	hit, err := store.Get(ctx, "session", "tok1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatal("expired entry must read as a miss")
	}
}

func TestRedisNegativeTokenCacheInvalidateNamespace(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "session", "tok1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "session", "tok2", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "other", "tok3", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.InvalidateNamespace(ctx, "session"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	for _, tok := range []string{"tok1", "tok2"} {
		if hit, _ := store.Get(ctx, "session", tok); hit {
			t.Fatalf("token %s must be gone after namespace invalidation", tok)
		}
	}
	if hit, _ := store.Get(ctx, "other", "tok3"); !hit {
		t.Fatal("other namespace must survive")
	}
}

func TestRedisNegativeTokenCacheKeysNeverContainRawToken(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	const rawToken = "super-secret-bearer-token"
	if err := store.Set(ctx, "session", rawToken, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	for _, key := range mr.Keys() {
		if strings.Contains(key, rawToken) {
			t.Fatalf("raw token leaked into redis key %q", key)
		}
	}
}

func TestRedisNegativeTokenCacheNilClient(t *testing.T) {
	store := NewRedisNegativeTokenCacheStore(nil, "")
	ctx := context.Background()

	if err := store.Set(ctx, "session", "tok1", time.Minute); err != nil {
		t.Fatalf("set with nil client: %v", err)
	}
	hit, err := store.Get(ctx, "session", "tok1")
	if err != nil {
		t.Fatalf("get with nil client: %v", err)
	}
	if hit {
		t.Fatal("nil client must behave as a permanent miss")
	}
	if err := store.InvalidateNamespace(ctx, "session"); err != nil {
		t.Fatalf("invalidate with nil client: %v", err)
	}
}

func TestNormalizeNamespace(t *testing.T) {
	cases := map[string]string{
		"":          "default",
		"  Session": "session",
		"SESSION ":  "session",
		"wallet":    "wallet",
	}
	for in, want := range cases {
		if got := normalizeNamespace(in); got != want {
			t.Fatalf("normalizeNamespace(%q)=%q want %q", in, got, want)
		}
	}
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis starts an in-memory Redis for the test.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestNewManager(t *testing.T) {
	_, client := setupTestRedis(t)

	manager := NewManager(client, 0)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
	if manager.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", manager.ttl, DefaultTTL)
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, time.Hour)
}

func TestManager_SetAndGet(t *testing.T) {
	_, client := setupTestRedis(t)
	manager := NewManager(client, time.Hour)
	ctx := context.Background()

	key := CacheKey{Route: "europe", Name: "Caps", Tag: "EUW"}

	if err := manager.Set(ctx, key, "puuid-caps"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entry, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry.PUUID != "puuid-caps" {
		t.Errorf("PUUID = %q, want %q", entry.PUUID, "puuid-caps")
	}
	if entry.TTL() <= 0 {
		t.Error("Fresh entry should have a positive TTL")
	}

	// Lookups are case-insensitive
	entry, err = manager.Get(ctx, CacheKey{Route: "europe", Name: "caps", Tag: "euw"})
	if err != nil {
		t.Fatalf("Get() lowercased error = %v", err)
	}
	if entry.PUUID != "puuid-caps" {
		t.Errorf("PUUID = %q, want %q", entry.PUUID, "puuid-caps")
	}
}

func TestManager_GetMiss(t *testing.T) {
	_, client := setupTestRedis(t)
	manager := NewManager(client, time.Hour)

	_, err := manager.Get(context.Background(), CacheKey{Route: "asia", Name: "nobody", Tag: "0"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Expiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	ctx := context.Background()

	key := CacheKey{Route: "americas", Name: "a", Tag: "b"}
	if err := manager.Set(ctx, key, "p"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after TTL error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_InvalidEntry(t *testing.T) {
	mr, client := setupTestRedis(t)
	manager := NewManager(client, time.Hour)

	key := CacheKey{Route: "americas", Name: "a", Tag: "b"}
	mr.Set(key.String(), "not json")

	if _, err := manager.Get(context.Background(), key); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get() error = %v, want ErrInvalidEntry", err)
	}
}

func TestManager_SetEmpty(t *testing.T) {
	_, client := setupTestRedis(t)
	manager := NewManager(client, time.Hour)

	if err := manager.Set(context.Background(), CacheKey{Route: "americas"}, ""); err == nil {
		t.Error("Set() with empty puuid should fail")
	}
}

func TestManager_Delete(t *testing.T) {
	_, client := setupTestRedis(t)
	manager := NewManager(client, time.Hour)
	ctx := context.Background()

	key := CacheKey{Route: "sea", Name: "a", Tag: "b"}
	if err := manager.Set(ctx, key, "p"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Delete error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_RedisDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	manager := NewManager(client, time.Hour)
	mr.Close()

	_, err := manager.Get(context.Background(), CacheKey{Route: "americas", Name: "a", Tag: "b"})
	if err == nil {
		t.Fatal("Get() with Redis down should fail")
	}
	if errors.Is(err, ErrCacheMiss) {
		t.Error("Connection errors must not be reported as cache misses")
	}
}

//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})

	return client
}

func TestManager_Integration_RoundTrip(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	manager := NewManager(client, time.Hour)

	key := CacheKey{Route: "asia", Name: "Faker", Tag: "KR1"}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get() before Set error = %v, want ErrCacheMiss", err)
	}

	if err := manager.Set(ctx, key, "puuid-faker"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// A second manager sees the entry through Redis
	entry, err := NewManager(client, time.Hour).Get(ctx, CacheKey{Route: "asia", Name: "faker", Tag: "kr1"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry.PUUID != "puuid-faker" {
		t.Errorf("PUUID = %q, want %q", entry.PUUID, "puuid-faker")
	}

	ttl, err := client.TTL(ctx, key.String()).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("redis TTL = %v, want (0, 1h]", ttl)
	}
}

func TestManager_Integration_Expiry(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	manager := NewManager(client, time.Second)

	key := CacheKey{Route: "europe", Name: "Caps", Tag: "EUW"}
	if err := manager.Set(ctx, key, "puuid-caps"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after expiry error = %v, want ErrCacheMiss", err)
	}
}

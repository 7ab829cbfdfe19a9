//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_Persistence(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, logger)
	ctx := context.Background()

	state, err := tracker.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state != nil {
		t.Fatalf("Load() = %+v, want nil on empty Redis", state)
	}

	headers := http.Header{}
	headers.Set("X-App-Rate-Limit", "20:1,100:120")
	headers.Set("X-App-Rate-Limit-Count", "20:1,90:120")
	headers.Set("X-Method-Rate-Limit", "2000:10")
	headers.Set("X-Method-Rate-Limit-Count", "12:10")

	if err := tracker.UpdateFromHeaders(ctx, http.StatusOK, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err = NewTracker(redisClient, logger).Load(ctx)
	if err != nil {
		t.Fatalf("Load() after update error = %v", err)
	}
	if state == nil {
		t.Fatal("Load() = nil after update")
	}
	if !state.NearLimit() {
		t.Error("Exhausted 1s app window should be near limit")
	}
	if state.IsStale(time.Minute) {
		t.Error("State should not be stale right after an update")
	}
}

func TestTracker_Integration_Overwrite(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, logger)
	ctx := context.Background()

	tests := []struct {
		name          string
		count         string
		expectedCount int
		expectedNear  bool
	}{
		{"healthy", "10:120", 10, false},
		{"warning", "85:120", 85, true},
		{"recovered", "5:120", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			headers.Set("X-App-Rate-Limit", "100:120")
			headers.Set("X-App-Rate-Limit-Count", tt.count)

			if err := tracker.UpdateFromHeaders(ctx, http.StatusOK, headers); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			state, err := tracker.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if state.App[0].Count != tt.expectedCount {
				t.Errorf("App[0].Count = %d, want %d", state.App[0].Count, tt.expectedCount)
			}
			if state.NearLimit() != tt.expectedNear {
				t.Errorf("NearLimit() = %v, want %v", state.NearLimit(), tt.expectedNear)
			}
		})
	}
}

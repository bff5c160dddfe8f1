package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coldchain/fridgewatch/internal/controller"
)

const snapshotKey = "fridgewatch:snapshot"

// SnapshotStore keeps the latest update in Redis so a stateless UI
// host can fetch the current tuple without talking to the controller.
type SnapshotStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSnapshotStore creates a store over an existing client. The TTL
// doubles as a coarse staleness bound: if the dashboard process dies,
// the snapshot ages out instead of lying around forever.
func NewSnapshotStore(redisClient *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{redis: redisClient, ttl: ttl}
}

// Set stores the update as the current snapshot.
func (s *SnapshotStore) Set(ctx context.Context, u controller.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.redis.Set(ctx, snapshotKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot in Redis: %w", err)
	}
	return nil
}

// Get retrieves the current snapshot, or (nil, nil) when none exists.
func (s *SnapshotStore) Get(ctx context.Context) (*controller.Update, error) {
	data, err := s.redis.Get(ctx, snapshotKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from Redis: %w", err)
	}

	var u controller.Update
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &u, nil
}

// Render implements controller.Renderer. Failures are logged, not
// propagated: a publisher outage must never break the cycle loop.
func (s *SnapshotStore) Render(u controller.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Set(ctx, u); err != nil {
		fmt.Printf("Snapshot publish failed: %v\n", err)
	}
}

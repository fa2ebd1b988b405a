// Package dedupe remembers which change ids a process has already applied,
// so redelivered notifier messages become no-ops.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper tracks applied change ids.
type Deduper interface {
	// Seen reports whether the change id was already marked.
	Seen(ctx context.Context, changeID string) (bool, error)
	// Mark records the change id after a successful apply.
	Mark(ctx context.Context, changeID string) error
}

// Redis backs the dedupe set with TTL keys, so the set is
// shared across processes and bounded in size.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func dedupeKey(changeID string) string {
	return "sync:applied:" + changeID
}

func (d *Redis) Seen(ctx context.Context, changeID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupeKey(changeID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe lookup: %w", err)
	}
	return n > 0, nil
}

func (d *Redis) Mark(ctx context.Context, changeID string) error {
	if err := d.client.Set(ctx, dedupeKey(changeID), 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("dedupe mark: %w", err)
	}
	return nil
}

// Memory is the in-process fallback when no Redis is configured. Entries
// are never expired; acceptable for tests and short-lived runs.
type Memory struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func (d *Memory) Seen(_ context.Context, changeID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.seen[changeID]
	return ok, nil
}

func (d *Memory) Mark(_ context.Context, changeID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[changeID] = struct{}{}
	return nil
}

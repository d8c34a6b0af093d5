package dialog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisDeduper tracks inbound message ids in Redis with a TTL window.
// SetNX makes the check-and-record step atomic across instances.
type RedisDeduper struct {
	rdb    *redis.Client
	window time.Duration
}

// NewRedisDeduper creates a deduper with the given replay window.
func NewRedisDeduper(rdb *redis.Client, window time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, window: window}
}

// Seen records the message id and reports whether it was already recorded
// inside the window.
func (d *RedisDeduper) Seen(ctx context.Context, clientKey, messageID string) (bool, error) {
	key := fmt.Sprintf("dedup:%s:%s", clientKey, messageID)
	stored, err := d.rdb.SetNX(ctx, key, 1, d.window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return !stored, nil
}

package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	cacheKeyServices = "catalog:services"
	cacheKeyMasters  = "catalog:masters"
)

// catalogStore is the cache surface CachedCatalog needs. A miss is
// reported as redis.Nil.
type catalogStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisStore struct {
	rdb *redis.Client
}

func (s redisStore) Get(ctx context.Context, key string) (string, error) {
	return s.rdb.Get(ctx, key).Result()
}

func (s redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// CachedCatalog serves the salon's service and staff lists from Redis,
// falling back to the live booking API on a miss or a cache outage.
// These lists change rarely but are read on nearly every dialog turn.
// Slot availability is volatile and always goes to the API.
type CachedCatalog struct {
	gateway Gateway
	store   catalogStore
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCachedCatalog wraps a gateway with a Redis-backed list cache.
func NewCachedCatalog(gateway Gateway, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedCatalog {
	return &CachedCatalog{gateway: gateway, store: redisStore{rdb: rdb}, ttl: ttl, logger: logger}
}

// ListServices returns the salon's bookable services, cached.
func (c *CachedCatalog) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if c.lookup(ctx, cacheKeyServices, &services) {
		return services, nil
	}
	services, err := c.gateway.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	c.put(ctx, cacheKeyServices, services)
	return services, nil
}

// ListMasters returns the salon's staff, cached.
func (c *CachedCatalog) ListMasters(ctx context.Context) ([]models.Master, error) {
	var masters []models.Master
	if c.lookup(ctx, cacheKeyMasters, &masters) {
		return masters, nil
	}
	masters, err := c.gateway.ListMasters(ctx)
	if err != nil {
		return nil, err
	}
	c.put(ctx, cacheKeyMasters, masters)
	return masters, nil
}

// ListSlots always queries the booking API; open slots go stale in
// minutes and a stale answer here means proposing a taken time.
func (c *CachedCatalog) ListSlots(ctx context.Context, serviceID, masterID string) ([]models.Slot, error) {
	return c.gateway.ListSlots(ctx, serviceID, masterID)
}

func (c *CachedCatalog) lookup(ctx context.Context, key string, out any) bool {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		c.logger.Warn("catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedCatalog) put(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, string(b), c.ttl); err != nil {
		c.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

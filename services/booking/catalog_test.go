package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingGateway struct {
	services  int
	masters   int
	slots     int
	available []models.Service
}

func (g *countingGateway) ListServices(ctx context.Context) ([]models.Service, error) {
	g.services++
	return g.available, nil
}

func (g *countingGateway) ListMasters(ctx context.Context) ([]models.Master, error) {
	g.masters++
	return []models.Master{{ID: "m-1", Name: "Анна", Surname: "Иванова"}}, nil
}

func (g *countingGateway) ListSlots(ctx context.Context, serviceID, masterID string) ([]models.Slot, error) {
	g.slots++
	return []models.Slot{{StartAt: "2026-09-01T15:00:00Z"}}, nil
}

func (g *countingGateway) CreateAppointment(ctx context.Context, req CreateRequest) (string, error) {
	return "", errors.New("not used")
}

func (g *countingGateway) CancelAppointment(ctx context.Context, confirmationID string) error {
	return errors.New("not used")
}

type memStore struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memStore) Get(ctx context.Context, key string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *memStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func newTestCatalog(gw *countingGateway, store *memStore) *CachedCatalog {
	return &CachedCatalog{gateway: gw, store: store, ttl: 10 * time.Minute, logger: zap.NewNop()}
}

func TestCachedCatalogServesListsFromCache(t *testing.T) {
	gw := &countingGateway{available: []models.Service{{ID: "svc-1", Title: "Маникюр"}}}
	store := newMemStore()
	catalog := newTestCatalog(gw, store)

	first, err := catalog.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, gw.services)
	assert.Equal(t, 10*time.Minute, store.ttls[cacheKeyServices])

	second, err := catalog.ListServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gw.services, "a warm cache must not hit the booking api")

	_, err = catalog.ListMasters(context.Background())
	require.NoError(t, err)
	_, err = catalog.ListMasters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, gw.masters)
}

func TestCachedCatalogOutageFallsThroughToGateway(t *testing.T) {
	gw := &countingGateway{available: []models.Service{{ID: "svc-1", Title: "Маникюр"}}}
	store := newMemStore()
	store.err = errors.New("redis down")
	catalog := newTestCatalog(gw, store)

	services, err := catalog.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 1)

	_, err = catalog.ListServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, gw.services, "with the cache down every call goes live")
}

func TestCachedCatalogCorruptEntryFallsThroughToGateway(t *testing.T) {
	gw := &countingGateway{available: []models.Service{{ID: "svc-1", Title: "Маникюр"}}}
	store := newMemStore()
	store.data[cacheKeyServices] = "{not json"
	catalog := newTestCatalog(gw, store)

	services, err := catalog.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, 1, gw.services)
}

func TestCachedCatalogNeverCachesSlots(t *testing.T) {
	gw := &countingGateway{}
	catalog := newTestCatalog(gw, newMemStore())

	_, err := catalog.ListSlots(context.Background(), "svc-1", "m-1")
	require.NoError(t, err)
	_, err = catalog.ListSlots(context.Background(), "svc-1", "m-1")
	require.NoError(t, err)
	assert.Equal(t, 2, gw.slots)
}

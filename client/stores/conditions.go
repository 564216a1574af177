package stores

// Package stores holds the per-domain caches sitting between the UI and the
// network facade: live conditions, forecasts, and region spot lists. Each is
// a thin specialization of pkg/cache with its own TTL and key shape.

import (
	"context"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/swellcast/swellcast/client/api"
	"github.com/swellcast/swellcast/client/model"
	"github.com/swellcast/swellcast/pkg/cache"
)

// ConditionsStore caches live conditions by spot id. Conditions change with
// every buoy report, so the TTL is minutes-scale.
type ConditionsStore struct {
	log   logs.Log
	api   *api.Client
	cache *cache.Cache[string, *model.Conditions]
}

func NewConditionsStore(log logs.Log, apiClient *api.Client, ttl time.Duration) *ConditionsStore {
	return &ConditionsStore{
		log:   log,
		api:   apiClient,
		cache: cache.NewCache[string, *model.Conditions](log, ttl),
	}
}

// Get returns conditions for a spot, from cache when fresh.
func (s *ConditionsStore) Get(ctx context.Context, spotID string) (*model.Conditions, error) {
	return s.cache.GetOrFetch(ctx, spotID, func(ctx context.Context) (*model.Conditions, error) {
		return api.DoJSON[model.Conditions](ctx, s.api, "GET", "/api/conditions/"+spotID, nil, true)
	})
}

// Peek returns the cached value without fetching.
func (s *ConditionsStore) Peek(spotID string) (*model.Conditions, bool) {
	return s.cache.Get(spotID)
}

// ApplyLiveUpdate replaces the cached entry for a spot with a pushed value.
func (s *ConditionsStore) ApplyLiveUpdate(c *model.Conditions) {
	s.cache.Put(c.SpotID, c)
}

func (s *ConditionsStore) InvalidateAll() {
	s.cache.InvalidateAll()
}

func (s *ConditionsStore) StartSweeper(interval time.Duration) { s.cache.StartSweeper(interval) }
func (s *ConditionsStore) StopSweeper()                        { s.cache.StopSweeper() }

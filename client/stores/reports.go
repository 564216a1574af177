package stores

import (
	"context"
	"net/url"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/swellcast/swellcast/client/api"
	"github.com/swellcast/swellcast/client/model"
	"github.com/swellcast/swellcast/pkg/cache"
)

// ReportsStore submits user surf reports and caches recent reports per spot.
type ReportsStore struct {
	log   logs.Log
	api   *api.Client
	cache *cache.Cache[string, []model.SurfReport]
}

func NewReportsStore(log logs.Log, apiClient *api.Client, ttl time.Duration) *ReportsStore {
	return &ReportsStore{
		log:   log,
		api:   apiClient,
		cache: cache.NewCache[string, []model.SurfReport](log, ttl),
	}
}

// Submit posts a report. This is a mutating call, so the facade attaches the
// CSRF header. The spot's cached report list is invalidated so the next read
// includes the new report.
func (r *ReportsStore) Submit(ctx context.Context, report *model.SurfReport) error {
	if _, err := r.api.Do(ctx, "POST", "/api/surf-reports", report, true); err != nil {
		return err
	}
	r.cache.Invalidate(report.SpotID)
	return nil
}

// BySpot returns recent reports for a spot.
func (r *ReportsStore) BySpot(ctx context.Context, spotID string) ([]model.SurfReport, error) {
	return r.cache.GetOrFetch(ctx, spotID, func(ctx context.Context) ([]model.SurfReport, error) {
		path := "/api/surf-reports?spot=" + url.QueryEscape(spotID)
		reports, err := api.DoJSON[[]model.SurfReport](ctx, r.api, "GET", path, nil, true)
		if err != nil {
			return nil, err
		}
		return *reports, nil
	})
}

func (r *ReportsStore) InvalidateAll() {
	r.cache.InvalidateAll()
}

package stores

import (
	"context"
	"encoding/base64"
	"net/url"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/swellcast/swellcast/client/api"
	"github.com/swellcast/swellcast/client/imagecache"
	"github.com/swellcast/swellcast/client/model"
	"github.com/swellcast/swellcast/pkg/cache"
)

// SpotMetadataStore is the slice of the state DB the spots store writes
// through to, so region lists survive restarts.
type SpotMetadataStore interface {
	UpsertSpots(spots []model.Spot) error
}

// SpotsStore caches region spot lists. Regions change rarely, so the TTL is
// hours-scale. Spot payloads opportunistically embed thumbnail images, which
// we strip out and seed into the image cache.
type SpotsStore struct {
	log    logs.Log
	api    *api.Client
	images *imagecache.ImageCache
	meta   SpotMetadataStore
	cache  *cache.Cache[string, []model.Spot]
}

func NewSpotsStore(log logs.Log, apiClient *api.Client, images *imagecache.ImageCache, meta SpotMetadataStore, ttl time.Duration) *SpotsStore {
	return &SpotsStore{
		log:    log,
		api:    apiClient,
		images: images,
		meta:   meta,
		cache:  cache.NewCache[string, []model.Spot](log, ttl),
	}
}

// ByRegion returns the spots in a region, from cache when fresh.
func (s *SpotsStore) ByRegion(ctx context.Context, region string) ([]model.Spot, error) {
	return s.cache.GetOrFetch(ctx, region, func(ctx context.Context) ([]model.Spot, error) {
		path := "/api/spots?region=" + url.QueryEscape(region)
		spots, err := api.DoJSON[[]model.Spot](ctx, s.api, "GET", path, nil, true)
		if err != nil {
			return nil, err
		}
		list := s.absorbThumbnails(*spots)
		if s.meta != nil {
			if err := s.meta.UpsertSpots(list); err != nil {
				s.log.Errorf("Failed to persist spot metadata for %v: %v", region, err)
			}
		}
		return list, nil
	})
}

// SpotImage returns the image bytes for a spot thumbnail, from the image
// cache or the network.
func (s *SpotsStore) SpotImage(ctx context.Context, key string) ([]byte, error) {
	return s.images.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		return s.api.Do(ctx, "GET", "/api/images/"+url.PathEscape(key), nil, true)
	})
}

// absorbThumbnails moves embedded thumbnail payloads into the image cache,
// returning the list with the heavy payloads stripped.
func (s *SpotsStore) absorbThumbnails(spots []model.Spot) []model.Spot {
	for i := range spots {
		if spots[i].ThumbnailB64 == "" || spots[i].ThumbnailKey == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(spots[i].ThumbnailB64)
		if err != nil {
			s.log.Warnf("Discarding undecodable thumbnail for spot %v: %v", spots[i].ID, err)
		} else if s.images != nil {
			s.images.Put(spots[i].ThumbnailKey, data)
		}
		spots[i].ThumbnailB64 = ""
	}
	return spots
}

func (s *SpotsStore) InvalidateAll() {
	s.cache.InvalidateAll()
}

func (s *SpotsStore) StartSweeper(interval time.Duration) { s.cache.StartSweeper(interval) }
func (s *SpotsStore) StopSweeper()                        { s.cache.StopSweeper() }

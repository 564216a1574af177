package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/logs"
	"github.com/swellcast/swellcast/client/api"
	"github.com/swellcast/swellcast/client/model"
	"github.com/swellcast/swellcast/pkg/cache"
	"github.com/swellcast/swellcast/pkg/debounce"
)

// Raw backend response shapes. These exist only long enough to be flattened
// into model.Forecast; nothing outside this file sees them.

type rawSwell struct {
	HeightFt     float32 `json:"height_ft"`
	PeriodSec    float32 `json:"period_sec"`
	DirectionDeg float32 `json:"direction_deg"`
}

type rawForecastDay struct {
	Date         string     `json:"date"`
	Swells       []rawSwell `json:"swells"`
	WindSpeedMph float32    `json:"wind_speed_mph"`
	Rating       int        `json:"rating"`
}

type rawAIDay struct {
	Date       string  `json:"date"`
	HeightFt   float32 `json:"height_ft"`
	Confidence float32 `json:"confidence"`
	Summary    string  `json:"summary"`
}

type rawForecast struct {
	SpotID string           `json:"spot_id"`
	Days   []rawForecastDay `json:"days"`
	AIDays []rawAIDay       `json:"ai_days"`
}

// ForecastStore caches flattened forecasts by spot id.
type ForecastStore struct {
	log   logs.Log
	api   *api.Client
	cache *cache.Cache[string, *model.Forecast]

	// rangeDebounce delays extended-range fetches while the user is still
	// dragging the time-range selector.
	rangeDebounce debounce.Debouncer
}

func NewForecastStore(log logs.Log, apiClient *api.Client, ttl time.Duration) *ForecastStore {
	return &ForecastStore{
		log:   log,
		api:   apiClient,
		cache: cache.NewCache[string, *model.Forecast](log, ttl),
	}
}

func (s *ForecastStore) Get(ctx context.Context, spotID string) (*model.Forecast, error) {
	return s.cache.GetOrFetch(ctx, spotID, func(ctx context.Context) (*model.Forecast, error) {
		raw, err := api.DoJSON[rawForecast](ctx, s.api, "GET", "/api/forecast/"+spotID, nil, true)
		if err != nil {
			return nil, err
		}
		return flattenForecast(raw), nil
	})
}

// SelectExtendedRange schedules a fetch of `days` days of forecast after the
// user stops adjusting the selector. Only the newest selection's result is
// delivered; superseded selections are silently dropped.
func (s *ForecastStore) SelectExtendedRange(ctx context.Context, spotID string, days int, deliver func(*model.Forecast, error)) {
	s.rangeDebounce.Trigger(ctx, 400*time.Millisecond, func(ctx context.Context) {
		path := fmt.Sprintf("/api/forecast/%v/extended?days=%v", spotID, days)
		raw, err := api.DoJSON[rawForecast](ctx, s.api, "GET", path, nil, true)
		if err != nil {
			deliver(nil, err)
			return
		}
		f := flattenForecast(raw)
		// Extended data supersedes the standard-range entry
		s.cache.Put(spotID, f)
		deliver(f, nil)
	})
}

func (s *ForecastStore) InvalidateAll() {
	s.rangeDebounce.Cancel()
	s.cache.InvalidateAll()
}

func (s *ForecastStore) StartSweeper(interval time.Duration) { s.cache.StartSweeper(interval) }
func (s *ForecastStore) StopSweeper()                        { s.cache.StopSweeper() }

// flattenForecast converts the raw response into the derived view held in
// the cache. Derived values are computed once here; entries are never
// mutated afterwards (a refetch re-derives).
func flattenForecast(raw *rawForecast) *model.Forecast {
	f := &model.Forecast{
		SpotID: raw.SpotID,
		Days:   make([]model.ForecastEntry, 0, len(raw.Days)),
	}
	for _, day := range raw.Days {
		entry := model.ForecastEntry{
			Date:         day.Date,
			WindSpeedMph: day.WindSpeedMph,
			Rating:       day.Rating,
		}
		for _, sw := range day.Swells {
			if entry.MinHeightFt == 0 || sw.HeightFt < entry.MinHeightFt {
				entry.MinHeightFt = sw.HeightFt
			}
			if sw.HeightFt > entry.MaxHeightFt {
				entry.MaxHeightFt = sw.HeightFt
			}
			entry.SwellEnergy += swellEnergy(sw.HeightFt, sw.PeriodSec)
			if bh := breakingHeight(sw.HeightFt, sw.PeriodSec); bh > entry.BreakingHeightFt {
				entry.BreakingHeightFt = bh
			}
		}
		f.Days = append(f.Days, entry)
	}
	// Today's swell components double as the spot's swell readout
	if len(raw.Days) > 0 {
		for _, sw := range raw.Days[0].Swells {
			f.Swells = append(f.Swells, model.SwellPrediction{
				HeightFt:     sw.HeightFt,
				PeriodSec:    sw.PeriodSec,
				DirectionDeg: sw.DirectionDeg,
				Energy:       swellEnergy(sw.HeightFt, sw.PeriodSec),
			})
		}
	}
	for _, ai := range raw.AIDays {
		f.AIDays = append(f.AIDays, model.AIPredictedForecast{
			Date:       ai.Date,
			HeightFt:   ai.HeightFt,
			Confidence: ai.Confidence,
			Summary:    ai.Summary,
		})
	}
	return f
}

// swellEnergy is the usual H^2 * T proxy for wave energy flux.
func swellEnergy(heightFt, periodSec float32) float32 {
	return heightFt * heightFt * periodSec
}

// breakingHeight estimates the face height a swell produces when it breaks.
// Longer-period swells shoal harder, so the estimate grows with sqrt(T).
func breakingHeight(heightFt, periodSec float32) float32 {
	if periodSec <= 0 {
		return heightFt
	}
	return heightFt * 0.4 * math32.Sqrt(periodSec)
}

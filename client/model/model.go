package model

// Package model holds the domain types shared by the session manager, the
// local state database, and the data stores.

import "time"

// User is the profile snapshot returned by the backend on login/validate.
// It is replaced wholesale on every successful auth call, never partially
// mutated.
type User struct {
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Picture    string     `json:"picture"`
	FamilyName string     `json:"family_name"`
	GivenName  string     `json:"given_name"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	Theme      string     `json:"theme"`
}

// Spot is a surf spot as returned by GET /api/spots.
// ThumbnailB64 is an opportunistic payload: when present, the spots store
// seeds the image cache with it, saving a round trip per spot image.
type Spot struct {
	ID           string  `json:"id"`
	Region       string  `json:"region"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ThumbnailKey string  `json:"thumbnail_key"`
	ThumbnailB64 string  `json:"thumbnail,omitempty"`
}

// Conditions is a live observation for one spot (buoy + wind).
type Conditions struct {
	SpotID       string    `json:"spot_id"`
	WaveHeightFt float32   `json:"wave_height_ft"`
	PeriodSec    float32   `json:"period_sec"`
	DirectionDeg float32   `json:"direction_deg"`
	WindSpeedMph float32   `json:"wind_speed_mph"`
	WindDirDeg   float32   `json:"wind_dir_deg"`
	WaterTempF   float32   `json:"water_temp_f"`
	ObservedAt   time.Time `json:"observed_at"`
}

// ForecastEntry is one day of flattened forecast, derived once from the raw
// backend response and never mutated afterwards.
type ForecastEntry struct {
	Date             string  `json:"date"`
	MinHeightFt      float32 `json:"min_height_ft"`
	MaxHeightFt      float32 `json:"max_height_ft"`
	BreakingHeightFt float32 `json:"breaking_height_ft"`
	SwellEnergy      float32 `json:"swell_energy"`
	WindSpeedMph     float32 `json:"wind_speed_mph"`
	Rating           int     `json:"rating"`
}

// SwellPrediction is one swell component of the forecast.
type SwellPrediction struct {
	HeightFt     float32 `json:"height_ft"`
	PeriodSec    float32 `json:"period_sec"`
	DirectionDeg float32 `json:"direction_deg"`
	Energy       float32 `json:"energy"`
}

// AIPredictedForecast is the model-generated swell outlook for a spot.
type AIPredictedForecast struct {
	Date       string  `json:"date"`
	HeightFt   float32 `json:"height_ft"`
	Confidence float32 `json:"confidence"`
	Summary    string  `json:"summary"`
}

// Forecast is the flattened view held in the forecast cache.
type Forecast struct {
	SpotID string                `json:"spot_id"`
	Days   []ForecastEntry       `json:"days"`
	Swells []SwellPrediction     `json:"swells"`
	AIDays []AIPredictedForecast `json:"ai_days"`
}

// SurfReport is a user-submitted session report.
type SurfReport struct {
	SpotID    string    `json:"spot_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	MediaKeys []string  `json:"media_keys,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

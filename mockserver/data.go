package mockserver

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"

	"github.com/swellcast/swellcast/client/model"
)

const demoUserEmail = "demo@swellcast.org"

// A 1x1 gray PNG. Good enough for thumbnail plumbing.
var placeholderPNG = mustBase64("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR4nGNoaGj4DwAFhAKAkNnWhgAAAABJRU5ErkJggg==")

func mustBase64(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (s *Server) seedFixtures() {
	s.spots = []model.Spot{
		{ID: "mavericks", Region: "norcal", Name: "Mavericks", Latitude: 37.4936, Longitude: -122.5011, ThumbnailKey: "spot-mavericks"},
		{ID: "ocean-beach", Region: "norcal", Name: "Ocean Beach", Latitude: 37.7599, Longitude: -122.5108, ThumbnailKey: "spot-ocean-beach"},
		{ID: "trestles", Region: "socal", Name: "Lower Trestles", Latitude: 33.3853, Longitude: -117.5939, ThumbnailKey: "spot-trestles"},
		{ID: "malibu", Region: "socal", Name: "Malibu First Point", Latitude: 34.0370, Longitude: -118.6785, ThumbnailKey: "spot-malibu"},
	}
	for _, spot := range s.spots {
		s.images[spot.ThumbnailKey] = placeholderPNG
	}
	now := time.Now().UTC()
	for i, spot := range s.spots {
		s.conditions[spot.ID] = &model.Conditions{
			SpotID:       spot.ID,
			WaveHeightFt: 3 + float32(i),
			PeriodSec:    12,
			DirectionDeg: 285,
			WindSpeedMph: 6,
			WindDirDeg:   320,
			WaterTempF:   58,
			ObservedAt:   now,
		}
	}
}

func (s *Server) spotByID(id string) *model.Spot {
	for i := range s.spots {
		if s.spots[i].ID == id {
			return &s.spots[i]
		}
	}
	return nil
}

func (s *Server) httpSpots(w http.ResponseWriter, r *http.Request, params httprouter.Params, ses *serverSession) {
	region := www.QueryValue(r, "region")
	out := []model.Spot{}
	s.lock.Lock()
	for _, spot := range s.spots {
		if region != "" && spot.Region != region {
			continue
		}
		// Thumbnails ride along with the listing so the client can seed its
		// image cache without a request per spot.
		if img := s.images[spot.ThumbnailKey]; img != nil {
			spot.ThumbnailB64 = base64.StdEncoding.EncodeToString(img)
		}
		out = append(out, spot)
	}
	s.lock.Unlock()
	www.SendJSON(w, out)
}

func (s *Server) httpConditions(w http.ResponseWriter, r *http.Request, params httprouter.Params, ses *serverSession) {
	spotID := params.ByName("spot")
	s.lock.Lock()
	c := s.conditions[spotID]
	s.lock.Unlock()
	if c == nil {
		www.PanicNotFound()
	}
	www.SendJSON(w, c)
}

// Forecast wire shapes. The client flattens these into its own view; the
// server's job is just to emit per-day swell components.

type forecastSwellJSON struct {
	HeightFt     float32 `json:"height_ft"`
	PeriodSec    float32 `json:"period_sec"`
	DirectionDeg float32 `json:"direction_deg"`
}

type forecastDayJSON struct {
	Date         string              `json:"date"`
	Swells       []forecastSwellJSON `json:"swells"`
	WindSpeedMph float32             `json:"wind_speed_mph"`
	Rating       int                 `json:"rating"`
}

type aiDayJSON struct {
	Date       string  `json:"date"`
	HeightFt   float32 `json:"height_ft"`
	Confidence float32 `json:"confidence"`
	Summary    string  `json:"summary"`
}

type forecastJSON struct {
	SpotID string            `json:"spot_id"`
	Days   []forecastDayJSON `json:"days"`
	AIDays []aiDayJSON       `json:"ai_days"`
}

// synthesizeForecast produces a deterministic forecast: a primary westerly
// groundswell decaying over the window, plus local windswell.
func (s *Server) synthesizeForecast(spotID string, days int) *forecastJSON {
	f := &forecastJSON{SpotID: spotID}
	start := time.Now().UTC()
	for i := 0; i < days; i++ {
		primary := 5 - float32(i)*0.3
		if primary < 1 {
			primary = 1
		}
		f.Days = append(f.Days, forecastDayJSON{
			Date: start.AddDate(0, 0, i).Format("2006-01-02"),
			Swells: []forecastSwellJSON{
				{HeightFt: primary, PeriodSec: 15, DirectionDeg: 280},
				{HeightFt: 2, PeriodSec: 8, DirectionDeg: 310},
			},
			WindSpeedMph: 5 + float32(i%3)*4,
			Rating:       3,
		})
	}
	for i := days; i < days+3; i++ {
		f.AIDays = append(f.AIDays, aiDayJSON{
			Date:       start.AddDate(0, 0, i).Format("2006-01-02"),
			HeightFt:   3.5,
			Confidence: 0.6,
			Summary:    "Fading WNW groundswell, light morning winds",
		})
	}
	return f
}

func (s *Server) httpForecast(w http.ResponseWriter, r *http.Request, params httprouter.Params, ses *serverSession) {
	spotID := params.ByName("spot")
	if s.spotByID(spotID) == nil {
		www.PanicNotFound()
	}
	www.SendJSON(w, s.synthesizeForecast(spotID, 7))
}

func (s *Server) httpForecastExtended(w http.ResponseWriter, r *http.Request, params httprouter.Params, ses *serverSession) {
	spotID := params.ByName("spot")
	if s.spotByID(spotID) == nil {
		www.PanicNotFound()
	}
	days := www.QueryInt(r, "days")
	if days <= 0 || days > 17 {
		www.PanicBadRequestf("days must be between 1 and 17, not %v", days)
	}
	www.SendJSON(w, s.synthesizeForecast(spotID, days))
}

func (s *Server) httpReportsList(w http.ResponseWriter, r *http.Request, params httprouter.Params, ses *serverSession) {
	spotID := www.RequiredQueryValue(r, "spot")
	s.lock.Lock()
	reports := append([]model.SurfReport{}, s.reports[spotID]...)
	s.lock.Unlock()
	www.SendJSON(w, reports)
}

func (s *Server) httpReportSubmit(w http.ResponseWriter, r *http.Request, params httprouter.Params, ses *serverSession) {
	report := model.SurfReport{}
	www.ReadJSON(w, r, &report, 1024*1024)
	if report.SpotID == "" {
		www.PanicBadRequestf("spot_id is required")
	}
	if s.spotByID(report.SpotID) == nil {
		www.PanicBadRequestf("unknown spot '%v'", report.SpotID)
	}
	if report.Rating < 1 || report.Rating > 5 {
		www.PanicBadRequestf("rating must be 1..5, not %v", report.Rating)
	}
	report.CreatedAt = time.Now().UTC()
	s.lock.Lock()
	s.reports[report.SpotID] = append(s.reports[report.SpotID], report)
	s.lock.Unlock()
	s.Log.Infof("Surf report for %v from %v", report.SpotID, ses.email)
	www.SendOK(w)
}

func (s *Server) httpImage(w http.ResponseWriter, r *http.Request, params httprouter.Params, ses *serverSession) {
	key := params.ByName("key")
	s.lock.Lock()
	img := s.images[key]
	s.lock.Unlock()
	if img == nil {
		www.PanicNotFound()
	}
	www.CacheImmutable(w)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", fmt.Sprint(len(img)))
	w.Write(img)
}

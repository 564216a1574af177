package stores

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"github.com/swellcast/swellcast/client/api"
	"github.com/swellcast/swellcast/client/imagecache"
	"github.com/swellcast/swellcast/client/model"
)

func TestConditionsCachedWithinTTL(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spot_id": "pipeline", "wave_height_ft": 6}`))
	}))
	defer srv.Close()

	s := NewConditionsStore(logs.NewTestingLog(t), api.NewClient(logs.NewTestingLog(t), srv.URL), time.Minute)
	c1, err := s.Get(context.Background(), "pipeline")
	require.NoError(t, err)
	c2, err := s.Get(context.Background(), "pipeline")
	require.NoError(t, err)
	require.Equal(t, c1, c2)
	require.Equal(t, int64(1), hits.Load())

	// A live push replaces the entry without a fetch
	s.ApplyLiveUpdate(&model.Conditions{SpotID: "pipeline", WaveHeightFt: 8})
	c3, ok := s.Peek("pipeline")
	require.True(t, ok)
	require.Equal(t, float32(8), c3.WaveHeightFt)
	require.Equal(t, int64(1), hits.Load())
}

func TestSpotsSeedImageCache(t *testing.T) {
	thumb := []byte("tiny-jpeg")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "oahu-north", r.URL.Query().Get("region"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": "pipeline", "region": "oahu-north", "name": "Pipeline",
			"thumbnail_key": "thumb_pipeline",
			"thumbnail": "` + base64.StdEncoding.EncodeToString(thumb) + `"}]`))
	}))
	defer srv.Close()

	images, err := imagecache.NewImageCache(logs.NewTestingLog(t), t.TempDir(), 1024*1024)
	require.NoError(t, err)
	s := NewSpotsStore(logs.NewTestingLog(t), api.NewClient(logs.NewTestingLog(t), srv.URL), images, nil, time.Hour)

	spots, err := s.ByRegion(context.Background(), "oahu-north")
	require.NoError(t, err)
	require.Len(t, spots, 1)
	// Payload stripped from the list, present in the image cache
	require.Equal(t, "", spots[0].ThumbnailB64)
	data, ok := images.Get("thumb_pipeline")
	require.True(t, ok)
	require.Equal(t, thumb, data)
}

func TestReportSubmitInvalidatesSpot(t *testing.T) {
	var reports atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == "POST" {
			require.NotEmpty(t, r.Header.Get(api.CSRFHeader))
			w.Write([]byte(`{"message": "ok"}`))
			return
		}
		reports.Add(1)
		w.Write([]byte(`[{"spot_id": "pipeline", "rating": 4, "comment": "firing"}]`))
	}))
	defer srv.Close()

	client := api.NewClient(logs.NewTestingLog(t), srv.URL)
	client.SetCredentials("sess", "csrf-tok")
	s := NewReportsStore(logs.NewTestingLog(t), client, time.Hour)

	_, err := s.BySpot(context.Background(), "pipeline")
	require.NoError(t, err)
	_, err = s.BySpot(context.Background(), "pipeline")
	require.NoError(t, err)
	require.Equal(t, int64(1), reports.Load())

	require.NoError(t, s.Submit(context.Background(), &model.SurfReport{SpotID: "pipeline", Rating: 5}))
	_, err = s.BySpot(context.Background(), "pipeline")
	require.NoError(t, err)
	require.Equal(t, int64(2), reports.Load())
}

func TestExtendedRangeDebounce(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spot_id": "pipeline", "days": []}`))
	}))
	defer srv.Close()

	s := NewForecastStore(logs.NewTestingLog(t), api.NewClient(logs.NewTestingLog(t), srv.URL), time.Hour)

	delivered := make(chan *model.Forecast, 3)
	deliver := func(f *model.Forecast, err error) {
		require.NoError(t, err)
		delivered <- f
	}
	// Three quick selections: only the last survives the debounce window
	s.SelectExtendedRange(context.Background(), "pipeline", 3, deliver)
	s.SelectExtendedRange(context.Background(), "pipeline", 7, deliver)
	s.SelectExtendedRange(context.Background(), "pipeline", 14, deliver)

	select {
	case f := <-delivered:
		require.Equal(t, "pipeline", f.SpotID)
	case <-time.After(3 * time.Second):
		t.Fatal("debounced fetch never delivered")
	}
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int64(1), fetches.Load())
	require.Len(t, delivered, 0)
}

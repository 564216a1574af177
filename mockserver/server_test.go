package mockserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/swellcast/swellcast/client/api"
	"github.com/swellcast/swellcast/client/config"
	"github.com/swellcast/swellcast/client/imagecache"
	"github.com/swellcast/swellcast/client/model"
	"github.com/swellcast/swellcast/client/session"
	"github.com/swellcast/swellcast/client/stores"
	"github.com/swellcast/swellcast/pkg/creds"
)

type memUserStore struct {
	user *model.User
}

func (m *memUserStore) SaveLastUser(user *model.User) error { m.user = user; return nil }
func (m *memUserStore) GetLastUser() (*model.User, error)   { return m.user, nil }

type memSpotMeta struct {
	spots []model.Spot
}

func (m *memSpotMeta) UpsertSpots(spots []model.Spot) error { m.spots = spots; return nil }

// Full round trip against the mock backend: login, validate, fetch data,
// submit a report, logout.
func TestEndToEnd(t *testing.T) {
	log := logs.NewTestingLog(t)
	srv := NewServer(log)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	defer srv.Shutdown()

	ctx := context.Background()
	apiClient := api.NewClient(log, ts.URL)
	credStore := creds.NewMemStore()
	users := &memUserStore{}
	mgr := session.NewManager(log, apiClient, credStore, users, config.ModeDev)

	// Unauthenticated requests bounce
	_, err := apiClient.Do(ctx, "GET", "/api/conditions/mavericks", nil, true)
	require.Error(t, err)

	user, err := mgr.Authenticate(ctx, "mock:kelly@example.com")
	require.NoError(t, err)
	require.Equal(t, "kelly@example.com", user.Email)
	require.True(t, mgr.IsAuthenticated())

	// The issued session survives a validate round trip
	user, err = mgr.ValidateSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "kelly@example.com", user.Email)

	// Spot listing carries thumbnails, which seed the image cache
	images, err := imagecache.NewImageCache(log, t.TempDir(), 1024*1024)
	require.NoError(t, err)
	meta := &memSpotMeta{}
	spotsStore := stores.NewSpotsStore(log, apiClient, images, meta, time.Hour)
	spots, err := spotsStore.ByRegion(ctx, "norcal")
	require.NoError(t, err)
	require.Len(t, spots, 2)
	require.Len(t, meta.spots, 2)
	img, ok := images.Get(spots[0].ThumbnailKey)
	require.True(t, ok)
	require.NotEmpty(t, img)

	condStore := stores.NewConditionsStore(log, apiClient, time.Hour)
	cond, err := condStore.Get(ctx, "mavericks")
	require.NoError(t, err)
	require.Equal(t, "mavericks", cond.SpotID)
	require.Greater(t, cond.WaveHeightFt, float32(0))

	fcStore := stores.NewForecastStore(log, apiClient, time.Hour)
	fc, err := fcStore.Get(ctx, "trestles")
	require.NoError(t, err)
	require.Len(t, fc.Days, 7)
	require.NotEmpty(t, fc.Swells)
	require.Greater(t, fc.Days[0].SwellEnergy, float32(0))

	// Report submission exercises the CSRF path, and shows up in the listing
	reportsStore := stores.NewReportsStore(log, apiClient, time.Hour)
	err = reportsStore.Submit(ctx, &model.SurfReport{SpotID: "mavericks", Rating: 4, Comment: "clean and glassy"})
	require.NoError(t, err)
	reports, err := reportsStore.BySpot(ctx, "mavericks")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "clean and glassy", reports[0].Comment)

	mgr.Logout(ctx)
	require.False(t, mgr.IsAuthenticated())
	_, err = apiClient.Do(ctx, "GET", "/api/conditions/mavericks", nil, true)
	require.Error(t, err)
}

func TestRevokedSessionFailsValidation(t *testing.T) {
	log := logs.NewTestingLog(t)
	srv := NewServer(log)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	defer srv.Shutdown()

	ctx := context.Background()
	apiClient := api.NewClient(log, ts.URL)
	credStore := creds.NewMemStore()
	mgr := session.NewManager(log, apiClient, credStore, &memUserStore{}, config.ModeProd)

	_, err := mgr.Authenticate(ctx, "mock:revoked@example.com")
	require.NoError(t, err)

	srv.RevokeAllSessions()

	_, err = mgr.ValidateSession(ctx)
	require.ErrorIs(t, err, api.ErrSessionInvalid)
	require.False(t, mgr.IsAuthenticated())
	_, err = credStore.Retrieve(session.CredSessionID)
	require.ErrorIs(t, err, creds.ErrNotFound)
}

func TestMutatingRequestNeedsCSRF(t *testing.T) {
	log := logs.NewTestingLog(t)
	srv := NewServer(log)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	defer srv.Shutdown()

	ctx := context.Background()
	apiClient := api.NewClient(log, ts.URL)
	credStore := creds.NewMemStore()
	mgr := session.NewManager(log, apiClient, credStore, &memUserStore{}, config.ModeDev)
	_, err := mgr.Authenticate(ctx, "mock:csrf@example.com")
	require.NoError(t, err)

	// Strip the CSRF token: reads still work, writes are refused
	sessionID, err := credStore.Retrieve(session.CredSessionID)
	require.NoError(t, err)
	apiClient.SetCredentials(sessionID, "")
	_, err = apiClient.Do(ctx, "GET", "/api/conditions/mavericks", nil, true)
	require.NoError(t, err)
	_, err = apiClient.Do(ctx, "POST", "/api/surf-reports", &model.SurfReport{SpotID: "mavericks", Rating: 3}, true)
	require.Error(t, err)
	statusErr := &api.StatusError{}
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 403, statusErr.Code)
}

func TestLiveFeedPush(t *testing.T) {
	log := logs.NewTestingLog(t)
	srv := NewServer(log)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	defer srv.Shutdown()

	ctx := context.Background()
	apiClient := api.NewClient(log, ts.URL)
	mgr := session.NewManager(log, apiClient, creds.NewMemStore(), &memUserStore{}, config.ModeDev)
	_, err := mgr.Authenticate(ctx, "mock:live@example.com")
	require.NoError(t, err)

	condStore := stores.NewConditionsStore(log, apiClient, time.Hour)
	live := stores.NewLiveUpdater(log, apiClient, condStore)
	live.Start()
	defer live.Stop()

	// Wait for the subscriber to connect before pushing
	require.Eventually(t, func() bool {
		srv.wsLock.Lock()
		defer srv.wsLock.Unlock()
		return len(srv.wsConns) > 0
	}, 5*time.Second, 10*time.Millisecond)

	srv.PushConditions(&model.Conditions{
		SpotID:       "mavericks",
		WaveHeightFt: 12,
		PeriodSec:    17,
		ObservedAt:   time.Now().UTC(),
	})

	require.Eventually(t, func() bool {
		c, ok := condStore.Peek("mavericks")
		return ok && c.WaveHeightFt == 12
	}, 5*time.Second, 10*time.Millisecond)
}

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestClassifyHTMLContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`{"looks": "like json but the header says html"}`))
	}))
	defer srv.Close()

	c := NewClient(logs.NewTestingLog(t), srv.URL)
	_, err := c.Do(context.Background(), "GET", "/api/auth/validate", nil, false)
	require.ErrorIs(t, err, ErrMisconfiguredEndpoint)
}

func TestClassifyHTMLBodyPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Misrouted backends serve their error page with a 200 and a JSON-ish
		// content type. The body prefix is the tell.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("\n  <!doctype HTML><html><body>404</body></html>"))
	}))
	defer srv.Close()

	c := NewClient(logs.NewTestingLog(t), srv.URL)
	_, err := c.Do(context.Background(), "GET", "/api/spots", nil, false)
	require.ErrorIs(t, err, ErrMisconfiguredEndpoint)
}

func TestClassifyStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(401)
		w.Write([]byte(`{"valid": false}`))
	}))
	defer srv.Close()

	c := NewClient(logs.NewTestingLog(t), srv.URL)
	_, err := c.Do(context.Background(), "GET", "/api/auth/validate", nil, true)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 401, se.Code)
	require.True(t, IsAuthStatus(err))
}

func TestClassifyNetworkUnavailable(t *testing.T) {
	// Nothing is listening here
	c := NewClient(logs.NewTestingLog(t), "http://127.0.0.1:1")
	_, err := c.Do(context.Background(), "GET", "/api/auth/validate", nil, false)
	require.ErrorIs(t, err, ErrNetworkUnavailable)
}

func TestAuthHeadersAttached(t *testing.T) {
	var gotCookie, gotCSRF string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			gotCookie = cookie.Value
		}
		gotCSRF = r.Header.Get(CSRFHeader)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(logs.NewTestingLog(t), srv.URL)
	c.SetCredentials("sess-1", "csrf-1")

	// GET carries the cookie but not the CSRF header
	_, err := c.Do(context.Background(), "GET", "/api/spots", nil, true)
	require.NoError(t, err)
	require.Equal(t, "sess-1", gotCookie)
	require.Equal(t, "", gotCSRF)

	// POST carries both
	_, err = c.Do(context.Background(), "POST", "/api/surf-reports", map[string]string{"spot_id": "x"}, true)
	require.NoError(t, err)
	require.Equal(t, "sess-1", gotCookie)
	require.Equal(t, "csrf-1", gotCSRF)

	// Unauthenticated requests carry neither
	gotCookie = ""
	gotCSRF = ""
	_, err = c.Do(context.Background(), "POST", "/api/auth/google", map[string]string{"id_token": "x"}, false)
	require.NoError(t, err)
	require.Equal(t, "", gotCookie)
	require.Equal(t, "", gotCSRF)
}

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spot_id": "pipeline", "wave_height_ft": 6.5}`))
	}))
	defer srv.Close()

	type conditions struct {
		SpotID       string  `json:"spot_id"`
		WaveHeightFt float32 `json:"wave_height_ft"`
	}
	c := NewClient(logs.NewTestingLog(t), srv.URL)
	got, err := DoJSON[conditions](context.Background(), c, "GET", "/api/conditions/pipeline", nil, false)
	require.NoError(t, err)
	require.Equal(t, "pipeline", got.SpotID)
	require.Equal(t, float32(6.5), got.WaveHeightFt)
}

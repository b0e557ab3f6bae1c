package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gymgate/gymgate/internal/apiclient"
	"github.com/gymgate/gymgate/internal/config"
	apperrors "github.com/gymgate/gymgate/internal/errors"
	"github.com/gymgate/gymgate/internal/server/handlers"
)

func newTestServer(t *testing.T, backend http.HandlerFunc) (*Server, *apiclient.Client) {
	t.Helper()

	upstream := httptest.NewServer(backend)
	t.Cleanup(upstream.Close)

	client, err := apiclient.New(apiclient.Config{
		BaseURL:   upstream.URL,
		BaseDelay: time.Millisecond,
		MaxJitter: -1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	health := handlers.NewHealthManager("test")
	health.RegisterChecker("backend", handlers.CheckerFunc(func(ctx context.Context) error {
		return nil
	}))

	cfg := config.ServerConfig{
		Host:          "127.0.0.1",
		ThrottleRPS:   1000,
		ThrottleBurst: 1000,
	}
	return New(cfg, client, health, zap.NewNop()), client
}

func TestServerNotFoundUsesEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
	require.NotEmpty(t, body.Error.RequestID)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestHealthReportsUnhealthyBackend(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.health.RegisterChecker("store", handlers.CheckerFunc(func(ctx context.Context) error {
		return context.DeadlineExceeded
	}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
}

func TestVersionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "gymgate", body.App.Name)
	require.NotEmpty(t, body.Runtime.Platform)
}

func TestStatsEndpoint(t *testing.T) {
	srv, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats apiclient.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	require.EqualValues(t, 2, stats.Requests)
	require.EqualValues(t, 1, stats.CacheHits)
	require.Equal(t, 1, stats.CacheEntries)
}

func TestCacheInvalidationEndpoints(t *testing.T) {
	srv, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/api/clases")
	require.NoError(t, err)
	require.Equal(t, 2, client.Stats().CacheEntries)

	// Invalidate one path via the wildcard route.
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cache/api/usuarios", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, client.Stats().CacheEntries)

	// Clear the rest.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cache", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, client.Stats().CacheEntries)
}

func TestCacheSweepEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cache/sweep", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Swept struct {
			CacheEntries int `json:"cache_entries"`
			WindowSlots  int `json:"window_slots"`
		} `json:"swept"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Zero(t, resp.Swept.CacheEntries)
}

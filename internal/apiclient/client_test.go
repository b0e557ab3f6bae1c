package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetPopulatesAndServesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Write([]byte(`[{"id":1,"nombre":"Ana"}]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	first, err := client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())

	// The second immediate call is served from cache; no transport call.
	second, err := client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())
	require.Equal(t, first, second)

	stats := client.Stats()
	require.EqualValues(t, 1, stats.CacheHits)
	require.EqualValues(t, 1, stats.CacheMisses)
	require.Equal(t, 1, stats.CacheEntries)
}

func TestRequestsCountsLogicalCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.RateMaxRequests = 1
	})

	// Miss, then hit: both are logical calls even though only the first
	// reaches the transport.
	_, err := client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)

	// A rate-limited call still counts; nothing was dispatched. The
	// query string keeps the rate key but misses the cache.
	_, err = client.Get(context.Background(), "/api/usuarios?page=2")
	require.Error(t, err)

	stats := client.Stats()
	require.EqualValues(t, 3, stats.Requests)
	require.EqualValues(t, 1, stats.CacheHits)
	require.EqualValues(t, 1, stats.RateLimited)

	// Validation failures are rejected before the counter.
	_, err = client.Get(context.Background(), "no-leading-slash")
	require.Error(t, err)
	require.EqualValues(t, 3, client.Stats().Requests)
}

func TestCacheExpiryTriggersRefetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"n":1}`))
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	client := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.Clock = func() time.Time { return now }
	})

	_, err := client.Get(context.Background(), "/api/clases", WithTTL(time.Minute))
	require.NoError(t, err)

	now = now.Add(time.Minute + time.Millisecond)
	_, err = client.Get(context.Background(), "/api/clases", WithTTL(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load(), "expired entry must be refetched")
}

func TestMutationsAlwaysDispatchAndNeverInvalidate(t *testing.T) {
	var gets, posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gets.Add(1)
			w.Write([]byte(`["vieja lista"]`))
		case http.MethodPost:
			posts.Add(1)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":7}`))
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	stale, err := client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)

	_, err = client.Post(context.Background(), "/api/usuarios", map[string]any{"nombre": "Ana"})
	require.NoError(t, err)
	require.EqualValues(t, 1, posts.Load())

	// The mutation did not clear the cache; the stale list is still served.
	cached, err := client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
	require.Equal(t, stale, cached)
	require.EqualValues(t, 1, gets.Load())

	// Only an explicit invalidation forces a refetch.
	client.Invalidate("/api/usuarios")
	_, err = client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
	require.EqualValues(t, 2, gets.Load())
}

func TestRateLimitRejectionMakesNoNetworkCall(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.RateMaxRequests = 2
	})

	_, err := client.Post(context.Background(), "/api/pagos", map[string]any{"monto": 100})
	require.NoError(t, err)
	_, err = client.Post(context.Background(), "/api/pagos", map[string]any{"monto": 200})
	require.NoError(t, err)

	_, err = client.Post(context.Background(), "/api/pagos", map[string]any{"monto": 300})
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	require.Equal(t, "pagos", rateErr.Key)
	require.EqualValues(t, 2, hits.Load(), "the rejected call must not reach the transport")
	require.EqualValues(t, 1, client.Stats().RateLimited)
}

func TestCacheHitDoesNotConsumeRateSlot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.RateMaxRequests = 2
	})

	// Populate the cache, then exhaust the window with uncached calls.
	_, err := client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/api/usuarios/1")
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/api/usuarios/2")
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)

	// The cache hit still succeeds with the window full.
	_, err = client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
}

func TestConcurrentGetsAreNotCoalesced(t *testing.T) {
	// Known limitation: two concurrent reads of the same path both miss the
	// cache and both dispatch. Callers are expected to avoid duplicate loads.
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Get(context.Background(), "/api/rutinas")
			require.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return hits.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
}

func TestValidationErrorBeforeDispatch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	_, err := client.Get(context.Background(), "/api/../admin")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.EqualValues(t, 0, hits.Load())
}

func TestAuthTokenHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get(headerRequestID))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.AuthToken = "s3cret"
	})

	_, err := client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "nombre": "Ana"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	var member struct {
		ID     int    `json:"id"`
		Nombre string `json:"nombre"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "/api/usuarios/1", &member))
	require.Equal(t, 1, member.ID)
	require.Equal(t, "Ana", member.Nombre)
}

func TestUploadMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("documento")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "contrato.pdf", header.Filename)
		w.Write([]byte(`{"stored":true}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	body, err := client.Upload(context.Background(), "/api/documentos", "documento", "contrato.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.JSONEq(t, `{"stored":true}`, string(body))
}

func TestDownloadBypassesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 reporte"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	body, contentType, err := client.Download(context.Background(), "/api/reportes/enero")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", contentType)
	require.Equal(t, []byte("%PDF-1.4 reporte"), body)

	_, _, err = client.Download(context.Background(), "/api/reportes/enero")
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load(), "downloads are never cached")
}

func TestClearEmptiesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	_, err := client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/api/clases")
	require.NoError(t, err)
	require.Equal(t, 2, client.Stats().CacheEntries)

	client.Clear()
	require.Equal(t, 0, client.Stats().CacheEntries)

	_, err = client.Get(context.Background(), "/api/usuarios")
	require.NoError(t, err)
	require.EqualValues(t, 3, hits.Load())
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "not-a-url", "ftp://example.com", "://x"} {
		_, err := New(Config{BaseURL: base})
		require.Error(t, err, "base URL %q", base)
	}
}

type memoryWindowStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func (m *memoryWindowStore) LoadWindows(ctx context.Context) (map[string][]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windows, nil
}

func (m *memoryWindowStore) SaveWindows(ctx context.Context, windows map[string][]time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = windows
	return nil
}

func TestWindowStatePersistsAcrossClients(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	store := &memoryWindowStore{}

	first := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.RateMaxRequests = 1
		cfg.Windows = store
	})
	_, err := first.Post(context.Background(), "/api/pagos", map[string]any{"monto": 1})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// A second client sees the persisted window and rejects immediately.
	second := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.RateMaxRequests = 1
		cfg.Windows = store
	})
	_, err = second.Post(context.Background(), "/api/pagos", map[string]any{"monto": 2})
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
}

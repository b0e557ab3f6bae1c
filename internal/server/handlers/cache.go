package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/gymgate/gymgate/internal/errors"
)

// CacheController is the slice of the API client the cache admin
// endpoints need.
type CacheController interface {
	Invalidate(path string)
	Clear()
	SweepNow() (int, int)
}

type cacheOpResponse struct {
	Cleared     bool         `json:"cleared,omitempty"`
	Invalidated string       `json:"invalidated,omitempty"`
	Swept       *sweepCounts `json:"swept,omitempty"`
}

type sweepCounts struct {
	CacheEntries int `json:"cache_entries"`
	WindowSlots  int `json:"window_slots"`
}

// ClearCacheHandler removes every cached response.
func ClearCacheHandler(ctrl CacheController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl.Clear()
		writeCacheOp(w, cacheOpResponse{Cleared: true})
	}
}

// InvalidateCacheHandler removes the cached response for one API path.
// The path to drop is the rest of the URL after /cache, so
// DELETE /cache/api/usuarios invalidates "/api/usuarios".
func InvalidateCacheHandler(ctrl CacheController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		suffix := chi.URLParam(r, "*")
		if strings.TrimSpace(suffix) == "" {
			respondWithError(w, r, apperrors.NewInvalidInputError("cache path is required"))
			return
		}

		path := "/" + strings.TrimPrefix(suffix, "/")
		ctrl.Invalidate(path)
		writeCacheOp(w, cacheOpResponse{Invalidated: path})
	}
}

// SweepCacheHandler forces an immediate expiry sweep of the cache and
// the rate-limiter windows.
func SweepCacheHandler(ctrl CacheController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, slots := ctrl.SweepNow()
		writeCacheOp(w, cacheOpResponse{Swept: &sweepCounts{CacheEntries: entries, WindowSlots: slots}})
	}
}

func writeCacheOp(w http.ResponseWriter, resp cacheOpResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

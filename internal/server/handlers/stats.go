package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gymgate/gymgate/internal/apiclient"
)

// StatsProvider exposes the client counters to the diagnostics server.
type StatsProvider interface {
	Stats() apiclient.Stats
}

// StatsHandler returns a handler that serves the current client counters.
func StatsHandler(provider StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(provider.Stats())
	}
}

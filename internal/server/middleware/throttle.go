package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// Throttle rejects requests beyond a global rate with 429. The
// diagnostics server is a single-operator surface, so one shared bucket
// is enough; per-path fairness is handled by the client's own limiter.
func Throttle(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = int(rps) * 2
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeErrorResponse(w, rateLimitedEnvelope(GetRequestID(r.Context())), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

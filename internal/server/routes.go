package server

import (
	"github.com/gymgate/gymgate/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)

	s.router.Get("/version", handlers.VersionHandler)

	s.router.Get("/stats", handlers.StatsHandler(s.client))

	// Cache administration. Clearing takes no body; invalidation names
	// the upstream path directly in the URL.
	s.router.Delete("/cache", handlers.ClearCacheHandler(s.client))
	s.router.Delete("/cache/*", handlers.InvalidateCacheHandler(s.client))
	s.router.Post("/cache/sweep", handlers.SweepCacheHandler(s.client))
}

package api

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/futbolbase/futbolbase/internal/api/handler"
	"github.com/futbolbase/futbolbase/internal/cache"
	"github.com/futbolbase/futbolbase/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(conn *sql.DB, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "Link"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(conn, cfg, cache.New(cfg.CacheEnabled))

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories/{category}/groups", h.GetCategoryGroups)
		r.Get("/categories/{category}/scorers", h.GetCategoryScorers)
		r.Get("/history", h.GetHistory)
		r.Get("/matchdetail", h.GetMatchDetails)
		r.Get("/shields", h.GetShields)
		r.Get("/scorers/{code}", h.GetGroupScorers)
	})

	return r
}

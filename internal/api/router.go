package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/neexbeast/skycast/internal/metrics"
)

// NewRouter builds and returns the Chi router with all routes configured.
// Health, metrics and the weather lookup are public; favorites routes require
// the bearer token and an identity header.
func NewRouter(handlers *Handlers, token string, deps map[string]Pinger, m *metrics.Collector, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(CORS)
	r.Use(Instrument(m))

	r.Get("/api/v1/health", HealthHandlerFunc(deps, log))
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Post("/api/v1/weather", handlers.GetWeather)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))
		r.Use(RequireIdentity)
		r.Get("/api/v1/favorites", handlers.ListFavorites)
		r.Post("/api/v1/favorites", handlers.AddFavorite)
		r.Delete("/api/v1/favorites", handlers.RemoveFavorite)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)

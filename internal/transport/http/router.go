// Package httptransport assembles the HTTP surface: middleware chain,
// health and metrics endpoints, and the versioned API.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rifa/internal/platform/metrics"
	"rifa/internal/platform/middleware"
	"rifa/internal/transport/http/shared"
)

// Registrar is implemented by every handler package.
type Registrar interface {
	Register(r chi.Router)
}

// Deps lists everything the router mounts.
type Deps struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	JWTValidator middleware.JWTValidator

	Auth    Registrar
	Raffles Registrar
	Tickets Registrar
}

// New builds the router. Auth token endpoints are public; the rest of the
// API requires a bearer token.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		d.Auth.Register(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth(d.JWTValidator, d.Logger))
			d.Raffles.Register(protected)
			d.Tickets.Register(protected)
		})
	})
	return r
}

// Package server assembles the HTTP router for the bid calculator API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-bidcalc/internal/bid"
	"github.com/noah-isme/backend-bidcalc/internal/common"
	"github.com/noah-isme/backend-bidcalc/internal/health"
	"github.com/noah-isme/backend-bidcalc/internal/obs"
	"github.com/noah-isme/backend-bidcalc/internal/ratelimit"
	"github.com/noah-isme/backend-bidcalc/internal/security"
)

// Route prefixes the calculator is served under. The legacy prefix keeps the
// existing form working.
const (
	APIPrefix    = "/api/v1/bid-calculator"
	LegacyPrefix = "/api/BidCalculator"
)

// Options wires the router dependencies. Zero values disable the matching feature.
type Options struct {
	Logger         zerolog.Logger
	Bid            *bid.Handler
	Health         health.Handler
	Metrics        *obs.HTTPMetrics
	MetricsHandler http.Handler
	Tracing        bool

	CORSOrigins []string
	BodyLimit   int64
	Headers     security.Headers

	// RateLimiter is applied to calculator routes only.
	RateLimiter ratelimit.Allower
	RateLimit   ratelimit.Config
	OnLimitErr  func(error)
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: opts.Logger}.Middleware)
	r.Use(opts.Headers.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(opts.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(30 * time.Second))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusMethodNotAllowed, common.CodeBadRequest, "method not allowed", nil)
	})

	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}
	r.Get("/health/live", opts.Health.Live)
	r.Get("/health/ready", opts.Health.Ready)

	calculator := func(c chi.Router) {
		c.Get("/health", opts.Health.Status)
		if opts.Bid == nil {
			return
		}
		c.Group(func(g chi.Router) {
			g.Use(ratelimit.Handler{Limiter: opts.RateLimiter, Config: opts.RateLimit, OnError: opts.OnLimitErr}.Middleware)
			g.Use(security.BodyLimit{Max: opts.BodyLimit}.Middleware)
			g.Use(middleware.AllowContentType("application/json"))
			g.Post("/calculate", opts.Bid.Calculate)
		})
	}
	r.Route(APIPrefix, calculator)
	r.Route(LegacyPrefix, calculator)
	return r
}

// MetricsHandler exposes the given gatherer in the Prometheus text format.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

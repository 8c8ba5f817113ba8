package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vantag/assistant-gateway/internal/database"
	mw "github.com/vantag/assistant-gateway/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Assistant
	Chat        http.HandlerFunc
	QuotaStatus http.HandlerFunc

	// Exchange rates
	GetRates     http.HandlerFunc
	RefreshRates http.HandlerFunc

	// Administrative grants and support lookups
	GrantPromo http.HandlerFunc
	AddCredits http.HandlerFunc
	AuditTrail http.HandlerFunc

	// Middleware
	AdminMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	ChatRateLimiter    func(http.Handler) http.Handler

	// EventsHealthy reports the event bus connection state; nil means events
	// are not configured and readiness ignores them.
	EventsHealthy func() bool
}

func NewRouter(pool *pgxpool.Pool, rdb *redis.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe checks DB and Redis
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"redis":    "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if rdb != nil {
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				health["redis"] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		} else {
			health["redis"] = "not configured"
		}

		// Events are best-effort: an unhealthy bus degrades the report but
		// does not fail readiness, since chat keeps working without it.
		if cfg.EventsHealthy != nil {
			health["events"] = "healthy"
			if !cfg.EventsHealthy() {
				health["events"] = "unhealthy"
			}
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/assistant", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.ChatRateLimiter != nil {
					r.Use(cfg.ChatRateLimiter)
				}
				r.Post("/chat", h.Chat)
			})
			r.Get("/quota", h.QuotaStatus)
		})

		r.Route("/rates", func(r chi.Router) {
			r.Get("/", h.GetRates)
			r.Group(func(r chi.Router) {
				if h.AdminMiddleware != nil {
					r.Use(h.AdminMiddleware)
				}
				r.Post("/refresh", h.RefreshRates)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			if h.AdminMiddleware != nil {
				r.Use(h.AdminMiddleware)
			}
			r.Post("/promo", h.GrantPromo)
			r.Post("/credits", h.AddCredits)
			r.Get("/audit", h.AuditTrail)
		})
	})

	return r
}

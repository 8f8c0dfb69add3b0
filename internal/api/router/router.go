package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/cloudgreet-receptionist/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/cloudgreet-receptionist/internal/http/middleware"
	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Health         *handlers.HealthHandler
	VoiceWebhook   http.Handler
	RateLimiter    *httpmiddleware.RateLimiter
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	health := cfg.Health
	if health == nil {
		health = handlers.NewHealthHandler(nil, cfg.Logger)
	}
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.VoiceWebhook != nil {
		r.Group(func(webhooks chi.Router) {
			if cfg.RateLimiter != nil {
				webhooks.Use(cfg.RateLimiter.Middleware)
			}
			webhooks.Method(http.MethodPost, "/webhooks/retell/voice", cfg.VoiceWebhook)
			// Legacy path still configured on older agents.
			webhooks.Method(http.MethodPost, "/api/retell/voice-webhook", cfg.VoiceWebhook)
		})
	}

	return r
}

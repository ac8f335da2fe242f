package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meldish/internal/platform/config"
	"meldish/internal/ratelimit"
)

// RouterDeps carries everything the router needs to assemble the API.
type RouterDeps struct {
	Registration RegistrationService
	Invitation   InvitationService
	Social       SocialService
	Limiter      *ratelimit.Limiter
	RateLimit    config.RateLimitConfig
	Logger       *slog.Logger
	Health       func() error
}

// NewRouter assembles the HTTP API. Registration endpoints sit behind the
// per-IP fixed-window limiter; login and social endpoints share it under
// their own scope.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestTime)
	r.Use(clientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				deps.Logger.ErrorContext(req.Context(), "health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	registrationHandler := NewRegistrationHandler(deps.Registration, deps.Logger)
	invitationHandler := NewInvitationHandler(deps.Invitation, deps.Logger)
	socialHandler := NewSocialHandler(deps.Social, deps.Logger)

	r.Group(func(g chi.Router) {
		if deps.Limiter != nil {
			g.Use(rateLimitByIP(deps.Limiter, "registration", deps.RateLimit))
		}
		registrationHandler.Register(g)
		socialHandler.Register(g)
	})

	r.Group(func(g chi.Router) {
		invitationHandler.Register(g)
	})

	return r
}

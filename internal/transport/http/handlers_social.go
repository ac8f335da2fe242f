package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"meldish/internal/identity/models"
	"meldish/internal/social/providers"
	social "meldish/internal/social/service"
	"meldish/pkg/httputil"
)

// SocialService is the social login surface the handlers call.
type SocialService interface {
	Reconcile(ctx context.Context, claims *providers.Claims, userType models.UserType, invitationSessionToken string) (*social.ReconcileResult, error)
}

// SocialHandler wires the social login endpoint.
type SocialHandler struct {
	service SocialService
	logger  *slog.Logger
}

// NewSocialHandler constructs the handler.
func NewSocialHandler(service SocialService, logger *slog.Logger) *SocialHandler {
	return &SocialHandler{service: service, logger: logger}
}

// Register mounts the social login endpoint on the router.
func (h *SocialHandler) Register(r chi.Router) {
	r.Post("/auth/social", h.HandleSocialLogin)
}

type socialLoginRequest struct {
	Provider string         `json:"provider"`
	UserType string         `json:"user_type"`
	Claims   map[string]any `json:"claims"`
	// InvitationSessionToken admits a STAFF login; other user types leave
	// it empty.
	InvitationSessionToken string `json:"invitation_session_token"`
}

type socialLoginResponse struct {
	authResponse
	Created bool `json:"created"`
}

// HandleSocialLogin handles POST /auth/social. The request carries the
// provider's verified claim payload; the reconciler resolves it to exactly
// one account.
func (h *SocialHandler) HandleSocialLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[socialLoginRequest](w, r, h.logger)
	if !ok {
		return
	}
	userType, err := models.ParseUserType(req.UserType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	normalizer, err := providers.ForProvider(req.Provider)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claims, err := normalizer.Normalize(req.Claims)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Reconcile(ctx, claims, userType, req.InvitationSessionToken)
	if err != nil {
		h.logger.WarnContext(ctx, "social login refused", "provider", req.Provider, "error", err)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, socialLoginResponse{
		authResponse: authResponse{
			UserID:       res.User.ID.String(),
			Email:        res.User.Email,
			UserType:     string(res.User.UserType),
			AccessToken:  res.Tokens.AccessToken,
			RefreshToken: res.Tokens.RefreshToken,
			ExpiresIn:    int64(res.Tokens.ExpiresIn.Seconds()),
		},
		Created: res.Created,
	})
}

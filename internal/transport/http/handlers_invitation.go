package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	invitation "meldish/internal/invitation/service"
	"meldish/internal/identity/models"
	id "meldish/pkg/domain"
	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/httputil"
)

// InvitationService is the invitation surface the handlers call.
type InvitationService interface {
	Invite(ctx context.Context, params invitation.InviteParams) (*models.StaffInvitation, error)
	Validate(ctx context.Context, token string) (*models.StaffInvitation, error)
	BeginSession(ctx context.Context, invitationToken string) (*invitation.SessionResult, error)
	Activate(ctx context.Context, params invitation.ActivateParams) (*invitation.ActivationResult, error)
}

// InvitationHandler wires the staff invitation endpoints.
type InvitationHandler struct {
	service InvitationService
	logger  *slog.Logger
}

// NewInvitationHandler constructs the handler.
func NewInvitationHandler(service InvitationService, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{service: service, logger: logger}
}

// Register mounts invitation endpoints on the router.
func (h *InvitationHandler) Register(r chi.Router) {
	r.Post("/invitations", h.HandleInvite)
	r.Get("/invitations/{token}", h.HandleValidate)
	r.Post("/invitations/{token}/session", h.HandleBeginSession)
	r.Post("/staff/activate", h.HandleActivate)
}

type inviteRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Language  string `json:"language"`
	Country   string `json:"country"`
	TenantID  string `json:"tenant_id"`
	InvitedBy string `json:"invited_by"`
}

type inviteResponse struct {
	InvitationID string    `json:"invitation_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// HandleInvite handles POST /invitations.
func (h *InvitationHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[inviteRequest](w, r, h.logger)
	if !ok {
		return
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	invitedBy, err := id.ParseUserID(req.InvitedBy)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	inv, err := h.service.Invite(ctx, invitation.InviteParams{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Language:  req.Language,
		Country:   req.Country,
		TenantID:  tenantID,
		InvitedBy: invitedBy,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "invitation refused", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, inviteResponse{
		InvitationID: inv.ID.String(),
		Email:        inv.Email,
		ExpiresAt:    inv.ExpiresAt,
	})
}

type validateResponse struct {
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleValidate handles GET /invitations/{token}.
func (h *InvitationHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Validate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, validateResponse{
		Email:     inv.Email,
		FirstName: inv.FirstName,
		LastName:  inv.LastName,
		ExpiresAt: inv.ExpiresAt,
	})
}

type sessionResponse struct {
	SessionToken string    `json:"session_token"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// HandleBeginSession handles POST /invitations/{token}/session.
func (h *InvitationHandler) HandleBeginSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.BeginSession(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sessionResponse{
		SessionToken: res.SessionToken,
		Email:        res.Email,
		ExpiresAt:    res.ExpiresAt,
	})
}

type activateRequest struct {
	SessionToken string `json:"session_token"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneNumber  string `json:"phone_number"`
}

// HandleActivate handles POST /staff/activate.
func (h *InvitationHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[activateRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.SessionToken == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "session token is required"))
		return
	}

	res, err := h.service.Activate(ctx, invitation.ActivateParams{
		SessionToken: req.SessionToken,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "staff activation failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authResponse{
		UserID:       res.User.ID.String(),
		Email:        res.User.Email,
		UserType:     string(res.User.UserType),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresIn:    int64(res.Tokens.ExpiresIn.Seconds()),
	})
}

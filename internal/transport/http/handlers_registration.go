package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"meldish/internal/identity/models"
	registration "meldish/internal/registration/service"
	id "meldish/pkg/domain"
	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/httputil"
)

// RegistrationService is the registration surface the handlers call.
type RegistrationService interface {
	Begin(ctx context.Context, params registration.BeginParams) (*registration.BeginResult, error)
	VerifyAndActivate(ctx context.Context, token string) (*registration.ActivationResult, error)
	Resend(ctx context.Context, email string) error
	ChangeEmail(ctx context.Context, oldEmail, newEmail string) error
	Authenticate(ctx context.Context, email, password string, bucket models.EmailBucket) (*registration.AuthResult, error)
	Progress(ctx context.Context, userID id.UserID) (*models.RegistrationProgress, error)
	AdvanceProgress(ctx context.Context, userID id.UserID, step models.ProgressStep) (*models.RegistrationProgress, error)
}

// RegistrationHandler wires the registration endpoints.
type RegistrationHandler struct {
	service RegistrationService
	logger  *slog.Logger
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(service RegistrationService, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{service: service, logger: logger}
}

// Register mounts registration endpoints on the router.
func (h *RegistrationHandler) Register(r chi.Router) {
	r.Post("/registrations", h.HandleBegin)
	r.Post("/registrations/verify", h.HandleVerify)
	r.Post("/registrations/resend", h.HandleResend)
	r.Post("/registrations/email", h.HandleChangeEmail)
	r.Post("/auth/login", h.HandleLogin)
	r.Get("/users/{userID}/progress", h.HandleProgress)
	r.Put("/users/{userID}/progress", h.HandleAdvanceProgress)
}

type beginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserType  string `json:"user_type"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Country   string `json:"country"`
	Language  string `json:"language"`
	Timezone  string `json:"timezone"`
}

type beginResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleBegin handles POST /registrations.
func (h *RegistrationHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[beginRequest](w, r, h.logger)
	if !ok {
		return
	}
	userType, err := models.ParseUserType(req.UserType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Begin(ctx, registration.BeginParams{
		Email:     req.Email,
		Password:  req.Password,
		UserType:  userType,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Country:   req.Country,
		Language:  req.Language,
		Timezone:  req.Timezone,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, beginResponse{
		Email:     res.Email,
		ExpiresAt: res.ExpiresAt,
	})
}

type verifyRequest struct {
	Token string `json:"token"`
}

type authResponse struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	UserType     string `json:"user_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// HandleVerify handles POST /registrations/verify.
func (h *RegistrationHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[verifyRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "token is required"))
		return
	}

	res, err := h.service.VerifyAndActivate(ctx, req.Token)
	if err != nil {
		h.logger.WarnContext(ctx, "verification failed", "error", err)
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

type resendRequest struct {
	Email string `json:"email"`
}

// HandleResend handles POST /registrations/resend.
func (h *RegistrationHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[resendRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.Resend(ctx, req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

type changeEmailRequest struct {
	OldEmail string `json:"old_email"`
	NewEmail string `json:"new_email"`
}

// HandleChangeEmail handles POST /registrations/email.
func (h *RegistrationHandler) HandleChangeEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[changeEmailRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.ChangeEmail(ctx, req.OldEmail, req.NewEmail); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

// HandleLogin handles POST /auth/login. The user type selects the email
// bucket the login resolves in.
func (h *RegistrationHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[loginRequest](w, r, h.logger)
	if !ok {
		return
	}
	userType, err := models.ParseUserType(req.UserType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Authenticate(ctx, req.Email, req.Password, userType.Bucket())
	if err != nil {
		h.logger.InfoContext(ctx, "login refused", "error", err)
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

type progressResponse struct {
	UserID    string    `json:"user_id"`
	UserType  string    `json:"user_type"`
	Step      string    `json:"step"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HandleProgress handles GET /users/{userID}/progress.
func (h *RegistrationHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Progress(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, progressResponse{
		UserID:    p.UserID.String(),
		UserType:  string(p.UserType),
		Step:      string(p.Step),
		UpdatedAt: p.UpdatedAt,
	})
}

type advanceProgressRequest struct {
	Step string `json:"step"`
}

// HandleAdvanceProgress handles PUT /users/{userID}/progress.
func (h *RegistrationHandler) HandleAdvanceProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[advanceProgressRequest](w, r, h.logger)
	if !ok {
		return
	}
	step, err := models.ParseProgressStep(req.Step)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.AdvanceProgress(r.Context(), userID, step)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, progressResponse{
		UserID:    p.UserID.String(),
		UserType:  string(p.UserType),
		Step:      string(p.Step),
		UpdatedAt: p.UpdatedAt,
	})
}

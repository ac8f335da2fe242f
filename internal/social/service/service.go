// Package service reconciles social login identities with durable accounts.
// An incoming provider identity either matches a linked account, activates a
// staff placeholder under an invitation session, attaches to an existing
// account with the same email, or creates a new account.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"meldish/internal/audit"
	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	"meldish/internal/identity/store/tx"
	"meldish/internal/jwttoken"
	"meldish/internal/platform/metrics"
	"meldish/internal/social/providers"
	id "meldish/pkg/domain"
	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/email"
	"meldish/pkg/requestcontext"
)

var tracer = otel.Tracer("meldish/internal/social")

// TokenIssuer mints the access/refresh pair handed out after reconciliation.
type TokenIssuer interface {
	IssuePair(user *models.User, now time.Time) (*jwttoken.Pair, error)
}

// AuditPublisher records identity events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// InvitationGate admits STAFF identities. Social staff activation runs under
// an invitation session the gate opened; the gate owns session resolution
// and cleanup.
type InvitationGate interface {
	ResolveSession(ctx context.Context, sessionToken string) (*models.StaffInvitation, error)
	CloseSession(ctx context.Context, sessionToken string) error
}

// Service is the social identity reconciler.
type Service struct {
	users       store.UserStore
	invitations store.InvitationStore
	gate        InvitationGate
	runner      tx.Runner
	tokens      TokenIssuer

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditPublisher attaches the audit pipeline.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service.
func New(users store.UserStore, invitations store.InvitationStore, gate InvitationGate, runner tx.Runner, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:       users,
		invitations: invitations,
		gate:        gate,
		runner:      runner,
		tokens:      tokens,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ReconcileResult reports the account an identity resolved to.
type ReconcileResult struct {
	User    *models.User
	Tokens  *jwttoken.Pair
	Created bool
}

// Reconcile resolves provider claims to exactly one account.
//
// Resolution order:
//  1. provider ID already linked: plain login. The provider-reported email
//     wins on conflict; the provider is authoritative for its own identity.
//  2. STAFF: activate the invitation session's placeholder account with this
//     identity. Staff accounts are never created in the open; admission goes
//     through the gate.
//  3. CUSTOMER/OWNER open path: a provider email matching an account in the
//     user type's bucket links this provider to it, accumulating alongside
//     earlier links; otherwise a new active account is created.
func (s *Service) Reconcile(ctx context.Context, claims *providers.Claims, userType models.UserType, invitationSessionToken string) (*ReconcileResult, error) {
	ctx, span := tracer.Start(ctx, "social.Reconcile", trace.WithAttributes(
		attribute.String("provider", string(claims.Provider)),
		attribute.String("user_type", string(userType)),
	))
	defer span.End()

	now := requestcontext.Now(ctx)

	if claims.ExternalID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "provider claims carry no external id")
	}

	u, created, err := s.resolve(ctx, claims, userType, invitationSessionToken, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	pair, err := s.tokens.IssuePair(u, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue tokens")
	}

	if s.metrics != nil {
		s.metrics.SocialLogins.WithLabelValues(string(claims.Provider)).Inc()
	}
	action := audit.ActionSocialLogin
	if created {
		action = audit.ActionSocialUserCreated
	}
	s.emitAudit(ctx, audit.Event{
		Action:   action,
		UserID:   u.ID,
		Email:    u.Email,
		Provider: string(claims.Provider),
		UserType: string(u.UserType),
	})

	return &ReconcileResult{User: u, Tokens: pair, Created: created}, nil
}

func (s *Service) resolve(ctx context.Context, claims *providers.Claims, userType models.UserType, sessionToken string, now time.Time) (*models.User, bool, error) {
	// 1. A linked provider ID wins outright.
	u, err := s.users.FindByProviderID(ctx, claims.Provider, claims.ExternalID)
	if err == nil {
		return u, false, s.touchLogin(ctx, u, claims, now)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up linked identity")
	}

	// 2. Staff admission runs through the invitation gate.
	if userType == models.UserTypeStaff {
		u, err = s.activateStaff(ctx, claims, sessionToken, now)
		if err != nil {
			return nil, false, err
		}
		return u, true, nil
	}

	// 3. Open path. Email is the cross-provider join key; without one there
	// is nothing to reconcile against.
	if claims.Email == "" {
		return nil, false, dErrors.New(dErrors.CodeValidation,
			"provider did not supply an email address")
	}
	u, err = s.users.FindByEmailBucket(ctx, claims.Email, userType.Bucket())
	if err == nil {
		return u, false, s.linkProvider(ctx, u, claims, now)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up account by email")
	}

	u, err = s.createUser(ctx, claims, userType, now)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (s *Service) touchLogin(ctx context.Context, u *models.User, claims *providers.Claims, now time.Time) error {
	// The provider is authoritative for its own linked identity: a changed
	// provider email follows the account.
	if claims.Email != "" && claims.Email != u.Email {
		u.Email = claims.Email
	}
	u.AuthProvider = claims.Provider
	u.LastLoginAt = &now
	u.UpdatedAt = now
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "this email already belongs to another account")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not record login")
	}
	return nil
}

// activateStaff flips an invitation's placeholder account live with this
// provider identity. The password path through the gate does the same with
// a credential instead of a provider link.
func (s *Service) activateStaff(ctx context.Context, claims *providers.Claims, sessionToken string, now time.Time) (*models.User, error) {
	if sessionToken == "" {
		return nil, dErrors.New(dErrors.CodeInvitationRequired, "staff accounts require an invitation")
	}

	inv, err := s.gate.ResolveSession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	var activated *models.User
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		u, err := s.users.FindByID(ctx, inv.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.New(dErrors.CodeInvitationInvalid, "invited account no longer exists")
			}
			return fmt.Errorf("load placeholder account: %w", err)
		}
		if u.IsActive {
			return dErrors.New(dErrors.CodeAlreadyRegistered, "this invitation's account is already active")
		}

		if err := s.invitations.Consume(ctx, inv.ID, u.ID, now); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return dErrors.New(dErrors.CodeInvitationInvalid, "invitation was already used")
			}
			return fmt.Errorf("consume invitation: %w", err)
		}

		if err := u.SetProviderID(claims.Provider, claims.ExternalID); err != nil {
			return err
		}
		u.AuthProvider = claims.Provider
		u.IsActive = true
		u.IsEmailVerified = true
		// Provider data fills gaps only; fields entered at invitation time win.
		if u.FirstName == "" {
			u.FirstName = claims.FirstName
		}
		if u.LastName == "" {
			u.LastName = claims.LastName
		}
		if u.PictureURL == "" {
			u.PictureURL = claims.PictureURL
		}
		u.LastLoginAt = &now
		u.UpdatedAt = now
		if err := s.users.Update(ctx, u); err != nil {
			return fmt.Errorf("activate staff account: %w", err)
		}

		progress := models.NewRegistrationProgress(u.ID, u.UserType, now)
		if err := progress.Advance(models.StepProfile, now); err != nil {
			return err
		}
		if err := s.users.CreateProgress(ctx, progress); err != nil {
			return fmt.Errorf("create onboarding progress: %w", err)
		}

		activated = u
		return nil
	})
	if err != nil {
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not activate staff account")
	}

	if err := s.gate.CloseSession(ctx, sessionToken); err != nil {
		s.logger.WarnContext(ctx, "could not delete invitation session", "error", err)
	}
	s.logger.InfoContext(ctx, "staff activated from social login",
		"user_id", activated.ID, "provider", claims.Provider)
	return activated, nil
}

// linkProvider accumulates another provider ID on an existing account.
// Earlier links stay intact.
func (s *Service) linkProvider(ctx context.Context, u *models.User, claims *providers.Claims, now time.Time) error {
	if err := u.SetProviderID(claims.Provider, claims.ExternalID); err != nil {
		return err
	}
	u.AuthProvider = claims.Provider
	u.IsEmailVerified = true
	if u.PictureURL == "" {
		u.PictureURL = claims.PictureURL
	}
	u.LastLoginAt = &now
	u.UpdatedAt = now
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "this social identity is linked to another account")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not link social identity")
	}
	s.logger.InfoContext(ctx, "social identity linked",
		"user_id", u.ID, "provider", claims.Provider)
	return nil
}

func (s *Service) createUser(ctx context.Context, claims *providers.Claims, userType models.UserType, now time.Time) (*models.User, error) {
	first, last := claims.FirstName, claims.LastName
	if first == "" && last == "" {
		first, last = email.DeriveName(claims.Email)
	}

	u := &models.User{
		ID:              id.NewUserID(),
		Email:           claims.Email,
		UserType:        userType,
		IsActive:        true,
		IsEmailVerified: true,
		AuthProvider:    claims.Provider,
		Country:         models.CountryJapan,
		Language:        models.LanguageJapanese,
		Timezone:        "Asia/Tokyo",
		FirstName:       first,
		LastName:        last,
		PictureURL:      claims.PictureURL,
		LastLoginAt:     &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := u.SetProviderID(claims.Provider, claims.ExternalID); err != nil {
		return nil, err
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "an account for this identity already exists")
			}
			return fmt.Errorf("create account: %w", err)
		}
		progress := models.NewRegistrationProgress(u.ID, u.UserType, now)
		if err := s.users.CreateProgress(ctx, progress); err != nil {
			return fmt.Errorf("create onboarding progress: %w", err)
		}
		return nil
	})
	if err != nil {
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create account")
	}

	s.logger.InfoContext(ctx, "account created from social login",
		"user_id", u.ID, "user_type", u.UserType, "provider", claims.Provider)
	return u, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

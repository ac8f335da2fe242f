// Package service orchestrates email registration: pending signup, email
// verification, activation, and password login.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"meldish/internal/audit"
	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	"meldish/internal/identity/store/tx"
	"meldish/internal/jwttoken"
	"meldish/internal/mailer"
	"meldish/internal/platform/config"
	"meldish/internal/platform/metrics"
	id "meldish/pkg/domain"
	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/email"
	"meldish/pkg/requestcontext"
	"meldish/pkg/secrets"
)

var tracer = otel.Tracer("meldish/internal/registration")

// PasswordManager hashes and verifies credentials.
type PasswordManager interface {
	Hash(candidate string) (string, error)
	Verify(candidate, digest string) (bool, error)
}

// DisposableChecker screens email domains.
type DisposableChecker interface {
	IsDisposable(ctx context.Context, address string) bool
}

// TokenIssuer mints the access/refresh pair handed out on activation.
type TokenIssuer interface {
	IssuePair(user *models.User, now time.Time) (*jwttoken.Pair, error)
}

// AuditPublisher records identity events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the registration orchestrator.
type Service struct {
	users     store.UserStore
	pending   store.PendingUserStore
	runner    tx.Runner
	sender    mailer.Sender
	passwords PasswordManager
	tokens    TokenIssuer
	filter    DisposableChecker
	cfg       config.RegistrationConfig

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
func New(
	users store.UserStore,
	pending store.PendingUserStore,
	runner tx.Runner,
	sender mailer.Sender,
	passwords PasswordManager,
	tokens TokenIssuer,
	filter DisposableChecker,
	cfg config.RegistrationConfig,
	opts ...Option,
) *Service {
	s := &Service{
		users:     users,
		pending:   pending,
		runner:    runner,
		sender:    sender,
		passwords: passwords,
		tokens:    tokens,
		filter:    filter,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// BeginParams is the signup request.
type BeginParams struct {
	Email     string
	Password  string
	UserType  models.UserType
	FirstName string
	LastName  string
	Country   string
	Language  string
	Timezone  string
}

// BeginResult reports the created pending registration.
type BeginResult struct {
	PendingID id.PendingUserID
	Email     string
	ExpiresAt time.Time
}

// Begin starts an email registration. The pending record and the
// verification mail succeed or fail together: an undeliverable mail rolls
// the record back so the user can immediately retry.
func (s *Service) Begin(ctx context.Context, params BeginParams) (*BeginResult, error) {
	ctx, span := tracer.Start(ctx, "registration.Begin", trace.WithAttributes(
		attribute.String("user_type", string(params.UserType)),
	))
	defer span.End()

	now := requestcontext.Now(ctx)

	addr := email.Normalize(params.Email)
	if err := validateAddress(addr); err != nil {
		return nil, err
	}
	if params.UserType == models.UserTypeStaff {
		return nil, dErrors.New(dErrors.CodeInvitationRequired, "staff accounts require an invitation")
	}
	if params.UserType != models.UserTypeOwner && params.UserType != models.UserTypeCustomer {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid user type: %s", params.UserType)
	}

	if s.filter.IsDisposable(ctx, addr) {
		s.emitAudit(ctx, audit.Event{
			Action: audit.ActionDisposableRejected,
			Email:  addr,
			Reason: "disposable email domain",
		})
		if s.metrics != nil {
			s.metrics.DisposableRejections.Inc()
		}
		return nil, dErrors.New(dErrors.CodeValidation, "disposable email addresses are not allowed")
	}

	existing, err := s.users.FindByEmailBucket(ctx, addr, params.UserType.Bucket())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not check existing accounts")
	}

	var linkTo id.UserID
	if existing != nil {
		// A social-only account may claim a password through the same
		// verified-email flow. A password-capable account is a duplicate.
		if existing.HasUsablePassword() {
			return nil, dErrors.New(dErrors.CodeAlreadyRegistered, "an account with this email already exists")
		}
		linkTo = existing.ID
	}

	digest, err := s.passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	token, err := secrets.GenerateToken(secrets.TokenBytes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate verification token")
	}

	p := &models.PendingUser{
		ID:                id.NewPendingUserID(),
		Email:             addr,
		PasswordDigest:    digest,
		UserType:          params.UserType,
		Country:           defaultString(params.Country, models.CountryJapan),
		Language:          defaultString(params.Language, models.LanguageJapanese),
		Timezone:          defaultString(params.Timezone, "Asia/Tokyo"),
		FirstName:         params.FirstName,
		LastName:          params.LastName,
		UserID:            linkTo,
		VerificationToken: token,
		TokenExpiresAt:    now.Add(s.cfg.VerificationTTL),
		CreatedAt:         now,
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		// Last submission wins: any earlier attempt for this email is replaced.
		if err := s.pending.DeleteByEmail(ctx, addr); err != nil {
			return fmt.Errorf("clear prior pending registration: %w", err)
		}
		if err := s.pending.Create(ctx, p); err != nil {
			return fmt.Errorf("create pending registration: %w", err)
		}
		msg := mailer.VerificationMessage(addr, p.Language, p.FirstName, s.verifyURL(token))
		if err := s.sender.Send(ctx, msg); err != nil {
			if s.metrics != nil {
				s.metrics.EmailSendFailures.Inc()
			}
			return dErrors.Wrap(err, dErrors.CodeEmailSend, "could not send verification email")
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeEmailSend) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not start registration")
	}

	s.emitAudit(ctx, audit.Event{
		Action:   audit.ActionRegistrationStarted,
		Email:    addr,
		UserType: string(params.UserType),
	})
	if s.metrics != nil {
		s.metrics.RegistrationsStarted.Inc()
	}
	s.logger.InfoContext(ctx, "registration started",
		"email", addr, "user_type", params.UserType, "linking", !linkTo.IsNil())

	return &BeginResult{PendingID: p.ID, Email: addr, ExpiresAt: p.TokenExpiresAt}, nil
}

// ActivationResult reports a successful verification.
type ActivationResult struct {
	User   *models.User
	Tokens *jwttoken.Pair
}

// VerifyAndActivate redeems a verification token. The token is single-use:
// the winning verification deletes the pending record inside the
// transaction, so a replay or the loser of a race observes not-found.
// Expired tokens are rejected but their record survives for Resend.
func (s *Service) VerifyAndActivate(ctx context.Context, token string) (*ActivationResult, error) {
	ctx, span := tracer.Start(ctx, "registration.VerifyAndActivate")
	defer span.End()

	now := requestcontext.Now(ctx)

	var activated *models.User
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.pending.FindByTokenForUpdate(ctx, token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "verification link is invalid or already used")
			}
			return fmt.Errorf("load pending registration: %w", err)
		}
		if !p.IsTokenValid(now) {
			return dErrors.New(dErrors.CodeSessionExpired, "verification link has expired")
		}

		if p.IsLinking() {
			activated, err = s.linkPassword(ctx, p, now)
		} else {
			activated, err = s.materialize(ctx, p, now)
		}
		if err != nil {
			return err
		}

		if err := s.pending.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("consume pending registration: %w", err)
		}
		return nil
	})
	if err != nil {
		if codedErr(err) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not complete verification")
	}

	pair, err := s.tokens.IssuePair(activated, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue tokens")
	}

	s.emitAudit(ctx, audit.Event{
		Action:   audit.ActionUserActivated,
		UserID:   activated.ID,
		Email:    activated.Email,
		UserType: string(activated.UserType),
	})
	if s.metrics != nil {
		s.metrics.RegistrationsCompleted.Inc()
	}
	s.logger.InfoContext(ctx, "registration completed",
		"user_id", activated.ID, "user_type", activated.UserType)

	return &ActivationResult{User: activated, Tokens: pair}, nil
}

// linkPassword attaches verified email credentials to an existing
// social-only account.
func (s *Service) linkPassword(ctx context.Context, p *models.PendingUser, now time.Time) (*models.User, error) {
	u, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "linked account no longer exists")
		}
		return nil, fmt.Errorf("load linked account: %w", err)
	}
	u.PasswordDigest = p.PasswordDigest
	u.AuthProvider = models.ProviderEmail
	u.IsEmailVerified = true
	u.IsActive = true
	u.UpdatedAt = now
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("attach password to account: %w", err)
	}
	return u, nil
}

// materialize promotes a pending record into a fresh active account with
// onboarding progress at its first step.
func (s *Service) materialize(ctx context.Context, p *models.PendingUser, now time.Time) (*models.User, error) {
	u := p.Materialize(now)
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyRegistered, "an account with this email already exists")
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	progress := models.NewRegistrationProgress(u.ID, u.UserType, now)
	if err := s.users.CreateProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("create onboarding progress: %w", err)
	}
	return u, nil
}

// Resend rotates the verification token and sends a fresh mail. Works for
// valid and expired pending records alike.
func (s *Service) Resend(ctx context.Context, rawEmail string) error {
	now := requestcontext.Now(ctx)
	addr := email.Normalize(rawEmail)

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.pending.FindByEmail(ctx, addr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no registration in progress for this email")
			}
			return fmt.Errorf("load pending registration: %w", err)
		}

		token, err := secrets.GenerateToken(secrets.TokenBytes)
		if err != nil {
			return fmt.Errorf("generate verification token: %w", err)
		}
		p.VerificationToken = token
		p.TokenExpiresAt = now.Add(s.cfg.VerificationTTL)
		if err := s.pending.Update(ctx, p); err != nil {
			return fmt.Errorf("rotate verification token: %w", err)
		}

		msg := mailer.VerificationMessage(addr, p.Language, p.FirstName, s.verifyURL(token))
		if err := s.sender.Send(ctx, msg); err != nil {
			if s.metrics != nil {
				s.metrics.EmailSendFailures.Inc()
			}
			return dErrors.Wrap(err, dErrors.CodeEmailSend, "could not send verification email")
		}
		return nil
	})
	if err != nil {
		if codedErr(err) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not resend verification email")
	}

	s.emitAudit(ctx, audit.Event{Action: audit.ActionEmailResent, Email: addr})
	return nil
}

// ChangeEmail moves an in-flight registration to a different address and
// rotates its token. The old link dies with the rotation.
func (s *Service) ChangeEmail(ctx context.Context, oldEmail, newEmail string) error {
	now := requestcontext.Now(ctx)
	oldAddr := email.Normalize(oldEmail)
	newAddr := email.Normalize(newEmail)
	if err := validateAddress(newAddr); err != nil {
		return err
	}
	if s.filter.IsDisposable(ctx, newAddr) {
		return dErrors.New(dErrors.CodeValidation, "disposable email addresses are not allowed")
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.pending.FindByEmail(ctx, oldAddr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no registration in progress for this email")
			}
			return fmt.Errorf("load pending registration: %w", err)
		}

		if existing, err := s.users.FindByEmailBucket(ctx, newAddr, p.UserType.Bucket()); err == nil && existing.HasUsablePassword() {
			return dErrors.New(dErrors.CodeAlreadyRegistered, "an account with this email already exists")
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("check existing accounts: %w", err)
		}

		token, err := secrets.GenerateToken(secrets.TokenBytes)
		if err != nil {
			return fmt.Errorf("generate verification token: %w", err)
		}
		p.Email = newAddr
		p.VerificationToken = token
		p.TokenExpiresAt = now.Add(s.cfg.VerificationTTL)
		if err := s.pending.Update(ctx, p); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a registration for this email is already in progress")
			}
			return fmt.Errorf("update pending registration: %w", err)
		}

		msg := mailer.VerificationMessage(newAddr, p.Language, p.FirstName, s.verifyURL(token))
		if err := s.sender.Send(ctx, msg); err != nil {
			if s.metrics != nil {
				s.metrics.EmailSendFailures.Inc()
			}
			return dErrors.Wrap(err, dErrors.CodeEmailSend, "could not send verification email")
		}
		return nil
	})
	if err != nil {
		if codedErr(err) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not change registration email")
	}

	s.emitAudit(ctx, audit.Event{Action: audit.ActionEmailChanged, Email: newAddr, Reason: oldAddr})
	return nil
}

func (s *Service) verifyURL(token string) string {
	return fmt.Sprintf("%s?token=%s", s.cfg.VerifyBaseURL, token)
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

func validateAddress(addr string) error {
	if addr == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	return nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// codedErr reports whether the error already carries a domain code.
func codedErr(err error) bool {
	var coded *dErrors.Error
	return errors.As(err, &coded)
}

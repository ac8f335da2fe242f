// Package service implements the staff invitation gate: issuing invitations,
// validating links, opening ephemeral registration sessions, and activating
// the placeholder accounts behind them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

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

var tracer = otel.Tracer("meldish/internal/invitation")

// PasswordManager hashes and verifies credentials.
type PasswordManager interface {
	Hash(candidate string) (string, error)
}

// TokenIssuer mints the access/refresh pair handed out on activation.
type TokenIssuer interface {
	IssuePair(user *models.User, now time.Time) (*jwttoken.Pair, error)
}

// AuditPublisher records identity events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the invitation gate.
type Service struct {
	invitations store.InvitationStore
	users       store.UserStore
	sessions    store.SessionStore
	runner      tx.Runner
	sender      mailer.Sender
	passwords   PasswordManager
	tokens      TokenIssuer
	cfg         config.RegistrationConfig

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
	invitations store.InvitationStore,
	users store.UserStore,
	sessions store.SessionStore,
	runner tx.Runner,
	sender mailer.Sender,
	passwords PasswordManager,
	tokens TokenIssuer,
	cfg config.RegistrationConfig,
	opts ...Option,
) *Service {
	s := &Service{
		invitations: invitations,
		users:       users,
		sessions:    sessions,
		runner:      runner,
		sender:      sender,
		passwords:   passwords,
		tokens:      tokens,
		cfg:         cfg,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// InviteParams describes a new staff invitation.
type InviteParams struct {
	Email     string
	FirstName string
	LastName  string
	Language  string
	Country   string
	TenantID  id.TenantID
	InvitedBy id.UserID
}

// Invite creates the inactive placeholder account and its invitation, then
// mails the invite link. Account, invitation, and mail succeed or fail
// together.
func (s *Service) Invite(ctx context.Context, params InviteParams) (*models.StaffInvitation, error) {
	now := requestcontext.Now(ctx)

	addr := email.Normalize(params.Email)
	if addr == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if params.TenantID.IsNil() || params.InvitedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant and inviter are required")
	}

	if existing, err := s.users.FindByEmailBucket(ctx, addr, models.BucketStaffOrOwner); err == nil {
		if existing.IsActive {
			return nil, dErrors.New(dErrors.CodeAlreadyRegistered, "an account with this email already exists")
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not check existing accounts")
	}

	token, err := secrets.GenerateToken(secrets.TokenBytes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate invitation token")
	}

	placeholder := &models.User{
		ID:           id.NewUserID(),
		Email:        addr,
		UserType:     models.UserTypeStaff,
		IsActive:     false,
		AuthProvider: models.ProviderEmail,
		Country:      defaultString(params.Country, models.CountryJapan),
		Language:     defaultString(params.Language, models.LanguageJapanese),
		Timezone:     "Asia/Tokyo",
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		TenantID:     params.TenantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	inv := &models.StaffInvitation{
		ID:        id.NewInvitationID(),
		Token:     token,
		Email:     addr,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Language:  placeholder.Language,
		Country:   placeholder.Country,
		UserID:    placeholder.ID,
		TenantID:  params.TenantID,
		InvitedBy: params.InvitedBy,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.InvitationTTL),
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, placeholder); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyRegistered, "an account with this email already exists")
			}
			return fmt.Errorf("create placeholder account: %w", err)
		}
		if err := s.invitations.Create(ctx, inv); err != nil {
			return fmt.Errorf("create invitation: %w", err)
		}
		msg := mailer.InvitationMessage(addr, inv.Language, inv.FirstName, s.inviteURL(token))
		if err := s.sender.Send(ctx, msg); err != nil {
			if s.metrics != nil {
				s.metrics.EmailSendFailures.Inc()
			}
			return dErrors.Wrap(err, dErrors.CodeEmailSend, "could not send invitation email")
		}
		return nil
	})
	if err != nil {
		if codedErr(err) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create invitation")
	}

	s.emitAudit(ctx, audit.Event{
		Action: audit.ActionInvitationIssued,
		UserID: params.InvitedBy,
		Email:  addr,
	})
	s.logger.InfoContext(ctx, "staff invitation issued",
		"invitation_id", inv.ID, "tenant_id", params.TenantID)
	return inv, nil
}

// Validate checks an invitation link without consuming anything.
func (s *Service) Validate(ctx context.Context, token string) (*models.StaffInvitation, error) {
	now := requestcontext.Now(ctx)

	inv, err := s.invitations.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvitationInvalid, "invitation link is invalid")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load invitation")
	}
	if !inv.IsValid(now) {
		return nil, dErrors.New(dErrors.CodeInvitationInvalid, "invitation has expired or was already used")
	}
	return inv, nil
}

// SessionResult reports an opened invitation session.
type SessionResult struct {
	SessionToken string
	Email        string
	ExpiresAt    time.Time
}

// BeginSession validates the invitation and opens a short-lived session the
// registration form runs under. The invitation itself stays unconsumed; the
// session expires by TTL, and an abandoned form simply evaporates.
func (s *Service) BeginSession(ctx context.Context, invitationToken string) (*SessionResult, error) {
	now := requestcontext.Now(ctx)

	inv, err := s.Validate(ctx, invitationToken)
	if err != nil {
		return nil, err
	}

	sessionToken, err := secrets.GenerateToken(secrets.TokenBytes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate session token")
	}
	session := &models.InvitationSession{
		InvitationID:    inv.ID,
		InvitationToken: inv.Token,
		Email:           inv.Email,
	}
	if err := s.sessions.Put(ctx, sessionToken, session, s.cfg.SessionTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not open invitation session")
	}

	return &SessionResult{
		SessionToken: sessionToken,
		Email:        inv.Email,
		ExpiresAt:    now.Add(s.cfg.SessionTTL),
	}, nil
}

// ResolveSession maps a session token back to its invitation, revalidating
// it: an invitation consumed, expired, or reissued mid-session fails here,
// not at activation. Any validation failure closes the session, so a replay
// of the same token observes SessionExpired. Transient store errors keep the
// session alive for a retry.
func (s *Service) ResolveSession(ctx context.Context, sessionToken string) (*models.StaffInvitation, error) {
	now := requestcontext.Now(ctx)

	session, err := s.sessions.Get(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeSessionExpired, "registration session has expired, reopen the invitation link")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not resolve session")
	}

	inv, err := s.invitations.FindByID(ctx, session.InvitationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.closeSession(ctx, sessionToken)
			return nil, dErrors.New(dErrors.CodeNotFound, "invitation no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load invitation")
	}
	// The session snapshots the invitation it was opened for. A live record
	// that no longer matches means the invitation was reissued after the
	// session was opened; the session cannot be trusted.
	if inv.Token != session.InvitationToken || inv.Email != session.Email {
		s.closeSession(ctx, sessionToken)
		return nil, dErrors.New(dErrors.CodeNotFound, "invitation no longer matches this session")
	}
	if !inv.IsValid(now) {
		s.closeSession(ctx, sessionToken)
		return nil, dErrors.New(dErrors.CodeInvitationInvalid, "invitation has expired or was already used")
	}
	return inv, nil
}

// CloseSession drops an invitation session. Deleting an absent session is
// not an error.
func (s *Service) CloseSession(ctx context.Context, sessionToken string) error {
	return s.sessions.Delete(ctx, sessionToken)
}

func (s *Service) closeSession(ctx context.Context, sessionToken string) {
	if err := s.sessions.Delete(ctx, sessionToken); err != nil {
		s.logger.WarnContext(ctx, "could not delete invitation session", "error", err)
	}
}

// ActivateParams completes a staff registration under a session.
type ActivateParams struct {
	SessionToken string
	Password     string
	FirstName    string
	LastName     string
	PhoneNumber  string
}

// ActivationResult reports a successful staff activation.
type ActivationResult struct {
	User   *models.User
	Tokens *jwttoken.Pair
}

// Activate consumes the invitation and flips its placeholder account live.
// Consumption is conditional on the invitation being unused, so concurrent
// activations of one invitation produce exactly one staff account.
func (s *Service) Activate(ctx context.Context, params ActivateParams) (*ActivationResult, error) {
	ctx, span := tracer.Start(ctx, "invitation.Activate")
	defer span.End()

	now := requestcontext.Now(ctx)

	inv, err := s.ResolveSession(ctx, params.SessionToken)
	if err != nil {
		return nil, err
	}

	digest, err := s.passwords.Hash(params.Password)
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

		u.PasswordDigest = digest
		u.IsActive = true
		u.IsEmailVerified = true
		u.FirstName = defaultString(params.FirstName, u.FirstName)
		u.LastName = defaultString(params.LastName, u.LastName)
		u.PhoneNumber = params.PhoneNumber
		u.UpdatedAt = now
		if err := s.users.Update(ctx, u); err != nil {
			return fmt.Errorf("activate account: %w", err)
		}

		// Activation already covers the basic_info step: the invitation
		// carries the identity fields a self-registering user would enter.
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
		if codedErr(err) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not activate staff account")
	}

	// The session served its purpose; drop it eagerly.
	s.closeSession(ctx, params.SessionToken)

	pair, err := s.tokens.IssuePair(activated, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue tokens")
	}

	s.emitAudit(ctx, audit.Event{
		Action:   audit.ActionInvitationConsumed,
		UserID:   activated.ID,
		Email:    activated.Email,
		UserType: string(models.UserTypeStaff),
	})
	if s.metrics != nil {
		s.metrics.InvitationsConsumed.Inc()
	}
	s.logger.InfoContext(ctx, "staff account activated", "user_id", activated.ID)

	return &ActivationResult{User: activated, Tokens: pair}, nil
}

func (s *Service) inviteURL(token string) string {
	return fmt.Sprintf("%s?invitation=%s", s.cfg.VerifyBaseURL, token)
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

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meldish/internal/audit"
	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	pendingstore "meldish/internal/identity/store/pending"
	"meldish/internal/identity/store/tx"
	userstore "meldish/internal/identity/store/user"
	"meldish/internal/jwttoken"
	"meldish/internal/mailer"
	"meldish/internal/password"
	"meldish/internal/platform/config"
	id "meldish/pkg/domain"
	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/requestcontext"
)

type stubFilter struct {
	blocked map[string]bool
}

func (f *stubFilter) IsDisposable(_ context.Context, address string) bool {
	for domain := range f.blocked {
		if strings.HasSuffix(address, "@"+domain) {
			return true
		}
	}
	return false
}

type fixture struct {
	users   *userstore.MemoryStore
	pending *pendingstore.MemoryStore
	sender  *mailer.MemorySender
	sink    *audit.MemorySink
	filter  *stubFilter
	svc     *Service
}

func testConfig() config.RegistrationConfig {
	return config.RegistrationConfig{
		VerificationTTL:  24 * time.Hour,
		InvitationTTL:    7 * 24 * time.Hour,
		SessionTTL:       15 * time.Minute,
		LockoutThreshold: 5,
		LockoutDuration:  15 * time.Minute,
		VerifyBaseURL:    "https://meldish.test/verify",
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:   userstore.NewMemory(),
		pending: pendingstore.NewMemory(),
		sender:  mailer.NewMemory(),
		sink:    audit.NewMemorySink(),
		filter:  &stubFilter{blocked: map[string]bool{"trashbox.example": true}},
	}
	runner := tx.NewMemory(f.users, f.pending)
	tokens := jwttoken.NewService("test-key", "meldish", 15*time.Minute, time.Hour)
	f.svc = New(f.users, f.pending, runner, f.sender, password.NewManager(), tokens, f.filter, testConfig(),
		WithAuditPublisher(audit.NewPublisher(f.sink)))
	return f
}

func at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func beginParams() BeginParams {
	return BeginParams{
		Email:     "Hanako.Yamada@example.com",
		Password:  "sturdy1pass",
		UserType:  models.UserTypeCustomer,
		FirstName: "Hanako",
		LastName:  "Yamada",
	}
}

func TestBeginCreatesPendingAndSendsMail(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	res, err := f.svc.Begin(at(now), beginParams())
	require.NoError(t, err)
	assert.Equal(t, "hanako.yamada@example.com", res.Email)
	assert.Equal(t, now.Add(24*time.Hour), res.ExpiresAt)

	p, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, p.VerificationToken)
	assert.NotEqual(t, "sturdy1pass", p.PasswordDigest)

	msg, ok := f.sender.Last()
	require.True(t, ok)
	assert.Equal(t, "hanako.yamada@example.com", msg.To)
	assert.Contains(t, msg.Body, p.VerificationToken)

	// No durable account exists until verification.
	_, err = f.users.FindByEmailBucket(context.Background(), "hanako.yamada@example.com", models.BucketCustomer)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBeginEmailFailureRollsBackPending(t *testing.T) {
	f := newFixture(t)
	f.sender.FailWith(&mailer.SendError{Kind: mailer.FailureConnection, Err: errors.New("dial tcp: refused")})

	_, err := f.svc.Begin(at(time.Now()), beginParams())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEmailSend))

	// The send failure must not strand a pending record.
	_, err = f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Healing the mailer lets the same registration retry cleanly.
	f.sender.FailWith(nil)
	_, err = f.svc.Begin(at(time.Now()), beginParams())
	assert.NoError(t, err)
}

func TestBeginLastSubmissionWins(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Begin(at(time.Now()), beginParams())
	require.NoError(t, err)
	first, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)

	_, err = f.svc.Begin(at(time.Now()), beginParams())
	require.NoError(t, err)
	second, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.VerificationToken, second.VerificationToken)
	// The first token died with its record.
	_, err = f.pending.FindByTokenForUpdate(context.Background(), first.VerificationToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBeginRejectsDisposableEmail(t *testing.T) {
	f := newFixture(t)

	params := beginParams()
	params.Email = "throwaway@trashbox.example"
	_, err := f.svc.Begin(at(time.Now()), params)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Len(t, f.sink.ByAction(audit.ActionDisposableRejected), 1)
}

func TestBeginRejectsStaffWithoutInvitation(t *testing.T) {
	f := newFixture(t)

	params := beginParams()
	params.UserType = models.UserTypeStaff
	_, err := f.svc.Begin(at(time.Now()), params)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvitationRequired))
}

func TestBeginRejectsExistingAccount(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	_, err := f.svc.Begin(at(now), beginParams())
	require.NoError(t, err)
	p, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)
	_, err = f.svc.VerifyAndActivate(at(now.Add(time.Minute)), p.VerificationToken)
	require.NoError(t, err)

	_, err = f.svc.Begin(at(now.Add(2*time.Minute)), beginParams())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))
}

func TestBeginWeakPasswordRejected(t *testing.T) {
	f := newFixture(t)

	params := beginParams()
	params.Password = "short1"
	_, err := f.svc.Begin(at(time.Now()), params)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestVerifyAndActivateRoundTrip(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	_, err := f.svc.Begin(at(now), beginParams())
	require.NoError(t, err)
	p, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)

	res, err := f.svc.VerifyAndActivate(at(now.Add(time.Hour)), p.VerificationToken)
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.True(t, res.User.IsActive)
	assert.True(t, res.User.IsEmailVerified)
	assert.Equal(t, models.UserTypeCustomer, res.User.UserType)
	assert.Equal(t, models.ProviderEmail, res.User.AuthProvider)
	require.NotNil(t, res.Tokens)
	assert.NotEmpty(t, res.Tokens.AccessToken)

	progress, err := f.users.FindProgress(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepBasicInfo, progress.Step)

	// The pending record is consumed with the activation.
	_, err = f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestVerifyTokenIsSingleUse(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	_, err := f.svc.Begin(at(now), beginParams())
	require.NoError(t, err)
	p, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)

	_, err = f.svc.VerifyAndActivate(at(now.Add(time.Minute)), p.VerificationToken)
	require.NoError(t, err)

	_, err = f.svc.VerifyAndActivate(at(now.Add(2*time.Minute)), p.VerificationToken)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestVerifyExpiredTokenKeepsRecordForResend(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	_, err := f.svc.Begin(at(now), beginParams())
	require.NoError(t, err)
	p, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)

	// Exactly at expiry is already invalid.
	_, err = f.svc.VerifyAndActivate(at(now.Add(24*time.Hour)), p.VerificationToken)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSessionExpired))

	// The record survived; resend rotates the token and delivers a new link.
	require.NoError(t, f.svc.Resend(at(now.Add(25*time.Hour)), "hanako.yamada@example.com"))
	rotated, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, p.VerificationToken, rotated.VerificationToken)

	res, err := f.svc.VerifyAndActivate(at(now.Add(26*time.Hour)), rotated.VerificationToken)
	require.NoError(t, err)
	assert.True(t, res.User.IsActive)
}

func TestVerifyUnknownTokenNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.VerifyAndActivate(at(time.Now()), "never-issued")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestResendWithoutPendingNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Resend(at(time.Now()), "nobody@example.com")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestChangeEmailRotatesTokenAndAddress(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	_, err := f.svc.Begin(at(now), beginParams())
	require.NoError(t, err)
	before, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.ChangeEmail(at(now.Add(time.Minute)),
		"hanako.yamada@example.com", "hanako.new@example.com"))

	_, err = f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	after, err := f.pending.FindByEmail(context.Background(), "hanako.new@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, before.VerificationToken, after.VerificationToken)

	// The old link is dead.
	_, err = f.svc.VerifyAndActivate(at(now.Add(2*time.Minute)), before.VerificationToken)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestChangeEmailRejectsDisposableTarget(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	_, err := f.svc.Begin(at(now), beginParams())
	require.NoError(t, err)

	err = f.svc.ChangeEmail(at(now), "hanako.yamada@example.com", "burn@trashbox.example")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestBeginLinksPasswordToSocialOnlyAccount(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	social := &models.User{
		ID:              id.NewUserID(),
		Email:           "hanako.yamada@example.com",
		UserType:        models.UserTypeCustomer,
		IsActive:        true,
		IsEmailVerified: true,
		AuthProvider:    models.ProviderGoogle,
		GoogleUserID:    "google-123",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, f.users.Create(context.Background(), social))

	_, err := f.svc.Begin(at(now), beginParams())
	require.NoError(t, err)
	p, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)
	assert.Equal(t, social.ID, p.UserID)

	res, err := f.svc.VerifyAndActivate(at(now.Add(time.Minute)), p.VerificationToken)
	require.NoError(t, err)
	// Same account, now with a usable password; no second account appears.
	assert.Equal(t, social.ID, res.User.ID)
	assert.True(t, res.User.HasUsablePassword())
	assert.Equal(t, "google-123", res.User.GoogleUserID)
	// Password is now the most recently used method; the Google link stays.
	assert.Equal(t, models.ProviderEmail, res.User.AuthProvider)
}

func TestCustomerAndOwnerBucketsAreIndependent(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	_, err := f.svc.Begin(at(now), beginParams())
	require.NoError(t, err)
	p, err := f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)
	_, err = f.svc.VerifyAndActivate(at(now.Add(time.Minute)), p.VerificationToken)
	require.NoError(t, err)

	// The same address registers independently as an OWNER.
	params := beginParams()
	params.UserType = models.UserTypeOwner
	_, err = f.svc.Begin(at(now.Add(2*time.Minute)), params)
	require.NoError(t, err)
	p, err = f.pending.FindByEmail(context.Background(), "hanako.yamada@example.com")
	require.NoError(t, err)
	res, err := f.svc.VerifyAndActivate(at(now.Add(3*time.Minute)), p.VerificationToken)
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeOwner, res.User.UserType)
}

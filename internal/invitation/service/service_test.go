package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meldish/internal/audit"
	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	invitationstore "meldish/internal/identity/store/invitation"
	sessionstore "meldish/internal/identity/store/session"
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

type fixture struct {
	users       *userstore.MemoryStore
	invitations *invitationstore.MemoryStore
	sessions    *sessionstore.MemoryStore
	sender      *mailer.MemorySender
	sink        *audit.MemorySink
	svc         *Service

	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:       userstore.NewMemory(),
		invitations: invitationstore.NewMemory(),
		sender:      mailer.NewMemory(),
		sink:        audit.NewMemorySink(),
		now:         time.Now(),
	}
	f.sessions = sessionstore.NewMemory(sessionstore.WithClock(func() time.Time { return f.now }))
	runner := tx.NewMemory(f.users, f.invitations)
	tokens := jwttoken.NewService("test-key", "meldish", 15*time.Minute, time.Hour)
	f.svc = New(f.invitations, f.users, f.sessions, runner, f.sender,
		password.NewManager(), tokens,
		config.RegistrationConfig{
			VerificationTTL:  24 * time.Hour,
			InvitationTTL:    7 * 24 * time.Hour,
			SessionTTL:       15 * time.Minute,
			LockoutThreshold: 5,
			LockoutDuration:  15 * time.Minute,
			VerifyBaseURL:    "https://meldish.test/staff",
		},
		WithAuditPublisher(audit.NewPublisher(f.sink)))
	return f
}

func (f *fixture) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), f.now)
}

func inviteParams() InviteParams {
	return InviteParams{
		Email:     "Taro.Suzuki@example.com",
		FirstName: "Taro",
		LastName:  "Suzuki",
		TenantID:  id.NewTenantID(),
		InvitedBy: id.NewUserID(),
	}
}

func TestInviteCreatesPlaceholderAndSendsMail(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Invite(f.ctx(), inviteParams())
	require.NoError(t, err)
	assert.NotEmpty(t, inv.Token)
	assert.Equal(t, "taro.suzuki@example.com", inv.Email)
	assert.Equal(t, f.now.Add(7*24*time.Hour), inv.ExpiresAt)

	placeholder, err := f.users.FindByID(context.Background(), inv.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeStaff, placeholder.UserType)
	assert.False(t, placeholder.IsActive)
	assert.False(t, placeholder.HasUsablePassword())

	msg, ok := f.sender.Last()
	require.True(t, ok)
	assert.Equal(t, "taro.suzuki@example.com", msg.To)
	assert.Contains(t, msg.Body, inv.Token)
}

func TestInviteEmailFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	f.sender.FailWith(&mailer.SendError{Kind: mailer.FailureConnection, Err: errors.New("dial tcp: refused")})

	_, err := f.svc.Invite(f.ctx(), inviteParams())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEmailSend))

	_, err = f.users.FindByEmailBucket(context.Background(), "taro.suzuki@example.com", models.BucketStaffOrOwner)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.invitations.FindByToken(context.Background(), "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFullStaffRegistrationFlow(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Invite(f.ctx(), inviteParams())
	require.NoError(t, err)

	// Opening the link validates the invitation and opens a session.
	session, err := f.svc.BeginSession(f.ctx(), inv.Token)
	require.NoError(t, err)
	assert.Equal(t, "taro.suzuki@example.com", session.Email)
	assert.Equal(t, f.now.Add(15*time.Minute), session.ExpiresAt)

	// The invitation is still unconsumed while the form is open.
	stored, err := f.invitations.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsUsed)

	res, err := f.svc.Activate(f.ctx(), ActivateParams{
		SessionToken: session.SessionToken,
		Password:     "sturdy1pass",
		PhoneNumber:  "+81-90-0000-0000",
	})
	require.NoError(t, err)
	assert.True(t, res.User.IsActive)
	assert.True(t, res.User.IsEmailVerified)
	assert.True(t, res.User.HasUsablePassword())
	assert.Equal(t, models.UserTypeStaff, res.User.UserType)
	assert.NotEmpty(t, res.Tokens.AccessToken)

	stored, err = f.invitations.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsUsed)
	assert.Equal(t, res.User.ID, stored.RegisteredUserID)

	// Activation covers basic_info; onboarding resumes at the profile step.
	progress, err := f.users.FindProgress(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepProfile, progress.Step)

	assert.Len(t, f.sink.ByAction(audit.ActionInvitationConsumed), 1)
}

func TestActivateTwiceConsumesOnce(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Invite(f.ctx(), inviteParams())
	require.NoError(t, err)

	first, err := f.svc.BeginSession(f.ctx(), inv.Token)
	require.NoError(t, err)
	second, err := f.svc.BeginSession(f.ctx(), inv.Token)
	require.NoError(t, err)

	_, err = f.svc.Activate(f.ctx(), ActivateParams{SessionToken: first.SessionToken, Password: "sturdy1pass"})
	require.NoError(t, err)

	// The second session revalidates the invitation and finds it consumed.
	_, err = f.svc.Activate(f.ctx(), ActivateParams{SessionToken: second.SessionToken, Password: "sturdy1pass"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvitationInvalid))

	// The failed resolve closed the second session; a replay finds it gone.
	_, err = f.svc.Activate(f.ctx(), ActivateParams{SessionToken: second.SessionToken, Password: "sturdy1pass"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSessionExpired))
}

func TestResolveSessionTokenMismatchFailsClosed(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Invite(f.ctx(), inviteParams())
	require.NoError(t, err)

	// A session whose stored token no longer matches the live invitation,
	// as after a reissue.
	stale := &models.InvitationSession{
		InvitationID:    inv.ID,
		InvitationToken: "stale-token",
		Email:           inv.Email,
	}
	require.NoError(t, f.sessions.Put(context.Background(), "sess-stale", stale, 15*time.Minute))

	_, err = f.svc.ResolveSession(f.ctx(), "sess-stale")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	// The poisoned session was deleted; a replay observes expiry.
	_, err = f.svc.ResolveSession(f.ctx(), "sess-stale")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSessionExpired))
}

func TestActivateActivePlaceholderAlreadyRegistered(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Invite(f.ctx(), inviteParams())
	require.NoError(t, err)
	session, err := f.svc.BeginSession(f.ctx(), inv.Token)
	require.NoError(t, err)

	// The placeholder was activated out of band, the invitation untouched.
	placeholder, err := f.users.FindByID(context.Background(), inv.UserID)
	require.NoError(t, err)
	placeholder.IsActive = true
	require.NoError(t, f.users.Update(context.Background(), placeholder))

	_, err = f.svc.Activate(f.ctx(), ActivateParams{SessionToken: session.SessionToken, Password: "sturdy1pass"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))

	stored, err := f.invitations.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsUsed)
}

func TestValidateExpiryBoundaryIsExclusive(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Invite(f.ctx(), inviteParams())
	require.NoError(t, err)

	// One second before expiry the link still works.
	f.now = inv.ExpiresAt.Add(-time.Second)
	_, err = f.svc.Validate(f.ctx(), inv.Token)
	require.NoError(t, err)

	// Exactly at expiry it does not.
	f.now = inv.ExpiresAt
	_, err = f.svc.Validate(f.ctx(), inv.Token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvitationInvalid))
}

func TestValidateUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Validate(f.ctx(), "never-issued")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvitationInvalid))
}

func TestSessionExpiresByTTL(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Invite(f.ctx(), inviteParams())
	require.NoError(t, err)
	session, err := f.svc.BeginSession(f.ctx(), inv.Token)
	require.NoError(t, err)

	f.now = f.now.Add(16 * time.Minute)
	_, err = f.svc.Activate(f.ctx(), ActivateParams{SessionToken: session.SessionToken, Password: "sturdy1pass"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSessionExpired))

	// The invitation survives an abandoned session; a fresh session works.
	again, err := f.svc.BeginSession(f.ctx(), inv.Token)
	require.NoError(t, err)
	_, err = f.svc.Activate(f.ctx(), ActivateParams{SessionToken: again.SessionToken, Password: "sturdy1pass"})
	assert.NoError(t, err)
}

func TestInviteRejectsActiveAccountEmail(t *testing.T) {
	f := newFixture(t)

	params := inviteParams()
	inv, err := f.svc.Invite(f.ctx(), params)
	require.NoError(t, err)
	session, err := f.svc.BeginSession(f.ctx(), inv.Token)
	require.NoError(t, err)
	_, err = f.svc.Activate(f.ctx(), ActivateParams{SessionToken: session.SessionToken, Password: "sturdy1pass"})
	require.NoError(t, err)

	_, err = f.svc.Invite(f.ctx(), params)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))
}

func TestActivateWeakPasswordRejected(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Invite(f.ctx(), inviteParams())
	require.NoError(t, err)
	session, err := f.svc.BeginSession(f.ctx(), inv.Token)
	require.NoError(t, err)

	_, err = f.svc.Activate(f.ctx(), ActivateParams{SessionToken: session.SessionToken, Password: "short1"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	// Nothing was consumed; the same session can retry.
	_, err = f.svc.Activate(f.ctx(), ActivateParams{SessionToken: session.SessionToken, Password: "sturdy1pass"})
	assert.NoError(t, err)
}

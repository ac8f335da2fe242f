//go:build integration

package invitation_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	"meldish/internal/identity/store/invitation"
	"meldish/internal/identity/store/user"
	"meldish/internal/platform/postgres"
	id "meldish/pkg/domain"
	"meldish/pkg/secrets"
	"meldish/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *invitation.PostgresStore
	users *user.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.ApplySchema(context.Background(), s.pg.DB))
	s.store = invitation.NewPostgres(s.pg.DB)
	s.users = user.NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.Exec(`TRUNCATE staff_invitations, users CASCADE`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) makeInvitation() *models.StaffInvitation {
	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := id.NewUserID()
	placeholder := &models.User{
		ID:        userID,
		Email:     userID.String() + "@example.com",
		UserType:  models.UserTypeStaff,
		Country:   models.CountryJapan,
		Language:  models.LanguageJapanese,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.users.Create(context.Background(), placeholder))

	token, err := secrets.GenerateToken(secrets.TokenBytes)
	s.Require().NoError(err)
	return &models.StaffInvitation{
		ID:        id.NewInvitationID(),
		Token:     token,
		Email:     placeholder.Email,
		FirstName: "Hanako",
		LastName:  "Sato",
		Language:  models.LanguageJapanese,
		Country:   models.CountryJapan,
		UserID:    placeholder.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindByToken() {
	ctx := context.Background()
	inv := s.makeInvitation()
	s.Require().NoError(s.store.Create(ctx, inv))

	got, err := s.store.FindByToken(ctx, inv.Token)
	s.Require().NoError(err)
	s.Equal(inv.ID, got.ID)
	s.Equal(inv.Email, got.Email)
	s.False(got.IsUsed)

	_, err = s.store.FindByToken(ctx, "no-such-token")
	s.True(errors.Is(err, store.ErrNotFound))
}

// TestConsumeExactlyOnce verifies that concurrent consumers of the same
// invitation serialize on the conditional update: exactly one wins, the rest
// observe ErrConflict.
func (s *PostgresStoreSuite) TestConsumeExactlyOnce() {
	ctx := context.Background()
	inv := s.makeInvitation()
	s.Require().NoError(s.store.Create(ctx, inv))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount, otherErrors atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Consume(ctx, inv.ID, inv.UserID, time.Now().UTC())
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, store.ErrConflict):
				conflictCount.Add(1)
			default:
				otherErrors.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one consume should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "remaining should conflict")
	s.Equal(int32(0), otherErrors.Load(), "no unexpected errors")

	got, err := s.store.FindByID(ctx, inv.ID)
	s.Require().NoError(err)
	s.True(got.IsUsed)
	s.Equal(inv.UserID, got.RegisteredUserID)
	s.NotNil(got.UsedAt)
}

func (s *PostgresStoreSuite) TestDuplicateTokenConflicts() {
	ctx := context.Background()
	first := s.makeInvitation()
	s.Require().NoError(s.store.Create(ctx, first))

	second := s.makeInvitation()
	second.Token = first.Token
	s.True(errors.Is(s.store.Create(ctx, second), store.ErrConflict))
}

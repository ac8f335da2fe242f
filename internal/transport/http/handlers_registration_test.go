package http

//go:generate mockgen -source=handlers_registration.go -destination=mocks/registration-mocks.go -package=mocks RegistrationService

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"meldish/internal/identity/models"
	"meldish/internal/jwttoken"
	registration "meldish/internal/registration/service"
	"meldish/internal/transport/http/mocks"
	id "meldish/pkg/domain"
	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/testutil"
)

type RegistrationHandlerSuite struct {
	suite.Suite
}

func TestRegistrationHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrationHandlerSuite))
}

func (s *RegistrationHandlerSuite) newHandler(t *testing.T) (*mocks.MockRegistrationService, chi.Router) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockRegistrationService(ctrl)
	handler := NewRegistrationHandler(mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := chi.NewRouter()
	handler.Register(router)
	return mockService, router
}

func activatedUser() *models.User {
	return &models.User{
		ID:       id.NewUserID(),
		Email:    "owner@example.com",
		UserType: models.UserTypeOwner,
		IsActive: true,
	}
}

func tokenPair() *jwttoken.Pair {
	return &jwttoken.Pair{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    15 * time.Minute,
	}
}

func (s *RegistrationHandlerSuite) TestHandleBegin() {
	s.T().Run("valid signup returns 202 with expiry", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		expiresAt := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
		mockService.EXPECT().
			Begin(gomock.Any(), registration.BeginParams{
				Email:    "owner@example.com",
				Password: "secret123",
				UserType: models.UserTypeOwner,
			}).
			Return(&registration.BeginResult{
				PendingID: id.NewPendingUserID(),
				Email:     "owner@example.com",
				ExpiresAt: expiresAt,
			}, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations", map[string]string{
			"email":     "owner@example.com",
			"password":  "secret123",
			"user_type": "OWNER",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusAccepted)
		got := testutil.UnmarshalResponse[beginResponse](t, rr)
		assert.Equal(t, "owner@example.com", got.Email)
		assert.Equal(t, expiresAt, got.ExpiresAt.UTC())
	})

	s.T().Run("malformed body returns 400", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Begin(gomock.Any(), gomock.Any()).Times(0)

		req := testutil.NewRequestWithBody(t, http.MethodPost, "/registrations", "{bad-json")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	s.T().Run("unknown user type returns 400 without calling the service", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Begin(gomock.Any(), gomock.Any()).Times(0)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations", map[string]string{
			"email":     "owner@example.com",
			"password":  "secret123",
			"user_type": "ROOT",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, string(dErrors.CodeValidation))
	})

	s.T().Run("staff signup maps invitation_required to 403", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().
			Begin(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvitationRequired, "staff accounts require an invitation"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations", map[string]string{
			"email":     "staff@example.com",
			"password":  "secret123",
			"user_type": "STAFF",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusForbidden)
		testutil.AssertErrorCode(t, rr, string(dErrors.CodeInvitationRequired))
	})

	s.T().Run("duplicate email maps to 409", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().
			Begin(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeAlreadyRegistered, "an account with this email already exists"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations", map[string]string{
			"email":     "owner@example.com",
			"password":  "secret123",
			"user_type": "OWNER",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusConflict)
	})
}

func (s *RegistrationHandlerSuite) TestHandleVerify() {
	s.T().Run("valid token returns tokens and user", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		user := activatedUser()
		mockService.EXPECT().
			VerifyAndActivate(gomock.Any(), "verify-token").
			Return(&registration.ActivationResult{User: user, Tokens: tokenPair()}, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/verify", map[string]string{
			"token": "verify-token",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		got := testutil.UnmarshalResponse[authResponse](t, rr)
		assert.Equal(t, user.ID.String(), got.UserID)
		assert.Equal(t, "access", got.AccessToken)
		assert.Equal(t, int64(900), got.ExpiresIn)
	})

	s.T().Run("empty token returns 400 without calling the service", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().VerifyAndActivate(gomock.Any(), gomock.Any()).Times(0)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/verify", map[string]string{})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	s.T().Run("expired token maps to 410", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().
			VerifyAndActivate(gomock.Any(), "stale").
			Return(nil, dErrors.New(dErrors.CodeSessionExpired, "verification link expired"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/verify", map[string]string{
			"token": "stale",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusGone)
	})

	s.T().Run("unknown token maps to 404", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().
			VerifyAndActivate(gomock.Any(), "bogus").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "verification token not found"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/verify", map[string]string{
			"token": "bogus",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func (s *RegistrationHandlerSuite) TestHandleLogin() {
	s.T().Run("customer login resolves in the customer bucket", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		user := activatedUser()
		user.UserType = models.UserTypeCustomer
		mockService.EXPECT().
			Authenticate(gomock.Any(), "c@example.com", "secret123", models.BucketCustomer).
			Return(&registration.AuthResult{User: user, Tokens: tokenPair()}, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email":     "c@example.com",
			"password":  "secret123",
			"user_type": "CUSTOMER",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	s.T().Run("staff login resolves in the staff bucket", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		user := activatedUser()
		user.UserType = models.UserTypeStaff
		mockService.EXPECT().
			Authenticate(gomock.Any(), "s@example.com", "secret123", models.BucketStaffOrOwner).
			Return(&registration.AuthResult{User: user, Tokens: tokenPair()}, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email":     "s@example.com",
			"password":  "secret123",
			"user_type": "STAFF",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	s.T().Run("bad credentials map to 401", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().
			Authenticate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email":     "c@example.com",
			"password":  "wrong",
			"user_type": "CUSTOMER",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertErrorCode(t, rr, string(dErrors.CodeUnauthorized))
	})
}

func (s *RegistrationHandlerSuite) TestHandleProgress() {
	s.T().Run("returns current progress", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		userID := id.NewUserID()
		mockService.EXPECT().
			Progress(gomock.Any(), userID).
			Return(&models.RegistrationProgress{
				UserID:    userID,
				UserType:  models.UserTypeOwner,
				Step:      models.StepProfile,
				UpdatedAt: time.Now(),
			}, nil)

		req := testutil.NewJSONRequest(t, http.MethodGet, "/users/"+userID.String()+"/progress", nil)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		got := testutil.UnmarshalResponse[progressResponse](t, rr)
		assert.Equal(t, "profile", got.Step)
	})

	s.T().Run("invalid user id returns 400", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Progress(gomock.Any(), gomock.Any()).Times(0)

		req := testutil.NewJSONRequest(t, http.MethodGet, "/users/not-a-uuid/progress", nil)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	s.T().Run("advance forwards the parsed step", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		userID := id.NewUserID()
		mockService.EXPECT().
			AdvanceProgress(gomock.Any(), userID, models.StepDone).
			Return(&models.RegistrationProgress{
				UserID:    userID,
				UserType:  models.UserTypeOwner,
				Step:      models.StepDone,
				UpdatedAt: time.Now(),
			}, nil)

		req := testutil.NewJSONRequest(t, http.MethodPut, "/users/"+userID.String()+"/progress", map[string]string{
			"step": "done",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	s.T().Run("unknown step returns 400 without calling the service", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		userID := id.NewUserID()
		mockService.EXPECT().AdvanceProgress(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		req := testutil.NewJSONRequest(t, http.MethodPut, "/users/"+userID.String()+"/progress", map[string]string{
			"step": "sideways",
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/renholm/ticket-triage-backend/internal/auth"
	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/mocks"
	"github.com/renholm/ticket-triage-backend/internal/core/services"
)

func newAuthRouter(t *testing.T) (*chi.Mux, *mocks.MockUserRepository, *auth.TokenManager) {
	t.Helper()

	userRepo := mocks.NewMockUserRepository()
	authService := services.NewAuthService(userRepo, mocks.PassthroughTxManager{})
	tokenManager := auth.NewTokenManager("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewAuthHandler(authService, tokenManager, NewErrorHandler(logger))

	router := chi.NewRouter()
	router.Route("/auth", handler.RegisterRoutes)

	return router, userRepo, tokenManager
}

func TestSignup(t *testing.T) {
	router, userRepo, tokenManager := newAuthRouter(t)

	userRepo.On("GetByEmail", mock.Anything, "kim@example.com").
		Return(nil, apperrors.ErrUserNotFound)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "kim@example.com" && u.Role == domain.RoleUser
	})).Return(&domain.User{
		ID:        uuid.New(),
		FullName:  "Kim Larsen",
		Email:     "kim@example.com",
		Role:      domain.RoleUser,
		CreatedAt: time.Now().UTC(),
	}, nil)

	payload := []byte(`{"fullName":"Kim Larsen","email":"kim@example.com","password":"Sup3rSecret"}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/auth/signup", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusCreated, recorder.Code)

	var response AuthResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.NotEmpty(t, response.Token)
	assert.Equal(t, "kim@example.com", response.User.Email)
	assert.Equal(t, "user", response.User.Role)

	// Token must round-trip through the validator.
	claims, err := tokenManager.ValidateToken(response.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestSignup_WeakPassword(t *testing.T) {
	router, userRepo, _ := newAuthRouter(t)

	payload := []byte(`{"fullName":"Kim Larsen","email":"kim@example.com","password":"short"}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/auth/signup", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)

	var response ValidationErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Contains(t, response.Fields, "password")

	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	router, userRepo, _ := newAuthRouter(t)

	userRepo.On("GetByEmail", mock.Anything, "kim@example.com").
		Return(&domain.User{Email: "kim@example.com"}, nil)

	payload := []byte(`{"fullName":"Kim Larsen","email":"kim@example.com","password":"Sup3rSecret"}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/auth/signup", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusConflict, recorder.Code)
}

func TestLogin(t *testing.T) {
	router, userRepo, _ := newAuthRouter(t)

	hash, err := domain.HashPassword("Sup3rSecret")
	require.NoError(t, err)

	userRepo.On("GetByEmail", mock.Anything, "kim@example.com").Return(&domain.User{
		ID:           uuid.New(),
		FullName:     "Kim Larsen",
		Email:        "kim@example.com",
		PasswordHash: hash,
		Role:         domain.RoleModerator,
		CreatedAt:    time.Now().UTC(),
	}, nil)

	t.Run("valid credentials", func(t *testing.T) {
		payload := []byte(`{"email":"kim@example.com","password":"Sup3rSecret"}`)
		req := httptest.NewRequest(stdhttp.MethodPost, "/auth/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		var response struct {
			Data AuthResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		assert.NotEmpty(t, response.Data.Token)
		assert.Equal(t, "moderator", response.Data.User.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		payload := []byte(`{"email":"kim@example.com","password":"WrongPass1"}`)
		req := httptest.NewRequest(stdhttp.MethodPost, "/auth/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
	})
}

func TestLogin_UnknownEmail(t *testing.T) {
	router, userRepo, _ := newAuthRouter(t)

	userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, apperrors.ErrUserNotFound)

	payload := []byte(`{"email":"ghost@example.com","password":"Sup3rSecret"}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	// Unknown email and wrong password are indistinguishable.
	require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}

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

	mw "github.com/renholm/ticket-triage-backend/internal/adapters/primary/http/middleware"
	"github.com/renholm/ticket-triage-backend/internal/auth"
	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	"github.com/renholm/ticket-triage-backend/internal/core/mocks"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
	"github.com/renholm/ticket-triage-backend/internal/core/services"
)

func newAdminRouter(t *testing.T) (*chi.Mux, *mocks.MockUserRepository, *auth.TokenManager) {
	t.Helper()

	userRepo := mocks.NewMockUserRepository()
	adminService := services.NewAdminService(userRepo)
	tokenManager := auth.NewTokenManager("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewAdminHandler(adminService, userRepo, NewErrorHandler(logger))

	router := chi.NewRouter()
	router.Use(mw.JWTMiddleware(tokenManager))
	router.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireRole(domain.RoleAdmin))
		handler.RegisterRoutes(r)
	})

	return router, userRepo, tokenManager
}

func adminAccount() *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		FullName:  "Root Admin",
		Email:     "admin@example.com",
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	}
}

func TestAdminListUsers(t *testing.T) {
	router, userRepo, tokenManager := newAdminRouter(t)
	admin := adminAccount()

	userRepo.On("GetByID", mock.Anything, admin.ID).Return(admin, nil)
	userRepo.On("List", mock.Anything).Return([]*domain.User{
		admin,
		{ID: uuid.New(), FullName: "Mod", Email: "mod@example.com", Role: domain.RoleModerator, Skills: []string{"networking"}},
	}, nil)

	token, err := tokenManager.GenerateToken(admin.ID, admin.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(stdhttp.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response ListResponse[*UserDTO]
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, 2, response.Count)
	assert.Equal(t, "mod@example.com", response.Data[1].Email)
}

func TestAdminListUsers_Forbidden(t *testing.T) {
	router, _, tokenManager := newAdminRouter(t)

	token, err := tokenManager.GenerateToken(uuid.New(), domain.RoleModerator)
	require.NoError(t, err)

	req := httptest.NewRequest(stdhttp.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusForbidden, recorder.Code)
}

func TestAdminUpdateUser(t *testing.T) {
	router, userRepo, tokenManager := newAdminRouter(t)
	admin := adminAccount()
	targetID := uuid.New()

	userRepo.On("GetByID", mock.Anything, admin.ID).Return(admin, nil)
	userRepo.On("UpdateRoleAndSkills", mock.Anything, ports.UpdateUserParams{
		UserID: targetID,
		Role:   domain.RoleModerator,
		Skills: []string{"linux", "networking"},
	}).Return(&domain.User{
		ID:       targetID,
		FullName: "Promoted",
		Email:    "promoted@example.com",
		Role:     domain.RoleModerator,
		Skills:   []string{"linux", "networking"},
	}, nil)

	token, err := tokenManager.GenerateToken(admin.ID, admin.Role)
	require.NoError(t, err)

	payload := []byte(`{"role":"moderator","skills":["linux","networking"]}`)
	req := httptest.NewRequest(stdhttp.MethodPatch, "/admin/users/"+targetID.String(), bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response struct {
		Data UserDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "moderator", response.Data.Role)
	assert.Equal(t, []string{"linux", "networking"}, response.Data.Skills)

	userRepo.AssertExpectations(t)
}

func TestAdminUpdateUser_InvalidRole(t *testing.T) {
	router, userRepo, tokenManager := newAdminRouter(t)
	admin := adminAccount()

	userRepo.On("GetByID", mock.Anything, admin.ID).Return(admin, nil)

	token, err := tokenManager.GenerateToken(admin.ID, admin.Role)
	require.NoError(t, err)

	payload := []byte(`{"role":"superuser"}`)
	req := httptest.NewRequest(stdhttp.MethodPatch, "/admin/users/"+uuid.NewString(), bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	userRepo.AssertNotCalled(t, "UpdateRoleAndSkills", mock.Anything, mock.Anything)
}

func TestAdminUpdateUser_InvalidUserID(t *testing.T) {
	router, userRepo, tokenManager := newAdminRouter(t)
	admin := adminAccount()

	userRepo.On("GetByID", mock.Anything, admin.ID).Return(admin, nil)

	token, err := tokenManager.GenerateToken(admin.ID, admin.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(stdhttp.MethodPatch, "/admin/users/not-a-uuid", bytes.NewReader([]byte(`{"role":"user"}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
}

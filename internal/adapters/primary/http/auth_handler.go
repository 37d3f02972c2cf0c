package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/renholm/ticket-triage-backend/internal/adapters/primary/validation"
	"github.com/renholm/ticket-triage-backend/internal/auth"
	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  ports.AuthService
	tokenManager *auth.TokenManager
	errorHandler *ErrorHandler
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, tokenManager *auth.TokenManager, errorHandler *ErrorHandler) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenManager: tokenManager,
		errorHandler: errorHandler,
	}
}

// RegisterRoutes registers auth routes on the given router
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.HandleSignup)
	r.Post("/login", h.HandleLogin)
}

// SignupRequest is the request body for user registration
type SignupRequest struct {
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Skills   []string `json:"skills,omitempty"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned on successful signup or login
type AuthResponse struct {
	Token string   `json:"token"`
	User  *UserDTO `json:"user"`
}

// UserDTO is the public representation of a user
type UserDTO struct {
	ID        string   `json:"id"`
	FullName  string   `json:"fullName"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	Skills    []string `json:"skills,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

func toUserDTO(u *domain.User) *UserDTO {
	return &UserDTO{
		ID:        u.ID.String(),
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      string(u.Role),
		Skills:    u.Skills,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// HandleSignup creates a new user account and returns a session token
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[SignupRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), domain.UserRegistrationParams{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Skills:   req.Skills,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	token, err := h.tokenManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, AuthResponse{Token: token, User: toUserDTO(user)})
}

// HandleLogin authenticates a user and returns a session token
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[LoginRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	token, err := h.tokenManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, AuthResponse{Token: token, User: toUserDTO(user)})
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/renholm/ticket-triage-backend/internal/adapters/primary/http/middleware"
	"github.com/renholm/ticket-triage-backend/internal/adapters/primary/validation"
	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// AdminHandler handles admin-only user management endpoints
type AdminHandler struct {
	adminService ports.AdminService
	userRepo     ports.UserRepository
	errorHandler *ErrorHandler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService ports.AdminService, userRepo ports.UserRepository, errorHandler *ErrorHandler) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		userRepo:     userRepo,
		errorHandler: errorHandler,
	}
}

// RegisterRoutes registers admin routes on the given router
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.HandleListUsers)
	r.Patch("/users/{userID}", h.HandleUpdateUser)
}

// UpdateUserRequest is the request body for updating a user's role and skills
type UpdateUserRequest struct {
	Role   string   `json:"role"`
	Skills []string `json:"skills"`
}

// Validate validates the update user request
func (req *UpdateUserRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("role", req.Role).
		OneOf("role", req.Role, []string{"user", "moderator", "admin"})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// HandleListUsers returns all user accounts
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	users, err := h.adminService.ListUsers(r.Context(), actor)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	dtos := make([]*UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, toUserDTO(u))
	}

	WriteList(w, dtos)
}

// HandleUpdateUser changes a user's role and skills
func (h *AdminHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid user ID"))
		return
	}

	req, err := validation.DecodeAndValidate[UpdateUserRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	updated, err := h.adminService.UpdateUser(r.Context(), actor, ports.UpdateUserParams{
		UserID: userID,
		Role:   domain.Role(req.Role),
		Skills: req.Skills,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toUserDTO(updated))
}

// actorFromRequest loads the full user record for the authenticated caller
func (h *AdminHandler) actorFromRequest(r *http.Request) (*domain.User, error) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	return h.userRepo.GetByID(r.Context(), claims.UserID)
}

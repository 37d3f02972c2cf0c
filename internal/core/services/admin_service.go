package services

import (
	"context"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// AdminService implements admin-only user management: listing accounts
// and editing the role and skill profile the matcher reads.
type AdminService struct {
	userRepo ports.UserRepository
}

var _ ports.AdminService = (*AdminService)(nil)

// NewAdminService creates a new admin service.
func NewAdminService(userRepo ports.UserRepository) *AdminService {
	return &AdminService{userRepo: userRepo}
}

// ListUsers returns all accounts; admin only.
func (s *AdminService) ListUsers(ctx context.Context, actor *domain.User) ([]*domain.User, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return s.userRepo.List(ctx)
}

// UpdateUser changes a user's role and skills; admin only.
func (s *AdminService) UpdateUser(ctx context.Context, actor *domain.User, params ports.UpdateUserParams) (*domain.User, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if !domain.ValidRole(params.Role) {
		return nil, apperrors.ErrInvalidRole
	}

	return s.userRepo.UpdateRoleAndSkills(ctx, params)
}

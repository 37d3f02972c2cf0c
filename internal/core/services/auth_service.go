package services

import (
	"context"
	"errors"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// AuthService implements authentication business logic.
type AuthService struct {
	userRepo ports.UserRepository
	tx       ports.TransactionManager
}

var _ ports.AuthService = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo ports.UserRepository, tx ports.TransactionManager) *AuthService {
	return &AuthService{userRepo: userRepo, tx: tx}
}

// Register creates a new user account with validated credentials. The
// uniqueness check and the insert share one transaction so concurrent
// signups with the same email cannot both succeed.
func (s *AuthService) Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var created *domain.User
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := s.userRepo.GetByEmail(ctx, params.Email)
		if err == nil {
			return apperrors.ErrUserExists
		}
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			return err
		}

		user, err := domain.NewUser(params)
		if err != nil {
			return err
		}

		created, err = s.userRepo.Create(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Login authenticates a user with email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" {
		return nil, apperrors.ErrEmailRequired
	}
	if password == "" {
		return nil, apperrors.ErrPasswordRequired
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Don't reveal whether the email exists.
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return user, nil
}

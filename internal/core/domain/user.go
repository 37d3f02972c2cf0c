package domain

import (
	"net/mail"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
)

// Password and field limits.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxFullNameLength = 255
	MaxEmailLength    = 255
	MaxSkillLength    = 100
	MaxSkillCount     = 50
)

// Role determines what a user may do and whether they are eligible
// for triage assignment.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is an account in the system. Skills are only meaningful for
// moderators; the matcher reads them during triage.
type User struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Skills       []string  `json:"skills,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsModerator reports whether the user is eligible for skill matching.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

// IsAdmin reports whether the user is the fallback assignee pool.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CheckPassword verifies the provided password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// UserRegistrationParams holds parameters for user registration.
type UserRegistrationParams struct {
	FullName string
	Email    string
	Password string
	Skills   []string
}

// Validate validates user registration parameters.
func (p *UserRegistrationParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.FullName == "" {
		errs.Add("fullName", "Full name is required")
	} else if len(p.FullName) > MaxFullNameLength {
		errs.Add("fullName", "Full name must be 255 characters or less")
	}

	if p.Email == "" {
		errs.Add("email", "Email is required")
	} else if len(p.Email) > MaxEmailLength {
		errs.Add("email", "Email must be 255 characters or less")
	} else if !isValidEmail(p.Email) {
		errs.Add("email", "Invalid email format")
	}

	for _, msg := range ValidatePassword(p.Password) {
		errs.Add("password", msg)
	}

	if err := validateSkills(p.Skills); err != "" {
		errs.Add("skills", err)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateSkills(skills []string) string {
	if len(skills) > MaxSkillCount {
		return "Too many skills"
	}
	for _, s := range skills {
		if s == "" {
			return "Skills must not be empty"
		}
		if len(s) > MaxSkillLength {
			return "Skills must be 100 characters or less"
		}
	}
	return ""
}

// ValidatePassword checks a password against the security requirements.
// Returns a slice of error messages (empty if valid).
func ValidatePassword(password string) []string {
	var errors []string

	if len(password) < MinPasswordLength {
		errors = append(errors, "Password must be at least 8 characters long")
	}
	if len(password) > MaxPasswordLength {
		errors = append(errors, "Password must be 128 characters or less")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		errors = append(errors, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		errors = append(errors, "Password must contain at least one lowercase letter")
	}
	if !hasNumber {
		errors = append(errors, "Password must contain at least one number")
	}

	return errors
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// HashPassword hashes a password using bcrypt after validating it.
func HashPassword(password string) (string, error) {
	if errs := ValidatePassword(password); len(errs) > 0 {
		return "", apperrors.ErrPasswordTooWeak
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// NewUser creates a new user with validated parameters. New signups
// always start with the plain user role; admins promote moderators and
// attach skills afterwards.
func NewUser(params UserRegistrationParams) (*User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           uuid.New(),
		FullName:     params.FullName,
		Email:        params.Email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Skills:       params.Skills,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

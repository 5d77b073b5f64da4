package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eduardobaptist/ifpass-api/internal/auth"
	"github.com/eduardobaptist/ifpass-api/internal/config"
	"github.com/eduardobaptist/ifpass-api/internal/database"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"
)

// UserService handles user accounts and authentication
type UserService struct {
	db  *database.Database
	cfg *config.Config
}

// NewUserService creates a new user service
func NewUserService(db *database.Database, cfg *config.Config) *UserService {
	return &UserService{
		db:  db,
		cfg: cfg,
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Type     string
}

// Register creates a new attendee account and returns the user together with
// a session token
func (s *UserService) Register(req *RegisterRequest) (*models.User, string, error) {
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, "", fmt.Errorf("weak password: %w", err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	userType := req.Type
	if userType == "" {
		userType = models.TypeExternal
	}

	// Self-registration always creates attendees; roles are elevated by admins
	user := &models.User{
		FullName:     sql.NullString{String: req.FullName, Valid: req.FullName != ""},
		Email:        req.Email,
		PasswordHash: passwordHash,
		Type:         userType,
		Role:         models.RoleAttendee,
		CreatedAt:    time.Now(),
	}

	if err := s.db.CreateUser(user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Login authenticates a user and returns the user with a session token
func (s *UserService) Login(email, password string) (*models.User, string, error) {
	user, err := s.db.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *UserService) generateToken(user *models.User) (string, error) {
	token, err := auth.GenerateToken(
		user.ID,
		user.Email,
		user.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.Expiration,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// GetUser returns a user by ID
func (s *UserService) GetUser(id int64) (*models.User, error) {
	user, err := s.db.GetUser(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users
func (s *UserService) ListUsers() ([]*models.User, error) {
	return s.db.ListUsers()
}

// UpdateUserRequest represents an admin update to a user
type UpdateUserRequest struct {
	FullName string
	Type     string
	Role     string
}

// UpdateUser updates a user's profile fields and role
func (s *UserService) UpdateUser(id int64, req *UpdateUserRequest) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	if req.FullName != "" {
		user.FullName = sql.NullString{String: req.FullName, Valid: true}
	}
	if req.Type != "" {
		user.Type = req.Type
	}
	if req.Role != "" {
		user.Role = req.Role
	}

	if err := s.db.UpdateUser(user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// DeleteUser deletes a user by ID
func (s *UserService) DeleteUser(id int64) error {
	if err := s.db.DeleteUser(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/parisxmas/oxisite/internal/auth"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/repository"
)

type AuthService struct {
	users     *repository.UserRepo
	jwtSecret string
	ttl       time.Duration
}

func NewAuthService(users *repository.UserRepo, jwtSecret string) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, ttl: auth.DefaultTTL}
}

type AuthResult struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleEditor, models.RoleViewer:
		return true
	}
	return false
}

// CreateUser adds an account. Only admins reach this through the API.
func (s *AuthService) CreateUser(ctx context.Context, email, password, name, role string) (*models.UserResponse, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" || name == "" {
		return nil, invalid("email, password, and name are required")
	}
	if role == "" {
		role = models.RoleEditor
	}
	if !validRole(role) {
		return nil, invalid("unknown role %q", role)
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email %w", ErrConflict)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	id, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	resp := user.ToResponse()
	return &resp, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	token, err := auth.GenerateToken(s.jwtSecret, user.ID, user.Email, user.Role, s.ttl)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user.ToResponse()}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}
	resp := user.ToResponse()
	return &resp, nil
}

// IssueToken mints a token for an existing account without a password.
// It backs the token CLI command.
func (s *AuthService) IssueToken(ctx context.Context, email string, ttl time.Duration) (string, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", notFound("user")
	}
	return auth.GenerateToken(s.jwtSecret, user.ID, user.Email, user.Role, ttl)
}

// SeedAdmin creates the admin account unless one with that email exists.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	existing, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = s.CreateUser(ctx, email, password, "Admin", models.RoleAdmin)
	return err
}

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/orcaflow/orcaflow/internal/shared"
)

// Service wraps account management rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the user by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// DisplayName resolves a user id to a presentable name. Unknown ids resolve
// to an empty string so document rendering never fails on a removed account.
func (s *Service) DisplayName(ctx context.Context, id string) string {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ""
	}
	if user.Name != "" {
		return user.Name
	}
	return user.Email
}

// Create registers a new account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, email, name, password string, role Role) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("users: email and password are required")
	}
	if role != RoleAdmin {
		role = RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := User{
		ID:           shared.ShortID(10),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Deactivate disables an account without removing its quotes.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.IsActive = false
	user.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, *user)
}

// Bootstrap seeds the first admin account when the store is empty.
func (s *Service) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	_, err = s.Create(ctx, email, "Administrator", password, RoleAdmin)
	if errors.Is(err, shared.ErrDuplicateEmail) {
		return nil
	}
	return err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/productcatalog/catalog/internal/metrics"
	"github.com/productcatalog/catalog/internal/model"
	"github.com/productcatalog/catalog/internal/repository"
)

// UserService handles user account business logic.
type UserService struct {
	store   UserStore
	hasher  PasswordHasher
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, hasher PasswordHasher, logger *slog.Logger, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		store:   store,
		hasher:  hasher,
		logger:  logger.With("component", "service.users"),
		metrics: recorder,
	}
}

// CreateUserInput defines input for creating a user.
// IsAdmin defaults to true when nil.
type CreateUserInput struct {
	Email    string
	Password string
	IsAdmin  *bool
}

// UpdateUserInput defines a partial user update. Nil fields are left untouched.
type UpdateUserInput struct {
	Email    *string
	Password *string
	IsAdmin  *bool
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapUserError(err)
	}
	return user, nil
}

// Create registers a new user.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	if input.Password == "" {
		return nil, ErrEmptyPassword
	}

	if _, err := s.store.GetUserByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	isAdmin := true
	if input.IsAdmin != nil {
		isAdmin = *input.IsAdmin
	}

	user := &model.User{
		Email:        input.Email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, mapUserError(err)
	}

	s.metrics.IncUserCreated()
	s.logger.Info("user created", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, nil
}

// Update applies a partial update to an existing user.
func (s *UserService) Update(ctx context.Context, id int64, input UpdateUserInput) (*model.User, error) {
	current, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapUserError(err)
	}

	patch := model.UserPatch{Email: input.Email, IsAdmin: input.IsAdmin}

	if input.Email != nil && *input.Email != current.Email {
		if _, err := s.store.GetUserByEmail(ctx, *input.Email); err == nil {
			return nil, ErrEmailExists
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
	}

	if input.Password != nil {
		if *input.Password == "" {
			return nil, ErrEmptyPassword
		}
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}

	if patch.IsEmpty() {
		return current, nil
	}

	next := patch.Apply(*current)
	if err := s.store.UpdateUser(ctx, &next); err != nil {
		return nil, mapUserError(err)
	}

	s.metrics.IncUserUpdated()
	return &next, nil
}

// Delete removes a user. Tokens issued to them stop resolving immediately.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return mapUserError(err)
	}
	s.metrics.IncUserDeleted()
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// EnsureFirstAdmin creates the initial admin when no users exist yet.
// It reports whether a user was created.
func (s *UserService) EnsureFirstAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}

	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	isAdmin := true
	user, err := s.Create(ctx, CreateUserInput{Email: email, Password: password, IsAdmin: &isAdmin})
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("first admin created", "user_id", user.ID)
	return true, nil
}

func mapUserError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrEmailExists):
		return ErrEmailExists
	default:
		return err
	}
}

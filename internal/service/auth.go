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

// AuthService issues access tokens and resolves them back to users.
type AuthService struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  TokenIssuer
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		logger:  logger.With("component", "service.auth"),
		metrics: recorder,
	}
}

// IssueToken verifies email and password and returns a signed access token.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) IssueToken(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(password)
			s.metrics.IncAuthFailure(metrics.ReasonBadCredentials)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "user_id", user.ID, "error", err)
		return "", ErrInvalidCredentials
	}
	if !ok {
		s.metrics.IncAuthFailure(metrics.ReasonBadCredentials)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncTokenIssued()
	return token, nil
}

// Authenticate resolves a bearer token to the identity of an existing user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	subject, err := s.tokens.Subject(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := s.users.GetUserByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}

	return &model.Identity{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}, nil
}

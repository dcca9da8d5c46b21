package service

import (
	"context"
	"errors"

	"github.com/site-analyzer/portal/internal/domain"
	"github.com/site-analyzer/portal/internal/repository"
	"github.com/site-analyzer/portal/internal/security"
)

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

type AuthService struct {
	users  repository.UserRepository
	tokens *TokenService
}

func NewAuthService(users repository.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, username, password, email string) error {
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	user := &domain.User{Username: username, PasswordHash: hash, Email: email, Role: domain.RoleUser}
	if err := s.users.Create(user); err != nil {
		// Unique-index violations differ per driver; the only user-visible
		// failure mode of Create is a duplicate username.
		return ErrUsernameTaken
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	access, refresh, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh exchanges the refresh cookie for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return s.tokens.Rotate(ctx, refreshToken, func(username string) (string, error) {
		user, err := s.users.FindByUsername(username)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return "", ErrInvalidToken
			}
			return "", err
		}
		return user.Role, nil
	})
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

// CheckAuth validates the refresh cookie only; it issues nothing.
func (s *AuthService) CheckAuth(ctx context.Context, refreshToken string) error {
	_, err := s.tokens.VerifyRefresh(ctx, refreshToken)
	return err
}

package service

import (
	"context"
	"time"

	"github.com/site-analyzer/portal/internal/domain"
	"github.com/site-analyzer/portal/internal/security"
)

// TokenService issues and verifies the two bearer-token classes. Access
// tokens are verified by signature alone; refresh tokens additionally
// require a live entry in the revocation store, which is what makes
// server-side logout possible before natural expiry.
type TokenService struct {
	jwtMgr     *security.JWTManager
	store      RevocationStore
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(jwtMgr *security.JWTManager, store RevocationStore, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{jwtMgr: jwtMgr, store: store, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue mints an access/refresh pair and registers the refresh token in the
// revocation store. A store write failure fails the whole issue: a session
// that can never be revoked must not exist.
func (s *TokenService) Issue(ctx context.Context, user *domain.User) (access string, refresh string, err error) {
	access, err = s.jwtMgr.SignAccessToken(user.Username, user.Role, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.jwtMgr.SignRefreshToken(user.Username, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	if err := s.store.Put(ctx, refresh, user.Username, s.refreshTTL); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// VerifyAccess is stateless: signature and expiry only.
func (s *TokenService) VerifyAccess(token string) (*security.Claims, error) {
	claims, err := s.jwtMgr.ParseAccessToken(token)
	if err != nil {
		if security.IsExpired(err) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry, then requires a live revocation
// entry. Store unavailability propagates: trusting the signature alone would
// defeat revocation.
func (s *TokenService) VerifyRefresh(ctx context.Context, token string) (*security.Claims, error) {
	claims, err := s.jwtMgr.ParseRefreshToken(token)
	if err != nil {
		if security.IsExpired(err) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	_, ok, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Rotate exchanges a valid refresh token for a fresh access token. The
// refresh token itself is never reissued; one long-lived token spans the
// session. The role is re-read through roleLookup so an administrative role
// change takes effect at the next rotation at the latest.
func (s *TokenService) Rotate(ctx context.Context, refresh string, roleLookup func(username string) (string, error)) (string, error) {
	claims, err := s.VerifyRefresh(ctx, refresh)
	if err != nil {
		return "", err
	}
	role, err := roleLookup(claims.Username)
	if err != nil {
		return "", err
	}
	return s.jwtMgr.SignAccessToken(claims.Username, role, s.accessTTL)
}

// Revoke deletes the revocation entry. Idempotent: revoking an already-dead
// token succeeds.
func (s *TokenService) Revoke(ctx context.Context, refresh string) error {
	return s.store.Delete(ctx, refresh)
}

package service

import "errors"

var (
	// ErrInvalidToken covers bad signatures and malformed token strings.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken means the signature verified but the TTL elapsed.
	ErrExpiredToken = errors.New("token expired")
	// ErrRevokedToken means the signature verified but the revocation store
	// has no live entry for the token.
	ErrRevokedToken = errors.New("token revoked")
	// ErrInvalidCredentials is returned for unknown users and wrong
	// passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken is returned when registration collides.
	ErrUsernameTaken = errors.New("username already exists")
)

// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package auth provides the opaque credential capabilities for the task
// API: session token signing/verification and password hashing.
//
// Tokens are HS256 JWTs carrying a single userId claim. Passwords are
// bcrypt hashes. Both are used as capabilities by the handlers and the
// identity resolver; nothing else in the service inspects token or hash
// internals.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the session token lifetime.
const DefaultTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned by Verify for any token that does not
// validate: malformed, expired, bad signature, or wrong claims shape.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload for a session token.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies session tokens with a shared secret.
//
// # Thread Safety
//
// Safe for concurrent use; all fields are read-only after construction.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager.
//
// # Inputs
//
//   - secret: HMAC signing secret. Must be non-empty.
//   - ttl: Token lifetime. Zero uses DefaultTokenTTL.
//
// # Outputs
//
//   - *TokenManager: Ready-to-use manager.
//   - error: Non-nil if secret is empty.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret cannot be empty")
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Sign issues a token naming userID, valid for the configured TTL.
func (m *TokenManager) Sign(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the user ID it names.
// All validation failures collapse into ErrInvalidToken; callers only need
// to know whether the token names a user, not why it failed.
func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

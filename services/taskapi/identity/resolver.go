// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package identity

import (
	"net/http"
	"strings"
)

// TokenVerifier verifies a bearer token and returns the user ID it names.
//
// Implemented by auth.TokenManager. Kept as a local interface so the
// resolver stays a pure function of request headers with no dependency on
// the token implementation.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// FromRequest resolves the caller identity from request headers.
//
// # Description
//
// Produces exactly one of the three identity variants:
//
//  1. A bearer token that verifies yields Authenticated.
//  2. A missing, malformed, expired, or badly signed token never fails
//     the request; resolution falls through to the cookie.
//  3. An anonymousIdentifier cookie in minted UUID form yields
//     Anonymous. Values of any other shape are forged and ignored.
//  4. Otherwise Unknown.
//
// # Inputs
//
//   - r: The incoming request. Must not be nil.
//   - verifier: Token verifier. Must not be nil.
//
// # Outputs
//
//   - Identity: The resolved identity. Never an error; failure to
//     authenticate is not a request failure.
//
// # Thread Safety
//
// Pure function of the request headers; no side effects.
func FromRequest(r *http.Request, verifier TokenVerifier) Identity {
	if token := bearerToken(r); token != "" {
		if userID, err := verifier.Verify(token); err == nil {
			return Authenticated(userID)
		}
		// Invalid token: fall through to cookie resolution.
	}

	if cookie, err := r.Cookie(CookieName); err == nil && ValidIdentifier(cookie.Value) {
		return Anonymous(cookie.Value)
	}

	return Unknown()
}

// bearerToken extracts the token from the Authorization header.
// Returns empty string if the header is missing or malformed.
// The "Bearer" prefix is case-insensitive per RFC 7235.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

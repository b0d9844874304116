// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package identity

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubVerifier accepts exactly one token value.
type stubVerifier struct {
	accept string
	userID string
}

func (v *stubVerifier) Verify(token string) (string, error) {
	if token == v.accept {
		return v.userID, nil
	}
	return "", errors.New("invalid token")
}

func newRequest(t *testing.T, authHeader, cookieValue string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	if authHeader != "" {
		r.Header.Set("Authorization", authHeader)
	}
	if cookieValue != "" {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: cookieValue})
	}
	return r
}

func TestFromRequest(t *testing.T) {
	verifier := &stubVerifier{accept: "good-token", userID: "user-1"}
	anonID := NewIdentifier()

	tests := []struct {
		name        string
		authHeader  string
		cookieValue string
		want        Identity
	}{
		{
			name:       "valid bearer token",
			authHeader: "Bearer good-token",
			want:       Authenticated("user-1"),
		},
		{
			name:        "valid bearer token wins over cookie",
			authHeader:  "Bearer good-token",
			cookieValue: anonID,
			want:        Authenticated("user-1"),
		},
		{
			name:        "invalid token falls through to cookie",
			authHeader:  "Bearer expired-token",
			cookieValue: anonID,
			want:        Anonymous(anonID),
		},
		{
			name:       "invalid token without cookie is unknown",
			authHeader: "Bearer expired-token",
			want:       Unknown(),
		},
		{
			name:        "cookie only",
			cookieValue: anonID,
			want:        Anonymous(anonID),
		},
		{
			name: "no credentials",
			want: Unknown(),
		},
		{
			name:        "non-bearer scheme ignored",
			authHeader:  "Basic dXNlcjpwYXNz",
			cookieValue: anonID,
			want:        Anonymous(anonID),
		},
		{
			name:       "bearer prefix is case-insensitive",
			authHeader: "bearer good-token",
			want:       Authenticated("user-1"),
		},
		{
			name:       "bare token without scheme ignored",
			authHeader: "good-token",
			want:       Unknown(),
		},
		{
			name:        "forged cookie shape ignored",
			cookieValue: "not-a-uuid",
			want:        Unknown(),
		},
		{
			name:        "cookie with key separator ignored",
			cookieValue: anonID + ":junk",
			want:        Unknown(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromRequest(newRequest(t, tt.authHeader, tt.cookieValue), verifier)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentityKinds(t *testing.T) {
	auth := Authenticated("user-1")
	assert.True(t, auth.IsAuthenticated())
	assert.False(t, auth.IsAnonymous())
	assert.False(t, auth.IsUnknown())
	assert.Equal(t, "user-1", auth.UserID)

	anon := Anonymous("anon-1")
	assert.True(t, anon.IsAnonymous())
	assert.False(t, anon.IsAuthenticated())
	assert.Equal(t, "anon-1", anon.AnonymousID)

	unknown := Unknown()
	assert.True(t, unknown.IsUnknown())
	assert.False(t, unknown.IsAuthenticated())
	assert.False(t, unknown.IsAnonymous())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "authenticated", KindAuthenticated.String())
	assert.Equal(t, "anonymous", KindAnonymous.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}

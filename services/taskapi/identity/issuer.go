// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package identity

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CookieName is the cookie that carries an anonymous caller's identifier.
const CookieName = "anonymousIdentifier"

// CookieMaxAge is how long an issued identifier cookie lives: one month
// from issuance, in seconds.
const CookieMaxAge = 30 * 24 * 60 * 60

// NewIdentifier mints a fresh anonymous identifier.
//
// The identifier is a random 128-bit UUID v4 in the canonical hyphenated
// form. Uniqueness is probabilistic; no check against the store is made.
func NewIdentifier() string {
	return uuid.NewString()
}

// ValidIdentifier reports whether value has the shape of an identifier
// this service mints: a canonical hyphenated UUID. Cookie values are
// client-controlled; anything else is treated as no identifier at all
// rather than trusted into storage keys.
func ValidIdentifier(value string) bool {
	return len(value) == 36 && uuid.Validate(value) == nil
}

// SetAnonymousCookie instructs the caller to persist identifier for one
// month. The cookie is deliberately not HttpOnly: the browser client reads
// it to decide whether a board belongs to a pre-registration session.
func SetAnonymousCookie(c *gin.Context, identifier string) {
	c.SetCookie(CookieName, identifier, CookieMaxAge, "/", "", false, false)
}

// ClearAnonymousCookie expires the identifier cookie immediately, severing
// the correlation after reconciliation. Must only be called after the
// ownership transfer has been acknowledged by the store; clearing first
// would leave tasks unreconciled with no way to retry.
func ClearAnonymousCookie(c *gin.Context) {
	c.SetCookie(CookieName, "", -1, "/", "", false, false)
}

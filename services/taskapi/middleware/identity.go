// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the task API.
//
// # Identity Flow
//
// The identity middleware resolves the caller identity from the
// Authorization header and the anonymousIdentifier cookie, then stores it
// in the Gin context for downstream handlers.
//
//	Request
//	   │
//	   ▼
//	IdentityMiddleware
//	   │
//	   ├─► identity.FromRequest (token, then cookie, then unknown)
//	   │
//	   └─► Store Identity in context
//	           │
//	           ▼
//	       Handler (retrieves via GetIdentity)
//
// Resolution never aborts the request: the task endpoints serve both
// logged-in and not-yet-registered callers from the same routes, so an
// invalid token degrades to cookie resolution instead of a 401. Handlers
// that require a particular identity kind enforce that themselves.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/traskapp/trask/services/taskapi/identity"
)

// identityKey is the context key for the resolved Identity.
const identityKey = "trask_identity"

// SetIdentity stores the resolved identity in the Gin context.
//
// Called by IdentityMiddleware after resolution; handlers retrieve the
// value via GetIdentity. Request-scoped, safe for concurrent requests.
func SetIdentity(c *gin.Context, id identity.Identity) {
	c.Set(identityKey, id)
}

// GetIdentity retrieves the resolved identity from the Gin context.
// Returns the Unknown identity if the middleware did not run or the
// stored value has the wrong type.
func GetIdentity(c *gin.Context) identity.Identity {
	if v, exists := c.Get(identityKey); exists {
		if id, ok := v.(identity.Identity); ok {
			return id
		}
	}
	return identity.Unknown()
}

// IdentityMiddleware creates a Gin middleware that resolves the caller
// identity for every request.
//
// # Inputs
//
//   - verifier: Token verifier for bearer tokens. Must not be nil.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware ready for use with Gin.
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func IdentityMiddleware(verifier identity.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetIdentity(c, identity.FromRequest(c.Request, verifier))
		c.Next()
	}
}

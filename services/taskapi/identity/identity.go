// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package identity resolves the caller identity for a request and issues
// anonymous identifiers.
//
// Every request carries exactly one of three identities:
//
//   - Authenticated: a verified bearer token named a user ID
//   - Anonymous: an anonymousIdentifier cookie correlates the caller to
//     tasks created before registration
//   - Unknown: neither is present
//
// Resolution is permissive: a malformed or expired bearer token never
// fails the request, it just falls through to cookie resolution. The task
// endpoints serve logged-in and not-yet-registered users from the same
// routes, so authentication failure must degrade to anonymous resolution
// rather than reject.
package identity

// Kind discriminates the identity variants.
type Kind int

const (
	// KindUnknown means neither a valid token nor an anonymous cookie
	// was present.
	KindUnknown Kind = iota

	// KindAnonymous means the caller presented an anonymousIdentifier
	// cookie but no valid token.
	KindAnonymous

	// KindAuthenticated means the caller presented a bearer token that
	// verified successfully.
	KindAuthenticated
)

// String returns the kind name for logging and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindAuthenticated:
		return "authenticated"
	case KindAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Identity is the resolved caller context for one request.
//
// Exactly one of UserID and AnonymousID is meaningful, selected by Kind.
// The zero value is the Unknown identity.
type Identity struct {
	Kind Kind

	// UserID is set when Kind is KindAuthenticated.
	UserID string

	// AnonymousID is set when Kind is KindAnonymous.
	AnonymousID string
}

// Authenticated builds an authenticated identity for userID.
func Authenticated(userID string) Identity {
	return Identity{Kind: KindAuthenticated, UserID: userID}
}

// Anonymous builds an anonymous identity for identifier.
func Anonymous(identifier string) Identity {
	return Identity{Kind: KindAnonymous, AnonymousID: identifier}
}

// Unknown builds the unknown identity.
func Unknown() Identity {
	return Identity{Kind: KindUnknown}
}

// IsAuthenticated reports whether the identity carries a verified user ID.
func (id Identity) IsAuthenticated() bool { return id.Kind == KindAuthenticated }

// IsAnonymous reports whether the identity carries an anonymous identifier.
func (id Identity) IsAnonymous() bool { return id.Kind == KindAnonymous }

// IsUnknown reports whether no identity could be resolved.
func (id Identity) IsUnknown() bool { return id.Kind == KindUnknown }

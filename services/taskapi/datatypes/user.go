// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// User is a registered account.
//
// PasswordHash is tagged `json:"-"` so it can never leak through an API
// response; the storage layer marshals users with a private envelope that
// carries the hash explicitly.
type User struct {
	// ID is store-generated and immutable.
	ID string `json:"id"`

	// Email is unique across users.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-"`

	// AnonymousIdentifier records the identifier that was reconciled at
	// registration or login time. Bookkeeping only; never used for
	// lookups after reconciliation.
	AnonymousIdentifier string `json:"anonymousIdentifier,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

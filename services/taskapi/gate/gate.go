// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gate decides whether a resolved identity may act on a task.
//
// Decisions are pure functions of the identity and the task, returning
// sentinel errors the handlers map to HTTP statuses:
//
//   - ErrIdentificationMissing -> 400 (operation requires an identity)
//   - ErrForbidden             -> 403 (identity resolved, not the owner)
//
// Creation is always permitted (anonymous callers get an identifier
// minted at creation). Listing is always owner-scoped. Updates and
// deletes require an owner match; an id lookup alone never authorizes a
// mutation.
package gate

import (
	"errors"

	"github.com/traskapp/trask/services/taskapi/datatypes"
	"github.com/traskapp/trask/services/taskapi/identity"
)

// ErrIdentificationMissing means no identity was resolvable for an
// operation that requires one.
var ErrIdentificationMissing = errors.New("user identification missing")

// ErrForbidden means the identity resolved but does not own the task.
var ErrForbidden = errors.New("forbidden")

// AuthorizeList decides whether id may list tasks. Listing is owner-scoped,
// so an Unknown identity has nothing to list against.
func AuthorizeList(id identity.Identity) error {
	if id.IsUnknown() {
		return ErrIdentificationMissing
	}
	return nil
}

// AuthorizeMutation decides whether id may update or delete task.
func AuthorizeMutation(id identity.Identity, task *datatypes.Task) error {
	if Owns(id, task) {
		return nil
	}
	return ErrForbidden
}

// Owns reports whether id is the owner of task: an authenticated identity
// matching OwnerUserID, or an anonymous identity matching
// AnonymousIdentifier.
func Owns(id identity.Identity, task *datatypes.Task) bool {
	switch id.Kind {
	case identity.KindAuthenticated:
		return task.OwnerUserID != "" && task.OwnerUserID == id.UserID
	case identity.KindAnonymous:
		return task.AnonymousIdentifier != "" && task.AnonymousIdentifier == id.AnonymousID
	default:
		return false
	}
}

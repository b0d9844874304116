// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for user-provided values
// that reach the store or the credential layer. Validating at the boundary
// keeps malformed accounts out of the users collection and rejects bad
// registrations before any side effects happen.
package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// validate is the shared validator instance. The validator is safe for
// concurrent use and caches struct metadata, so one instance serves the
// whole process.
var validate = validator.New()

// ValidateEmail validates an email address format.
//
// Returns an error if the address is empty or not a plausible email per
// RFC 5322 heuristics.
//
// Example:
//
//	if err := validation.ValidateEmail(req.Email); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
//	    return
//	}
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if err := validate.Var(email, "email"); err != nil {
		return fmt.Errorf("invalid email address: %q", email)
	}
	return nil
}

// ValidatePassword enforces the password policy: at least
// MinPasswordLength characters, counted in bytes.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the Gin handlers for the task API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traskapp/trask/pkg/validation"
	"github.com/traskapp/trask/services/taskapi/auth"
	"github.com/traskapp/trask/services/taskapi/datatypes"
	"github.com/traskapp/trask/services/taskapi/identity"
	"github.com/traskapp/trask/services/taskapi/middleware"
	"github.com/traskapp/trask/services/taskapi/reconcile"
	"github.com/traskapp/trask/services/taskapi/storage"
)

// sessionCookieName is the HttpOnly cookie carrying the session token.
const sessionCookieName = "authToken"

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// anonymousCookie returns the caller's anonymous identifier cookie value,
// or empty string. Values not in minted identifier form are treated as
// absent; they never reach the reconciler or storage keys.
func anonymousCookie(c *gin.Context) string {
	value, err := c.Cookie(identity.CookieName)
	if err != nil || !identity.ValidIdentifier(value) {
		return ""
	}
	return value
}

// RegisterUser creates a new account. If the caller presented an anonymous
// identifier cookie, their tasks are migrated onto the account in the same
// store transaction, and the cookie is cleared only after that commits.
func RegisterUser(rec *reconcile.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
			return
		}
		if err := validation.ValidateEmail(req.Email); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
			return
		}
		if err := validation.ValidatePassword(req.Password); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			slog.Error("failed to hash password", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error registering user"})
			return
		}

		anonymousID := anonymousCookie(c)
		user := &datatypes.User{Email: req.Email, PasswordHash: hash}

		_, _, err = rec.RegisterClaiming(c.Request.Context(), user, anonymousID)
		if errors.Is(err, storage.ErrEmailInUse) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email is already in use"})
			return
		}
		if err != nil {
			slog.Error("failed to register user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error registering user"})
			return
		}

		// Ownership transfer is committed; sever the correlation.
		if anonymousID != "" {
			identity.ClearAnonymousCookie(c)
		}

		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
	}
}

// LoginUser authenticates a caller, reconciles any anonymous tasks onto
// the account, and issues a session token.
func LoginUser(store *storage.Store, tokens *auth.TokenManager, rec *reconcile.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
			return
		}

		user, err := store.GetUserByEmail(c.Request.Context(), req.Email)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Couldn't find an account associated with this email.",
			})
			return
		}
		if err != nil {
			slog.Error("failed to look up user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error logging in"})
			return
		}

		if !auth.CheckPassword(req.Password, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "That password was incorrect. Please try again.",
			})
			return
		}

		// Reconciliation failure fails the login: authenticating while
		// silently orphaning the caller's tasks is not an option.
		anonymousID := anonymousCookie(c)
		if _, err := rec.Reconcile(c.Request.Context(), anonymousID, user.ID); err != nil {
			slog.Error("failed to reconcile anonymous tasks", "error", err, "user_id", user.ID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error logging in"})
			return
		}
		if anonymousID != "" {
			identity.ClearAnonymousCookie(c)
		}

		token, err := tokens.Sign(user.ID)
		if err != nil {
			slog.Error("failed to sign session token", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error logging in"})
			return
		}

		c.SetCookie(sessionCookieName, token, int(tokens.TTL().Seconds()), "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// LogoutUser clears the session cookie.
func LogoutUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(sessionCookieName, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
	}
}

// CheckAuth reports authentication status. Identity resolution is
// permissive, so this endpoint never rejects; the client inspects the
// response body.
func CheckAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := middleware.GetIdentity(c)
		message := "Authenticated"
		if !id.IsAuthenticated() {
			message = "Not authenticated"
		}
		c.JSON(http.StatusOK, gin.H{
			"message":       message,
			"authenticated": id.IsAuthenticated(),
		})
	}
}

// GetProfile returns the authenticated caller's account, without the
// password hash.
func GetProfile(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := middleware.GetIdentity(c)
		if !id.IsAuthenticated() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		user, err := store.GetUser(c.Request.Context(), id.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			slog.Error("failed to fetch user profile", "error", err, "user_id", id.UserID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching user profile"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

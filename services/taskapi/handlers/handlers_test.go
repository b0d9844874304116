// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/traskapp/trask/services/taskapi/auth"
	"github.com/traskapp/trask/services/taskapi/identity"
	"github.com/traskapp/trask/services/taskapi/middleware"
	"github.com/traskapp/trask/services/taskapi/reconcile"
	"github.com/traskapp/trask/services/taskapi/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testEnv wires the handlers onto an in-memory store the way the routes
// package mounts them in production.
type testEnv struct {
	store  *storage.Store
	tokens *auth.TokenManager
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.Open(storage.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenManager("handlers-test-secret", 0)
	require.NoError(t, err)
	rec := reconcile.New(store, nil)

	router := gin.New()
	api := router.Group("/api")
	api.Use(middleware.IdentityMiddleware(tokens))

	users := api.Group("/users")
	users.POST("/register", RegisterUser(rec))
	users.POST("/login", LoginUser(store, tokens, rec))
	users.POST("/logout", LogoutUser())
	users.GET("/check-auth", CheckAuth())
	users.GET("/profile", GetProfile(store))

	tasks := api.Group("/tasks")
	tasks.GET("", GetAllTasks(store))
	tasks.GET("/:taskId", GetTaskByID(store))
	tasks.POST("", CreateTask(store, nil))
	tasks.PUT("/:taskId", UpdateTask(store))
	tasks.DELETE("/:taskId", DeleteTask(store))

	return &testEnv{store: store, tokens: tokens, router: router}
}

type reqOption func(*http.Request)

func withAnonCookie(id string) reqOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: identity.CookieName, Value: id})
	}
}

func withBearer(token string) reqOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// do performs a request against the router. A non-nil body is sent as JSON.
func (e *testEnv) do(t *testing.T, method, path string, body any, opts ...reqOption) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target))
}

// responseCookie finds a Set-Cookie by name, or nil.
func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

// registerAndLogin creates an account and returns a valid session token and
// the user ID it names.
func (e *testEnv) registerAndLogin(t *testing.T, email, password string) (token, userID string) {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/users/register",
		gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/users/login",
		gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)

	userID, err := e.tokens.Verify(resp.Token)
	require.NoError(t, err)
	return resp.Token, userID
}

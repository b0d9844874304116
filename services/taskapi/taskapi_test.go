// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package taskapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := New(Config{
		InMemory:  true,
		SecretKey: "service-test-secret",
		GinMode:   gin.TestMode,
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestNew_RequiresSecretKey(t *testing.T) {
	_, err := New(Config{InMemory: true})
	assert.Error(t, err)
}

func TestNew_WiresFullService(t *testing.T) {
	svc := newTestService(t)
	require.NotNil(t, svc.Router())
}

func TestService_HealthAndMetricsEndpoints(t *testing.T) {
	svc := newTestService(t)

	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "trask_taskapi_requests_total")
}

func TestNew_DisableSweep(t *testing.T) {
	svc, err := New(Config{
		InMemory:     true,
		SecretKey:    "service-test-secret",
		GinMode:      gin.TestMode,
		DisableSweep: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	assert.Nil(t, svc.(*service).sweeper, "disabled sweeper must never be started")
}

func TestNew_DisableMetrics(t *testing.T) {
	svc, err := New(Config{
		InMemory:       true,
		SecretKey:      "service-test-secret",
		GinMode:        gin.TestMode,
		DisableMetrics: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestService_CORSHeaders(t *testing.T) {
	svc, err := New(Config{
		InMemory:   true,
		SecretKey:  "service-test-secret",
		CORSOrigin: "http://localhost:3000",
		GinMode:    gin.TestMode,
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

// TestService_AnonymousToAccountFlow walks the full lifecycle: anonymous
// task creation, registration with migration, authenticated access.
func TestService_AnonymousToAccountFlow(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	post := func(path string, body gin.H, cookies ...*http.Cookie) *httptest.ResponseRecorder {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		for _, cookie := range cookies {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// First contact mints an identifier.
	w := post("/api/tasks", gin.H{"title": "anonymous task"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var anonCookie *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "anonymousIdentifier" {
			anonCookie = cookie
		}
	}
	require.NotNil(t, anonCookie)

	// Registration with the cookie migrates the task.
	w = post("/api/users/register",
		gin.H{"email": "flow@example.com", "password": "password123"}, anonCookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Login and list as the account.
	w = post("/api/users/login",
		gin.H{"email": "flow@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	list := httptest.NewRecorder()
	router.ServeHTTP(list, req)
	require.Equal(t, http.StatusOK, list.Code)

	var tasks []map[string]any
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "anonymous task", tasks[0]["title"])
	assert.NotEmpty(t, tasks[0]["ownerUserId"])
}

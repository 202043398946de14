// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Ayushhgupta39/seabuddy/seasync"
)

func newTestServer(t *testing.T) (*Server, *seasync.JWTAuth) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := seasync.NewSyncService(seasync.NewMemStore(), nil, logger)
	jwtAuth := seasync.NewJWTAuth("test-secret")
	return New(service, jwtAuth, logger, 0), jwtAuth
}

func TestServer_HealthNoAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}

func TestServer_SyncRoutesRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_SyncRoundTrip(t *testing.T) {
	srv, jwtAuth := newTestServer(t)
	token, err := jwtAuth.GenerateToken(uuid.New(), uuid.New(), seasync.RoleCrew, time.Hour)
	require.NoError(t, err)

	body := fmt.Sprintf(`{"deviceId":%q}`, uuid.New())
	r := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"success":true`)
}

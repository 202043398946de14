// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerEnv struct {
	handlers *HTTPSyncHandlers
	auth     *JWTAuth
	store    *MemStore
}

func newHandlerEnv(t *testing.T, maxBodyBytes int64) *handlerEnv {
	t.Helper()
	store := NewMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewSyncService(store, &ServiceConfig{AppName: "seabuddy-test"}, logger)
	auth := NewJWTAuth("test-secret")
	return &handlerEnv{
		handlers: NewHTTPSyncHandlers(service, auth, logger, maxBodyBytes),
		auth:     auth,
		store:    store,
	}
}

func (e *handlerEnv) token(t *testing.T, tenantID, userID uuid.UUID, role string) string {
	t.Helper()
	token, err := e.auth.GenerateToken(tenantID, userID, role, time.Hour)
	require.NoError(t, err)
	return token
}

func TestHandleSync_RequiresAuth(t *testing.T) {
	env := newHandlerEnv(t, 0)

	r := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	env.handlers.HandleSync(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.Error)
}

func TestHandleSync_MethodNotAllowed(t *testing.T) {
	env := newHandlerEnv(t, 0)

	r := httptest.NewRequest(http.MethodGet, "/api/sync", nil)
	w := httptest.NewRecorder()
	env.handlers.HandleSync(w, r)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleSync_BadJSON(t *testing.T) {
	env := newHandlerEnv(t, 0)
	token := env.token(t, uuid.New(), uuid.New(), RoleCrew)

	r := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{not json`))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.handlers.HandleSync(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSync_NonSequenceChanges(t *testing.T) {
	env := newHandlerEnv(t, 0)
	token := env.token(t, uuid.New(), uuid.New(), RoleCrew)

	body := fmt.Sprintf(`{"deviceId":%q,"changes":{"moodLogs":{"id":"x"}}}`, uuid.New())
	r := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.handlers.HandleSync(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSync_InvalidDeviceID(t *testing.T) {
	env := newHandlerEnv(t, 0)
	token := env.token(t, uuid.New(), uuid.New(), RoleCrew)

	r := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"deviceId":"nope"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.handlers.HandleSync(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSync_FullRoundTrip(t *testing.T) {
	env := newHandlerEnv(t, 0)
	tenantID := uuid.New()
	userID := uuid.New()
	token := env.token(t, tenantID, userID, RoleCrew)
	moodID := uuid.New()

	reqBody := fmt.Sprintf(`{
		"deviceId": %q,
		"changes": {
			"moodLogs": [{
				"id": %q,
				"mood": "good",
				"client_created_at": "2024-01-01T10:00:00Z"
			}]
		}
	}`, uuid.New(), moodID)

	r := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(reqBody))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.handlers.HandleSync(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Conflicts)
	assert.False(t, resp.LastSyncAt.IsZero())
	require.Len(t, resp.ServerChanges.MoodLogs, 1)
	assert.Equal(t, moodID, resp.ServerChanges.MoodLogs[0].ID)
	assert.Equal(t, tenantID, resp.ServerChanges.MoodLogs[0].TenantID)
	assert.Equal(t, userID, resp.ServerChanges.MoodLogs[0].UserID)

	// The raw body carries conflicts as a JSON array, never null.
	var shape map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shape))
	assert.True(t, bytes.HasPrefix(shape["conflicts"], []byte("[")))
}

func TestHandleSync_BodyTooLarge(t *testing.T) {
	env := newHandlerEnv(t, 256)
	token := env.token(t, uuid.New(), uuid.New(), RoleCrew)

	big := strings.Repeat("x", 1024)
	body := fmt.Sprintf(`{"deviceId":%q,"changes":{"moodLogs":[{"notes":%q}]}}`, uuid.New(), big)
	r := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.handlers.HandleSync(w, r)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandleStatus(t *testing.T) {
	env := newHandlerEnv(t, 0)
	tenantID := uuid.New()
	userID := uuid.New()
	token := env.token(t, tenantID, userID, RoleCrew)
	deviceID := uuid.New()

	// Sync once so cursor rows exist.
	syncBody := fmt.Sprintf(`{"deviceId":%q}`, deviceID)
	r := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(syncBody))
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.handlers.HandleSync(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/sync/status?deviceId="+deviceID.String(), nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	env.handlers.HandleStatus(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var status SyncStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, deviceID.String(), status.DeviceID)
	require.Len(t, status.Cursors, len(SyncedEntities))
}

func TestHandleStatus_RequiresDeviceID(t *testing.T) {
	env := newHandlerEnv(t, 0)
	token := env.token(t, uuid.New(), uuid.New(), RoleCrew)

	r := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.handlers.HandleStatus(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

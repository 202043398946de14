// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Authenticator produces the trusted actor tuple from an HTTP request.
// Implementations validate auth (e.g., JWT) and map claims to the actor.
type Authenticator interface {
	ActorFromRequest(r *http.Request) (Actor, error)
}

// HTTPSyncHandlers provides the HTTP handlers for the sync API.
type HTTPSyncHandlers struct {
	service       *SyncService
	authenticator Authenticator
	logger        *slog.Logger
	maxBodyBytes  int64
}

// NewHTTPSyncHandlers creates sync handlers. maxBodyBytes caps request
// bodies (0 = DefaultMaxBodyBytes); oversized requests fail with 413
// before reaching the merge engine.
func NewHTTPSyncHandlers(service *SyncService, authenticator Authenticator, logger *slog.Logger, maxBodyBytes int64) *HTTPSyncHandlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &HTTPSyncHandlers{
		service:       service,
		authenticator: authenticator,
		logger:        logger,
		maxBodyBytes:  maxBodyBytes,
	}
}

// HandleSync processes POST /api/sync.
func (h *HTTPSyncHandlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	actor, err := h.authenticator.ActorFromRequest(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "failed to parse sync request")
		return
	}

	response, err := h.service.ProcessSync(r.Context(), actor, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEnvelopeInvalid):
			h.writeError(w, http.StatusBadRequest, "invalid sync envelope")
		case errors.Is(err, ErrBatchTooLarge):
			h.writeError(w, http.StatusRequestEntityTooLarge, "batch too large")
		default:
			h.logger.Error("failed to process sync",
				"error", err, "tenant_id", actor.TenantID, "user_id", actor.UserID)
			h.writeError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode sync response", "error", err, "user_id", actor.UserID)
	}
}

// HandleStatus processes GET /api/sync/status?deviceId=<uuid>.
func (h *HTTPSyncHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	actor, err := h.authenticator.ActorFromRequest(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	deviceID, err := uuid.Parse(r.URL.Query().Get("deviceId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "deviceId must be a UUID")
		return
	}

	response, err := h.service.DeviceStatus(r.Context(), actor, deviceID)
	if err != nil {
		h.logger.Error("failed to read sync status",
			"error", err, "tenant_id", actor.TenantID, "device_id", deviceID)
		h.writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode status response", "error", err, "device_id", deviceID)
	}
}

// writeError writes the single external failure shape.
func (h *HTTPSyncHandlers) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: message})

	h.logger.Debug("HTTP error response", "status_code", statusCode, "message", message)
}

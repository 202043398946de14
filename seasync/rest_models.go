// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"encoding/json"
	"time"
)

// REST/JSON models for the sync API.
// Top-level envelope keys are camelCase to match the mobile clients;
// entity payloads inside the change arrays use the column names from
// db_models.go.

// SyncRequest is the body of POST /api/sync.
// Tenant, user and role are not part of the body; the authentication
// collaborator attaches them to the request.
type SyncRequest struct {
	DeviceID   string     `json:"deviceId"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
	Changes    ChangeSet  `json:"changes"`
}

// ChangeSet groups the client's locally-staged changes per entity.
// Changes stay raw here; the merge engine decodes and validates each one
// individually so a malformed change rejects alone, not the batch.
type ChangeSet struct {
	MoodLogs       []json.RawMessage `json:"moodLogs,omitempty"`
	JournalEntries []json.RawMessage `json:"journalEntries,omitempty"`
	CheckIns       []json.RawMessage `json:"checkIns,omitempty"`
}

// Count returns the total number of changes across all entities.
func (c *ChangeSet) Count() int {
	return len(c.MoodLogs) + len(c.JournalEntries) + len(c.CheckIns)
}

// SyncResponse is the body of a successful POST /api/sync.
// Conflicts is always empty: an inbound push that loses last-write-wins
// is silently dropped and the client converges from ServerChanges.
type SyncResponse struct {
	Success       bool             `json:"success"`
	ServerChanges ServerChanges    `json:"serverChanges"`
	Conflicts     []json.RawMessage `json:"conflicts"`
	Rejected      []RejectedChange `json:"rejected,omitempty"`
	LastSyncAt    time.Time        `json:"lastSyncAt"`
}

// ServerChanges carries the server-originated deltas of one sync window,
// ordered by updated_at ascending within each entity.
type ServerChanges struct {
	MoodLogs       []MoodLog      `json:"moodLogs"`
	JournalEntries []JournalEntry `json:"journalEntries"`
	CheckIns       []CheckIn      `json:"checkIns"`
	Resources      []Resource     `json:"resources"`
}

// RejectedChange reports a single change that failed validation and was
// skipped. The rest of the batch still applies.
type RejectedChange struct {
	Entity string `json:"entity"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// SyncStatusResponse is the body of GET /api/sync/status.
type SyncStatusResponse struct {
	DeviceID string       `json:"deviceId"`
	Cursors  []SyncCursor `json:"cursors"`
}

// ErrorResponse is the single external failure shape.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// emptyServerChanges returns a ServerChanges with non-nil slices so the
// response always serializes arrays, never null.
func emptyServerChanges() ServerChanges {
	return ServerChanges{
		MoodLogs:       []MoodLog{},
		JournalEntries: []JournalEntry{},
		CheckIns:       []CheckIn{},
		Resources:      []Resource{},
	}
}

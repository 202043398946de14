// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"time"

	"github.com/google/uuid"
)

// Database entity models for the sync-managed tables.
// The same structs serialize into serverChanges, so json tags follow the
// column names the mobile clients already store locally.

// SyncEnvelope carries the fields shared by every mutable user-owned
// entity. It gets embedded in each syncable type.
//
// Timestamp roles:
//   - ClientCreatedAt: device wall-clock at creation, set once from the
//     first push and never changed.
//   - CreatedAt / UpdatedAt: server wall-clock; UpdatedAt is the merge
//     ordering key for last-write-wins.
//   - SyncedAt: server wall-clock of the sync cycle that last touched
//     the row.
type SyncEnvelope struct {
	ID              uuid.UUID `db:"id" json:"id"`
	TenantID        uuid.UUID `db:"tenant_id" json:"tenant_id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	ClientCreatedAt time.Time `db:"client_created_at" json:"client_created_at"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
	SyncedAt        time.Time `db:"synced_at" json:"synced_at"`
	IsDeleted       bool      `db:"is_deleted" json:"is_deleted"`
}

// MoodLog is a single mood report from a crew member.
type MoodLog struct {
	SyncEnvelope
	Mood      string  `db:"mood" json:"mood"`
	Intensity *int    `db:"intensity" json:"intensity,omitempty"`
	Notes     *string `db:"notes" json:"notes,omitempty"`
}

// JournalEntry is a free-text journal record, private by default.
type JournalEntry struct {
	SyncEnvelope
	Title     *string `db:"title" json:"title,omitempty"`
	Content   string  `db:"content" json:"content"`
	Mood      *string `db:"mood" json:"mood,omitempty"`
	IsPrivate bool    `db:"is_private" json:"is_private"`
}

// CheckIn is a scheduled well-being check-in. Review fields are written
// by psychologists only; the merge engine drops them for other roles.
type CheckIn struct {
	SyncEnvelope
	ScheduledFor   time.Time      `db:"scheduled_for" json:"scheduled_for"`
	CompletedAt    *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	Mood           *string        `db:"mood" json:"mood,omitempty"`
	Responses      map[string]any `db:"responses" json:"responses,omitempty"`
	NeedsAttention bool           `db:"needs_attention" json:"needs_attention"`
	ReviewedBy     *uuid.UUID     `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNotes    *string        `db:"review_notes" json:"review_notes,omitempty"`
}

// Resource is a content library item. Read-only to the sync engine;
// authored by administrative paths. TenantID nil means global, visible
// to every tenant.
type Resource struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	TenantID         *uuid.UUID `db:"tenant_id" json:"tenant_id,omitempty"`
	Title            string     `db:"title" json:"title"`
	Type             string     `db:"type" json:"type"`
	Category         *string    `db:"category" json:"category,omitempty"`
	Tags             []string   `db:"tags" json:"tags"`
	IsPublished      bool       `db:"is_published" json:"is_published"`
	OfflineAvailable bool       `db:"offline_available" json:"offline_available"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// SyncCursor tracks replication progress for one
// {tenant, user, device, entity} combination. Created on first sync,
// updated in place thereafter.
type SyncCursor struct {
	TenantID     uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	DeviceID     uuid.UUID  `db:"device_id" json:"device_id"`
	Entity       string     `db:"entity" json:"entity"`
	LastSyncedAt time.Time  `db:"last_synced_at" json:"last_synced_at"`
	LastRecordID *uuid.UUID `db:"last_record_id" json:"last_record_id,omitempty"`
	SyncCursor   *string    `db:"sync_cursor" json:"sync_cursor,omitempty"`
}

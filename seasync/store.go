// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Actor is the trusted {tenant, user, role} tuple produced by the
// authentication collaborator. All data access is scoped by it.
type Actor struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     string
}

// CanReadTenantCheckIns reports whether the actor may read check-ins
// across users within their tenant. Mood logs and journal entries stay
// strictly user-scoped regardless of role.
func (a Actor) CanReadTenantCheckIns() bool {
	return a.Role == RoleAdmin || a.Role == RolePsychologist
}

// CanWriteReviewFields reports whether the actor may set check-in review
// fields (needs_attention, reviewed_by, reviewed_at, review_notes).
func (a Actor) CanWriteReviewFields() bool {
	return a.Role == RolePsychologist
}

// Store is the sole gateway to the backing store. One sync call runs
// entirely inside a single WithinTx invocation: all pushes commit
// together with the cursor update, and pulls observe the pushes just
// applied.
type Store interface {
	// WithinTx runs fn inside one transaction. A non-nil error from fn
	// rolls everything back and is returned unchanged.
	WithinTx(ctx context.Context, fn func(Tx) error) error
}

// Tx exposes the tenant-scoped data operations available inside a
// transaction. Every method binds a tenant; there is no way to build an
// unscoped query through this interface.
//
// Find* return ErrNotFound when no row matches within the tenant —
// including when the id exists under another tenant.
//
// Insert* stamp created_at, updated_at and synced_at from the supplied
// server clock; client_created_at comes from the row as validated.
//
// Update*IfNewer atomically apply the row's mutable attributes only if
// clientUpdatedAt is strictly newer than the stored updated_at, stamping
// updated_at and synced_at to now. They report whether the update
// applied. Identity fields (id, tenant_id, user_id, client_created_at,
// created_at) are never written by updates.
//
// List*UpdatedSince return rows with updated_at > since, tombstones
// included, ordered by updated_at ascending. limit 0 means no cap.
type Tx interface {
	FindMoodLog(ctx context.Context, tenantID, id uuid.UUID) (*MoodLog, error)
	InsertMoodLog(ctx context.Context, row *MoodLog, now time.Time) error
	UpdateMoodLogIfNewer(ctx context.Context, row *MoodLog, clientUpdatedAt, now time.Time) (bool, error)
	ListMoodLogsUpdatedSince(ctx context.Context, tenantID, userID uuid.UUID, since time.Time, limit int) ([]MoodLog, error)

	FindJournalEntry(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)
	InsertJournalEntry(ctx context.Context, row *JournalEntry, now time.Time) error
	UpdateJournalEntryIfNewer(ctx context.Context, row *JournalEntry, clientUpdatedAt, now time.Time) (bool, error)
	ListJournalEntriesUpdatedSince(ctx context.Context, tenantID, userID uuid.UUID, since time.Time, limit int) ([]JournalEntry, error)

	FindCheckIn(ctx context.Context, tenantID, id uuid.UUID) (*CheckIn, error)
	InsertCheckIn(ctx context.Context, row *CheckIn, now time.Time) error
	UpdateCheckInIfNewer(ctx context.Context, row *CheckIn, clientUpdatedAt, now time.Time) (bool, error)
	// ListCheckInsUpdatedSince filters by user when userID is non-nil
	// (crew callers); a nil userID lists tenant-wide (admin/psychologist).
	ListCheckInsUpdatedSince(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, since time.Time, limit int) ([]CheckIn, error)

	// ListResourcesUpdatedSince returns published resources visible to the
	// tenant: rows with tenant_id = tenantID or tenant_id null (global).
	ListResourcesUpdatedSince(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]Resource, error)

	// InsertResource serves the administrative authoring path; the sync
	// engine itself only reads resources.
	InsertResource(ctx context.Context, row *Resource, now time.Time) error

	UpsertCursor(ctx context.Context, cursor *SyncCursor) error
	GetCursors(ctx context.Context, tenantID, userID, deviceID uuid.UUID) ([]SyncCursor, error)
}

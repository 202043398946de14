// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sync cursor manager: one cursor row per {tenant, user, device, entity}.
//
// The per-entity grain is a forward-compatibility hook. The wire format
// carries a single lastSyncAt; a later refinement to per-entity since
// values changes only how the pull planner reads these rows.

// advanceCursors upserts last_synced_at = now for every synced entity at
// the tail of a successful sync. Runs inside the sync transaction so a
// rolled-back sync leaves the cursors untouched.
func (s *SyncService) advanceCursors(ctx context.Context, tx Tx, actor Actor, deviceID uuid.UUID, now time.Time) error {
	for _, entity := range SyncedEntities {
		cursor := &SyncCursor{
			TenantID:     actor.TenantID,
			UserID:       actor.UserID,
			DeviceID:     deviceID,
			Entity:       entity,
			LastSyncedAt: now,
		}
		if err := tx.UpsertCursor(ctx, cursor); err != nil {
			return fmt.Errorf("upsert %s cursor: %w", entity, err)
		}
	}
	return nil
}

// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"context"
	"fmt"
	"time"
)

// Pull planner: enumerates server-originated deltas for the sync window
// (since, now]. Lists run inside the same transaction as the pushes so
// the client sees its own just-applied changes with server timestamps.
//
// Rows come back ordered by updated_at ascending within each entity so
// clients can checkpoint partial progress. Tombstones are included;
// that is what lets a device that missed the create still apply the
// delete.
func (s *SyncService) planPull(ctx context.Context, tx Tx, actor Actor, since time.Time) (ServerChanges, error) {
	changes := emptyServerChanges()
	limit := s.config.MaxPullRows

	moods, err := tx.ListMoodLogsUpdatedSince(ctx, actor.TenantID, actor.UserID, since, limit)
	if err != nil {
		return changes, fmt.Errorf("list mood logs: %w", err)
	}
	changes.MoodLogs = moods

	journals, err := tx.ListJournalEntriesUpdatedSince(ctx, actor.TenantID, actor.UserID, since, limit)
	if err != nil {
		return changes, fmt.Errorf("list journal entries: %w", err)
	}
	changes.JournalEntries = journals

	// Crew pull their own check-ins; reviewer roles pull tenant-wide.
	userScope := &actor.UserID
	if actor.CanReadTenantCheckIns() {
		userScope = nil
	}
	checkIns, err := tx.ListCheckInsUpdatedSince(ctx, actor.TenantID, userScope, since, limit)
	if err != nil {
		return changes, fmt.Errorf("list check-ins: %w", err)
	}
	changes.CheckIns = checkIns

	resources, err := tx.ListResourcesUpdatedSince(ctx, actor.TenantID, since, limit)
	if err != nil {
		return changes, fmt.Errorf("list resources: %w", err)
	}
	changes.Resources = resources

	if limit > 0 {
		for _, n := range []int{len(moods), len(journals), len(checkIns), len(resources)} {
			if n == limit {
				s.logger.Warn("pull delta hit row cap; client will catch up next cycle",
					"tenant_id", actor.TenantID, "user_id", actor.UserID, "limit", limit)
				break
			}
		}
	}

	return changes, nil
}

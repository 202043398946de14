// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func insertMoodLog(t *testing.T, store *MemStore, tenantID, userID uuid.UUID, now time.Time) *MoodLog {
	t.Helper()
	row := &MoodLog{
		SyncEnvelope: SyncEnvelope{
			ID:              uuid.New(),
			TenantID:        tenantID,
			UserID:          userID,
			ClientCreatedAt: now.Add(-time.Hour),
		},
		Mood: MoodOkay,
	}
	err := store.WithinTx(context.Background(), func(tx Tx) error {
		return tx.InsertMoodLog(context.Background(), row, now)
	})
	require.NoError(t, err)
	return row
}

func TestMemStore_FindIsTenantScoped(t *testing.T) {
	store := NewMemStore()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	row := insertMoodLog(t, store, tenant1, userA, now)

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		found, err := tx.FindMoodLog(context.Background(), tenant1, row.ID)
		require.NoError(t, err)
		require.Equal(t, row.ID, found.ID)
		require.Equal(t, now, found.CreatedAt)
		require.Equal(t, now, found.UpdatedAt)
		require.Equal(t, now, found.SyncedAt)

		// Same id under another tenant reports not-found, never forbidden.
		_, err = tx.FindMoodLog(context.Background(), tenant2, row.ID)
		require.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestMemStore_UpdateIfNewer(t *testing.T) {
	store := NewMemStore()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	row := insertMoodLog(t, store, tenant1, userA, t0)

	t1 := t0.Add(time.Hour)
	err := store.WithinTx(context.Background(), func(tx Tx) error {
		update := *row
		update.Mood = MoodTerrible

		// Client timestamp not newer than stored updated_at: no-op.
		applied, err := tx.UpdateMoodLogIfNewer(context.Background(), &update, t0, t1)
		require.NoError(t, err)
		require.False(t, applied)

		stored, err := tx.FindMoodLog(context.Background(), tenant1, row.ID)
		require.NoError(t, err)
		require.Equal(t, MoodOkay, stored.Mood)

		// Strictly newer: applies and stamps the server clock.
		applied, err = tx.UpdateMoodLogIfNewer(context.Background(), &update, t0.Add(time.Minute), t1)
		require.NoError(t, err)
		require.True(t, applied)

		stored, err = tx.FindMoodLog(context.Background(), tenant1, row.ID)
		require.NoError(t, err)
		require.Equal(t, MoodTerrible, stored.Mood)
		require.Equal(t, t1, stored.UpdatedAt)
		require.Equal(t, t1, stored.SyncedAt)
		// Identity and creation stamps never move.
		require.Equal(t, t0, stored.CreatedAt)
		require.Equal(t, row.ClientCreatedAt, stored.ClientCreatedAt)
		return nil
	})
	require.NoError(t, err)
}

func TestMemStore_RollbackDiscardsWrites(t *testing.T) {
	store := NewMemStore()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	id := uuid.New()
	err := store.WithinTx(context.Background(), func(tx Tx) error {
		row := &MoodLog{
			SyncEnvelope: SyncEnvelope{ID: id, TenantID: tenant1, UserID: userA, ClientCreatedAt: now},
			Mood:         MoodGood,
		}
		require.NoError(t, tx.InsertMoodLog(context.Background(), row, now))
		require.NoError(t, tx.UpsertCursor(context.Background(), &SyncCursor{
			TenantID: tenant1, UserID: userA, DeviceID: deviceA, Entity: EntityMoodLog, LastSyncedAt: now,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Neither the row nor the cursor survived the rollback.
	err = store.WithinTx(context.Background(), func(tx Tx) error {
		_, err := tx.FindMoodLog(context.Background(), tenant1, id)
		require.ErrorIs(t, err, ErrNotFound)
		cursors, err := tx.GetCursors(context.Background(), tenant1, userA, deviceA)
		require.NoError(t, err)
		require.Empty(t, cursors)
		return nil
	})
	require.NoError(t, err)
}

func TestMemStore_ListUpdatedSince(t *testing.T) {
	store := NewMemStore()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	var rows []*MoodLog
	for i := 0; i < 3; i++ {
		rows = append(rows, insertMoodLog(t, store, tenant1, userA, base.Add(time.Duration(i)*time.Minute)))
	}
	insertMoodLog(t, store, tenant1, userB, base)  // other user
	insertMoodLog(t, store, tenant2, userA, base)  // other tenant

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		// since is exclusive: a row updated exactly at since stays out.
		listed, err := tx.ListMoodLogsUpdatedSince(context.Background(), tenant1, userA, base, 0)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		require.Equal(t, rows[1].ID, listed[0].ID)
		require.Equal(t, rows[2].ID, listed[1].ID)

		// Epoch since returns everything, oldest first.
		listed, err = tx.ListMoodLogsUpdatedSince(context.Background(), tenant1, userA, time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		require.True(t, listed[0].UpdatedAt.Before(listed[2].UpdatedAt))

		// Limit caps the page.
		listed, err = tx.ListMoodLogsUpdatedSince(context.Background(), tenant1, userA, time.Time{}, 2)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestMemStore_CheckInListWidensForReviewers(t *testing.T) {
	store := NewMemStore()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	seed := func(userID uuid.UUID) {
		err := store.WithinTx(context.Background(), func(tx Tx) error {
			return tx.InsertCheckIn(context.Background(), &CheckIn{
				SyncEnvelope: SyncEnvelope{ID: uuid.New(), TenantID: tenant1, UserID: userID, ClientCreatedAt: now},
				ScheduledFor: now.Add(24 * time.Hour),
			}, now)
		})
		require.NoError(t, err)
	}
	seed(userA)
	seed(userB)

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		own, err := tx.ListCheckInsUpdatedSince(context.Background(), tenant1, &userA, time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, own, 1)

		all, err := tx.ListCheckInsUpdatedSince(context.Background(), tenant1, nil, time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, all, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestMemStore_ResourceVisibility(t *testing.T) {
	store := NewMemStore()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	seed := func(tenantID *uuid.UUID, published bool) uuid.UUID {
		id := uuid.New()
		err := store.WithinTx(context.Background(), func(tx Tx) error {
			return tx.InsertResource(context.Background(), &Resource{
				ID: id, TenantID: tenantID, Title: "r", Type: ResourceArticle,
				Tags: []string{}, IsPublished: published,
			}, now)
		})
		require.NoError(t, err)
		return id
	}

	globalID := seed(nil, true)
	tenant1ID := seed(&tenant1, true)
	seed(&tenant2, true)
	seed(nil, false) // unpublished global

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		listed, err := tx.ListResourcesUpdatedSince(context.Background(), tenant1, time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		ids := []uuid.UUID{listed[0].ID, listed[1].ID}
		require.Contains(t, ids, globalID)
		require.Contains(t, ids, tenant1ID)
		return nil
	})
	require.NoError(t, err)
}

func TestMemStore_CursorUpsertInPlace(t *testing.T) {
	store := NewMemStore()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	write := func(at time.Time) {
		err := store.WithinTx(context.Background(), func(tx Tx) error {
			return tx.UpsertCursor(context.Background(), &SyncCursor{
				TenantID: tenant1, UserID: userA, DeviceID: deviceA,
				Entity: EntityJournalEntry, LastSyncedAt: at,
			})
		})
		require.NoError(t, err)
	}
	write(t0)
	write(t1)

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		cursors, err := tx.GetCursors(context.Background(), tenant1, userA, deviceA)
		require.NoError(t, err)
		require.Len(t, cursors, 1)
		require.Equal(t, t1, cursors[0].LastSyncedAt)
		return nil
	})
	require.NoError(t, err)
}

// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Merge engine: applies one entity's batch of pushed changes.
//
// Identity reconciliation is a lookup by id within tenant scope. The
// client-minted id is the canonical server id, so a retried push is
// idempotent: not-found routes to insert, found routes to
// update-if-newer. Last-write-wins on updated_at decides whether an
// update applies; a losing payload is silently discarded and the stored
// row surfaces during pull.
//
// Authorization violations (cross-user pushes, review fields from
// non-psychologists) are silently dropped so clients cannot probe policy
// or row existence through errors.

// canMutateRow reports whether the actor may mutate an existing row
// owned by ownerID. Check-ins widen to tenant scope for reviewer roles;
// everything else is strictly owner-only.
func (a Actor) canMutateRow(ownerID uuid.UUID, entity string) bool {
	if ownerID == a.UserID {
		return true
	}
	return entity == EntityCheckIn && a.CanReadTenantCheckIns()
}

func (s *SyncService) pushMoodLogs(ctx context.Context, tx Tx, actor Actor, raws []json.RawMessage, now time.Time) ([]RejectedChange, error) {
	var rejected []RejectedChange
	for _, raw := range raws {
		ch, reason, err := decodeMoodLogChange(raw)
		if err != nil {
			s.logger.Debug("rejecting mood log change", "reason", reason, "error", err)
			rejected = append(rejected, RejectedChange{Entity: EntityMoodLog, ID: changeID(raw), Reason: reason})
			continue
		}

		existing, err := tx.FindMoodLog(ctx, actor.TenantID, ch.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			row := &MoodLog{
				SyncEnvelope: SyncEnvelope{
					ID:              ch.ID,
					TenantID:        actor.TenantID,
					UserID:          actor.UserID,
					ClientCreatedAt: ch.ClientCreatedAt,
					IsDeleted:       ch.IsDeleted,
				},
				Mood:      ch.Mood,
				Intensity: ch.Intensity,
				Notes:     ch.Notes,
			}
			if err := tx.InsertMoodLog(ctx, row, now); err != nil {
				return nil, fmt.Errorf("insert mood log %s: %w", ch.ID, err)
			}
		case err != nil:
			return nil, fmt.Errorf("find mood log %s: %w", ch.ID, err)
		default:
			if !actor.canMutateRow(existing.UserID, EntityMoodLog) {
				continue
			}
			row := *existing
			row.IsDeleted = ch.IsDeleted
			row.Mood = ch.Mood
			row.Intensity = ch.Intensity
			row.Notes = ch.Notes
			if _, err := tx.UpdateMoodLogIfNewer(ctx, &row, ch.clientUpdatedAt(), now); err != nil {
				return nil, fmt.Errorf("update mood log %s: %w", ch.ID, err)
			}
		}
	}
	return rejected, nil
}

func (s *SyncService) pushJournalEntries(ctx context.Context, tx Tx, actor Actor, raws []json.RawMessage, now time.Time) ([]RejectedChange, error) {
	var rejected []RejectedChange
	for _, raw := range raws {
		ch, reason, err := decodeJournalEntryChange(raw)
		if err != nil {
			s.logger.Debug("rejecting journal entry change", "reason", reason, "error", err)
			rejected = append(rejected, RejectedChange{Entity: EntityJournalEntry, ID: changeID(raw), Reason: reason})
			continue
		}

		existing, err := tx.FindJournalEntry(ctx, actor.TenantID, ch.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			row := &JournalEntry{
				SyncEnvelope: SyncEnvelope{
					ID:              ch.ID,
					TenantID:        actor.TenantID,
					UserID:          actor.UserID,
					ClientCreatedAt: ch.ClientCreatedAt,
					IsDeleted:       ch.IsDeleted,
				},
				Title:     ch.Title,
				Content:   ch.Content,
				Mood:      ch.Mood,
				IsPrivate: ch.IsPrivate,
			}
			if err := tx.InsertJournalEntry(ctx, row, now); err != nil {
				return nil, fmt.Errorf("insert journal entry %s: %w", ch.ID, err)
			}
		case err != nil:
			return nil, fmt.Errorf("find journal entry %s: %w", ch.ID, err)
		default:
			if !actor.canMutateRow(existing.UserID, EntityJournalEntry) {
				continue
			}
			row := *existing
			row.IsDeleted = ch.IsDeleted
			row.Title = ch.Title
			row.Content = ch.Content
			row.Mood = ch.Mood
			row.IsPrivate = ch.IsPrivate
			if _, err := tx.UpdateJournalEntryIfNewer(ctx, &row, ch.clientUpdatedAt(), now); err != nil {
				return nil, fmt.Errorf("update journal entry %s: %w", ch.ID, err)
			}
		}
	}
	return rejected, nil
}

func (s *SyncService) pushCheckIns(ctx context.Context, tx Tx, actor Actor, raws []json.RawMessage, now time.Time) ([]RejectedChange, error) {
	var rejected []RejectedChange
	for _, raw := range raws {
		ch, reason, err := decodeCheckInChange(raw)
		if err != nil {
			s.logger.Debug("rejecting check-in change", "reason", reason, "error", err)
			rejected = append(rejected, RejectedChange{Entity: EntityCheckIn, ID: changeID(raw), Reason: reason})
			continue
		}

		existing, err := tx.FindCheckIn(ctx, actor.TenantID, ch.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			row := &CheckIn{
				SyncEnvelope: SyncEnvelope{
					ID:              ch.ID,
					TenantID:        actor.TenantID,
					UserID:          actor.UserID,
					ClientCreatedAt: ch.ClientCreatedAt,
					IsDeleted:       ch.IsDeleted,
				},
				ScheduledFor: ch.ScheduledFor,
				CompletedAt:  ch.CompletedAt,
				Mood:         ch.Mood,
				Responses:    ch.Responses,
			}
			applyReviewFields(row, ch, actor)
			if err := tx.InsertCheckIn(ctx, row, now); err != nil {
				return nil, fmt.Errorf("insert check-in %s: %w", ch.ID, err)
			}
		case err != nil:
			return nil, fmt.Errorf("find check-in %s: %w", ch.ID, err)
		default:
			if !actor.canMutateRow(existing.UserID, EntityCheckIn) {
				continue
			}
			row := *existing
			row.IsDeleted = ch.IsDeleted
			row.ScheduledFor = ch.ScheduledFor
			row.CompletedAt = ch.CompletedAt
			row.Mood = ch.Mood
			row.Responses = ch.Responses
			applyReviewFields(&row, ch, actor)
			if _, err := tx.UpdateCheckInIfNewer(ctx, &row, ch.clientUpdatedAt(), now); err != nil {
				return nil, fmt.Errorf("update check-in %s: %w", ch.ID, err)
			}
		}
	}
	return rejected, nil
}

// applyReviewFields overlays the review fields from a pushed change onto
// row when the actor's role permits. For everyone else the pushed values
// are dropped without trace: inserts keep zero values, updates keep the
// stored ones.
func applyReviewFields(row *CheckIn, ch *checkInChange, actor Actor) {
	if !actor.CanWriteReviewFields() {
		return
	}
	if ch.NeedsAttention != nil {
		row.NeedsAttention = *ch.NeedsAttention
	}
	if ch.ReviewedBy != nil {
		row.ReviewedBy = ch.ReviewedBy
	}
	if ch.ReviewedAt != nil {
		row.ReviewedAt = ch.ReviewedAt
	}
	if ch.ReviewNotes != nil {
		row.ReviewNotes = ch.ReviewNotes
	}
}

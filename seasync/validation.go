// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Per-change validation. Each pushed change decodes and validates on its
// own; a failure rejects that change only and the batch continues.
//
// A change payload is the full entity state as the device stores it.
// Identity fields the client cannot control (tenant_id, user_id,
// created_at, synced_at) are deliberately absent from the wire structs:
// whatever the client sends for them is ignored.

const maxJournalTitleLen = 500

// changeMeta is the decoded common part of any pushed change.
type changeMeta struct {
	ID              uuid.UUID
	ClientCreatedAt time.Time
	UpdatedAt       *time.Time
	IsDeleted       bool
}

// clientUpdatedAt is the client-side merge timestamp: updated_at when
// supplied, client_created_at otherwise.
func (m *changeMeta) clientUpdatedAt() time.Time {
	if m.UpdatedAt != nil {
		return *m.UpdatedAt
	}
	return m.ClientCreatedAt
}

type wireEnvelope struct {
	ID              *string    `json:"id"`
	ClientCreatedAt *time.Time `json:"client_created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
	IsDeleted       *bool      `json:"is_deleted"`
}

// decodeMeta validates the common envelope of a change. The returned
// reason is one of the Reason* constants when validation fails.
func decodeMeta(env *wireEnvelope) (*changeMeta, string, error) {
	if env.ID == nil || *env.ID == "" {
		return nil, ReasonMissingID, fmt.Errorf("%w: change id is required", ErrBadPayload)
	}
	id, err := uuid.Parse(*env.ID)
	if err != nil {
		return nil, ReasonBadPayload, fmt.Errorf("%w: invalid change id %q", ErrBadPayload, *env.ID)
	}
	if env.ClientCreatedAt == nil {
		return nil, ReasonMissingCreatedAt, fmt.Errorf("%w: client_created_at is required", ErrBadPayload)
	}
	meta := &changeMeta{
		ID:              id,
		ClientCreatedAt: env.ClientCreatedAt.UTC(),
		IsDeleted:       env.IsDeleted != nil && *env.IsDeleted,
	}
	if env.UpdatedAt != nil {
		at := env.UpdatedAt.UTC()
		meta.UpdatedAt = &at
	}
	return meta, "", nil
}

type moodLogChange struct {
	changeMeta
	Mood      string
	Intensity *int
	Notes     *string
}

type moodLogWire struct {
	wireEnvelope
	Mood      *string `json:"mood"`
	Intensity *int    `json:"intensity"`
	Notes     *string `json:"notes"`
}

func decodeMoodLogChange(raw json.RawMessage) (*moodLogChange, string, error) {
	var w moodLogWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, ReasonBadPayload, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	meta, reason, err := decodeMeta(&w.wireEnvelope)
	if err != nil {
		return nil, reason, err
	}
	if w.Mood == nil || !ValidMood(*w.Mood) {
		return nil, ReasonBadPayload, fmt.Errorf("%w: unknown mood value", ErrBadPayload)
	}
	if w.Intensity != nil && (*w.Intensity < 1 || *w.Intensity > 10) {
		return nil, ReasonBadPayload, fmt.Errorf("%w: intensity out of range [1,10]", ErrBadPayload)
	}
	return &moodLogChange{
		changeMeta: *meta,
		Mood:       *w.Mood,
		Intensity:  w.Intensity,
		Notes:      w.Notes,
	}, "", nil
}

type journalEntryChange struct {
	changeMeta
	Title     *string
	Content   string
	Mood      *string
	IsPrivate bool
}

type journalEntryWire struct {
	wireEnvelope
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Mood      *string `json:"mood"`
	IsPrivate *bool   `json:"is_private"`
}

func decodeJournalEntryChange(raw json.RawMessage) (*journalEntryChange, string, error) {
	var w journalEntryWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, ReasonBadPayload, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	meta, reason, err := decodeMeta(&w.wireEnvelope)
	if err != nil {
		return nil, reason, err
	}
	if w.Content == nil || *w.Content == "" {
		return nil, ReasonBadPayload, fmt.Errorf("%w: content is required", ErrBadPayload)
	}
	if w.Title != nil && utf8.RuneCountInString(*w.Title) > maxJournalTitleLen {
		return nil, ReasonBadPayload, fmt.Errorf("%w: title longer than %d chars", ErrBadPayload, maxJournalTitleLen)
	}
	if w.Mood != nil && !ValidMood(*w.Mood) {
		return nil, ReasonBadPayload, fmt.Errorf("%w: unknown mood value", ErrBadPayload)
	}
	// Journals default to private unless the device says otherwise.
	isPrivate := true
	if w.IsPrivate != nil {
		isPrivate = *w.IsPrivate
	}
	return &journalEntryChange{
		changeMeta: *meta,
		Title:      w.Title,
		Content:    *w.Content,
		Mood:       w.Mood,
		IsPrivate:  isPrivate,
	}, "", nil
}

type checkInChange struct {
	changeMeta
	ScheduledFor time.Time
	CompletedAt  *time.Time
	Mood         *string
	Responses    map[string]any

	// Review fields: applied only for psychologist callers, silently
	// dropped otherwise.
	NeedsAttention *bool
	ReviewedBy     *uuid.UUID
	ReviewedAt     *time.Time
	ReviewNotes    *string
}

type checkInWire struct {
	wireEnvelope
	ScheduledFor   *time.Time     `json:"scheduled_for"`
	CompletedAt    *time.Time     `json:"completed_at"`
	Mood           *string        `json:"mood"`
	Responses      map[string]any `json:"responses"`
	NeedsAttention *bool          `json:"needs_attention"`
	ReviewedBy     *string        `json:"reviewed_by"`
	ReviewedAt     *time.Time     `json:"reviewed_at"`
	ReviewNotes    *string        `json:"review_notes"`
}

func decodeCheckInChange(raw json.RawMessage) (*checkInChange, string, error) {
	var w checkInWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, ReasonBadPayload, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	meta, reason, err := decodeMeta(&w.wireEnvelope)
	if err != nil {
		return nil, reason, err
	}
	if w.ScheduledFor == nil {
		return nil, ReasonBadPayload, fmt.Errorf("%w: scheduled_for is required", ErrBadPayload)
	}
	if w.Mood != nil && !ValidMood(*w.Mood) {
		return nil, ReasonBadPayload, fmt.Errorf("%w: unknown mood value", ErrBadPayload)
	}
	ch := &checkInChange{
		changeMeta:     *meta,
		ScheduledFor:   w.ScheduledFor.UTC(),
		CompletedAt:    w.CompletedAt,
		Mood:           w.Mood,
		Responses:      w.Responses,
		NeedsAttention: w.NeedsAttention,
		ReviewedAt:     w.ReviewedAt,
		ReviewNotes:    w.ReviewNotes,
	}
	if w.ReviewedBy != nil {
		rb, err := uuid.Parse(*w.ReviewedBy)
		if err != nil {
			return nil, ReasonBadPayload, fmt.Errorf("%w: invalid reviewed_by", ErrBadPayload)
		}
		ch.ReviewedBy = &rb
	}
	return ch, "", nil
}

// changeID extracts the raw id string from an undecodable change for
// rejection reporting. Best effort; empty when even that fails.
func changeID(raw json.RawMessage) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.ID
}

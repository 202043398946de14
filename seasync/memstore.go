// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store implementation. It backs the test
// suites and embedded deployments without a relational backend; the
// Postgres implementation carries the same semantics in SQL.
//
// Transactions are copy-on-write: WithinTx clones the state, runs fn
// against the clone, and swaps it in on success. An error discards the
// clone, so all pushes and the cursor update commit together or not at
// all — the same all-or-nothing contract PgStore gets from Postgres.
type MemStore struct {
	mu    sync.Mutex
	state *memState
}

// rowKey scopes every row by tenant. Two tenants can hold rows with the
// same id; within one tenant the id is canonical.
type rowKey struct {
	tenantID uuid.UUID
	id       uuid.UUID
}

// cursorKey identifies one {tenant, user, device, entity} cursor row.
type cursorKey struct {
	tenantID uuid.UUID
	userID   uuid.UUID
	deviceID uuid.UUID
	entity   string
}

type memState struct {
	moodLogs       map[rowKey]MoodLog
	journalEntries map[rowKey]JournalEntry
	checkIns       map[rowKey]CheckIn
	resources      map[rowKey]Resource
	cursors        map[cursorKey]SyncCursor
}

func newMemState() *memState {
	return &memState{
		moodLogs:       make(map[rowKey]MoodLog),
		journalEntries: make(map[rowKey]JournalEntry),
		checkIns:       make(map[rowKey]CheckIn),
		resources:      make(map[rowKey]Resource),
		cursors:        make(map[cursorKey]SyncCursor),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.moodLogs {
		c.moodLogs[k] = v
	}
	for k, v := range s.journalEntries {
		c.journalEntries[k] = v
	}
	for k, v := range s.checkIns {
		c.checkIns[k] = v
	}
	for k, v := range s.resources {
		c.resources[k] = v
	}
	for k, v := range s.cursors {
		c.cursors[k] = v
	}
	return c
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{state: newMemState()}
}

// WithinTx implements Store.
func (s *MemStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&memTx{state: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

type memTx struct {
	state *memState
}

// resourceKey maps a nullable resource tenant to a rowKey; global
// resources live under the nil tenant.
func resourceKey(tenantID *uuid.UUID, id uuid.UUID) rowKey {
	k := rowKey{id: id}
	if tenantID != nil {
		k.tenantID = *tenantID
	}
	return k
}

func stampInsert(env *SyncEnvelope, now time.Time) {
	env.CreatedAt = now
	env.UpdatedAt = now
	env.SyncedAt = now
}

// Mood logs

func (t *memTx) FindMoodLog(_ context.Context, tenantID, id uuid.UUID) (*MoodLog, error) {
	row, ok := t.state.moodLogs[rowKey{tenantID, id}]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (t *memTx) InsertMoodLog(_ context.Context, row *MoodLog, now time.Time) error {
	k := rowKey{row.TenantID, row.ID}
	if _, ok := t.state.moodLogs[k]; ok {
		return fmt.Errorf("mood log %s already exists", row.ID)
	}
	r := *row
	stampInsert(&r.SyncEnvelope, now)
	t.state.moodLogs[k] = r
	return nil
}

func (t *memTx) UpdateMoodLogIfNewer(_ context.Context, row *MoodLog, clientUpdatedAt, now time.Time) (bool, error) {
	k := rowKey{row.TenantID, row.ID}
	stored, ok := t.state.moodLogs[k]
	if !ok {
		return false, ErrNotFound
	}
	if !clientUpdatedAt.After(stored.UpdatedAt) {
		return false, nil
	}
	next := *row
	next.SyncEnvelope = stored.SyncEnvelope
	next.IsDeleted = row.IsDeleted
	next.UpdatedAt = now
	next.SyncedAt = now
	t.state.moodLogs[k] = next
	return true, nil
}

func (t *memTx) ListMoodLogsUpdatedSince(_ context.Context, tenantID, userID uuid.UUID, since time.Time, limit int) ([]MoodLog, error) {
	rows := []MoodLog{}
	for k, row := range t.state.moodLogs {
		if k.tenantID == tenantID && row.UserID == userID && row.UpdatedAt.After(since) {
			rows = append(rows, row)
		}
	}
	sortByUpdatedAt(rows, func(r MoodLog) (time.Time, uuid.UUID) { return r.UpdatedAt, r.ID })
	return capRows(rows, limit), nil
}

// Journal entries

func (t *memTx) FindJournalEntry(_ context.Context, tenantID, id uuid.UUID) (*JournalEntry, error) {
	row, ok := t.state.journalEntries[rowKey{tenantID, id}]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (t *memTx) InsertJournalEntry(_ context.Context, row *JournalEntry, now time.Time) error {
	k := rowKey{row.TenantID, row.ID}
	if _, ok := t.state.journalEntries[k]; ok {
		return fmt.Errorf("journal entry %s already exists", row.ID)
	}
	r := *row
	stampInsert(&r.SyncEnvelope, now)
	t.state.journalEntries[k] = r
	return nil
}

func (t *memTx) UpdateJournalEntryIfNewer(_ context.Context, row *JournalEntry, clientUpdatedAt, now time.Time) (bool, error) {
	k := rowKey{row.TenantID, row.ID}
	stored, ok := t.state.journalEntries[k]
	if !ok {
		return false, ErrNotFound
	}
	if !clientUpdatedAt.After(stored.UpdatedAt) {
		return false, nil
	}
	next := *row
	next.SyncEnvelope = stored.SyncEnvelope
	next.IsDeleted = row.IsDeleted
	next.UpdatedAt = now
	next.SyncedAt = now
	t.state.journalEntries[k] = next
	return true, nil
}

func (t *memTx) ListJournalEntriesUpdatedSince(_ context.Context, tenantID, userID uuid.UUID, since time.Time, limit int) ([]JournalEntry, error) {
	rows := []JournalEntry{}
	for k, row := range t.state.journalEntries {
		if k.tenantID == tenantID && row.UserID == userID && row.UpdatedAt.After(since) {
			rows = append(rows, row)
		}
	}
	sortByUpdatedAt(rows, func(r JournalEntry) (time.Time, uuid.UUID) { return r.UpdatedAt, r.ID })
	return capRows(rows, limit), nil
}

// Check-ins

func (t *memTx) FindCheckIn(_ context.Context, tenantID, id uuid.UUID) (*CheckIn, error) {
	row, ok := t.state.checkIns[rowKey{tenantID, id}]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (t *memTx) InsertCheckIn(_ context.Context, row *CheckIn, now time.Time) error {
	k := rowKey{row.TenantID, row.ID}
	if _, ok := t.state.checkIns[k]; ok {
		return fmt.Errorf("check-in %s already exists", row.ID)
	}
	r := *row
	stampInsert(&r.SyncEnvelope, now)
	t.state.checkIns[k] = r
	return nil
}

func (t *memTx) UpdateCheckInIfNewer(_ context.Context, row *CheckIn, clientUpdatedAt, now time.Time) (bool, error) {
	k := rowKey{row.TenantID, row.ID}
	stored, ok := t.state.checkIns[k]
	if !ok {
		return false, ErrNotFound
	}
	if !clientUpdatedAt.After(stored.UpdatedAt) {
		return false, nil
	}
	next := *row
	next.SyncEnvelope = stored.SyncEnvelope
	next.IsDeleted = row.IsDeleted
	next.UpdatedAt = now
	next.SyncedAt = now
	t.state.checkIns[k] = next
	return true, nil
}

func (t *memTx) ListCheckInsUpdatedSince(_ context.Context, tenantID uuid.UUID, userID *uuid.UUID, since time.Time, limit int) ([]CheckIn, error) {
	rows := []CheckIn{}
	for k, row := range t.state.checkIns {
		if k.tenantID != tenantID || !row.UpdatedAt.After(since) {
			continue
		}
		if userID != nil && row.UserID != *userID {
			continue
		}
		rows = append(rows, row)
	}
	sortByUpdatedAt(rows, func(r CheckIn) (time.Time, uuid.UUID) { return r.UpdatedAt, r.ID })
	return capRows(rows, limit), nil
}

// Resources

func (t *memTx) ListResourcesUpdatedSince(_ context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]Resource, error) {
	rows := []Resource{}
	for _, row := range t.state.resources {
		if !row.IsPublished || !row.UpdatedAt.After(since) {
			continue
		}
		if row.TenantID != nil && *row.TenantID != tenantID {
			continue
		}
		rows = append(rows, row)
	}
	sortByUpdatedAt(rows, func(r Resource) (time.Time, uuid.UUID) { return r.UpdatedAt, r.ID })
	return capRows(rows, limit), nil
}

func (t *memTx) InsertResource(_ context.Context, row *Resource, now time.Time) error {
	k := resourceKey(row.TenantID, row.ID)
	if _, ok := t.state.resources[k]; ok {
		return fmt.Errorf("resource %s already exists", row.ID)
	}
	r := *row
	r.CreatedAt = now
	r.UpdatedAt = now
	t.state.resources[k] = r
	return nil
}

// Cursors

func (t *memTx) UpsertCursor(_ context.Context, cursor *SyncCursor) error {
	k := cursorKey{cursor.TenantID, cursor.UserID, cursor.DeviceID, cursor.Entity}
	t.state.cursors[k] = *cursor
	return nil
}

func (t *memTx) GetCursors(_ context.Context, tenantID, userID, deviceID uuid.UUID) ([]SyncCursor, error) {
	rows := []SyncCursor{}
	for k, row := range t.state.cursors {
		if k.tenantID == tenantID && k.userID == userID && k.deviceID == deviceID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Entity < rows[j].Entity })
	return rows, nil
}

// sortByUpdatedAt orders rows by updated_at ascending, breaking ties on
// id so listings stay deterministic.
func sortByUpdatedAt[T any](rows []T, key func(T) (time.Time, uuid.UUID)) {
	sort.Slice(rows, func(i, j int) bool {
		ti, idi := key(rows[i])
		tj, idj := key(rows[j])
		if ti.Equal(tj) {
			return idi.String() < idj.String()
		}
		return ti.Before(tj)
	})
}

func capRows[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

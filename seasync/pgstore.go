// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the PostgreSQL Store implementation. Every statement binds
// tenant_id; rows are keyed (tenant_id, id) so the same client-minted id
// can exist under different tenants without colliding.
//
// The schema lives in internal/migrations and is assumed to exist.
type PgStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPgStore creates a store over an existing connection pool. The
// caller owns the pool lifecycle.
func NewPgStore(pool *pgxpool.Pool, logger *slog.Logger) *PgStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PgStore{pool: pool, logger: logger}
}

// WithinTx implements Store. The transaction runs at REPEATABLE READ so
// pulls observe a consistent snapshot that includes this call's pushes.
func (s *PgStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadWrite}, func(tx pgx.Tx) error {
		// Bound lock waits so a stuck row cannot hold a sync call past its deadline.
		if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '3s'"); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

const moodLogColumns = `id, tenant_id, user_id, client_created_at, created_at, updated_at, synced_at, is_deleted, mood, intensity, notes`

func scanMoodLog(row pgx.Row) (*MoodLog, error) {
	var m MoodLog
	err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &m.ClientCreatedAt, &m.CreatedAt, &m.UpdatedAt,
		&m.SyncedAt, &m.IsDeleted, &m.Mood, &m.Intensity, &m.Notes)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *pgTx) FindMoodLog(ctx context.Context, tenantID, id uuid.UUID) (*MoodLog, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+moodLogColumns+` FROM mood_logs WHERE tenant_id = @tenant_id AND id = @id`,
		pgx.NamedArgs{"tenant_id": tenantID, "id": id})
	m, err := scanMoodLog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find mood log: %w", err)
	}
	return m, nil
}

func (t *pgTx) InsertMoodLog(ctx context.Context, row *MoodLog, now time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO mood_logs (`+moodLogColumns+`)
		VALUES (@id, @tenant_id, @user_id, @client_created_at, @now, @now, @now, @is_deleted, @mood, @intensity, @notes)`,
		pgx.NamedArgs{
			"id":                row.ID,
			"tenant_id":         row.TenantID,
			"user_id":           row.UserID,
			"client_created_at": row.ClientCreatedAt,
			"now":               now,
			"is_deleted":        row.IsDeleted,
			"mood":              row.Mood,
			"intensity":         row.Intensity,
			"notes":             row.Notes,
		})
	if err != nil {
		return fmt.Errorf("insert mood log: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateMoodLogIfNewer(ctx context.Context, row *MoodLog, clientUpdatedAt, now time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE mood_logs
		SET mood = @mood, intensity = @intensity, notes = @notes, is_deleted = @is_deleted,
		    updated_at = @now, synced_at = @now
		WHERE tenant_id = @tenant_id AND id = @id AND updated_at < @client_updated_at`,
		pgx.NamedArgs{
			"tenant_id":         row.TenantID,
			"id":                row.ID,
			"mood":              row.Mood,
			"intensity":         row.Intensity,
			"notes":             row.Notes,
			"is_deleted":        row.IsDeleted,
			"now":               now,
			"client_updated_at": clientUpdatedAt,
		})
	if err != nil {
		return false, fmt.Errorf("update mood log: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) ListMoodLogsUpdatedSince(ctx context.Context, tenantID, userID uuid.UUID, since time.Time, limit int) ([]MoodLog, error) {
	q := `SELECT ` + moodLogColumns + `
		FROM mood_logs
		WHERE tenant_id = @tenant_id AND user_id = @user_id AND updated_at > @since
		ORDER BY updated_at ASC, id ASC`
	args := pgx.NamedArgs{"tenant_id": tenantID, "user_id": userID, "since": since}
	if limit > 0 {
		q += ` LIMIT @row_limit`
		args["row_limit"] = limit
	}
	rows, err := t.tx.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("list mood logs: %w", err)
	}
	defer rows.Close()

	out := []MoodLog{}
	for rows.Next() {
		m, err := scanMoodLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mood log: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

const journalEntryColumns = `id, tenant_id, user_id, client_created_at, created_at, updated_at, synced_at, is_deleted, title, content, mood, is_private`

func scanJournalEntry(row pgx.Row) (*JournalEntry, error) {
	var j JournalEntry
	err := row.Scan(&j.ID, &j.TenantID, &j.UserID, &j.ClientCreatedAt, &j.CreatedAt, &j.UpdatedAt,
		&j.SyncedAt, &j.IsDeleted, &j.Title, &j.Content, &j.Mood, &j.IsPrivate)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (t *pgTx) FindJournalEntry(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+journalEntryColumns+` FROM journal_entries WHERE tenant_id = @tenant_id AND id = @id`,
		pgx.NamedArgs{"tenant_id": tenantID, "id": id})
	j, err := scanJournalEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find journal entry: %w", err)
	}
	return j, nil
}

func (t *pgTx) InsertJournalEntry(ctx context.Context, row *JournalEntry, now time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO journal_entries (`+journalEntryColumns+`)
		VALUES (@id, @tenant_id, @user_id, @client_created_at, @now, @now, @now, @is_deleted, @title, @content, @mood, @is_private)`,
		pgx.NamedArgs{
			"id":                row.ID,
			"tenant_id":         row.TenantID,
			"user_id":           row.UserID,
			"client_created_at": row.ClientCreatedAt,
			"now":               now,
			"is_deleted":        row.IsDeleted,
			"title":             row.Title,
			"content":           row.Content,
			"mood":              row.Mood,
			"is_private":        row.IsPrivate,
		})
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateJournalEntryIfNewer(ctx context.Context, row *JournalEntry, clientUpdatedAt, now time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE journal_entries
		SET title = @title, content = @content, mood = @mood, is_private = @is_private,
		    is_deleted = @is_deleted, updated_at = @now, synced_at = @now
		WHERE tenant_id = @tenant_id AND id = @id AND updated_at < @client_updated_at`,
		pgx.NamedArgs{
			"tenant_id":         row.TenantID,
			"id":                row.ID,
			"title":             row.Title,
			"content":           row.Content,
			"mood":              row.Mood,
			"is_private":        row.IsPrivate,
			"is_deleted":        row.IsDeleted,
			"now":               now,
			"client_updated_at": clientUpdatedAt,
		})
	if err != nil {
		return false, fmt.Errorf("update journal entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) ListJournalEntriesUpdatedSince(ctx context.Context, tenantID, userID uuid.UUID, since time.Time, limit int) ([]JournalEntry, error) {
	q := `SELECT ` + journalEntryColumns + `
		FROM journal_entries
		WHERE tenant_id = @tenant_id AND user_id = @user_id AND updated_at > @since
		ORDER BY updated_at ASC, id ASC`
	args := pgx.NamedArgs{"tenant_id": tenantID, "user_id": userID, "since": since}
	if limit > 0 {
		q += ` LIMIT @row_limit`
		args["row_limit"] = limit
	}
	rows, err := t.tx.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	out := []JournalEntry{}
	for rows.Next() {
		j, err := scanJournalEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

const checkInColumns = `id, tenant_id, user_id, client_created_at, created_at, updated_at, synced_at, is_deleted, scheduled_for, completed_at, mood, responses, needs_attention, reviewed_by, reviewed_at, review_notes`

func scanCheckIn(row pgx.Row) (*CheckIn, error) {
	var c CheckIn
	err := row.Scan(&c.ID, &c.TenantID, &c.UserID, &c.ClientCreatedAt, &c.CreatedAt, &c.UpdatedAt,
		&c.SyncedAt, &c.IsDeleted, &c.ScheduledFor, &c.CompletedAt, &c.Mood, &c.Responses,
		&c.NeedsAttention, &c.ReviewedBy, &c.ReviewedAt, &c.ReviewNotes)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) FindCheckIn(ctx context.Context, tenantID, id uuid.UUID) (*CheckIn, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+checkInColumns+` FROM check_ins WHERE tenant_id = @tenant_id AND id = @id`,
		pgx.NamedArgs{"tenant_id": tenantID, "id": id})
	c, err := scanCheckIn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find check-in: %w", err)
	}
	return c, nil
}

func (t *pgTx) InsertCheckIn(ctx context.Context, row *CheckIn, now time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO check_ins (`+checkInColumns+`)
		VALUES (@id, @tenant_id, @user_id, @client_created_at, @now, @now, @now, @is_deleted,
		        @scheduled_for, @completed_at, @mood, @responses, @needs_attention, @reviewed_by, @reviewed_at, @review_notes)`,
		pgx.NamedArgs{
			"id":                row.ID,
			"tenant_id":         row.TenantID,
			"user_id":           row.UserID,
			"client_created_at": row.ClientCreatedAt,
			"now":               now,
			"is_deleted":        row.IsDeleted,
			"scheduled_for":     row.ScheduledFor,
			"completed_at":      row.CompletedAt,
			"mood":              row.Mood,
			"responses":         row.Responses,
			"needs_attention":   row.NeedsAttention,
			"reviewed_by":       row.ReviewedBy,
			"reviewed_at":       row.ReviewedAt,
			"review_notes":      row.ReviewNotes,
		})
	if err != nil {
		return fmt.Errorf("insert check-in: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateCheckInIfNewer(ctx context.Context, row *CheckIn, clientUpdatedAt, now time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE check_ins
		SET scheduled_for = @scheduled_for, completed_at = @completed_at, mood = @mood, responses = @responses,
		    needs_attention = @needs_attention, reviewed_by = @reviewed_by, reviewed_at = @reviewed_at,
		    review_notes = @review_notes, is_deleted = @is_deleted, updated_at = @now, synced_at = @now
		WHERE tenant_id = @tenant_id AND id = @id AND updated_at < @client_updated_at`,
		pgx.NamedArgs{
			"tenant_id":         row.TenantID,
			"id":                row.ID,
			"scheduled_for":     row.ScheduledFor,
			"completed_at":      row.CompletedAt,
			"mood":              row.Mood,
			"responses":         row.Responses,
			"needs_attention":   row.NeedsAttention,
			"reviewed_by":       row.ReviewedBy,
			"reviewed_at":       row.ReviewedAt,
			"review_notes":      row.ReviewNotes,
			"is_deleted":        row.IsDeleted,
			"now":               now,
			"client_updated_at": clientUpdatedAt,
		})
	if err != nil {
		return false, fmt.Errorf("update check-in: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) ListCheckInsUpdatedSince(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, since time.Time, limit int) ([]CheckIn, error) {
	q := `SELECT ` + checkInColumns + `
		FROM check_ins
		WHERE tenant_id = @tenant_id
		  AND (@user_id::uuid IS NULL OR user_id = @user_id)
		  AND updated_at > @since
		ORDER BY updated_at ASC, id ASC`
	args := pgx.NamedArgs{"tenant_id": tenantID, "user_id": userID, "since": since}
	if limit > 0 {
		q += ` LIMIT @row_limit`
		args["row_limit"] = limit
	}
	rows, err := t.tx.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	defer rows.Close()

	out := []CheckIn{}
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

const resourceColumns = `id, tenant_id, title, type, category, tags, is_published, offline_available, created_at, updated_at`

func (t *pgTx) ListResourcesUpdatedSince(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]Resource, error) {
	q := `SELECT ` + resourceColumns + `
		FROM resources
		WHERE (tenant_id = @tenant_id OR tenant_id IS NULL)
		  AND is_published
		  AND updated_at > @since
		ORDER BY updated_at ASC, id ASC`
	args := pgx.NamedArgs{"tenant_id": tenantID, "since": since}
	if limit > 0 {
		q += ` LIMIT @row_limit`
		args["row_limit"] = limit
	}
	rows, err := t.tx.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	out := []Resource{}
	for rows.Next() {
		var r Resource
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Title, &r.Type, &r.Category, &r.Tags,
			&r.IsPublished, &r.OfflineAvailable, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertResource(ctx context.Context, row *Resource, now time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO resources (`+resourceColumns+`)
		VALUES (@id, @tenant_id, @title, @type, @category, @tags, @is_published, @offline_available, @now, @now)`,
		pgx.NamedArgs{
			"id":                row.ID,
			"tenant_id":         row.TenantID,
			"title":             row.Title,
			"type":              row.Type,
			"category":          row.Category,
			"tags":              row.Tags,
			"is_published":      row.IsPublished,
			"offline_available": row.OfflineAvailable,
			"now":               now,
		})
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

func (t *pgTx) UpsertCursor(ctx context.Context, cursor *SyncCursor) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sync_cursors (tenant_id, user_id, device_id, entity, last_synced_at, last_record_id, sync_cursor)
		VALUES (@tenant_id, @user_id, @device_id, @entity, @last_synced_at, @last_record_id, @sync_cursor)
		ON CONFLICT (tenant_id, user_id, device_id, entity)
		DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at,
		              last_record_id = EXCLUDED.last_record_id,
		              sync_cursor = EXCLUDED.sync_cursor`,
		pgx.NamedArgs{
			"tenant_id":      cursor.TenantID,
			"user_id":        cursor.UserID,
			"device_id":      cursor.DeviceID,
			"entity":         cursor.Entity,
			"last_synced_at": cursor.LastSyncedAt,
			"last_record_id": cursor.LastRecordID,
			"sync_cursor":    cursor.SyncCursor,
		})
	if err != nil {
		return fmt.Errorf("upsert sync cursor: %w", err)
	}
	return nil
}

func (t *pgTx) GetCursors(ctx context.Context, tenantID, userID, deviceID uuid.UUID) ([]SyncCursor, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT tenant_id, user_id, device_id, entity, last_synced_at, last_record_id, sync_cursor
		FROM sync_cursors
		WHERE tenant_id = @tenant_id AND user_id = @user_id AND device_id = @device_id
		ORDER BY entity ASC`,
		pgx.NamedArgs{"tenant_id": tenantID, "user_id": userID, "device_id": deviceID})
	if err != nil {
		return nil, fmt.Errorf("get sync cursors: %w", err)
	}
	defer rows.Close()

	out := []SyncCursor{}
	for rows.Next() {
		var c SyncCursor
		if err := rows.Scan(&c.TenantID, &c.UserID, &c.DeviceID, &c.Entity,
			&c.LastSyncedAt, &c.LastRecordID, &c.SyncCursor); err != nil {
			return nil, fmt.Errorf("scan sync cursor: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

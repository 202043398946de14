// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SyncService is the public entry point of the sync core.
// One ProcessSync call is the unit of work: validate the envelope, push
// the device's changes, pull the server's deltas, advance the cursors,
// all in a single store transaction.
type SyncService struct {
	store  Store
	logger *slog.Logger
	config *ServiceConfig

	// now supplies the server clock; swapped in tests.
	now func() time.Time
}

// ServiceConfig holds tunables for the sync service.
type ServiceConfig struct {
	AppName string

	// MaxBatchChanges caps the number of changes in one sync call across
	// all entities (0 = DefaultMaxBatchChanges).
	MaxBatchChanges int

	// MaxPullRows caps each entity's pull list (0 = return everything
	// since the client's lastSyncAt, the default contract).
	MaxPullRows int
}

// NewSyncService creates a sync service over the given store.
func NewSyncService(store Store, config *ServiceConfig, logger *slog.Logger) *SyncService {
	if config == nil {
		config = &ServiceConfig{}
	}
	if config.MaxBatchChanges == 0 {
		config.MaxBatchChanges = DefaultMaxBatchChanges
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		store:  store,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// serverNow returns the server clock in UTC at millisecond precision,
// the resolution persisted timestamps carry.
func (s *SyncService) serverNow() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// ProcessSync handles one sync call for the authenticated actor.
//
// Returned errors are either ErrEnvelopeInvalid / ErrBatchTooLarge
// (client fault, no partial work) or a store failure after rollback.
// Per-change validation failures do not error; they land in the
// response's Rejected list and the rest of the batch applies.
func (s *SyncService) ProcessSync(ctx context.Context, actor Actor, req *SyncRequest) (*SyncResponse, error) {
	start := time.Now()

	deviceID, err := validateEnvelope(req)
	if err != nil {
		return nil, err
	}
	if n := req.Changes.Count(); n > s.config.MaxBatchChanges {
		return nil, fmt.Errorf("%w: %d changes, limit %d", ErrBatchTooLarge, n, s.config.MaxBatchChanges)
	}

	// The sync window is (since, now]; an absent lastSyncAt pulls the
	// entire history.
	since := time.Time{}
	if req.LastSyncAt != nil {
		since = req.LastSyncAt.UTC()
	}
	now := s.serverNow()

	var (
		rejected []RejectedChange
		changes  ServerChanges
	)
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		r, err := s.pushMoodLogs(ctx, tx, actor, req.Changes.MoodLogs, now)
		if err != nil {
			return err
		}
		rejected = append(rejected, r...)

		r, err = s.pushJournalEntries(ctx, tx, actor, req.Changes.JournalEntries, now)
		if err != nil {
			return err
		}
		rejected = append(rejected, r...)

		r, err = s.pushCheckIns(ctx, tx, actor, req.Changes.CheckIns, now)
		if err != nil {
			return err
		}
		rejected = append(rejected, r...)

		changes, err = s.planPull(ctx, tx, actor, since)
		if err != nil {
			return err
		}

		return s.advanceCursors(ctx, tx, actor, deviceID, now)
	})
	if err != nil {
		s.logger.Error("sync transaction failed",
			"tenant_id", actor.TenantID, "user_id", actor.UserID, "device_id", deviceID, "error", err)
		return nil, err
	}

	s.logger.Info("sync completed",
		"tenant_id", actor.TenantID,
		"user_id", actor.UserID,
		"device_id", deviceID,
		"role", actor.Role,
		"pushed", req.Changes.Count(),
		"rejected", len(rejected),
		"pulled", len(changes.MoodLogs)+len(changes.JournalEntries)+len(changes.CheckIns)+len(changes.Resources),
		"duration", time.Since(start))

	return &SyncResponse{
		Success:       true,
		ServerChanges: changes,
		Conflicts:     []json.RawMessage{},
		Rejected:      rejected,
		LastSyncAt:    now,
	}, nil
}

// DeviceStatus returns the cursor rows for the caller's device.
func (s *SyncService) DeviceStatus(ctx context.Context, actor Actor, deviceID uuid.UUID) (*SyncStatusResponse, error) {
	var cursors []SyncCursor
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		cursors, err = tx.GetCursors(ctx, actor.TenantID, actor.UserID, deviceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if cursors == nil {
		cursors = []SyncCursor{}
	}
	return &SyncStatusResponse{
		DeviceID: deviceID.String(),
		Cursors:  cursors,
	}, nil
}

// validateEnvelope checks the request frame: deviceId must be a
// well-formed UUID and changes a mapping of sequences (enforced by
// decoding). Per-change validation happens in the merge engine.
func validateEnvelope(req *SyncRequest) (uuid.UUID, error) {
	if req == nil {
		return uuid.Nil, fmt.Errorf("%w: empty request", ErrEnvelopeInvalid)
	}
	if req.DeviceID == "" {
		return uuid.Nil, fmt.Errorf("%w: deviceId is required", ErrEnvelopeInvalid)
	}
	deviceID, err := uuid.Parse(req.DeviceID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: deviceId must be a UUID", ErrEnvelopeInvalid)
	}
	return deviceID, nil
}

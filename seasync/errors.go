// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package seasync

import "errors"

// Error sentinels for mapping failures to HTTP responses.
// Per-change validation failures never surface as errors; they become
// entries in the response's rejected list instead.
var (
	// ErrNotFound is returned by Find operations when no row exists within
	// the caller's tenant scope. A row owned by another tenant reports
	// not-found, never forbidden, so tenant existence cannot be probed.
	ErrNotFound = errors.New("not found")

	// ErrEnvelopeInvalid marks a malformed request envelope (bad deviceId,
	// non-sequence changes). The whole request fails with 400.
	ErrEnvelopeInvalid = errors.New("invalid sync envelope")

	// ErrBatchTooLarge marks a batch over the configured change limit.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrBadPayload marks a single change that failed schema validation.
	ErrBadPayload = errors.New("bad_payload")
)

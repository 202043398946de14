// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

// Package migrations embeds the canonical DDL for the sync-managed
// tables. The sync core assumes these tables and indexes exist.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActorContextRoundTrip(t *testing.T) {
	ctx := SetActor(context.Background(), "tenant-1", "user-1", "crew")

	tenantID, ok := GetTenantID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tenant-1", tenantID)

	userID, ok := GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)

	role, ok := GetRole(ctx)
	assert.True(t, ok)
	assert.Equal(t, "crew", role)
}

func TestActorContextMissing(t *testing.T) {
	ctx := context.Background()

	_, ok := GetTenantID(ctx)
	assert.False(t, ok)
	_, ok = GetUserID(ctx)
	assert.False(t, ok)
	_, ok = GetRole(ctx)
	assert.False(t, ok)
}

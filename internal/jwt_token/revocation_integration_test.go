//go:build integration

package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"profilecheck/pkg/testutil/containers"
)

func TestRedisRevocationList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	trl := NewRedisRevocationList(rc.Client)
	revoked, err := trl.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Minute))
	revoked, err = trl.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"profilecheck/pkg/domain"
)

func TestSignerFallsBackToCaller(t *testing.T) {
	ctx := WithAccountID(context.Background(), domain.MustAccountID("alice.testnet"))
	assert.Equal(t, domain.AccountID("alice.testnet"), SignerID(ctx))

	ctx = WithSignerID(ctx, domain.MustAccountID("relayer.near"))
	assert.Equal(t, domain.AccountID("relayer.near"), SignerID(ctx))
	assert.Equal(t, domain.AccountID("alice.testnet"), AccountID(ctx))
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.True(t, AccountID(ctx).IsNil())
	assert.True(t, SignerID(ctx).IsNil())
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestWithTime(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
}

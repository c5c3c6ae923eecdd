package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilecheck/pkg/domain"
	audit "profilecheck/pkg/platform/audit"
	"profilecheck/pkg/platform/audit/store/memory"
	"profilecheck/pkg/platform/sentinel"
)

var alice = domain.MustAccountID("alice.near")

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		AccountID: alice,
		Action:    string(audit.EventVerificationRecorded),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventVerificationRecorded), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			AccountID: alice,
			Action:    string(audit.EventVerificationRequested),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByAccount(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{AccountID: alice, Action: "x"})
	assert.ErrorIs(t, err, sentinel.ErrClosed)
}

func TestPublisher_BufferFullDropsWithoutBlocking(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, pub.Emit(context.Background(), audit.Event{
				AccountID: alice,
				Action:    string(audit.EventRefundIssued),
			}))
		}()
	}
	wg.Wait()
}

func TestPublisher_CancelledContextStillPersists(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, pub.Emit(ctx, audit.Event{AccountID: alice, Action: string(audit.EventVerificationRemoved)}))
	pub.Close()

	events, err := store.ListByAccount(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPublisher_Timestamps(t *testing.T) {
	t.Run("sets missing timestamp", func(t *testing.T) {
		pub := NewPublisher(memory.NewInMemoryStore())
		before := time.Now()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{AccountID: alice, Action: "x"}))
		after := time.Now()

		events, err := pub.List(context.Background(), alice)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.Before(before))
		assert.False(t, events[0].Timestamp.After(after))
	})

	t.Run("preserves existing timestamp", func(t *testing.T) {
		pub := NewPublisher(memory.NewInMemoryStore())
		custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, pub.Emit(context.Background(), audit.Event{AccountID: alice, Action: "x", Timestamp: custom}))

		events, err := pub.List(context.Background(), alice)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, custom, events[0].Timestamp)
	})
}

func TestPublisher_SeparatesAccounts(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())
	bob := domain.MustAccountID("bob.near")

	require.NoError(t, pub.Emit(context.Background(), audit.Event{AccountID: alice, Action: string(audit.EventVerificationRecorded)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{AccountID: bob, Action: string(audit.EventRemovalDenied)}))

	events, err := pub.List(context.Background(), bob)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
}

package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veritas/pkg/domain"
)

func TestPublisherStampsTimestampAndCategory(t *testing.T) {
	store := NewMemoryStore()
	publisher := NewPublisher(store)
	userID := id.NewUserID()

	err := publisher.Emit(context.Background(), Event{
		UserID: userID,
		Action: string(EventUserRegistered),
	})
	require.NoError(t, err)

	events, err := publisher.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, CategoryCompliance, events[0].Category)
}

func TestEventCategories(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventVerificationApproved.Category())
	assert.Equal(t, CategorySecurity, EventLoginFailed.Category())
	assert.Equal(t, CategoryOperations, EventVoteCast.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("something_new").Category())
}

func TestMemoryStoreListFiltersByUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	alice, bob := id.NewUserID(), id.NewUserID()

	require.NoError(t, store.Append(ctx, Event{UserID: alice, Action: "a"}))
	require.NoError(t, store.Append(ctx, Event{UserID: bob, Action: "b"}))
	require.NoError(t, store.Append(ctx, Event{UserID: alice, Action: "c"}))

	events, err := store.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Action)
	assert.Equal(t, "c", events[1].Action)
}

func TestWorkerPersistsEvents(t *testing.T) {
	store := NewMemoryStore()
	inbox := make(chan Event, 8)
	worker := NewWorker(store, inbox, slog.Default())
	userID := id.NewUserID()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	publisher := NewChannelPublisher(inbox)
	require.NoError(t, publisher.Emit(ctx, Event{UserID: userID, Action: string(EventVoteCast)}))

	require.Eventually(t, func() bool {
		events, err := store.ListByUser(context.Background(), userID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestChannelPublisherDropsWhenFull(t *testing.T) {
	inbox := make(chan Event, 1)
	publisher := NewChannelPublisher(inbox)

	require.NoError(t, publisher.Emit(context.Background(), Event{Action: "first"}))
	require.NoError(t, publisher.Emit(context.Background(), Event{Action: "second"}))

	assert.Len(t, inbox, 1)
	assert.Equal(t, "first", (<-inbox).Action)
}

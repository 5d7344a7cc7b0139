package otp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/pkg/platform/sentinel"
)

func TestGenerateCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "code %q contains non-digit", code)
		}
		seen[code] = true
	}
	// 50 draws from a million values colliding into one bucket would mean a
	// broken generator, not bad luck.
	assert.Greater(t, len(seen), 1)
}

func TestMemoryStoreSaveAndConsume(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "alice@example.com", "123456", time.Minute))

	code, err := store.Consume(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)
}

func TestMemoryStoreConsumeIsSingleUse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "alice@example.com", "123456", time.Minute))

	_, err := store.Consume(ctx, "alice@example.com")
	require.NoError(t, err)

	_, err = store.Consume(ctx, "alice@example.com")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreSaveReplacesPendingCode(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "alice@example.com", "111111", time.Minute))
	require.NoError(t, store.Save(ctx, "alice@example.com", "222222", time.Minute))

	code, err := store.Consume(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", code)
}

func TestMemoryStoreExpiredCode(t *testing.T) {
	current := time.Now()
	store := NewMemoryStore(WithClock(func() time.Time { return current }))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "alice@example.com", "123456", 5*time.Minute))

	current = current.Add(5*time.Minute + time.Second)
	_, err := store.Consume(ctx, "alice@example.com")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreUnknownKey(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Consume(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

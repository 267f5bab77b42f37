package callback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDedupStore_Mark(t *testing.T) {
	store := NewMemoryDedupStore()
	ctx := context.Background()

	first, err := store.Mark(ctx, "d-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.Mark(ctx, "d-1")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := store.Mark(ctx, "d-2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestMemoryDedupStore_TTLExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	store := NewMemoryDedupStore(
		WithDedupTTL(time.Minute),
		WithDedupClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	first, err := store.Mark(ctx, "d-1")
	require.NoError(t, err)
	require.True(t, first)

	now = now.Add(30 * time.Second)
	again, err := store.Mark(ctx, "d-1")
	require.NoError(t, err)
	assert.False(t, again, "still within TTL")

	now = now.Add(2 * time.Minute)
	expired, err := store.Mark(ctx, "d-1")
	require.NoError(t, err)
	assert.True(t, expired, "entry aged out, treated as first sighting")
}

func TestMemoryDedupStore_SweepRemovesStaleEntries(t *testing.T) {
	now := time.Unix(1000, 0)
	store := NewMemoryDedupStore(
		WithDedupTTL(time.Minute),
		WithDedupClock(func() time.Time { return now }),
	)
	ctx := context.Background()
	for _, id := range []string{"d-1", "d-2", "d-3"} {
		_, err := store.Mark(ctx, id)
		require.NoError(t, err)
	}
	require.Equal(t, 3, store.seen.Len())

	now = now.Add(2 * time.Minute)
	_, err := store.Mark(ctx, "d-4")
	require.NoError(t, err)
	assert.Equal(t, 1, store.seen.Len(), "stale ids swept on the next mark")
}

package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Create(ctx, &Task{ID: "t1", Kind: kindTest, MaxRetries: 2, Payload: map[string]any{"chat_id": "c1"}}))
	assert.ErrorIs(t, store.Create(ctx, &Task{ID: "t1"}), ErrTaskConflict)

	claimed, err := store.Claim(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
	assert.Equal(t, "c1", claimed.String("chat_id"))

	claimed.Payload["chat_id"] = "mutated"
	stored, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "c1", stored.String("chat_id"))

	_, err = store.Claim(ctx, "t1")
	assert.ErrorIs(t, err, ErrTaskConflict)

	require.NoError(t, store.MarkFailed(ctx, "t1", CodeTaskProcessing, "boom", false))
	_, err = store.Claim(ctx, "t1")
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, "t1", CodeTaskProcessing, "boom", false))
	_, err = store.Claim(ctx, "t1")
	assert.ErrorIs(t, err, ErrTaskExhausted)

	_, err = store.Claim(ctx, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestMemoryStoreListAndPrune(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	for i, id := range []string{"t1", "t2", "t3"} {
		at := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return at }
		require.NoError(t, store.Create(ctx, &Task{ID: id, Kind: kindTest, MaxRetries: 3}))
	}

	store.now = func() time.Time { return base.Add(3 * time.Minute) }
	require.NoError(t, store.MarkSucceeded(ctx, "t1"))
	require.NoError(t, store.MarkFailed(ctx, "t2", CodeTaskProcessing, "boom", true))

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t2", all[0].ID)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	removed, err := store.Prune(ctx, base.Add(4*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = store.Get(ctx, "t3")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

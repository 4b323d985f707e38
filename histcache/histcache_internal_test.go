package histcache

import (
	"context"
	"os"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/model"
)

// TestByteBudgetEvictsBeforeCountCapacityIsReached is a white-box test:
// hotCapacity(10) alone would never evict after only two inserts, so any
// eviction observed here has to come from the byte budget.
func TestByteBudgetEvictsBeforeCountCapacityIsReached(t *testing.T) {
	dir, err := os.MkdirTemp("", "histcache-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	c, err := Open(dir, 10, 1500)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	bigContents := make([]byte, 1000)

	var first model.ObjectID
	first[31] = 1
	firstKey := ObjectCacheKey(model.ObjectKey{ID: first, Version: 1})
	_, err = c.GetObject(ctx, model.ObjectKey{ID: first, Version: 1}, func(ctx context.Context) (model.Object, error) {
		return model.Object{ID: first, Version: 1, Contents: bigContents}, nil
	})
	require.NoError(t, err)
	require.True(t, c.hot.Contains(firstKey))

	var second model.ObjectID
	second[31] = 2
	_, err = c.GetObject(ctx, model.ObjectKey{ID: second, Version: 1}, func(ctx context.Context) (model.Object, error) {
		return model.Object{ID: second, Version: 1, Contents: bigContents}, nil
	})
	require.NoError(t, err)

	require.False(t, c.hot.Contains(firstKey), "first entry should have been evicted by the byte budget, not just held under count capacity")
	require.LessOrEqual(t, c.curBytes.Load(), c.byteBudget)
}

// TestCorruptColdEntryIsInvalidatedAndRefetchedOnce plants undecodable
// bytes directly in the cold tier: the next read must not surface the
// codec error, it must drop the entry and fall through to the adapter
// exactly once.
func TestCorruptColdEntryIsInvalidatedAndRefetchedOnce(t *testing.T) {
	dir, err := os.MkdirTemp("", "histcache-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	c, err := Open(dir, 10, 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	var id model.ObjectID
	id[31] = 9
	key := model.ObjectKey{ID: id, Version: 1}
	cacheKey := ObjectCacheKey(key)

	require.NoError(t, c.cold.Set([]byte(cacheKey), []byte{0xff, 0xee}, pebble.Sync))

	calls := 0
	o, err := c.GetObject(ctx, key, func(ctx context.Context) (model.Object, error) {
		calls++
		return model.Object{ID: id, Version: 1, Type: "0x2::coin::Coin"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, id, o.ID)

	// The corrupt entry is gone: a fresh read decodes cleanly from cache.
	o2, err := c.GetObject(ctx, key, func(ctx context.Context) (model.Object, error) {
		calls++
		return model.Object{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, o, o2)
}

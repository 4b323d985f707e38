package histcache_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/histcache"
	"github.com/sui-replay/replaycore/model"
)

func newTestCache(t *testing.T) *histcache.Cache {
	t.Helper()
	dir, err := os.MkdirTemp("", "histcache-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	c, err := histcache.Open(dir, 4, 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetObjectReadThroughThenHit(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var id model.ObjectID
	id[31] = 7
	key := model.ObjectKey{ID: id, Version: 1}

	calls := 0
	fetch := func(ctx context.Context) (model.Object, error) {
		calls++
		return model.Object{ID: id, Version: 1, Type: "0x2::coin::Coin"}, nil
	}

	o1, err := c.GetObject(ctx, key, fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	o2, err := c.GetObject(ctx, key, fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls, "second read must be served from cache, not refetched")
	require.Equal(t, o1, o2)
}

func TestPinSurvivesHotTierEviction(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var base model.ObjectID
	base[31] = 1
	pinnedKey := model.ObjectKey{ID: base, Version: 1}

	_, err := c.GetObject(ctx, pinnedKey, func(ctx context.Context) (model.Object, error) {
		return model.Object{ID: base, Version: 1}, nil
	})
	require.NoError(t, err)
	c.Pin(histcache.ObjectCacheKey(pinnedKey))

	// Push five more distinct keys through a four-entry hot tier so the
	// pinned entry's hot-tier slot is reclaimed.
	for i := byte(2); i <= 6; i++ {
		var other model.ObjectID
		other[31] = i
		k := model.ObjectKey{ID: other, Version: 1}
		_, err := c.GetObject(ctx, k, func(ctx context.Context) (model.Object, error) {
			return model.Object{ID: other, Version: 1}, nil
		})
		require.NoError(t, err)
	}

	calls := 0
	o, err := c.GetObject(ctx, pinnedKey, func(ctx context.Context) (model.Object, error) {
		calls++
		return model.Object{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, base, o.ID)
	// Served from overflow or cold tier, never refetched from the adapter.
	require.Equal(t, 0, calls)

	c.Unpin(histcache.ObjectCacheKey(pinnedKey))
}

func TestClosureRoundTrip(t *testing.T) {
	c := newTestCache(t)

	var original, dep1, dep2 model.PackageID
	original[31] = 1
	dep1[31] = 2
	dep2[31] = 3

	require.NoError(t, c.WarmClosure(original, 10, []model.PackageID{dep1, dep2}))

	closure, ok, err := c.Closure(original, 10)
	require.NoError(t, err)
	require.True(t, ok)
	require.ElementsMatch(t, []model.PackageID{dep1, dep2}, closure)

	_, ok, err = c.Closure(original, 99)
	require.NoError(t, err)
	require.False(t, ok)
}

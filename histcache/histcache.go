// Package histcache implements the two-tier historical cache: a hot,
// pin-aware, byte-budgeted LRU in front of a cold, content-addressed
// pebble store, with read-through and single-writer-per-key semantics.
package histcache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/obslog"
	"github.com/sui-replay/replaycore/wire"
)

var log = obslog.Component("histcache")

// Key prefixes match the on-disk cache directory layout.
const (
	prefixObjects      = "objects/"
	prefixPackages     = "packages/"
	prefixTransactions = "transactions/"
	prefixClosures     = "closures/"
)

var (
	cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replaycore_histcache_hits_total",
		Help: "Historical cache hits by keyspace and tier.",
	}, []string{"keyspace", "tier"})
	cacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replaycore_histcache_misses_total",
		Help: "Historical cache misses by keyspace.",
	}, []string{"keyspace"})
	cacheEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replaycore_histcache_evictions_total",
		Help: "Hot-tier evictions by keyspace.",
	}, []string{"keyspace"})
	hotTierBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replaycore_histcache_hot_bytes",
		Help: "Cumulative encoded byte size of entries currently held in the unpinned hot tier.",
	})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, cacheEvictions, hotTierBytes)
}

// Fetcher is the adapter callback a miss falls through to. It is supplied
// per call rather than bound once, since objects/packages/transactions
// come from different ArchiveRPC methods.
type Fetcher[T any] func(ctx context.Context) (T, error)

// entry is what the hot tier actually stores: the decoded value plus its
// encoded size, used for the byte budget.
type entry struct {
	value []byte
	size  int
}

// pinSet tracks in-flight references per key so the hot tier's LRU never
// evicts something an in-progress replay still needs; if the LRU evicts a
// pinned key anyway, it's held in overflow until Unpin drops its refcount
// to zero.
type pinSet struct {
	mu       sync.Mutex
	refs     map[string]int
	overflow map[string]entry
}

func newPinSet() *pinSet {
	return &pinSet{refs: map[string]int{}, overflow: map[string]entry{}}
}

func (p *pinSet) pin(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs[key]++
}

func (p *pinSet) unpin(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs[key]--
	if p.refs[key] <= 0 {
		delete(p.refs, key)
		delete(p.overflow, key)
	}
}

func (p *pinSet) isPinned(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refs[key] > 0
}

func (p *pinSet) holdOverflow(key string, e entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refs[key] > 0 {
		p.overflow[key] = e
	}
}

func (p *pinSet) getOverflow(key string) (entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.overflow[key]
	return e, ok
}

// Cache is the two-tier historical cache. One Cache instance is shared by
// reference across concurrent replay sessions. Eviction out of the hot
// tier is driven by two independent limits: the
// count-based hotCapacity the underlying LRU enforces on its own, and the
// byte budget Cache itself enforces by explicitly evicting the
// least-recently-used entry whenever curBytes exceeds byteBudget. A
// pinned entry that falls out of the hot tier under either limit is held
// in pinSet's overflow map rather than dropped, so it keeps counting
// against neither limit once it moves there.
type Cache struct {
	hot        *lru.Cache[string, entry]
	cold       *pebble.DB
	pins       *pinSet
	byteBudget int64
	curBytes   atomic.Int64

	singleflight sync.Map // key -> *sync.Mutex, collapses concurrent misses
}

// Open opens (creating if absent) a cache rooted at dir, with hotCapacity
// entries and byteBudget cumulative encoded bytes in the unpinned hot
// tier. byteBudget <= 0 disables byte-based eviction, leaving hotCapacity
// as the only bound (matching the old count-only behavior).
func Open(dir string, hotCapacity int, byteBudget int64) (*Cache, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errtax.Host("open pebble cache", err)
	}
	c := &Cache{cold: db, pins: newPinSet(), byteBudget: byteBudget}
	hot, err := lru.NewWithEvict[string, entry](hotCapacity, c.onEvict)
	if err != nil {
		return nil, errtax.Host("init lru", err)
	}
	c.hot = hot
	return c, nil
}

func (c *Cache) onEvict(key string, e entry) {
	keyspace := keyspaceOf(key)
	cacheEvictions.WithLabelValues(keyspace).Inc()
	c.curBytes.Add(-int64(e.size))
	hotTierBytes.Set(float64(c.curBytes.Load()))
	c.pins.holdOverflow(key, e)
}

// addHot inserts e into the hot tier, accounting its size against
// curBytes (replacing any existing entry's size first so a re-fetch of
// the same key doesn't double-count it), then evicts the
// least-recently-used entries until curBytes is back within byteBudget.
func (c *Cache) addHot(key string, e entry) {
	if old, ok := c.hot.Peek(key); ok {
		c.curBytes.Add(-int64(old.size))
	}
	c.hot.Add(key, e)
	c.curBytes.Add(int64(e.size))
	hotTierBytes.Set(float64(c.curBytes.Load()))
	c.enforceByteBudget()
}

// enforceByteBudget evicts the hot tier's least-recently-used entries,
// oldest first, until curBytes fits within byteBudget. A pinned entry
// that gets evicted this way survives in pinSet's overflow rather than
// being dropped — see onEvict — so this loop always makes forward
// progress and terminates once the hot tier is empty even if every
// remaining entry is pinned.
func (c *Cache) enforceByteBudget() {
	if c.byteBudget <= 0 {
		return
	}
	for c.curBytes.Load() > c.byteBudget {
		if _, _, ok := c.hot.RemoveOldest(); !ok {
			return
		}
	}
}

func keyspaceOf(key string) string {
	switch {
	case len(key) >= len(prefixObjects) && key[:len(prefixObjects)] == prefixObjects:
		return "objects"
	case len(key) >= len(prefixPackages) && key[:len(prefixPackages)] == prefixPackages:
		return "packages"
	case len(key) >= len(prefixTransactions) && key[:len(prefixTransactions)] == prefixTransactions:
		return "transactions"
	default:
		return "other"
	}
}

func (c *Cache) lockFor(key string) *sync.Mutex {
	m, _ := c.singleflight.LoadOrStore(key, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// readThrough is the generic get-or-fetch-then-store path shared by every
// keyspace: hot tier, then pinned overflow, then cold tier, then fetch.
func readThrough(ctx context.Context, c *Cache, key string, fetch Fetcher[[]byte]) ([]byte, error) {
	keyspace := keyspaceOf(key)

	if e, ok := c.hot.Get(key); ok {
		cacheHits.WithLabelValues(keyspace, "hot").Inc()
		return e.value, nil
	}
	if e, ok := c.pins.getOverflow(key); ok {
		cacheHits.WithLabelValues(keyspace, "overflow").Inc()
		return e.value, nil
	}

	mu := c.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	// Re-check after acquiring the lock: another goroutine may have
	// populated the cache while we were waiting.
	if e, ok := c.hot.Get(key); ok {
		cacheHits.WithLabelValues(keyspace, "hot").Inc()
		return e.value, nil
	}

	if data, closer, err := c.cold.Get([]byte(key)); err == nil {
		value := append([]byte(nil), data...)
		closer.Close()
		cacheHits.WithLabelValues(keyspace, "cold").Inc()
		c.addHot(key, entry{value: value, size: len(value)})
		return value, nil
	} else if err != pebble.ErrNotFound {
		return nil, errtax.Host("pebble read", err)
	}

	cacheMisses.WithLabelValues(keyspace).Inc()
	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cold.Set([]byte(key), value, pebble.Sync); err != nil {
		return nil, errtax.Host("pebble write", err)
	}
	c.addHot(key, entry{value: value, size: len(value)})
	return value, nil
}

// invalidate drops key from both tiers, used when a cached value fails to
// decode: the entry is assumed corrupt and the next read falls through to
// the adapter again.
func (c *Cache) invalidate(key string) error {
	c.hot.Remove(key)
	if err := c.cold.Delete([]byte(key), pebble.Sync); err != nil {
		return errtax.Host("pebble invalidate", err)
	}
	return nil
}

// getDecoded is readThrough plus the recovery path for codec errors: a
// decode failure on a cache read invalidates the entry and retries
// exactly once against the network before surfacing the error.
func getDecoded[T any](ctx context.Context, c *Cache, key string, fetchRaw Fetcher[[]byte], decode func([]byte) (T, error)) (T, error) {
	var zero T
	raw, err := readThrough(ctx, c, key, fetchRaw)
	if err != nil {
		return zero, err
	}
	v, err := decode(raw)
	if err == nil {
		return v, nil
	}

	log.WithField("key", key).Warn("cached entry failed to decode, invalidating and refetching once")
	if ierr := c.invalidate(key); ierr != nil {
		return zero, ierr
	}
	raw, err = readThrough(ctx, c, key, fetchRaw)
	if err != nil {
		return zero, err
	}
	return decode(raw)
}

// Pin marks key as referenced by an in-progress replay; the hot tier's LRU
// may still evict it, but the value survives in overflow until Unpin.
func (c *Cache) Pin(key string) { c.pins.pin(key) }

// Unpin releases a prior Pin. When the refcount reaches zero, any
// overflow copy of key is dropped.
func (c *Cache) Unpin(key string) { c.pins.unpin(key) }

// GetObject reads an object from the cache, fetching via fetch on a miss.
func (c *Cache) GetObject(ctx context.Context, key model.ObjectKey, fetch Fetcher[model.Object]) (model.Object, error) {
	cacheKey := ObjectCacheKey(key)
	return getDecoded(ctx, c, cacheKey, func(ctx context.Context) ([]byte, error) {
		o, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return wire.EncodeObject(&o), nil
	}, func(raw []byte) (model.Object, error) {
		o, err := wire.DecodeObject(raw)
		if err != nil {
			return model.Object{}, err
		}
		return *o, nil
	})
}

// GetPackage reads a package from the cache, keyed by (original id,
// checkpoint).
func (c *Cache) GetPackage(ctx context.Context, originalID model.PackageID, checkpoint uint64, fetch Fetcher[model.Package]) (model.Package, error) {
	cacheKey := PackageCacheKey(originalID, checkpoint)
	return getDecoded(ctx, c, cacheKey, func(ctx context.Context) ([]byte, error) {
		p, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return wire.EncodePackage(&p), nil
	}, func(raw []byte) (model.Package, error) {
		p, err := wire.DecodePackage(raw)
		if err != nil {
			return model.Package{}, err
		}
		return *p, nil
	})
}

// GetTransaction reads a (transaction, effects) pair from the cache.
func (c *Cache) GetTransaction(ctx context.Context, digest model.Digest, fetch Fetcher[TxAndEffects]) (model.Transaction, model.Effects, error) {
	cacheKey := TransactionCacheKey(digest)
	te, err := getDecoded(ctx, c, cacheKey, func(ctx context.Context) ([]byte, error) {
		te, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return encodeTxAndEffects(te), nil
	}, func(raw []byte) (TxAndEffects, error) {
		tx, effects, err := decodeTxAndEffects(raw)
		if err != nil {
			return TxAndEffects{}, err
		}
		return TxAndEffects{Tx: tx, Effects: effects}, nil
	})
	if err != nil {
		return model.Transaction{}, model.Effects{}, err
	}
	return te.Tx, te.Effects, nil
}

// TxAndEffects bundles a transaction with its recorded effects, the unit
// the transaction keyspace actually stores.
type TxAndEffects struct {
	Tx      model.Transaction
	Effects model.Effects
}

// WarmClosure records, alongside a cached package, the transitive
// dependency id set so bulk warmups skip re-resolving linkage.
func (c *Cache) WarmClosure(originalID model.PackageID, checkpoint uint64, closure []model.PackageID) error {
	key := ClosureCacheKey(originalID, checkpoint)
	w := wire.NewWriter()
	w.WriteUvarint(uint64(len(closure)))
	for _, id := range closure {
		w.WriteBytes(id[:])
	}
	if err := c.cold.Set([]byte(key), w.Bytes(), pebble.Sync); err != nil {
		return errtax.Host("pebble closure write", err)
	}
	return nil
}

// Closure returns a previously-recorded transitive dependency set, or
// false if none was recorded.
func (c *Cache) Closure(originalID model.PackageID, checkpoint uint64) ([]model.PackageID, bool, error) {
	key := ClosureCacheKey(originalID, checkpoint)
	data, closer, err := c.cold.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errtax.Host("pebble closure read", err)
	}
	defer closer.Close()

	r, err := wire.NewReader(data)
	if err != nil {
		return nil, false, err
	}
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, false, err
	}
	ids := make([]model.PackageID, 0, n)
	for i := uint64(0); i < n; i++ {
		b, err := r.ReadBytes()
		if err != nil {
			return nil, false, err
		}
		var id model.PackageID
		copy(id[:], b)
		ids = append(ids, id)
	}
	return ids, true, nil
}

// Close releases the cold-tier handle.
func (c *Cache) Close() error {
	if err := c.cold.Close(); err != nil {
		return errtax.Host("close pebble cache", err)
	}
	return nil
}

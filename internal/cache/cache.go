package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"stockdash/internal/metrics"
)

// entry stores one producer result with the time it was fetched.
type entry struct {
	value     any
	err       error
	fetchedAt time.Time
	ttl       time.Duration
}

func (e entry) valid(now time.Time) bool { return now.Sub(e.fetchedAt) < e.ttl }

// Cache memoizes producer results per key for a caller-chosen TTL.
// Concurrent misses on the same key share one producer call. Producer
// errors are stored only when FailureTTL is positive.
type Cache struct {
	FailureTTL   time.Duration
	MaxItems     int
	FetchTimeout time.Duration

	now func() time.Time
	log *zap.Logger

	mu    sync.RWMutex
	items map[string]entry
	sf    singleflight.Group
}

type Option func(*Cache)

// WithFailureTTL caches producer errors for d. Zero disables negative caching.
func WithFailureTTL(d time.Duration) Option { return func(c *Cache) { c.FailureTTL = d } }

// WithMaxItems caps the number of entries. Zero means unbounded.
func WithMaxItems(n int) Option { return func(c *Cache) { c.MaxItems = n } }

// WithFetchTimeout bounds a shared producer call. Zero means no limit
// beyond the producer's own.
func WithFetchTimeout(d time.Duration) Option { return func(c *Cache) { c.FetchTimeout = d } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		FetchTimeout: 30 * time.Second,
		now:          time.Now,
		log:          zap.NewNop(),
		items:        make(map[string]entry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key builds a cache key from an operation name and its arguments.
func Key(op string, args ...any) string {
	if len(args) == 0 {
		return op
	}
	var b strings.Builder
	b.WriteString(op)
	for _, a := range args {
		b.WriteByte('|')
		fmt.Fprint(&b, a)
	}
	return b.String()
}

// op returns the operation part of a key, used as a metrics label.
func op(key string) string {
	if i := strings.IndexByte(key, '|'); i >= 0 {
		return key[:i]
	}
	return key
}

// GetOrFetch returns the cached value for key when it is younger than ttl,
// otherwise runs fetch and stores its result. A non-positive ttl disables
// caching for the call.
//
// The producer is shared by every concurrent caller of key, so it runs on a
// context detached from any single caller's cancellation and bounded by
// FetchTimeout. Each caller still stops waiting when its own ctx is done.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	if ttl <= 0 {
		return fetch(ctx)
	}
	label := op(key)
	if e, ok := c.lookup(key); ok {
		metrics.CacheRequests.WithLabelValues(label, "hit").Inc()
		return e.value, e.err
	}

	ch := c.sf.DoChan(key, func() (any, error) {
		// Another caller may have filled the entry while we queued.
		if e, ok := c.lookup(key); ok {
			return e.value, e.err
		}
		metrics.CacheRequests.WithLabelValues(label, "miss").Inc()

		fctx, cancel := c.fetchContext(ctx)
		defer cancel()
		val, err := fetch(fctx)
		if err != nil {
			metrics.CacheRequests.WithLabelValues(label, "error").Inc()
			c.log.Debug("producer failed", zap.String("key", key), zap.Error(err))
			if c.FailureTTL > 0 {
				c.store(key, entry{err: err, fetchedAt: c.now(), ttl: c.FailureTTL})
			}
			return nil, err
		}
		c.store(key, entry{value: val, fetchedAt: c.now(), ttl: ttl})
		return val, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.Val, r.Err
	}
}

func (c *Cache) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.FetchTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, c.FetchTimeout)
}

func (c *Cache) lookup(key string) (entry, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !e.valid(c.now()) {
		return entry{}, false
	}
	return e, true
}

func (c *Cache) store(key string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = e
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		c.evictLocked()
	}
}

// evictLocked drops expired entries, then the oldest ones, until the cache
// fits MaxItems.
func (c *Cache) evictLocked() {
	now := c.now()
	for k, e := range c.items {
		if len(c.items) <= c.MaxItems {
			return
		}
		if !e.valid(now) {
			delete(c.items, k)
		}
	}
	for len(c.items) > c.MaxItems {
		var (
			oldestKey string
			oldest    time.Time
		)
		for k, e := range c.items {
			if oldestKey == "" || e.fetchedAt.Before(oldest) {
				oldestKey, oldest = k, e.fetchedAt
			}
		}
		delete(c.items, oldestKey)
	}
}

// Invalidate drops key so the next GetOrFetch refetches.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Purge drops expired entries and returns how many were removed.
func (c *Cache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.items {
		if !e.valid(now) {
			delete(c.items, k)
			n++
		}
	}
	metrics.CacheEntries.Set(float64(len(c.items)))
	return n
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Fetch is the typed form of GetOrFetch.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.GetOrFetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: key %q holds %T", key, v)
	}
	return t, nil
}

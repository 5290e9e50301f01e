// Package query is a keyed async memoization layer: cached results with
// staleness, deduplicated in-flight fetches and supersede-on-key-change.
package query

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/hxuan190/swap-engine/internal/metrics"
)

// DefaultFetchTimeout bounds a shared fetch once it no longer follows any
// caller's context.
const DefaultFetchTimeout = 30 * time.Second

type Fetcher[V any] func(ctx context.Context) (V, error)

type Cache[V any] struct {
	store        *ttlcache.Cache[string, V]
	group        singleflight.Group
	fetchTimeout time.Duration
}

type CacheOption func(*cacheOptions)

type cacheOptions struct {
	fetchTimeout time.Duration
}

func WithFetchTimeout(d time.Duration) CacheOption {
	return func(o *cacheOptions) { o.fetchTimeout = d }
}

// NewCache creates a cache whose entries go stale after ttl.
func NewCache[V any](ttl time.Duration, opts ...CacheOption) *Cache[V] {
	o := cacheOptions{fetchTimeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		store: ttlcache.New[string, V](
			ttlcache.WithTTL[string, V](ttl),
			ttlcache.WithDisableTouchOnHit[string, V](),
		),
		fetchTimeout: o.fetchTimeout,
	}
}

// Start runs the expired-entry cleanup loop until Stop is called.
func (c *Cache[V]) Start() {
	go c.store.Start()
}

func (c *Cache[V]) Stop() {
	c.store.Stop()
}

// Get returns a fresh cached value.
func (c *Cache[V]) Get(key string) (V, bool) {
	item := c.store.Get(key)
	if item == nil || item.IsExpired() {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

// Fetch returns the cached value for key or runs fn once for all concurrent callers.
func (c *Cache[V]) Fetch(ctx context.Context, key string, fn Fetcher[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		metrics.QueryCacheHits.Inc()
		return v, nil
	}
	metrics.QueryCacheMisses.Inc()
	return c.Refresh(ctx, key, fn)
}

// Refresh always fetches, ignoring any cached value, and stores the result.
// Callers joining the same key share one fetch. It runs detached from the
// caller that started it, so one caller giving up does not fail the others;
// each caller stops waiting when its own ctx ends.
func (c *Cache[V]) Refresh(ctx context.Context, key string, fn Fetcher[V]) (V, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		v, err := fn(fetchCtx)
		if err != nil {
			return v, err
		}
		c.store.Set(key, v, ttlcache.DefaultTTL)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

func (c *Cache[V]) Invalidate(key string) {
	c.store.Delete(key)
	c.group.Forget(key)
}

func (c *Cache[V]) Len() int {
	return c.store.Len()
}

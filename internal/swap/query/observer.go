package query

import (
	"context"
	"sync"
	"time"

	"github.com/hxuan190/swap-engine/internal/metrics"
)

type Result[V any] struct {
	Key       string
	Value     V
	Err       error
	UpdatedAt time.Time
}

// Observer tracks a single current key. Results for any other key are
// dropped, so a slow response for an old input never overwrites state that
// belongs to the new one.
type Observer[V any] struct {
	mu        sync.Mutex
	cache     *Cache[V]
	key       string
	gen       uint64
	keyCtx    context.Context
	keyCancel context.CancelFunc
	state     *Result[V]

	onUpdate func(Result[V])
}

func NewObserver[V any](cache *Cache[V], onUpdate func(Result[V])) *Observer[V] {
	return &Observer[V]{cache: cache, onUpdate: onUpdate}
}

// SetKey switches the observer to key and cancels every fetch started for the
// previous key. It is a no-op when key is already current.
func (o *Observer[V]) SetKey(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.setKeyLocked(key)
}

func (o *Observer[V]) setKeyLocked(key string) {
	if key == o.key && o.keyCtx != nil {
		return
	}
	if o.keyCancel != nil {
		o.keyCancel()
	}
	o.key = key
	o.gen++
	o.keyCtx, o.keyCancel = context.WithCancel(context.Background())
	o.state = nil
}

func (o *Observer[V]) Key() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.key
}

// State returns the latest result applied for the current key.
func (o *Observer[V]) State() (Result[V], bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return Result[V]{Key: o.key}, false
	}
	return *o.state, true
}

// Query makes key current and fetches it. The returned bool is false when the
// key was superseded before the fetch finished; the result was not applied.
// With force the cache is bypassed.
func (o *Observer[V]) Query(ctx context.Context, key string, fn Fetcher[V], force bool) (Result[V], bool) {
	o.mu.Lock()
	o.setKeyLocked(key)
	gen := o.gen
	keyCtx := o.keyCtx
	o.mu.Unlock()

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(keyCtx, cancel)
	defer stop()

	var (
		v   V
		err error
	)
	if force {
		v, err = o.cache.Refresh(fetchCtx, key, fn)
	} else {
		v, err = o.cache.Fetch(fetchCtx, key, fn)
	}
	res := Result[V]{Key: key, Value: v, Err: err, UpdatedAt: time.Now()}

	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		metrics.SupersededResults.Inc()
		return res, false
	}
	o.state = &res
	o.mu.Unlock()

	if o.onUpdate != nil {
		o.onUpdate(res)
	}
	return res, true
}

// Close cancels any in-flight fetch and clears state.
func (o *Observer[V]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.keyCancel != nil {
		o.keyCancel()
	}
	o.key = ""
	o.keyCtx, o.keyCancel = nil, nil
	o.gen++
	o.state = nil
}

package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zeebo/assert"
)

func TestCacheFetchHitsAndDedupes(t *testing.T) {
	c := NewCache[int](time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), "k", fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, calls.Load(), int32(1))
	for _, v := range results {
		assert.Equal(t, v, 42)
	}

	v, err := c.Fetch(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	assert.NoError(t, err)
	assert.Equal(t, v, 42)

	v, err = c.Refresh(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	assert.NoError(t, err)
	assert.Equal(t, v, 7)
}

func TestCacheStaleness(t *testing.T) {
	c := NewCache[string](20 * time.Millisecond)
	_, err := c.Fetch(context.Background(), "k", func(context.Context) (string, error) { return "old", nil })
	assert.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)

	v, err := c.Fetch(context.Background(), "k", func(context.Context) (string, error) { return "new", nil })
	assert.NoError(t, err)
	assert.Equal(t, v, "new")
}

func TestCacheErrorsAreNotCached(t *testing.T) {
	c := NewCache[int](time.Minute)
	boom := errors.New("boom")
	_, err := c.Fetch(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	assert.True(t, errors.Is(err, boom))

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestObserverDropsSupersededResult(t *testing.T) {
	c := NewCache[string](time.Minute)
	var updates []string
	var mu sync.Mutex
	obs := NewObserver(c, func(r Result[string]) {
		mu.Lock()
		updates = append(updates, r.Key)
		mu.Unlock()
	})

	started := make(chan struct{})
	f1Done := make(chan bool, 1)
	go func() {
		_, applied := obs.Query(context.Background(), "F1", func(ctx context.Context) (string, error) {
			close(started)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second):
				return "stale-price", nil
			}
		}, false)
		f1Done <- applied
	}()

	<-started
	res, applied := obs.Query(context.Background(), "F2", func(context.Context) (string, error) {
		return "fresh-price", nil
	}, false)
	assert.True(t, applied)
	assert.Equal(t, res.Value, "fresh-price")

	assert.False(t, <-f1Done)

	state, ok := obs.State()
	assert.True(t, ok)
	assert.Equal(t, state.Key, "F2")
	assert.Equal(t, state.Value, "fresh-price")

	mu.Lock()
	defer mu.Unlock()
	assert.DeepEqual(t, updates, []string{"F2"})
}

func TestObserverLateResultWithoutCancellation(t *testing.T) {
	c := NewCache[string](time.Minute)
	obs := NewObserver[string](c, nil)

	release := make(chan struct{})
	done := make(chan bool, 1)
	go func() {
		_, applied := obs.Query(context.Background(), "F1", func(context.Context) (string, error) {
			<-release
			return "stale", nil
		}, false)
		done <- applied
	}()

	time.Sleep(10 * time.Millisecond)
	obs.SetKey("F2")
	close(release)

	assert.False(t, <-done)
	_, ok := obs.State()
	assert.False(t, ok)
	assert.Equal(t, obs.Key(), "F2")
}

func TestObserverSameKeyKeepsState(t *testing.T) {
	c := NewCache[int](time.Minute)
	obs := NewObserver[int](c, nil)

	_, applied := obs.Query(context.Background(), "k", func(context.Context) (int, error) { return 1, nil }, false)
	assert.True(t, applied)
	obs.SetKey("k")

	state, ok := obs.State()
	assert.True(t, ok)
	assert.Equal(t, state.Value, 1)

	res, applied := obs.Query(context.Background(), "k", func(context.Context) (int, error) { return 2, nil }, true)
	assert.True(t, applied)
	assert.Equal(t, res.Value, 2)

	obs.Close()
	_, ok = obs.State()
	assert.False(t, ok)
}

func TestSharedFetchSurvivesSupersededObserver(t *testing.T) {
	c := NewCache[int](time.Minute)
	a := NewObserver[int](c, nil)
	b := NewObserver[int](c, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (int, error) {
		close(started)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-release:
			return 42, nil
		}
	}

	aDone := make(chan bool, 1)
	go func() {
		_, applied := a.Query(context.Background(), "k", fn, false)
		aDone <- applied
	}()
	<-started

	type outcome struct {
		res     Result[int]
		applied bool
	}
	bDone := make(chan outcome, 1)
	go func() {
		res, applied := b.Query(context.Background(), "k", func(context.Context) (int, error) {
			t.Error("joined fetch ran twice")
			return 0, nil
		}, false)
		bDone <- outcome{res, applied}
	}()
	time.Sleep(10 * time.Millisecond)

	a.SetKey("other")
	assert.False(t, <-aDone)
	close(release)

	got := <-bDone
	assert.True(t, got.applied)
	assert.NoError(t, got.res.Err)
	assert.Equal(t, got.res.Value, 42)
}

func TestSharedFetchTimeout(t *testing.T) {
	c := NewCache[int](time.Minute, WithFetchTimeout(20*time.Millisecond))
	_, err := c.Refresh(context.Background(), "k", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

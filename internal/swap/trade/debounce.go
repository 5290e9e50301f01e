package trade

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Option configures the timing helpers in this package.
type Option func(*timing)

type timing struct {
	clock clock.Clock
}

// WithClock drives timers from c instead of the wall clock.
func WithClock(c clock.Clock) Option {
	return func(t *timing) { t.clock = c }
}

func newTiming(opts []Option) timing {
	t := timing{clock: clock.New()}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Debouncer coalesces bursts of values into the last one after a quiet
// period. Values for which skip(prev, next) is true are emitted immediately.
type Debouncer[T any] struct {
	delay time.Duration
	emit  func(T)
	skip  func(prev, next T) bool
	clock clock.Clock

	// emitMu orders emissions; seq is re-checked under it so a value
	// superseded while waiting is never emitted after its successor.
	emitMu sync.Mutex

	mu      sync.Mutex
	timer   *clock.Timer
	prev    T
	hasPrev bool
	seq     uint64
}

func NewDebouncer[T any](delay time.Duration, emit func(T), skip func(prev, next T) bool, opts ...Option) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, emit: emit, skip: skip, clock: newTiming(opts).clock}
}

// NewTradeArgsDebouncer skips the quiet period when the exact field flips.
func NewTradeArgsDebouncer(delay time.Duration, emit func(UseTradeArgs), opts ...Option) *Debouncer[UseTradeArgs] {
	return NewDebouncer(delay, emit, func(prev, next UseTradeArgs) bool {
		return prev.ExactField != next.ExactField
	}, opts...)
}

func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	immediate := d.delay <= 0 || (d.hasPrev && d.skip != nil && d.skip(d.prev, v))
	d.prev, d.hasPrev = v, true
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if immediate {
		d.mu.Unlock()
		d.emitIfCurrent(seq, v)
		return
	}
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.emitIfCurrent(seq, v)
	})
	d.mu.Unlock()
}

func (d *Debouncer[T]) emitIfCurrent(seq uint64, v T) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.emit(v)
}

// Stop drops any pending value.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

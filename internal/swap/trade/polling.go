package trade

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/hxuan190/swap-engine/internal/config"
	"github.com/hxuan190/swap-engine/internal/domain"
)

// PollingPolicy resolves the quote refresh interval per chain. Overrides win,
// then the fast-poll experiment interval, then the block-time default.
type PollingPolicy struct {
	L1        time.Duration
	L2        time.Duration
	Fast      time.Duration
	Overrides map[domain.ChainID]time.Duration
}

func NewPollingPolicy(cfg *config.SwapConfig) PollingPolicy {
	overrides := make(map[domain.ChainID]time.Duration, len(cfg.PollOverrides))
	for chain, d := range cfg.PollOverrides {
		overrides[domain.ChainID(chain)] = d
	}
	return PollingPolicy{
		L1:        cfg.L1PollInterval,
		L2:        cfg.L2PollInterval,
		Fast:      cfg.FastPollInterval,
		Overrides: overrides,
	}
}

func (p PollingPolicy) Interval(chain domain.ChainID) time.Duration {
	if d, ok := p.Overrides[chain]; ok {
		return d
	}
	if p.Fast > 0 {
		return p.Fast
	}
	if chain.IsL2() {
		return p.L2
	}
	return p.L1
}

// Poller invokes fn every interval until stopped. Ticks while paused are skipped.
type Poller struct {
	interval time.Duration
	fn       func(ctx context.Context)
	clock    clock.Clock

	mu       sync.Mutex
	paused   bool
	stopChan chan struct{}
	done     chan struct{}
}

func NewPoller(interval time.Duration, fn func(ctx context.Context), opts ...Option) *Poller {
	return &Poller{interval: interval, fn: fn, clock: newTiming(opts).clock}
}

func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.stopChan != nil {
		p.mu.Unlock()
		return
	}
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stopChan, p.done
	ticker := p.clock.Ticker(p.interval)
	p.mu.Unlock()

	go p.loop(ctx, ticker, stop, done)
}

func (p *Poller) loop(ctx context.Context, ticker *clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if p.Paused() {
				continue
			}
			p.fn(ctx)
		}
	}
}

func (p *Poller) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *Poller) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

func (p *Poller) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Stop halts the loop and waits for an in-progress tick to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	stop, done := p.stopChan, p.done
	p.stopChan, p.done = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

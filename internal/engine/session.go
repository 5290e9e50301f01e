package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/swap/acceptance"
	"github.com/hxuan190/swap-engine/internal/swap/query"
	"github.com/hxuan190/swap-engine/internal/swap/steps"
	"github.com/hxuan190/swap-engine/internal/swap/trade"
	"github.com/hxuan190/swap-engine/internal/swap/txinfo"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

// View is a point-in-time copy of a session for transports.
type View struct {
	ID          string `json:"id"`
	Account     string `json:"account"`
	Fingerprint string `json:"fingerprint,omitempty"`

	Trade      domain.Trade            `json:"trade,omitempty"`
	Indicative *domain.IndicativeTrade `json:"indicativeTrade,omitempty"`
	Accepted   domain.Trade            `json:"acceptedTrade,omitempty"`

	RequiresAcceptance bool               `json:"requiresAcceptance"`
	Outcome            acceptance.Outcome `json:"acceptanceOutcome,omitempty"`
	PriceChange        decimal.Decimal    `json:"priceChangePct"`

	SwapInfo  *domain.SwapTxAndGasInfo `json:"swapInfo,omitempty"`
	Steps     []steps.Step             `json:"steps,omitempty"`
	Executing bool                     `json:"executing"`

	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is one user's swap form: the current input, its quotes, the
// accepted trade and the step flow executing it.
type Session struct {
	id      string
	account string
	engine  *Engine
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	acceptance *acceptance.Machine
	quote      *query.Observer[trade.TradeResult]
	indicative *query.Observer[*domain.IndicativeTrade]
	debouncer  *trade.Debouncer[trade.UseTradeArgs]

	mu        sync.Mutex
	args      trade.UseTradeArgs
	input     *trade.ValidatedTradeInput
	poller    *trade.Poller
	decision  acceptance.Decision
	info      *domain.SwapTxAndGasInfo
	params    txinfo.Params
	flow      *steps.Flow
	lastErr   error
	updatedAt time.Time

	closeOnce sync.Once
}

func newSession(e *Engine, id, account string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		account:    account,
		engine:     e,
		logger:     e.logger.Component("swap-session", "session", id),
		ctx:        ctx,
		cancel:     cancel,
		acceptance: acceptance.NewMachine(e.conf.AcceptanceTolerance),
	}
	s.quote = query.NewObserver(e.trades.TradeCache(), s.onTrade)
	s.indicative = query.NewObserver(e.trades.IndicativeCache(), nil)
	s.debouncer = trade.NewTradeArgsDebouncer(e.conf.Debounce, s.applyInput, trade.WithClock(e.clock))
	return s
}

func (s *Session) ID() string      { return s.id }
func (s *Session) Account() string { return s.account }

// UpdateInput records new form input. Bursts are coalesced and the quote is
// refreshed once the input settles.
func (s *Session) UpdateInput(args trade.UseTradeArgs) {
	args.Account = s.account
	s.debouncer.Push(s.engine.withSettings(args))
}

// SetInput applies input immediately and fetches its quote.
func (s *Session) SetInput(ctx context.Context, args trade.UseTradeArgs) (View, error) {
	args.Account = s.account
	s.debouncer.Stop()
	s.setInput(s.engine.withSettings(args))
	return s.Refresh(ctx, false)
}

func (s *Session) applyInput(args trade.UseTradeArgs) {
	s.setInput(args)
	go func() {
		if _, err := s.Refresh(s.ctx, false); err != nil && s.ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("[swapSession] quote refresh failed")
		}
	}()
}

func (s *Session) setInput(args trade.UseTradeArgs) {
	input := trade.PrepareTradeInput(args)
	opts := s.engine.trades.QueryOptions(args)
	indOpts := s.engine.trades.IndicativeQueryOptions(args)

	s.mu.Lock()
	prev := s.input
	s.args = args
	s.input = input
	s.lastErr = nil
	oldPoller := s.poller
	s.poller = nil
	s.mu.Unlock()

	if oldPoller != nil {
		oldPoller.Stop()
	}

	fingerprint := ""
	if input != nil {
		fingerprint = input.Fingerprint()
	}
	if prev == nil || prev.Fingerprint() != fingerprint {
		s.dropIdleFlow()
	}
	s.acceptance.OnInputChanged(fingerprint, input.SamePair(prev))
	s.quote.SetKey(opts.Key.String())
	s.indicative.SetKey(indOpts.Key.String())

	if !opts.Enabled || opts.PollInterval <= 0 {
		return
	}
	p := trade.NewPoller(opts.PollInterval, s.poll, trade.WithClock(s.engine.clock))
	s.mu.Lock()
	if s.input != input {
		// Superseded while the old poller drained.
		s.mu.Unlock()
		return
	}
	s.poller = p
	s.mu.Unlock()
	p.Start(s.ctx)
	s.syncPolling()
}

// dropIdleFlow discards a flow that is not submitting so a new input never
// shows or drives the previous trade's steps.
func (s *Session) dropIdleFlow() {
	s.mu.Lock()
	f := s.flow
	if f == nil || f.Executing() {
		s.mu.Unlock()
		return
	}
	s.flow, s.info, s.params = nil, nil, txinfo.Params{}
	s.mu.Unlock()
	f.Abort()
}

func (s *Session) poll(ctx context.Context) {
	if _, err := s.Refresh(ctx, true); err != nil && ctx.Err() == nil {
		s.logger.Debug().Err(err).Msg("[swapSession] poll refresh failed")
	}
}

// Refresh fetches the indicative and definitive quotes for the current input
// concurrently. With force the cached quote is bypassed.
func (s *Session) Refresh(ctx context.Context, force bool) (View, error) {
	s.mu.Lock()
	args, input := s.args, s.input
	s.mu.Unlock()

	opts := s.engine.trades.QueryOptions(args)
	if !opts.Enabled {
		return s.View(), nil
	}
	indOpts := s.engine.trades.IndicativeQueryOptions(args)
	indInput := s.engine.trades.PrepareIndicativeTradeInput(args)

	g, gctx := errgroup.WithContext(ctx)
	if indOpts.Enabled && !force {
		g.Go(func() error {
			res, applied := s.indicative.Query(gctx, indOpts.Key.String(), func(ctx context.Context) (*domain.IndicativeTrade, error) {
				return s.engine.trades.FetchIndicativeTrade(ctx, indInput)
			}, false)
			if applied && res.Err != nil && !errors.Is(res.Err, context.Canceled) {
				s.logger.Debug().Err(res.Err).Msg("[swapSession] indicative quote failed")
			}
			return nil
		})
	}
	g.Go(func() error {
		res, applied := s.quote.Query(gctx, opts.Key.String(), func(ctx context.Context) (trade.TradeResult, error) {
			return s.engine.trades.FetchTrade(ctx, input)
		}, force)
		if !applied {
			return nil
		}
		return res.Err
	})
	err := g.Wait()

	s.mu.Lock()
	s.lastErr = err
	s.updatedAt = s.engine.clock.Now()
	s.mu.Unlock()
	return s.View(), err
}

// onTrade runs for every definitive result applied to the current key.
func (s *Session) onTrade(res query.Result[trade.TradeResult]) {
	if res.Err != nil {
		return
	}
	d := s.acceptance.OnNewTrade(res.Value.Trade, s.executing())
	s.mu.Lock()
	s.decision = d
	s.mu.Unlock()
}

// Accept confirms the pending trade shown to the user.
func (s *Session) Accept() (View, error) {
	if !s.acceptance.AcceptCurrent() {
		if _, ok := s.acceptance.Accepted(); !ok {
			return s.View(), ErrNoAcceptedTrade
		}
	}
	s.mu.Lock()
	s.decision = acceptance.Decision{Outcome: acceptance.OutcomeUnchanged}
	s.mu.Unlock()
	return s.View(), nil
}

// PrepareSwap builds transactions for the accepted trade and starts a new
// step flow, abandoning any previous one.
func (s *Session) PrepareSwap(ctx context.Context, urgency tradingapi.Urgency) (View, error) {
	if s.acceptance.RequiresAcceptance() {
		return s.View(), ErrAcceptanceRequired
	}
	snap, ok := s.acceptance.Accepted()
	if !ok {
		return s.View(), ErrNoAcceptedTrade
	}
	t := snap.Trade

	approval, err := s.engine.approvals.Check(ctx, s.account, t)
	if err != nil {
		return s.View(), errors.Wrap(err, "check approval")
	}
	settings := s.engine.Settings(s.account)
	if urgency == "" {
		urgency = tradingapi.UrgencyNormal
	}
	params := txinfo.Params{
		DerivedSwapInfo: txinfo.DerivedSwapInfo{
			ChainID:    t.InputAmount().Currency.ChainID,
			Account:    s.account,
			TxDeadline: s.engine.clock.Now().Add(settings.TxDeadline),
			Urgency:    urgency,
		},
		Trade:          t,
		ApprovalTxInfo: approval,
	}
	info, err := s.engine.txinfo.GetSwapTxAndGasInfo(ctx, params)
	if err != nil {
		return s.View(), err
	}
	list, err := steps.Generate(info)
	if err != nil {
		return s.View(), err
	}
	flow := steps.NewFlow(list, steps.WithClock(s.engine.clock), steps.WithListener(s.onStep))

	s.mu.Lock()
	old := s.flow
	s.flow, s.info, s.params = flow, info, params
	s.mu.Unlock()
	if old != nil {
		old.Abort()
	}

	if _, err := flow.Start(); err != nil {
		return s.View(), err
	}
	s.logger.Info().
		Str("routing", string(info.Routing)).
		Strs("steps", stepTypes(list)).
		Msg("[swapSession] swap prepared")
	s.syncPolling()
	return s.View(), nil
}

func (s *Session) onStep(i int, step steps.Step) {
	s.logger.Debug().Int("index", i).Str("step", string(step.Type)).Str("status", string(step.Status)).Msg("[swapSession] step transition")
}

func (s *Session) currentFlow() (*steps.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow == nil {
		return nil, ErrNoFlow
	}
	return s.flow, nil
}

// BeginStep marks that the executor asked the wallet for step i.
func (s *Session) BeginStep(i int) (View, error) {
	f, err := s.currentFlow()
	if err != nil {
		return s.View(), err
	}
	err = f.Begin(i)
	s.syncPolling()
	return s.View(), err
}

// CompleteStep records the outcome of step i. When the next step consumes
// the signature just produced, its transaction is built here.
func (s *Session) CompleteStep(ctx context.Context, i int, res steps.Result) (View, error) {
	f, err := s.currentFlow()
	if err != nil {
		return s.View(), err
	}
	if err := f.Complete(i, res); err != nil {
		return s.View(), err
	}
	if err := s.buildAsync(ctx, f); err != nil {
		return s.View(), err
	}
	if f.Done() {
		// The accepted trade is spent; the next quote starts a new acceptance.
		s.acceptance.Settle()
		s.mu.Lock()
		s.decision = acceptance.Decision{}
		s.mu.Unlock()
		s.logger.Info().Msg("[swapSession] swap complete")
	}
	s.syncPolling()
	return s.View(), nil
}

func (s *Session) buildAsync(ctx context.Context, f *steps.Flow) error {
	i, next, ok := f.Current()
	if !ok || !next.ConsumesSignature || next.Signature == "" || next.TxRequest != nil {
		return nil
	}
	s.mu.Lock()
	info, params := s.info, s.params
	s.mu.Unlock()

	builder, err := s.engine.txinfo.AsyncBuilder(info.Routing)
	if err != nil {
		return err
	}
	tx, err := builder.BuildWithSignature(ctx, params, next.Signature)
	if err != nil {
		_ = f.Fail(i, err)
		return errors.Wrap(err, "build swap with signature")
	}
	return f.SetTxRequest(i, tx)
}

// FailStep records a rejected signature or a failed submission.
func (s *Session) FailStep(i int, reason string) (View, error) {
	f, err := s.currentFlow()
	if err != nil {
		return s.View(), err
	}
	var cause error
	if reason != "" {
		cause = errors.New(reason)
	}
	err = f.Fail(i, cause)
	s.syncPolling()
	return s.View(), err
}

func (s *Session) RetryStep(i int) (View, error) {
	f, err := s.currentFlow()
	if err != nil {
		return s.View(), err
	}
	err = f.Retry(i)
	return s.View(), err
}

// Abort abandons the current flow. Quote polling resumes.
func (s *Session) Abort() View {
	s.mu.Lock()
	f := s.flow
	s.mu.Unlock()
	if f != nil {
		f.Abort()
	}
	s.syncPolling()
	return s.View()
}

func (s *Session) executing() bool {
	s.mu.Lock()
	f := s.flow
	s.mu.Unlock()
	return f != nil && f.Executing()
}

// syncPolling pauses quote polling while a submission is underway.
func (s *Session) syncPolling() {
	s.mu.Lock()
	p := s.poller
	s.mu.Unlock()
	if p == nil {
		return
	}
	if s.executing() {
		p.Pause()
	} else {
		p.Resume()
	}
}

func (s *Session) PollingPaused() bool {
	s.mu.Lock()
	p := s.poller
	s.mu.Unlock()
	return p != nil && p.Paused()
}

func (s *Session) View() View {
	v := View{ID: s.id, Account: s.account}

	if res, ok := s.quote.State(); ok && res.Err == nil {
		v.Trade = res.Value.Trade
	}
	if res, ok := s.indicative.State(); ok && res.Err == nil {
		v.Indicative = res.Value
	}
	if snap, ok := s.acceptance.Accepted(); ok {
		v.Accepted = snap.Trade
	}
	v.RequiresAcceptance = s.acceptance.RequiresAcceptance()

	s.mu.Lock()
	if s.input != nil {
		v.Fingerprint = s.input.Fingerprint()
	}
	v.Outcome = s.decision.Outcome
	v.PriceChange = s.decision.PriceChange
	v.SwapInfo = s.info
	f := s.flow
	if s.lastErr != nil {
		v.Error = s.lastErr.Error()
	}
	v.UpdatedAt = s.updatedAt
	s.mu.Unlock()

	if f != nil {
		v.Steps = f.Steps()
		v.Executing = f.Executing()
	}
	return v
}

// Close stops polling, cancels in-flight fetches and abandons the flow.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.debouncer.Stop()
		s.cancel()
		s.mu.Lock()
		p, f := s.poller, s.flow
		s.poller = nil
		s.mu.Unlock()
		if p != nil {
			p.Stop()
		}
		if f != nil {
			f.Abort()
		}
		s.quote.Close()
		s.indicative.Close()
		s.acceptance.Reset()
	})
}

func stepTypes(list []*steps.Step) []string {
	out := make([]string, len(list))
	for i, t := range steps.Kinds(list) {
		out[i] = string(t)
	}
	return out
}

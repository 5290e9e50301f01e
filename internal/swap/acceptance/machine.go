// Package acceptance decides when a refreshed quote may replace the one the
// user already saw and when it needs an explicit confirmation.
package acceptance

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/metrics"
)

var hundred = decimal.NewFromInt(100)

type Outcome string

const (
	OutcomeFirst      Outcome = "first"
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeSilent     Outcome = "silent"
	OutcomeRequired   Outcome = "required"
	OutcomeSubmitting Outcome = "submitting"
	OutcomeNone       Outcome = "none"
)

type Decision struct {
	RequiresAcceptance bool
	Outcome            Outcome
	// PriceChange is the signed relative move of the candidate, in percent.
	PriceChange decimal.Decimal
}

// Snapshot is the last trade the user is considered to have approved.
type Snapshot struct {
	Trade       domain.Trade
	Fingerprint string
}

// Machine owns the accepted-trade snapshot. All mutation goes through
// OnNewTrade, AcceptCurrent and the input-change hooks.
type Machine struct {
	mu        sync.Mutex
	tolerance decimal.Decimal
	accepted  *Snapshot
	pending   *Snapshot
	// fingerprint of the input currently being quoted.
	fingerprint string
	logger      zerolog.Logger
}

// NewMachine creates a machine; tolerance is a percentage (1 means 1%).
func NewMachine(tolerance decimal.Decimal) *Machine {
	return &Machine{
		tolerance: tolerance,
		logger:    log.With().Str("component", "trade-acceptance").Logger(),
	}
}

// OnNewTrade evaluates a freshly quoted candidate for the current input.
func (m *Machine) OnNewTrade(candidate domain.Trade, isSubmitting bool) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	fingerprint := m.fingerprint

	if candidate == nil {
		return m.record(Decision{Outcome: OutcomeNone})
	}
	// The in-flight trade is honored as is.
	if isSubmitting {
		return m.record(Decision{Outcome: OutcomeSubmitting})
	}
	if m.accepted == nil {
		m.accepted = &Snapshot{Trade: candidate, Fingerprint: fingerprint}
		m.pending = nil
		return m.record(Decision{Outcome: OutcomeFirst})
	}
	if candidate == m.accepted.Trade {
		m.pending = nil
		return m.record(Decision{Outcome: OutcomeUnchanged})
	}

	change := priceChange(m.accepted.Trade, candidate)
	if !m.requiresAcceptance(m.accepted.Trade, candidate, change) {
		m.accepted = &Snapshot{Trade: candidate, Fingerprint: fingerprint}
		m.pending = nil
		return m.record(Decision{Outcome: OutcomeSilent, PriceChange: change})
	}

	m.pending = &Snapshot{Trade: candidate, Fingerprint: fingerprint}
	m.logger.Debug().
		Str("fingerprint", fingerprint).
		Str("priceChangePct", change.StringFixed(4)).
		Msg("[tradeAcceptance] new trade requires acceptance")
	return m.record(Decision{RequiresAcceptance: true, Outcome: OutcomeRequired, PriceChange: change})
}

func (m *Machine) record(d Decision) Decision {
	metrics.TradeAcceptance.WithLabelValues(string(d.Outcome)).Inc()
	return d
}

func (m *Machine) requiresAcceptance(accepted, candidate domain.Trade, change decimal.Decimal) bool {
	if accepted.TradeType() != candidate.TradeType() {
		return true
	}
	if !accepted.InputAmount().Currency.Equals(candidate.InputAmount().Currency) ||
		!accepted.OutputAmount().Currency.Equals(candidate.OutputAmount().Currency) {
		return true
	}
	return change.Abs().GreaterThan(m.tolerance)
}

// priceChange returns (P' - P) / P in percent; an unpriceable accepted trade
// counts as an unbounded move.
func priceChange(accepted, candidate domain.Trade) decimal.Decimal {
	p := accepted.ExecutionPrice()
	if p.IsZero() {
		return hundred
	}
	return candidate.ExecutionPrice().Sub(p).Div(p).Mul(hundred)
}

// AcceptCurrent promotes the pending trade. It returns false if nothing was pending.
func (m *Machine) AcceptCurrent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return false
	}
	m.accepted = m.pending
	m.pending = nil
	metrics.TradeAcceptance.WithLabelValues("explicit").Inc()
	return true
}

// Accepted returns the trade whose terms must be shown and executed.
func (m *Machine) Accepted() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accepted == nil {
		return Snapshot{}, false
	}
	return *m.accepted, true
}

func (m *Machine) Pending() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Snapshot{}, false
	}
	return *m.pending, true
}

func (m *Machine) RequiresAcceptance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// OnInputChanged records the fingerprint of the input now being quoted and
// clears the snapshot when the new input no longer quotes the same pair.
func (m *Machine) OnInputChanged(fingerprint string, samePair bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fingerprint == fingerprint {
		return
	}
	m.fingerprint = fingerprint
	if !samePair {
		m.accepted = nil
		m.pending = nil
	}
}

// Settle drops the snapshot once its trade has been executed. The next quote
// for the current input is taken as a first trade.
func (m *Machine) Settle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted = nil
	m.pending = nil
}

func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted = nil
	m.pending = nil
	m.fingerprint = ""
}

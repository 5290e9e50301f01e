package steps

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/metrics"
)

var (
	ErrStepTimedOut      = errors.New("step deadline passed, refresh the quote")
	ErrOutOfOrder        = errors.New("step is not the current step")
	ErrInvalidTransition = errors.New("invalid step transition")
	ErrSignatureRequired = errors.New("step is waiting for a signature")
	ErrFlowAborted       = errors.New("flow aborted")
	ErrFlowDone          = errors.New("flow complete")
)

var transitions = map[Status][]Status{
	StatusPreview:    {StatusActive},
	StatusActive:     {StatusInProgress, StatusFailed, StatusTimedOut},
	StatusInProgress: {StatusComplete, StatusFailed},
	// The caller may re-offer a failed step.
	StatusFailed: {StatusActive},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Result is what the executor reports when a step completes.
type Result struct {
	Signature string
	TxHash    string
}

// Listener observes every status change. It runs under the flow's lock and
// must not call back into the flow.
type Listener func(index int, step Step)

type FlowOption func(*Flow)

func WithClock(c clock.Clock) FlowOption {
	return func(f *Flow) { f.clock = c }
}

func WithListener(l Listener) FlowOption {
	return func(f *Flow) { f.listener = l }
}

// Flow drives one generated step list. Only the first incomplete step may
// move, and a step consuming a signature stays in Preview until it has one.
type Flow struct {
	mu     sync.Mutex
	steps  []*Step
	clock  clock.Clock
	timers map[int]*clock.Timer
	// armed counts activations per step so a stale countdown is ignored.
	armed    map[int]int
	aborted  bool
	listener Listener
	logger   zerolog.Logger
}

func NewFlow(steps []*Step, opts ...FlowOption) *Flow {
	f := &Flow{
		steps:  steps,
		clock:  clock.New(),
		timers: make(map[int]*clock.Timer),
		armed:  make(map[int]int),
		logger: log.With().Str("component", "swap-steps").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Steps returns a snapshot of the list.
func (f *Flow) Steps() []Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Step, len(f.steps))
	for i, s := range f.steps {
		out[i] = s.clone()
	}
	return out
}

// Current returns the first step that is not Complete.
func (f *Flow) Current() (int, Step, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.currentLocked()
	if i < 0 {
		return -1, Step{}, false
	}
	return i, f.steps[i].clone(), true
}

func (f *Flow) currentLocked() int {
	for i, s := range f.steps {
		if s.Status != StatusComplete {
			return i
		}
	}
	return -1
}

// Start activates the current step.
func (f *Flow) Start() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.aborted {
		return -1, ErrFlowAborted
	}
	i := f.currentLocked()
	if i < 0 {
		return -1, ErrFlowDone
	}
	switch f.steps[i].Status {
	case StatusActive, StatusInProgress:
		return i, nil
	case StatusTimedOut:
		return i, ErrStepTimedOut
	}
	return i, f.activateLocked(i)
}

func (f *Flow) activateLocked(i int) error {
	s := f.steps[i]
	if s.ConsumesSignature && s.Signature == "" {
		return errors.Wrapf(ErrSignatureRequired, "%s", s.Type)
	}
	if !s.Deadline.IsZero() && !f.clock.Now().Before(s.Deadline) {
		f.setLocked(i, StatusActive)
		f.setLocked(i, StatusTimedOut)
		s.Error = ErrStepTimedOut.Error()
		return ErrStepTimedOut
	}
	if err := f.transitionLocked(i, StatusActive); err != nil {
		return err
	}
	s.Error = ""
	f.armLocked(i)
	return nil
}

func (f *Flow) armLocked(i int) {
	s := f.steps[i]
	if s.Deadline.IsZero() {
		return
	}
	f.armed[i]++
	gen := f.armed[i]
	f.timers[i] = f.clock.AfterFunc(s.Deadline.Sub(f.clock.Now()), func() {
		f.expire(i, gen)
	})
}

func (f *Flow) disarmLocked(i int) {
	if t, ok := f.timers[i]; ok {
		t.Stop()
		delete(f.timers, i)
	}
	f.armed[i]++
}

func (f *Flow) expire(i, gen int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.armed[i] != gen || f.steps[i].Status != StatusActive {
		return
	}
	delete(f.timers, i)
	f.steps[i].Error = ErrStepTimedOut.Error()
	f.setLocked(i, StatusTimedOut)
	f.logger.Info().Str("step", string(f.steps[i].Type)).Msg("[steps] step timed out")
}

// Begin marks that a signature or submission was requested for step i.
func (f *Flow) Begin(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkCurrentLocked(i); err != nil {
		return err
	}
	if err := f.transitionLocked(i, StatusInProgress); err != nil {
		return err
	}
	f.disarmLocked(i)
	return nil
}

// Complete records the step's result, hands a produced signature to the step
// that consumes it and activates the next step.
func (f *Flow) Complete(i int, res Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkCurrentLocked(i); err != nil {
		return err
	}
	s := f.steps[i]
	if s.ProducesSignature && res.Signature == "" {
		return errors.Wrapf(ErrSignatureRequired, "%s completed without a signature", s.Type)
	}
	if err := f.transitionLocked(i, StatusComplete); err != nil {
		return err
	}
	s.Signature = res.Signature
	s.TxHash = res.TxHash
	if s.ProducesSignature {
		for _, next := range f.steps[i+1:] {
			if next.ConsumesSignature {
				next.Signature = res.Signature
				break
			}
		}
	}

	if next := f.currentLocked(); next >= 0 {
		if err := f.activateLocked(next); err != nil {
			return err
		}
	}
	return nil
}

// SetTxRequest attaches the transaction built for an async step after its
// signature arrived.
func (f *Flow) SetTxRequest(i int, tx *domain.TransactionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.steps) {
		return errors.Wrapf(ErrOutOfOrder, "step %d out of range", i)
	}
	f.steps[i].TxRequest = tx
	return nil
}

// Fail marks step i failed, typically after the user rejected a signature.
func (f *Flow) Fail(i int, cause error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkCurrentLocked(i); err != nil {
		return err
	}
	if err := f.transitionLocked(i, StatusFailed); err != nil {
		return err
	}
	f.disarmLocked(i)
	if cause != nil {
		f.steps[i].Error = cause.Error()
	}
	return nil
}

// Retry re-offers a failed step. A timed out step cannot be retried.
func (f *Flow) Retry(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkCurrentLocked(i); err != nil {
		return err
	}
	if f.steps[i].Status == StatusTimedOut {
		return ErrStepTimedOut
	}
	if f.steps[i].Status != StatusFailed {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", f.steps[i].Status, StatusActive)
	}
	return f.activateLocked(i)
}

// Abort abandons any Active or InProgress step. The flow rejects further
// transitions; a new list must be generated.
func (f *Flow) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.aborted {
		return
	}
	f.aborted = true
	for i, s := range f.steps {
		if s.Status == StatusActive || s.Status == StatusInProgress {
			f.disarmLocked(i)
			s.Error = ErrFlowAborted.Error()
			f.setLocked(i, StatusFailed)
		}
	}
}

// Executing reports whether a submission is underway, which pauses quote
// polling. A finished or aborted flow is not executing.
func (f *Flow) Executing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.aborted || f.currentLocked() < 0 {
		return false
	}
	for _, s := range f.steps {
		if s.Status == StatusInProgress || s.Status == StatusComplete {
			return true
		}
	}
	return false
}

func (f *Flow) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentLocked() < 0
}

// TimedOut reports whether any step expired.
func (f *Flow) TimedOut() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.steps {
		if s.Status == StatusTimedOut {
			return true
		}
	}
	return false
}

func (f *Flow) checkCurrentLocked(i int) error {
	if f.aborted {
		return ErrFlowAborted
	}
	if i < 0 || i >= len(f.steps) {
		return errors.Wrapf(ErrOutOfOrder, "step %d out of range", i)
	}
	if cur := f.currentLocked(); cur != i {
		return errors.Wrapf(ErrOutOfOrder, "step %d, current %d", i, cur)
	}
	return nil
}

func (f *Flow) transitionLocked(i int, to Status) error {
	from := f.steps[i].Status
	if !canTransition(from, to) {
		return errors.Wrapf(ErrInvalidTransition, "%s: %s -> %s", f.steps[i].Type, from, to)
	}
	f.setLocked(i, to)
	return nil
}

func (f *Flow) setLocked(i int, to Status) {
	s := f.steps[i]
	s.Status = to
	metrics.StepTransitions.WithLabelValues(string(s.Type), string(to)).Inc()
	if f.listener != nil {
		f.listener(i, s.clone())
	}
}

// Remaining returns how long step i has before it times out.
func (f *Flow) Remaining(i int) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.steps) || f.steps[i].Deadline.IsZero() {
		return 0, false
	}
	d := f.steps[i].Deadline.Sub(f.clock.Now())
	if d < 0 {
		d = 0
	}
	return d, true
}

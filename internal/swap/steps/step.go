// Package steps converts prepared swap transactions into the ordered list of
// signatures and transactions an executor must perform, and tracks their
// progress.
package steps

import (
	"math/big"
	"time"

	"github.com/hxuan190/swap-engine/internal/domain"
)

type StepType string

const (
	TokenRevocationTransaction       StepType = "TokenRevocationTransaction"
	TokenApprovalTransaction         StepType = "TokenApprovalTransaction"
	Permit2Signature                 StepType = "Permit2Signature"
	WrapTransaction                  StepType = "WrapTransaction"
	SwapTransaction                  StepType = "SwapTransaction"
	SwapTransactionAsync             StepType = "SwapTransactionAsync"
	UniswapXSignature                StepType = "UniswapXSignature"
	BridgeTransaction                StepType = "BridgeTransaction"
	IncreasePositionTransaction      StepType = "IncreasePositionTransaction"
	IncreasePositionTransactionAsync StepType = "IncreasePositionTransactionAsync"
)

// IsSignature reports whether the step is an off-chain typed-data signature.
func (t StepType) IsSignature() bool {
	return t == Permit2Signature || t == UniswapXSignature
}

type Status string

const (
	StatusPreview    Status = "Preview"
	StatusActive     Status = "Active"
	StatusInProgress Status = "InProgress"
	StatusComplete   Status = "Complete"
	StatusFailed     Status = "Failed"
	// StatusTimedOut means the signed artifact expired; the trade must be requoted.
	StatusTimedOut Status = "TimedOut"
)

type Step struct {
	Type   StepType `json:"type"`
	Status Status   `json:"status"`

	TxRequest *domain.TransactionRequest `json:"txRequest,omitempty"`
	Permit    *domain.Permit             `json:"permit,omitempty"`

	Token   *domain.Currency `json:"token,omitempty"`
	Spender string           `json:"spender,omitempty"`
	Amount  *big.Int         `json:"amount,omitempty"`

	// Deadline starts a countdown when the step becomes Active.
	Deadline time.Time `json:"deadline,omitempty"`

	ProducesSignature bool `json:"producesSignature,omitempty"`
	ConsumesSignature bool `json:"consumesSignature,omitempty"`
	// Signature is handed over from the producing step once it completes.
	Signature string `json:"signature,omitempty"`
	TxHash    string `json:"txHash,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Step) clone() Step {
	c := *s
	return c
}

// Kinds lists step types in order.
func Kinds(steps []*Step) []StepType {
	out := make([]StepType, len(steps))
	for i, s := range steps {
		out[i] = s.Type
	}
	return out
}

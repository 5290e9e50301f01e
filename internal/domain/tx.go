package domain

import (
	"math/big"
)

// TransactionRequest is an unsigned EVM transaction ready for an external signer.
type TransactionRequest struct {
	ChainID              ChainID  `json:"chainId"`
	From                 string   `json:"from"`
	To                   string   `json:"to"`
	Data                 string   `json:"data"`
	Value                *big.Int `json:"value,omitempty"`
	GasLimit             uint64   `json:"gasLimit,omitempty"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty"`
	GasPrice             *big.Int `json:"gasPrice,omitempty"`
}

// GasFeeParams are the fee fields applied to a TransactionRequest.
type GasFeeParams struct {
	GasLimit             uint64   `json:"gasLimit"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty"`
	GasPrice             *big.Int `json:"gasPrice,omitempty"`
}

// GasFeeResult is the fee shown to the user. Value is in wei.
type GasFeeResult struct {
	Value        *big.Int      `json:"value,omitempty"`
	DisplayValue *big.Int      `json:"displayValue,omitempty"`
	Params       *GasFeeParams `json:"params,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func (g GasFeeResult) Ok() bool {
	return g.Error == "" && g.Value != nil
}

// GasEstimate is the outcome of one named strategy, used for comparison only.
type GasEstimate struct {
	Strategy string        `json:"strategy"`
	Value    *big.Int      `json:"value,omitempty"`
	Params   *GasFeeParams `json:"params,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// SumGasFees adds fee values; a missing or failed component makes the total fail.
func SumGasFees(fees ...GasFeeResult) GasFeeResult {
	total := new(big.Int)
	display := new(big.Int)
	for _, f := range fees {
		if f.Error != "" {
			return GasFeeResult{Error: f.Error}
		}
		if f.Value == nil {
			continue
		}
		total.Add(total, f.Value)
		if f.DisplayValue != nil {
			display.Add(display, f.DisplayValue)
		} else {
			display.Add(display, f.Value)
		}
	}
	return GasFeeResult{Value: total, DisplayValue: display}
}

type ApprovalAction string

const (
	ApprovalActionNone          ApprovalAction = "NONE"
	ApprovalActionApprove       ApprovalAction = "APPROVE"
	ApprovalActionRevokeApprove ApprovalAction = "REVOKE_AND_APPROVE"
	ApprovalActionUnknown       ApprovalAction = "UNKNOWN"
)

type ApprovalTxInfo struct {
	Action         ApprovalAction      `json:"action"`
	Token          Currency            `json:"token"`
	Spender        string              `json:"spender"`
	Amount         *big.Int            `json:"amount,omitempty"`
	ApproveTx      *TransactionRequest `json:"approveTxRequest,omitempty"`
	RevokeTx       *TransactionRequest `json:"revokeTxRequest,omitempty"`
	ApprovalGasFee GasFeeResult        `json:"approvalGasFee"`
	RevokeGasFee   GasFeeResult        `json:"revokeGasFee"`
}

func (a ApprovalTxInfo) NeedsApproval() bool {
	return a.ApproveTx != nil
}

func (a ApprovalTxInfo) NeedsRevoke() bool {
	return a.RevokeTx != nil
}

type TxFailureReason string

const (
	TxFailureSlippageTooLow  TxFailureReason = "SLIPPAGE_TOO_LOW"
	TxFailureSimulationError TxFailureReason = "SIMULATION_ERROR"
)

// SwapTxAndGasInfo is everything the step generator needs for one accepted trade.
type SwapTxAndGasInfo struct {
	Routing Routing `json:"routing"`
	Trade   Trade   `json:"-"`

	TxRequests         []*TransactionRequest `json:"txRequests,omitempty"`
	WrapTxRequest      *TransactionRequest   `json:"wrapTxRequest,omitempty"`
	Approval           ApprovalTxInfo        `json:"approval"`
	ActiveGasFee       GasFeeResult          `json:"gasFee"`
	ShadowGasEstimates []GasEstimate         `json:"shadowGasEstimates,omitempty"`

	Permit          NullablePermit `json:"permit,omitempty"`
	PermitSignature string         `json:"permitSignature,omitempty"`
	// UnsignedTx is set when the swap tx can only be built after the permit is signed.
	UnsignedTx bool `json:"unsignedTx"`

	TxFailureReasons []TxFailureReason `json:"txFailureReasons,omitempty"`
	// IncludesDelegation marks batched smart-wallet calls.
	IncludesDelegation bool `json:"includesDelegation,omitempty"`
}

func (s *SwapTxAndGasInfo) RequiresApproval() bool {
	return s.Approval.NeedsApproval()
}

func (s *SwapTxAndGasInfo) PermitPending() bool {
	return s.Permit != nil && s.PermitSignature == ""
}

// IncreasePositionTxAndGasInfo describes adding liquidity to a two-token position.
type IncreasePositionTxAndGasInfo struct {
	Approvals  [2]ApprovalTxInfo   `json:"approvals"`
	Permit     NullablePermit      `json:"permit,omitempty"`
	TxRequest  *TransactionRequest `json:"txRequest,omitempty"`
	UnsignedTx bool                `json:"unsignedTx"`
	GasFee     GasFeeResult        `json:"gasFee"`
}

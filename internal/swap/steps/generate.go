package steps

import (
	"math/big"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/hxuan190/swap-engine/internal/domain"
)

var (
	ErrRoutingMismatch    = errors.New("swap tx info routing does not match trade")
	ErrUnsupportedRouting = errors.New("no step plan for routing")
	ErrMissingTxRequest   = errors.New("swap tx info has no transaction request")
)

// Generate builds a fresh step list for info. Calling it again with the same
// info yields an equivalent list that shares no state with the first.
func Generate(info *domain.SwapTxAndGasInfo) ([]*Step, error) {
	if info == nil {
		return nil, errors.New("nil swap tx info")
	}
	if info.Trade != nil && info.Trade.Routing() != info.Routing {
		return nil, errors.Wrapf(ErrRoutingMismatch, "trade %q, info %q", info.Trade.Routing(), info.Routing)
	}

	switch {
	case info.Routing == domain.RoutingClassic:
		return classicSteps(info)
	case info.Routing.IsUniswapX():
		return uniswapXSteps(info)
	case info.Routing == domain.RoutingBridge:
		return bridgeSteps(info)
	case info.Routing.IsWrap():
		tx, err := firstTx(info)
		if err != nil {
			return nil, err
		}
		return []*Step{{Type: WrapTransaction, Status: StatusPreview, TxRequest: tx}}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedRouting, "%q", info.Routing)
	}
}

func classicSteps(info *domain.SwapTxAndGasInfo) ([]*Step, error) {
	out := approvalSteps(info.Approval)
	if info.PermitPending() {
		out = append(out, permitStep(info.Permit))
	}
	if info.UnsignedTx {
		// Built by the executor once the permit signature is handed over.
		return append(out, &Step{Type: SwapTransactionAsync, Status: StatusPreview, ConsumesSignature: true}), nil
	}
	tx, err := firstTx(info)
	if err != nil {
		return nil, err
	}
	return append(out, &Step{Type: SwapTransaction, Status: StatusPreview, TxRequest: tx}), nil
}

func uniswapXSteps(info *domain.SwapTxAndGasInfo) ([]*Step, error) {
	if info.Permit == nil {
		return nil, errors.New("uniswapx tx info has no order permit")
	}
	var out []*Step
	if info.WrapTxRequest != nil {
		out = append(out, &Step{Type: WrapTransaction, Status: StatusPreview, TxRequest: info.WrapTxRequest})
	}
	out = append(out, approvalSteps(info.Approval)...)

	sig := &Step{Type: UniswapXSignature, Status: StatusPreview, Permit: info.Permit}
	if info.Trade != nil {
		sig.Deadline = info.Trade.Deadline()
	}
	return append(out, sig), nil
}

func bridgeSteps(info *domain.SwapTxAndGasInfo) ([]*Step, error) {
	tx, err := firstTx(info)
	if err != nil {
		return nil, err
	}
	out := approvalSteps(info.Approval)
	return append(out, &Step{Type: BridgeTransaction, Status: StatusPreview, TxRequest: tx}), nil
}

// GenerateIncreasePosition orders revocations, then approvals for both
// tokens, then the permit and the increase transaction.
func GenerateIncreasePosition(info *domain.IncreasePositionTxAndGasInfo) ([]*Step, error) {
	if info == nil {
		return nil, errors.New("nil increase position tx info")
	}
	var out []*Step
	for _, a := range info.Approvals {
		if a.NeedsRevoke() {
			out = append(out, revokeStep(a))
		}
	}
	for _, a := range info.Approvals {
		if a.NeedsApproval() {
			out = append(out, approveStep(a))
		}
	}
	if info.Permit != nil {
		out = append(out, permitStep(info.Permit))
	}
	if info.UnsignedTx {
		return append(out, &Step{Type: IncreasePositionTransactionAsync, Status: StatusPreview, ConsumesSignature: info.Permit != nil}), nil
	}
	if info.TxRequest == nil {
		return nil, ErrMissingTxRequest
	}
	return append(out, &Step{Type: IncreasePositionTransaction, Status: StatusPreview, TxRequest: info.TxRequest}), nil
}

func approvalSteps(a domain.ApprovalTxInfo) []*Step {
	var out []*Step
	if a.NeedsRevoke() {
		out = append(out, revokeStep(a))
	}
	if a.NeedsApproval() {
		out = append(out, approveStep(a))
	}
	return out
}

func revokeStep(a domain.ApprovalTxInfo) *Step {
	token := a.Token
	return &Step{Type: TokenRevocationTransaction, Status: StatusPreview, TxRequest: a.RevokeTx, Token: &token, Spender: a.Spender, Amount: big.NewInt(0)}
}

func approveStep(a domain.ApprovalTxInfo) *Step {
	token := a.Token
	return &Step{Type: TokenApprovalTransaction, Status: StatusPreview, TxRequest: a.ApproveTx, Token: &token, Spender: a.Spender, Amount: a.Amount}
}

func permitStep(p *domain.Permit) *Step {
	return &Step{Type: Permit2Signature, Status: StatusPreview, Permit: p, ProducesSignature: true, Deadline: permitDeadline(p)}
}

func firstTx(info *domain.SwapTxAndGasInfo) (*domain.TransactionRequest, error) {
	if len(info.TxRequests) == 0 || info.TxRequests[0] == nil {
		return nil, errors.Wrapf(ErrMissingTxRequest, "%q", info.Routing)
	}
	return info.TxRequests[0], nil
}

// permitDeadline reads the signature deadline from the permit message, in
// unix seconds.
func permitDeadline(p *domain.Permit) time.Time {
	for _, key := range []string{"sigDeadline", "deadline"} {
		v, ok := p.TypedData.Message[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case string:
			if secs, err := strconv.ParseInt(n, 0, 64); err == nil {
				return time.Unix(secs, 0)
			}
		case float64:
			return time.Unix(int64(n), 0)
		case int64:
			return time.Unix(n, 0)
		}
	}
	return time.Time{}
}

package txinfo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

// BridgeService builds cross-chain deposits. Bridges are never simulated and
// carry no slippage or permit.
type BridgeService struct {
	api SwapAPI
	gas *GasService
}

func NewBridgeService(api SwapAPI, gas *GasService) *BridgeService {
	return &BridgeService{api: api, gas: gas}
}

func (s *BridgeService) GetSwapTxAndGasInfo(ctx context.Context, p Params) (*domain.SwapTxAndGasInfo, error) {
	t, ok := p.Trade.(*domain.BridgeTrade)
	if !ok {
		return nil, errors.Wrapf(ErrRoutingMismatch, "bridge service got %q", p.Trade.Routing())
	}
	resp, err := s.api.Swap(ctx, tradingapi.SwapRequest{
		Quote:           t.Raw,
		RefreshGasPrice: true,
		GasStrategies:   s.gas.Strategies().API(),
		Deadline:        txDeadline(p.DerivedSwapInfo),
		Urgency:         p.DerivedSwapInfo.Urgency,
	})
	if err != nil {
		return nil, errors.Wrap(err, "bridge swap")
	}
	tx, err := resp.Swap.ToRequest()
	if err != nil {
		return nil, errors.Wrap(err, "bridge swap tx")
	}

	info := &domain.SwapTxAndGasInfo{
		Routing:    domain.RoutingBridge,
		Trade:      t,
		Approval:   p.ApprovalTxInfo,
		TxRequests: []*domain.TransactionRequest{tx},
	}
	info.ActiveGasFee, info.ShadowGasEstimates = s.gas.FromSwapResponse(resp)
	applyGasParams(tx, info.ActiveGasFee)
	return info, nil
}

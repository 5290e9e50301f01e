package txinfo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hxuan190/swap-engine/internal/chain/evm"
	"github.com/hxuan190/swap-engine/internal/domain"
)

// WrapService packs WETH deposit and withdraw calls locally.
type WrapService struct {
	gas *GasService
}

func NewWrapService(gas *GasService) *WrapService {
	return &WrapService{gas: gas}
}

func (s *WrapService) GetSwapTxAndGasInfo(ctx context.Context, p Params) (*domain.SwapTxAndGasInfo, error) {
	t, ok := p.Trade.(*domain.WrapTrade)
	if !ok {
		return nil, errors.Wrapf(ErrRoutingMismatch, "wrap service got %q", p.Trade.Routing())
	}
	in := t.InputAmount()

	var (
		tx  *domain.TransactionRequest
		err error
	)
	if t.Unwrap {
		tx, err = evm.UnwrapTx(in.Currency.ChainID, p.DerivedSwapInfo.Account, in.Raw)
	} else {
		tx, err = evm.WrapTx(in.Currency.ChainID, p.DerivedSwapInfo.Account, in.Raw)
	}
	if err != nil {
		return nil, err
	}

	fee, shadows := s.gas.Estimate(ctx, tx)
	applyGasParams(tx, fee)
	return &domain.SwapTxAndGasInfo{
		Routing:            t.Routing(),
		Trade:              t,
		Approval:           domain.ApprovalTxInfo{Action: domain.ApprovalActionNone, Token: in.Currency},
		TxRequests:         []*domain.TransactionRequest{tx},
		ActiveGasFee:       fee,
		ShadowGasEstimates: shadows,
	}, nil
}

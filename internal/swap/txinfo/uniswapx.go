package txinfo

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/hxuan190/swap-engine/internal/chain/evm"
	"github.com/hxuan190/swap-engine/internal/domain"
)

// UniswapXService prepares gasless orders. The order permit is always signed
// by the user at execution time; only a native-input wrap costs gas.
type UniswapXService struct {
	gas *GasService
}

func NewUniswapXService(gas *GasService) *UniswapXService {
	return &UniswapXService{gas: gas}
}

func (s *UniswapXService) GetSwapTxAndGasInfo(ctx context.Context, p Params) (*domain.SwapTxAndGasInfo, error) {
	t, ok := p.Trade.(*domain.UniswapXTrade)
	if !ok {
		return nil, errors.Wrapf(ErrRoutingMismatch, "uniswapx service got %q", p.Trade.Routing())
	}
	if t.OrderPermit == nil {
		return nil, errors.New("uniswapx trade has no order to sign")
	}
	info := &domain.SwapTxAndGasInfo{
		Routing:      t.Variant,
		Trade:        t,
		Approval:     p.ApprovalTxInfo,
		Permit:       t.OrderPermit,
		ActiveGasFee: domain.GasFeeResult{Value: new(big.Int), DisplayValue: new(big.Int)},
	}
	if !t.NeedsWrap() {
		return info, nil
	}

	in := t.InputAmount()
	wrapTx, err := evm.WrapTx(in.Currency.ChainID, p.DerivedSwapInfo.Account, in.Raw)
	if err != nil {
		return nil, err
	}
	fee, shadows := s.gas.Estimate(ctx, wrapTx)
	applyGasParams(wrapTx, fee)
	info.WrapTxRequest = wrapTx
	info.ActiveGasFee = fee
	info.ShadowGasEstimates = shadows
	return info, nil
}

package txinfo

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/chain/evm"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

// ClassicService builds router swaps through the trading API /swap endpoint.
type ClassicService struct {
	api    SwapAPI
	gas    *GasService
	signer Signer
	caps   Capabilities
	logger zerolog.Logger
}

func NewClassicService(api SwapAPI, gas *GasService, signer Signer, caps Capabilities) *ClassicService {
	return &ClassicService{
		api:    api,
		gas:    gas,
		signer: signer,
		caps:   caps,
		logger: log.With().Str("component", "swap-txinfo-classic").Logger(),
	}
}

func (s *ClassicService) GetSwapTxAndGasInfo(ctx context.Context, p Params) (*domain.SwapTxAndGasInfo, error) {
	t, ok := p.Trade.(*domain.ClassicTrade)
	if !ok {
		return nil, errors.Wrapf(ErrRoutingMismatch, "classic service got %q", p.Trade.Routing())
	}
	info := &domain.SwapTxAndGasInfo{
		Routing:  domain.RoutingClassic,
		Trade:    t,
		Approval: p.ApprovalTxInfo,
		Permit:   t.PermitData,
	}

	if info.Permit != nil {
		info.PermitSignature = s.presign(ctx, p, info.Permit)
		if info.PermitSignature == "" {
			// The swap can only be built once the user signs; show the quoted fee until then.
			info.UnsignedTx = true
			info.ActiveGasFee = quotedFee(t.QuotedGasFee)
			return info, nil
		}
	}

	resp, err := s.api.Swap(ctx, s.swapRequest(t, p, info.PermitSignature))
	if err != nil {
		return nil, errors.Wrap(err, "classic swap")
	}
	tx, err := resp.Swap.ToRequest()
	if err != nil {
		return nil, errors.Wrap(err, "classic swap tx")
	}

	info.ActiveGasFee, info.ShadowGasEstimates = s.gas.FromSwapResponse(resp)
	applyGasParams(tx, info.ActiveGasFee)
	info.TxRequests = []*domain.TransactionRequest{tx}
	info.TxFailureReasons = failureReasons(resp.TxFailureReasons, p.ApprovalTxInfo)
	return info, nil
}

// BuildWithSignature fetches the swap transaction for a permit signed after
// preparation.
func (s *ClassicService) BuildWithSignature(ctx context.Context, p Params, signature string) (*domain.TransactionRequest, error) {
	t, ok := p.Trade.(*domain.ClassicTrade)
	if !ok {
		return nil, errors.Wrapf(ErrRoutingMismatch, "classic service got %q", p.Trade.Routing())
	}
	if signature == "" {
		return nil, errors.New("missing permit signature")
	}
	resp, err := s.api.Swap(ctx, s.swapRequest(t, p, signature))
	if err != nil {
		return nil, errors.Wrap(err, "classic swap")
	}
	tx, err := resp.Swap.ToRequest()
	if err != nil {
		return nil, errors.Wrap(err, "classic swap tx")
	}
	fee, _ := s.gas.FromSwapResponse(resp)
	applyGasParams(tx, fee)
	return tx, nil
}

func (s *ClassicService) swapRequest(t *domain.ClassicTrade, p Params, signature string) tradingapi.SwapRequest {
	req := tradingapi.SwapRequest{
		Quote:           t.Raw,
		RefreshGasPrice: true,
		GasStrategies:   s.gas.Strategies().API(),
		Deadline:        txDeadline(p.DerivedSwapInfo),
		Urgency:         p.DerivedSwapInfo.Urgency,
		// Simulating before the approval lands would always revert.
		SimulateTransaction: p.ApprovalTxInfo.Action == domain.ApprovalActionNone && !domain.IsBridging(t),
	}
	if t.PermitData != nil && signature != "" {
		pd, err := tradingapi.FromPermit(t.PermitData)
		if err != nil {
			s.logger.Warn().Err(err).Msg("[classic] failed to encode permit data")
		} else {
			req.PermitData = pd
			req.Signature = signature
		}
	}
	return req
}

// presign signs the permit when the host allows signing without a prompt.
// Failures leave the permit for an explicit signature step.
func (s *ClassicService) presign(ctx context.Context, p Params, permit *domain.Permit) string {
	if !s.caps.CanPresignPermit || s.signer == nil {
		return ""
	}
	if err := evm.CheckChain(permit.TypedData, uint64(p.DerivedSwapInfo.ChainID)); err != nil {
		s.logger.Warn().Err(err).Msg("[classic] refusing to presign permit")
		return ""
	}
	sig, err := s.signer.SignTypedData(ctx, permit.TypedData)
	if err != nil {
		s.logger.Warn().Err(err).Msg("[classic] permit presign failed")
		return ""
	}
	return sig
}

func quotedFee(v *big.Int) domain.GasFeeResult {
	if v == nil {
		return domain.GasFeeResult{Error: "missing gas fee"}
	}
	return domain.GasFeeResult{Value: new(big.Int).Set(v), DisplayValue: new(big.Int).Set(v)}
}

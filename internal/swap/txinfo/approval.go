package txinfo

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/chain/evm"
	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

type AllowanceReader interface {
	Supports(chain domain.ChainID) bool
	Allowance(ctx context.Context, chain domain.ChainID, token, owner, spender string) (*big.Int, error)
}

type ApprovalAPI interface {
	CheckApproval(ctx context.Context, req tradingapi.CheckApprovalRequest) (*tradingapi.CheckApprovalResponse, error)
}

// ApprovalChecker decides whether the input token needs an on-chain approval
// before the trade can execute. Allowances are read on chain when an RPC
// endpoint is configured; otherwise the trading API answers.
type ApprovalChecker struct {
	reader AllowanceReader
	api    ApprovalAPI
	gas    *GasService
	logger zerolog.Logger
}

func NewApprovalChecker(reader AllowanceReader, api ApprovalAPI, gas *GasService) *ApprovalChecker {
	return &ApprovalChecker{
		reader: reader,
		api:    api,
		gas:    gas,
		logger: log.With().Str("component", "swap-approval").Logger(),
	}
}

// SpenderFor returns the contract allowed to pull the input token. An empty
// spender defers to the trading API, which knows the bridge routers.
func SpenderFor(routing domain.Routing) string {
	switch {
	case routing == domain.RoutingClassic, routing.IsUniswapX():
		return domain.Permit2Address
	default:
		return ""
	}
}

func (a *ApprovalChecker) Check(ctx context.Context, account string, t domain.Trade) (domain.ApprovalTxInfo, error) {
	if t == nil {
		return domain.ApprovalTxInfo{}, ErrNoTrade
	}
	amount := t.InputAmount()
	token := amount.Currency
	if t.Routing().IsUniswapX() {
		// Orders spend the wrapped asset.
		token = token.Wrapped()
	}
	none := domain.ApprovalTxInfo{Action: domain.ApprovalActionNone, Token: token}

	if t.Routing().IsWrap() || token.IsNative {
		return none, nil
	}

	spender := SpenderFor(t.Routing())
	if spender != "" && a.reader != nil && a.reader.Supports(token.ChainID) {
		return a.checkOnChain(ctx, account, token, spender, amount.Raw)
	}
	if a.api != nil {
		return a.checkWithAPI(ctx, account, token, t, amount.Raw)
	}
	return domain.ApprovalTxInfo{Action: domain.ApprovalActionUnknown, Token: token, Spender: spender}, nil
}

func (a *ApprovalChecker) checkOnChain(ctx context.Context, account string, token domain.Currency, spender string, amount *big.Int) (domain.ApprovalTxInfo, error) {
	allowance, err := a.reader.Allowance(ctx, token.ChainID, token.Address, account, spender)
	if err != nil {
		return domain.ApprovalTxInfo{}, errors.Wrap(err, "read allowance")
	}
	info := domain.ApprovalTxInfo{Action: domain.ApprovalActionNone, Token: token, Spender: spender, Amount: amount}
	if allowance.Cmp(amount) >= 0 {
		return info, nil
	}

	approveTx, err := evm.ApproveTx(token.ChainID, account, token.Address, spender, common.MaxUint256)
	if err != nil {
		return domain.ApprovalTxInfo{}, err
	}
	info.Action = domain.ApprovalActionApprove
	info.ApproveTx = approveTx

	if allowance.Sign() > 0 && common.RequiresAllowanceReset(uint64(token.ChainID), token.Address) {
		revokeTx, err := evm.ApproveTx(token.ChainID, account, token.Address, spender, big.NewInt(0))
		if err != nil {
			return domain.ApprovalTxInfo{}, err
		}
		info.Action = domain.ApprovalActionRevokeApprove
		info.RevokeTx = revokeTx
	}

	if a.gas != nil {
		info.ApprovalGasFee = a.estimate(ctx, info.ApproveTx)
		if info.RevokeTx != nil {
			info.RevokeGasFee = a.estimate(ctx, info.RevokeTx)
		}
	}
	a.logger.Debug().
		Str("token", token.Address).
		Str("spender", spender).
		Str("action", string(info.Action)).
		Msg("[approval] allowance insufficient")
	return info, nil
}

func (a *ApprovalChecker) estimate(ctx context.Context, tx *domain.TransactionRequest) domain.GasFeeResult {
	fee, _ := a.gas.Estimate(ctx, tx)
	applyGasParams(tx, fee)
	return fee
}

func (a *ApprovalChecker) checkWithAPI(ctx context.Context, account string, token domain.Currency, t domain.Trade, amount *big.Int) (domain.ApprovalTxInfo, error) {
	out := t.OutputAmount().Currency
	resp, err := a.api.CheckApproval(ctx, tradingapi.CheckApprovalRequest{
		WalletAddress:   account,
		Token:           token.TradingAPIAddress(),
		Amount:          amount.String(),
		ChainID:         token.ChainID,
		IncludeGasInfo:  true,
		TokenOut:        out.TradingAPIAddress(),
		TokenOutChainID: out.ChainID,
	})
	if err != nil {
		return domain.ApprovalTxInfo{}, errors.Wrap(err, "check approval")
	}

	info := domain.ApprovalTxInfo{Action: domain.ApprovalActionNone, Token: token, Amount: amount}
	if info.ApproveTx, err = resp.Approval.ToRequest(); err != nil {
		return domain.ApprovalTxInfo{}, errors.Wrap(err, "approval tx")
	}
	if info.RevokeTx, err = resp.Cancel.ToRequest(); err != nil {
		return domain.ApprovalTxInfo{}, errors.Wrap(err, "revoke tx")
	}
	switch {
	case info.RevokeTx != nil:
		info.Action = domain.ApprovalActionRevokeApprove
	case info.ApproveTx != nil:
		info.Action = domain.ApprovalActionApprove
	}
	info.ApprovalGasFee = feeFromString(resp.GasFee, info.ApproveTx != nil)
	info.RevokeGasFee = feeFromString(resp.CancelGasFee, info.RevokeTx != nil)
	return info, nil
}

func feeFromString(v string, required bool) domain.GasFeeResult {
	if !required {
		return domain.GasFeeResult{}
	}
	fee := tradingapi.ParseAmount(v)
	if fee == nil {
		return domain.GasFeeResult{Error: "missing gas fee"}
	}
	return domain.GasFeeResult{Value: fee, DisplayValue: new(big.Int).Set(fee)}
}

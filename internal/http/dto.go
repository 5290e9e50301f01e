package http

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/swap/trade"
)

// TradeInputRequest is the swap form as entered by the user
type TradeInputRequest struct {
	// Swapper address; sessions use their own account
	Account string `json:"account,omitempty" example:"0x1111111111111111111111111111111111111111"`

	TokenIn  domain.Currency `json:"tokenIn"`
	TokenOut domain.Currency `json:"tokenOut"`

	// Side whose amount was typed
	ExactField string `json:"exactField" enums:"input,output" example:"input"`

	// Amount of the exact side in base units
	Amount string `json:"amount" binding:"required" example:"1000000000000000000"`

	// Custom slippage in percent; omit for auto slippage
	Slippage *decimal.Decimal `json:"slippage,omitempty" swaggertype:"string" example:"0.5"`

	RoutingPreference string   `json:"routingPreference,omitempty" enums:"BEST_PRICE,FASTEST,CLASSIC,UNISWAPX_V2" example:"BEST_PRICE"`
	Protocols         []string `json:"protocols,omitempty" example:"V2,V3,V4"`
	IsUSDQuote        bool     `json:"isUsdQuote,omitempty"`
}

func (r TradeInputRequest) toArgs() (trade.UseTradeArgs, error) {
	if r.TokenIn.ChainID == domain.ChainUnknown || r.TokenOut.ChainID == domain.ChainUnknown {
		return trade.UseTradeArgs{}, fmt.Errorf("tokenIn and tokenOut need a chainId")
	}
	var pref domain.RoutingPreference
	if r.RoutingPreference != "" {
		p, ok := domain.ParseRoutingPreference(strings.ToUpper(r.RoutingPreference))
		if !ok {
			return trade.UseTradeArgs{}, fmt.Errorf("unknown routingPreference %q", r.RoutingPreference)
		}
		pref = p
	}
	field := domain.FieldInput
	switch strings.ToLower(r.ExactField) {
	case "", string(domain.FieldInput):
	case string(domain.FieldOutput):
		field = domain.FieldOutput
	default:
		return trade.UseTradeArgs{}, fmt.Errorf("exactField must be input or output")
	}

	tokenIn, tokenOut := r.TokenIn, r.TokenOut
	return trade.UseTradeArgs{
		Account:           r.Account,
		InputCurrency:     &tokenIn,
		OutputCurrency:    &tokenOut,
		ExactField:        field,
		Amount:            r.Amount,
		CustomSlippage:    r.Slippage,
		RoutingPreference: pref,
		Protocols:         r.Protocols,
		IsUSDQuote:        r.IsUSDQuote,
	}, nil
}

// QuoteResponse is a parsed definitive trade
type QuoteResponse struct {
	// Trade is null when no route exists or the input is incomplete
	Trade       domain.Trade `json:"trade"`
	Routing     string       `json:"routing,omitempty" example:"CLASSIC"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	LatencyMs   int64        `json:"latencyMs" example:"120"`
}

type CreateSessionRequest struct {
	Account string `json:"account" binding:"required" example:"0x1111111111111111111111111111111111111111"`
}

type PrepareSwapRequest struct {
	Urgency string `json:"urgency,omitempty" enums:"normal,fast,urgent" example:"normal"`
}

type CompleteStepRequest struct {
	// Signature produced by a signature step
	Signature string `json:"signature,omitempty" example:"0x..."`
	// Hash of the submitted transaction
	TxHash string `json:"txHash,omitempty" example:"0x..."`
}

type FailStepRequest struct {
	Reason string `json:"reason,omitempty" example:"user rejected the request"`
}

type SettingsRequest struct {
	Slippage          *decimal.Decimal `json:"slippage,omitempty" swaggertype:"string" example:"0.5"`
	DeadlineMinutes   int              `json:"deadlineMinutes,omitempty" example:"30"`
	RoutingPreference string           `json:"routingPreference,omitempty" example:"BEST_PRICE"`
	Protocols         []string         `json:"protocols,omitempty"`
}

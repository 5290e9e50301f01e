package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the tagged union of executable quotes. Variants are ClassicTrade,
// UniswapXTrade, BridgeTrade and WrapTrade; consumers switch on Routing().
type Trade interface {
	Routing() Routing
	TradeType() TradeType
	InputAmount() CurrencyAmount
	OutputAmount() CurrencyAmount
	// ExecutionPrice is output per unit of input in whole-token terms.
	ExecutionPrice() decimal.Decimal
	QuoteID() string
	Slippage() decimal.Decimal
	Deadline() time.Time
}

type tradeBase struct {
	Input      CurrencyAmount  `json:"inputAmount"`
	Output     CurrencyAmount  `json:"outputAmount"`
	Type       TradeType       `json:"tradeType"`
	RequestID  string          `json:"requestId"`
	SlippagePc decimal.Decimal `json:"slippageTolerance"`
	ExpiresAt  time.Time       `json:"deadline"`
	// Raw is the undecoded quote payload returned by the pricing API.
	Raw []byte `json:"-"`
}

func (t *tradeBase) TradeType() TradeType         { return t.Type }
func (t *tradeBase) InputAmount() CurrencyAmount  { return t.Input }
func (t *tradeBase) OutputAmount() CurrencyAmount { return t.Output }
func (t *tradeBase) QuoteID() string              { return t.RequestID }
func (t *tradeBase) Slippage() decimal.Decimal    { return t.SlippagePc }
func (t *tradeBase) Deadline() time.Time          { return t.ExpiresAt }

func (t *tradeBase) ExecutionPrice() decimal.Decimal {
	in := t.Input.Exact()
	if in.IsZero() {
		return decimal.Zero
	}
	return t.Output.Exact().DivRound(in, 18)
}

type RouteLeg struct {
	PoolAddress string `json:"poolAddress"`
	Protocol    string `json:"protocol"`
	TokenIn     string `json:"tokenIn"`
	TokenOut    string `json:"tokenOut"`
	Fee         string `json:"fee,omitempty"`
}

type ClassicTrade struct {
	tradeBase
	Route          [][]RouteLeg    `json:"route"`
	PriceImpact    decimal.Decimal `json:"priceImpact"`
	GasUseEstimate string          `json:"gasUseEstimate"`
	// QuotedGasFee is the quote-time fee in wei, used until /swap refreshes it.
	QuotedGasFee *big.Int `json:"gasFee,omitempty"`
	// PermitData is the Permit2 typed data the swap consumes, if any.
	PermitData *Permit `json:"permitData,omitempty"`
}

func NewClassicTrade(input, output CurrencyAmount, tradeType TradeType, requestID string, slippage decimal.Decimal, deadline time.Time, raw []byte) *ClassicTrade {
	return &ClassicTrade{tradeBase: tradeBase{Input: input, Output: output, Type: tradeType, RequestID: requestID, SlippagePc: slippage, ExpiresAt: deadline, Raw: raw}}
}

func (t *ClassicTrade) Routing() Routing { return RoutingClassic }

type OrderInfo struct {
	Reactor  string    `json:"reactor"`
	Swapper  string    `json:"swapper"`
	Nonce    string    `json:"nonce"`
	Deadline time.Time `json:"deadline"`
	// EncodedOrder is the ABI encoded order submitted with the signature.
	EncodedOrder string `json:"encodedOrder"`
}

type UniswapXTrade struct {
	tradeBase
	Variant     Routing       `json:"routing"`
	Order       OrderInfo     `json:"orderInfo"`
	OrderPermit *Permit       `json:"permitData,omitempty"`
	WrapInfo    *WrapInfo     `json:"wrapInfo,omitempty"`
	Classic     *ClassicTrade `json:"classicFallback,omitempty"`
}

func NewUniswapXTrade(variant Routing, input, output CurrencyAmount, tradeType TradeType, requestID string, slippage decimal.Decimal, order OrderInfo, raw []byte) *UniswapXTrade {
	return &UniswapXTrade{
		tradeBase: tradeBase{Input: input, Output: output, Type: tradeType, RequestID: requestID, SlippagePc: slippage, ExpiresAt: order.Deadline, Raw: raw},
		Variant:   variant,
		Order:     order,
	}
}

func (t *UniswapXTrade) Routing() Routing { return t.Variant }

// NeedsWrap reports whether native input must be wrapped before the order can be filled.
func (t *UniswapXTrade) NeedsWrap() bool {
	return t.Input.Currency.IsNative
}

type WrapInfo struct {
	NeedsWrap bool `json:"needsWrap"`
}

type BridgeTrade struct {
	tradeBase
	SourceChain      ChainID   `json:"sourceChainId"`
	DestinationChain ChainID   `json:"destinationChainId"`
	FillDeadline     time.Time `json:"fillDeadline"`
	EstimatedFillSec int64     `json:"estimatedFillTimeSeconds"`
	QuotedGasFee     *big.Int  `json:"gasFee,omitempty"`
}

func NewBridgeTrade(input, output CurrencyAmount, tradeType TradeType, requestID string, fillSec int64, raw []byte) *BridgeTrade {
	return &BridgeTrade{
		tradeBase:        tradeBase{Input: input, Output: output, Type: tradeType, RequestID: requestID, Raw: raw},
		SourceChain:      input.Currency.ChainID,
		DestinationChain: output.Currency.ChainID,
		EstimatedFillSec: fillSec,
	}
}

func (t *BridgeTrade) Routing() Routing { return RoutingBridge }

type WrapTrade struct {
	tradeBase
	Unwrap bool `json:"unwrap"`
}

func NewWrapTrade(input, output CurrencyAmount, unwrap bool) *WrapTrade {
	return &WrapTrade{tradeBase: tradeBase{Input: input, Output: output, Type: ExactInput}, Unwrap: unwrap}
}

func (t *WrapTrade) Routing() Routing {
	if t.Unwrap {
		return RoutingUnwrap
	}
	return RoutingWrap
}

// ExecutionPrice of a wrap is always one.
func (t *WrapTrade) ExecutionPrice() decimal.Decimal { return decimal.NewFromInt(1) }

// IndicativeTrade is a non-executable price estimate. It deliberately does
// not satisfy Trade.
type IndicativeTrade struct {
	Input     CurrencyAmount `json:"inputAmount"`
	Output    CurrencyAmount `json:"outputAmount"`
	Type      TradeType      `json:"tradeType"`
	RequestID string         `json:"requestId"`
}

func (t *IndicativeTrade) ExecutionPrice() decimal.Decimal {
	in := t.Input.Exact()
	if in.IsZero() {
		return decimal.Zero
	}
	return t.Output.Exact().DivRound(in, 18)
}

func IsBridging(t Trade) bool {
	return t.InputAmount().Currency.ChainID != t.OutputAmount().Currency.ChainID
}

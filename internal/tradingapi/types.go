package tradingapi

import (
	"encoding/json"
	"time"

	"github.com/hxuan190/swap-engine/internal/domain"
)

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyFast   Urgency = "fast"
	UrgencyUrgent Urgency = "urgent"
)

type QuoteRequest struct {
	Type              domain.TradeType         `json:"type"`
	Amount            string                   `json:"amount"`
	TokenInChainID    domain.ChainID           `json:"tokenInChainId"`
	TokenOutChainID   domain.ChainID           `json:"tokenOutChainId"`
	TokenIn           string                   `json:"tokenIn"`
	TokenOut          string                   `json:"tokenOut"`
	Swapper           string                   `json:"swapper"`
	SlippageTolerance *float64                 `json:"slippageTolerance,omitempty"`
	AutoSlippage      string                   `json:"autoSlippage,omitempty"`
	RoutingPreference domain.RoutingPreference `json:"routingPreference,omitempty"`
	Protocols         []string                 `json:"protocols,omitempty"`
	Urgency           Urgency                  `json:"urgency,omitempty"`
}

// IsBridging reports whether the request spans two chains.
func (r QuoteRequest) IsBridging() bool {
	return r.TokenInChainID != r.TokenOutChainID
}

type TokenAmount struct {
	Token     string `json:"token"`
	Amount    string `json:"amount,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	// StartAmount and EndAmount are set on Dutch order legs.
	StartAmount string `json:"startAmount,omitempty"`
	EndAmount   string `json:"endAmount,omitempty"`
}

type PermitData struct {
	Domain json.RawMessage `json:"domain"`
	Types  json.RawMessage `json:"types"`
	Values json.RawMessage `json:"values"`
}

// QuoteResponse is the routing-tagged quote envelope. Quote is decoded by the
// parser registered for Routing.
type QuoteResponse struct {
	RequestID         string              `json:"requestId"`
	Routing           domain.Routing      `json:"routing"`
	Quote             json.RawMessage     `json:"quote"`
	PermitData        *PermitData         `json:"permitData,omitempty"`
	PermitTransaction *TransactionPayload `json:"permitTransaction,omitempty"`

	// Latency is measured client side and never serialized.
	Latency time.Duration `json:"-"`
	// IsUSDQuote marks responses fetched for USD price reference.
	IsUSDQuote bool `json:"-"`
}

type ClassicQuote struct {
	ChainID          domain.ChainID           `json:"chainId"`
	Input            TokenAmount              `json:"input"`
	Output           TokenAmount              `json:"output"`
	Swapper          string                   `json:"swapper"`
	Route            [][]ClassicPool          `json:"route"`
	Slippage         float64                  `json:"slippage"`
	TradeType        domain.TradeType         `json:"tradeType"`
	QuoteID          string                   `json:"quoteId"`
	GasFee           string                   `json:"gasFee"`
	GasUseEstimate   string                   `json:"gasUseEstimate"`
	PriceImpact      float64                  `json:"priceImpact"`
	TxFailureReasons []domain.TxFailureReason `json:"txFailureReasons,omitempty"`
}

type ClassicPool struct {
	Type     string   `json:"type"`
	Address  string   `json:"address"`
	TokenIn  TokenRef `json:"tokenIn"`
	TokenOut TokenRef `json:"tokenOut"`
	Fee      string   `json:"fee,omitempty"`
}

type TokenRef struct {
	Address  string `json:"address"`
	ChainID  uint64 `json:"chainId"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

type DutchOrderInfo struct {
	ChainID  domain.ChainID `json:"chainId"`
	Nonce    string         `json:"nonce"`
	Reactor  string         `json:"reactor"`
	Swapper  string         `json:"swapper"`
	Deadline int64          `json:"deadline"`
	Input    TokenAmount    `json:"input"`
	Outputs  []TokenAmount  `json:"outputs"`
}

type DutchQuote struct {
	OrderInfo                DutchOrderInfo `json:"orderInfo"`
	EncodedOrder             string         `json:"encodedOrder"`
	OrderID                  string         `json:"orderId"`
	QuoteID                  string         `json:"quoteId"`
	SlippageTolerance        float64        `json:"slippageTolerance"`
	DeadlineBufferSecs       int64          `json:"deadlineBufferSecs"`
	ClassicGasUseEstimateUSD string         `json:"classicGasUseEstimateUSD"`
}

type BridgeQuote struct {
	ChainID             domain.ChainID   `json:"chainId"`
	DestinationChainID  domain.ChainID   `json:"destinationChainId"`
	Input               TokenAmount      `json:"input"`
	Output              TokenAmount      `json:"output"`
	Swapper             string           `json:"swapper"`
	QuoteID             string           `json:"quoteId"`
	TradeType           domain.TradeType `json:"tradeType"`
	GasFee              string           `json:"gasFee"`
	EstimatedFillTimeMs int64            `json:"estimatedFillTimeMs"`
}

type WrapQuote struct {
	ChainID   domain.ChainID   `json:"chainId"`
	Input     TokenAmount      `json:"input"`
	Output    TokenAmount      `json:"output"`
	Swapper   string           `json:"swapper"`
	TradeType domain.TradeType `json:"tradeType"`
	GasFee    string           `json:"gasFee"`
}

type IndicativeQuoteResponse struct {
	RequestID string           `json:"requestId"`
	Input     TokenAmount      `json:"input"`
	Output    TokenAmount      `json:"output"`
	Type      domain.TradeType `json:"type"`
}

type TransactionPayload struct {
	To                   string         `json:"to"`
	From                 string         `json:"from"`
	Data                 string         `json:"data"`
	Value                string         `json:"value"`
	ChainID              domain.ChainID `json:"chainId"`
	GasLimit             string         `json:"gasLimit,omitempty"`
	MaxFeePerGas         string         `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string         `json:"maxPriorityFeePerGas,omitempty"`
	GasPrice             string         `json:"gasPrice,omitempty"`
}

type GasStrategy struct {
	LimitInflationFactor               float64 `json:"limitInflationFactor"`
	DisplayLimitInflationFactor        float64 `json:"displayLimitInflationFactor"`
	PriceInflationFactor               float64 `json:"priceInflationFactor"`
	PercentileThresholdFor1559Fee      int     `json:"percentileThresholdFor1559Fee"`
	ThresholdToInflateLastBlockBaseFee float64 `json:"thresholdToInflateLastBlockBaseFee,omitempty"`
	BaseFeeMultiplier                  float64 `json:"baseFeeMultiplier,omitempty"`
	BaseFeeHistoryWindow               int     `json:"baseFeeHistoryWindow,omitempty"`
	MinPriorityFeeGwei                 float64 `json:"minPriorityFeeGwei,omitempty"`
	MaxPriorityFeeGwei                 float64 `json:"maxPriorityFeeGwei,omitempty"`
}

type SwapRequest struct {
	Quote               json.RawMessage `json:"quote"`
	PermitData          *PermitData     `json:"permitData,omitempty"`
	Signature           string          `json:"signature,omitempty"`
	SimulateTransaction bool            `json:"simulateTransaction"`
	RefreshGasPrice     bool            `json:"refreshGasPrice"`
	GasStrategies       []GasStrategy   `json:"gasStrategies,omitempty"`
	Deadline            int64           `json:"deadline,omitempty"`
	Urgency             Urgency         `json:"urgency,omitempty"`
}

type GasEstimateResponse struct {
	Strategy             GasStrategy `json:"strategy"`
	GasLimit             string      `json:"gasLimit"`
	GasFee               string      `json:"gasFee"`
	MaxFeePerGas         string      `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string      `json:"maxPriorityFeePerGas,omitempty"`
	GasPrice             string      `json:"gasPrice,omitempty"`
	Type                 string      `json:"type"`
}

type SwapResponse struct {
	RequestID        string                   `json:"requestId"`
	Swap             TransactionPayload       `json:"swap"`
	GasFee           string                   `json:"gasFee"`
	GasEstimates     []GasEstimateResponse    `json:"gasEstimates,omitempty"`
	TxFailureReasons []domain.TxFailureReason `json:"txFailureReasons,omitempty"`
}

type CheckApprovalRequest struct {
	WalletAddress   string         `json:"walletAddress"`
	Token           string         `json:"token"`
	Amount          string         `json:"amount"`
	ChainID         domain.ChainID `json:"chainId"`
	IncludeGasInfo  bool           `json:"includeGasInfo"`
	TokenOut        string         `json:"tokenOut,omitempty"`
	TokenOutChainID domain.ChainID `json:"tokenOutChainId,omitempty"`
}

type CheckApprovalResponse struct {
	RequestID    string              `json:"requestId"`
	Approval     *TransactionPayload `json:"approval"`
	Cancel       *TransactionPayload `json:"cancel"`
	GasFee       string              `json:"gasFee,omitempty"`
	CancelGasFee string              `json:"cancelGasFee,omitempty"`
}

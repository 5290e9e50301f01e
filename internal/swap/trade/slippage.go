package trade

import (
	"github.com/shopspring/decimal"

	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

const autoSlippageDefault = "DEFAULT"

// MinAutoSlippageL2 is the floor applied to auto slippage on L2 chains, in percent.
var MinAutoSlippageL2 = decimal.RequireFromString("2.5")

// USDQuoteProtocols keeps USD reference quotes off UniswapX.
var USDQuoteProtocols = []string{"V2", "V3", "V4"}

// applySlippage sets the slippage fields of req. A non-zero custom tolerance
// always applies; bridge and USD reference quotes get no auto slippage.
func applySlippage(req *tradingapi.QuoteRequest, input *ValidatedTradeInput) {
	if custom := input.CustomSlippage(); custom != nil && !custom.IsZero() {
		f, _ := custom.Float64()
		req.SlippageTolerance = &f
		return
	}
	if input.IsBridging() || input.IsUSDQuote() {
		return
	}
	if input.TokenIn().ChainID.IsL2() {
		f, _ := MinAutoSlippageL2.Float64()
		req.SlippageTolerance = &f
		return
	}
	req.AutoSlippage = autoSlippageDefault
}

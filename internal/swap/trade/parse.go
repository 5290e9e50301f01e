package trade

import (
	"math/big"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

var (
	// ErrUnknownRouting is returned by ParseQuote when no parser is registered.
	ErrUnknownRouting = errors.New("unknown routing")
	// ErrTokenMismatch means the order's tokens differ from the requested pair.
	ErrTokenMismatch = errors.New("quote tokens do not match request")
)

// Parser turns a raw quote into the Trade variant for its routing.
type Parser func(resp *tradingapi.QuoteResponse, input *ValidatedTradeInput) (domain.Trade, error)

var parsers = map[domain.Routing]Parser{
	domain.RoutingClassic:  parseClassic,
	domain.RoutingDutchV2:  parseUniswapX,
	domain.RoutingDutchV3:  parseUniswapX,
	domain.RoutingPriority: parseUniswapX,
	domain.RoutingBridge:   parseBridge,
	domain.RoutingWrap:     parseWrap,
	domain.RoutingUnwrap:   parseWrap,
}

func ParseQuote(resp *tradingapi.QuoteResponse, input *ValidatedTradeInput) (domain.Trade, error) {
	parse, ok := parsers[resp.Routing]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownRouting, "%q", resp.Routing)
	}
	return parse(resp, input)
}

func amountOf(c domain.Currency, raw string) (domain.CurrencyAmount, error) {
	a, ok := domain.NewCurrencyAmount(c, raw)
	if !ok {
		return domain.CurrencyAmount{}, errors.Errorf("invalid amount %q for %s", raw, c.Symbol)
	}
	return a, nil
}

func slippageOf(pct float64) decimal.Decimal {
	return decimal.NewFromFloat(pct)
}

func parseClassic(resp *tradingapi.QuoteResponse, input *ValidatedTradeInput) (domain.Trade, error) {
	var q tradingapi.ClassicQuote
	if err := sonic.Unmarshal(resp.Quote, &q); err != nil {
		return nil, errors.Wrap(err, "decode classic quote")
	}
	in, err := amountOf(input.TokenIn(), q.Input.Amount)
	if err != nil {
		return nil, err
	}
	out, err := amountOf(input.TokenOut(), q.Output.Amount)
	if err != nil {
		return nil, err
	}

	t := domain.NewClassicTrade(in, out, input.TradeType(), resp.RequestID, slippageOf(q.Slippage), time.Time{}, resp.Quote)
	t.PriceImpact = decimal.NewFromFloat(q.PriceImpact)
	t.GasUseEstimate = q.GasUseEstimate
	t.QuotedGasFee = tradingapi.ParseAmount(q.GasFee)
	for _, route := range q.Route {
		legs := make([]domain.RouteLeg, 0, len(route))
		for _, pool := range route {
			legs = append(legs, domain.RouteLeg{
				PoolAddress: pool.Address,
				Protocol:    pool.Type,
				TokenIn:     pool.TokenIn.Address,
				TokenOut:    pool.TokenOut.Address,
				Fee:         pool.Fee,
			})
		}
		t.Route = append(t.Route, legs)
	}
	if resp.PermitData != nil {
		permit, err := resp.PermitData.ToPermit()
		if err != nil {
			return nil, err
		}
		t.PermitData = permit
	}
	return t, nil
}

func parseUniswapX(resp *tradingapi.QuoteResponse, input *ValidatedTradeInput) (domain.Trade, error) {
	var q tradingapi.DutchQuote
	if err := sonic.Unmarshal(resp.Quote, &q); err != nil {
		return nil, errors.Wrap(err, "decode dutch quote")
	}
	if len(q.OrderInfo.Outputs) == 0 {
		return nil, errors.New("dutch quote has no outputs")
	}

	// Orders are filled from the wrapped asset; native input is wrapped first.
	wantIn := input.TokenIn().Wrapped().Address
	if !strings.EqualFold(q.OrderInfo.Input.Token, wantIn) {
		return nil, errors.Wrapf(ErrTokenMismatch, "input %s != %s", q.OrderInfo.Input.Token, wantIn)
	}
	wantOut := input.TokenOut().TradingAPIAddress()
	if !strings.EqualFold(q.OrderInfo.Outputs[0].Token, wantOut) {
		return nil, errors.Wrapf(ErrTokenMismatch, "output %s != %s", q.OrderInfo.Outputs[0].Token, wantOut)
	}

	in, err := amountOf(input.TokenIn(), q.OrderInfo.Input.StartAmount)
	if err != nil {
		return nil, err
	}
	swapperOut := new(big.Int)
	for _, o := range q.OrderInfo.Outputs {
		if o.Recipient != "" && !strings.EqualFold(o.Recipient, q.OrderInfo.Swapper) {
			continue
		}
		v, ok := new(big.Int).SetString(o.StartAmount, 10)
		if !ok {
			return nil, errors.Errorf("invalid output amount %q", o.StartAmount)
		}
		swapperOut.Add(swapperOut, v)
	}
	out := domain.CurrencyAmount{Currency: input.TokenOut(), Raw: swapperOut}

	order := domain.OrderInfo{
		Reactor:      q.OrderInfo.Reactor,
		Swapper:      q.OrderInfo.Swapper,
		Nonce:        q.OrderInfo.Nonce,
		Deadline:     time.Unix(q.OrderInfo.Deadline, 0),
		EncodedOrder: q.EncodedOrder,
	}
	t := domain.NewUniswapXTrade(resp.Routing, in, out, input.TradeType(), resp.RequestID, slippageOf(q.SlippageTolerance), order, resp.Quote)
	if t.NeedsWrap() {
		t.WrapInfo = &domain.WrapInfo{NeedsWrap: true}
	}
	if resp.PermitData != nil {
		permit, err := resp.PermitData.ToPermit()
		if err != nil {
			return nil, err
		}
		t.OrderPermit = permit
	}
	return t, nil
}

func parseBridge(resp *tradingapi.QuoteResponse, input *ValidatedTradeInput) (domain.Trade, error) {
	var q tradingapi.BridgeQuote
	if err := sonic.Unmarshal(resp.Quote, &q); err != nil {
		return nil, errors.Wrap(err, "decode bridge quote")
	}
	in, err := amountOf(input.TokenIn(), q.Input.Amount)
	if err != nil {
		return nil, err
	}
	out, err := amountOf(input.TokenOut(), q.Output.Amount)
	if err != nil {
		return nil, err
	}
	t := domain.NewBridgeTrade(in, out, input.TradeType(), resp.RequestID, q.EstimatedFillTimeMs/1000, resp.Quote)
	t.QuotedGasFee = tradingapi.ParseAmount(q.GasFee)
	return t, nil
}

func parseWrap(resp *tradingapi.QuoteResponse, input *ValidatedTradeInput) (domain.Trade, error) {
	var q tradingapi.WrapQuote
	if err := sonic.Unmarshal(resp.Quote, &q); err != nil {
		return nil, errors.Wrap(err, "decode wrap quote")
	}
	in, err := amountOf(input.TokenIn(), q.Input.Amount)
	if err != nil {
		return nil, err
	}
	out, err := amountOf(input.TokenOut(), q.Output.Amount)
	if err != nil {
		return nil, err
	}
	t := domain.NewWrapTrade(in, out, resp.Routing == domain.RoutingUnwrap)
	t.RequestID = resp.RequestID
	t.Raw = resp.Quote
	return t, nil
}

package trade

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/swap/query"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

const (
	OperationGetTrade           = "getTrade"
	OperationGetIndicativeTrade = "getIndicativeTrade"
)

// QuoteSource is the subset of the quote repository the service needs.
type QuoteSource interface {
	FetchQuote(ctx context.Context, req tradingapi.QuoteRequest, opts tradingapi.FetchOptions) (*tradingapi.QuoteResponse, error)
	FetchIndicativeQuote(ctx context.Context, req tradingapi.QuoteRequest) (*tradingapi.IndicativeQuoteResponse, error)
}

// TradeResult is a definitive quote parsed into a Trade. Trade is nil when
// no trade is available.
type TradeResult struct {
	Trade   domain.Trade
	Input   *ValidatedTradeInput
	Latency time.Duration
}

type QueryKey struct {
	Namespace   string
	Operation   string
	Fingerprint string
}

func (k QueryKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Namespace, k.Operation, k.Fingerprint)
}

type QueryOptions struct {
	Key          QueryKey
	Enabled      bool
	PollInterval time.Duration
}

type Service struct {
	quotes          QuoteSource
	polling         PollingPolicy
	tradeCache      *query.Cache[TradeResult]
	indicativeCache *query.Cache[*domain.IndicativeTrade]
	logger          zerolog.Logger
}

func NewService(quotes QuoteSource, polling PollingPolicy, quoteTTL time.Duration) *Service {
	return &Service{
		quotes:          quotes,
		polling:         polling,
		tradeCache:      query.NewCache[TradeResult](quoteTTL),
		indicativeCache: query.NewCache[*domain.IndicativeTrade](quoteTTL),
		logger:          log.With().Str("component", "trade-service").Logger(),
	}
}

func (s *Service) Start() {
	s.tradeCache.Start()
	s.indicativeCache.Start()
}

func (s *Service) Stop() {
	s.tradeCache.Stop()
	s.indicativeCache.Stop()
}

func (s *Service) TradeCache() *query.Cache[TradeResult] { return s.tradeCache }

func (s *Service) IndicativeCache() *query.Cache[*domain.IndicativeTrade] {
	return s.indicativeCache
}

func (s *Service) Polling() PollingPolicy { return s.polling }

func (s *Service) PrepareTradeInput(args UseTradeArgs) *ValidatedTradeInput {
	return PrepareTradeInput(args)
}

// PrepareIndicativeTradeInput validates args for an indicative quote. USD
// reference requests never need one.
func (s *Service) PrepareIndicativeTradeInput(args UseTradeArgs) *ValidatedTradeInput {
	if args.IsUSDQuote {
		return nil
	}
	args.RoutingPreference = domain.RoutingPreferenceFastest
	return PrepareTradeInput(args)
}

// QueryOptions describes how a cache consumer should run the trade query for args.
func (s *Service) QueryOptions(args UseTradeArgs) QueryOptions {
	input := PrepareTradeInput(args)
	return s.queryOptions(OperationGetTrade, input)
}

func (s *Service) IndicativeQueryOptions(args UseTradeArgs) QueryOptions {
	input := s.PrepareIndicativeTradeInput(args)
	return s.queryOptions(OperationGetIndicativeTrade, input)
}

func (s *Service) queryOptions(op string, input *ValidatedTradeInput) QueryOptions {
	opts := QueryOptions{Key: QueryKey{Namespace: common.ServiceNamespace, Operation: op}}
	if input == nil {
		return opts
	}
	opts.Key.Fingerprint = input.Fingerprint()
	opts.Enabled = !input.IsSolana()
	opts.PollInterval = s.polling.Interval(input.TokenIn().ChainID)
	return opts
}

// GetTrade fetches and parses a definitive quote. Invalid input yields an
// empty result and no error; fetch failures are returned as errors.
func (s *Service) GetTrade(ctx context.Context, args UseTradeArgs) (TradeResult, error) {
	return s.FetchTrade(ctx, PrepareTradeInput(args))
}

func (s *Service) FetchTrade(ctx context.Context, input *ValidatedTradeInput) (TradeResult, error) {
	if input == nil || input.IsSolana() {
		return TradeResult{}, nil
	}

	req := s.buildQuoteRequest(input)
	resp, err := s.quotes.FetchQuote(ctx, req, tradingapi.FetchOptions{IsUSDQuote: input.IsUSDQuote()})
	if err != nil {
		if errors.Is(err, tradingapi.ErrNoQuote) {
			return TradeResult{Input: input}, nil
		}
		return TradeResult{Input: input}, errors.Wrap(err, "fetch quote")
	}

	t, err := ParseQuote(resp, input)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("routing", string(resp.Routing)).
			Str("requestId", resp.RequestID).
			Bool("bridging", input.IsBridging()).
			Msg("[tradeService] discarding unparseable quote")
		return TradeResult{Input: input, Latency: resp.Latency}, nil
	}
	return TradeResult{Trade: t, Input: input, Latency: resp.Latency}, nil
}

func (s *Service) GetIndicativeTrade(ctx context.Context, args UseTradeArgs) (*domain.IndicativeTrade, error) {
	return s.FetchIndicativeTrade(ctx, s.PrepareIndicativeTradeInput(args))
}

func (s *Service) FetchIndicativeTrade(ctx context.Context, input *ValidatedTradeInput) (*domain.IndicativeTrade, error) {
	if input == nil || input.IsSolana() {
		return nil, nil
	}
	req := s.buildQuoteRequest(input)
	req.RoutingPreference = domain.RoutingPreferenceFastest

	resp, err := s.quotes.FetchIndicativeQuote(ctx, req)
	if err != nil {
		if errors.Is(err, tradingapi.ErrNoQuote) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "fetch indicative quote")
	}

	in, ok := domain.NewCurrencyAmount(input.TokenIn(), resp.Input.Amount)
	if !ok {
		return nil, nil
	}
	out, ok := domain.NewCurrencyAmount(input.TokenOut(), resp.Output.Amount)
	if !ok {
		return nil, nil
	}
	return &domain.IndicativeTrade{Input: in, Output: out, Type: input.TradeType(), RequestID: resp.RequestID}, nil
}

func (s *Service) buildQuoteRequest(input *ValidatedTradeInput) tradingapi.QuoteRequest {
	req := tradingapi.QuoteRequest{
		Type:              input.TradeType(),
		Amount:            input.Amount().String(),
		TokenInChainID:    input.TokenIn().ChainID,
		TokenOutChainID:   input.TokenOut().ChainID,
		TokenIn:           input.TokenIn().TradingAPIAddress(),
		TokenOut:          input.TokenOut().TradingAPIAddress(),
		Swapper:           input.Account(),
		RoutingPreference: input.RoutingPreference(),
		Protocols:         input.Protocols(),
	}
	if input.IsUSDQuote() {
		req.Protocols = slices.Clone(USDQuoteProtocols)
	}
	applySlippage(&req, input)
	return req
}

package tradingapi

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/metrics"
)

type FetchOptions struct {
	// IsUSDQuote tags the request as a USD price reference; latency is not logged.
	IsUSDQuote bool
}

// API is the transport the repository wraps. *Client implements it.
type API interface {
	Quote(ctx context.Context, req QuoteRequest, isUSDQuote bool) (*QuoteResponse, error)
	IndicativeQuote(ctx context.Context, req QuoteRequest) (*IndicativeQuoteResponse, error)
}

// Repository fetches quotes and records their latency.
type Repository struct {
	api    API
	logger zerolog.Logger
	now    func() time.Time
}

func NewRepository(api API) *Repository {
	return &Repository{
		api:    api,
		logger: log.With().Str("component", "quote-repository").Logger(),
		now:    time.Now,
	}
}

func (r *Repository) FetchQuote(ctx context.Context, req QuoteRequest, opts FetchOptions) (*QuoteResponse, error) {
	start := r.now()
	resp, err := r.api.Quote(ctx, req, opts.IsUSDQuote)
	latency := r.now().Sub(start)

	if err != nil {
		metrics.QuoteRequests.WithLabelValues("definitive", "error").Inc()
		if !opts.IsUSDQuote {
			r.logger.Warn().Err(err).
				Bool("bridging", req.IsBridging()).
				Dur("latency", latency).
				Msg("[quoteRepository] quote request failed")
		}
		return nil, err
	}

	resp.Latency = latency
	metrics.QuoteRequests.WithLabelValues("definitive", "ok").Inc()
	if !opts.IsUSDQuote {
		metrics.QuoteDuration.WithLabelValues("definitive", strconv.FormatBool(req.IsBridging())).Observe(latency.Seconds())
		r.logger.Info().
			Str("requestId", resp.RequestID).
			Str("routing", string(resp.Routing)).
			Bool("bridging", req.IsBridging()).
			Dur("latency", latency).
			Msg("[quoteRepository] quote received")
	}
	return resp, nil
}

func (r *Repository) FetchIndicativeQuote(ctx context.Context, req QuoteRequest) (*IndicativeQuoteResponse, error) {
	start := r.now()
	resp, err := r.api.IndicativeQuote(ctx, req)
	latency := r.now().Sub(start)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("indicative", "error").Inc()
		return nil, err
	}
	metrics.QuoteRequests.WithLabelValues("indicative", "ok").Inc()
	metrics.QuoteDuration.WithLabelValues("indicative", strconv.FormatBool(req.IsBridging())).Observe(latency.Seconds())
	r.logger.Debug().Str("requestId", resp.RequestID).Dur("latency", latency).Msg("[quoteRepository] indicative quote received")
	return resp, nil
}

package tradingapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/hxuan190/swap-engine/internal/domain"
)

type fakeAPI struct {
	resp     *QuoteResponse
	err      error
	usdCalls int
}

func (f *fakeAPI) Quote(_ context.Context, _ QuoteRequest, isUSDQuote bool) (*QuoteResponse, error) {
	if isUSDQuote {
		f.usdCalls++
	}
	if f.err != nil {
		return nil, f.err
	}
	r := *f.resp
	r.IsUSDQuote = isUSDQuote
	return &r, nil
}

func (f *fakeAPI) IndicativeQuote(context.Context, QuoteRequest) (*IndicativeQuoteResponse, error) {
	return &IndicativeQuoteResponse{RequestID: "ind-1"}, f.err
}

func steppingClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestRepositoryRecordsLatency(t *testing.T) {
	api := &fakeAPI{resp: &QuoteResponse{RequestID: "r1", Routing: domain.RoutingClassic}}
	repo := NewRepository(api)
	repo.now = steppingClock(150 * time.Millisecond)

	resp, err := repo.FetchQuote(context.Background(), QuoteRequest{TokenInChainID: 1, TokenOutChainID: 1}, FetchOptions{})
	assert.NoError(t, err)
	assert.Equal(t, resp.Latency, 150*time.Millisecond)
	assert.False(t, resp.IsUSDQuote)

	resp, err = repo.FetchQuote(context.Background(), QuoteRequest{TokenInChainID: 1, TokenOutChainID: 8453}, FetchOptions{IsUSDQuote: true})
	assert.NoError(t, err)
	assert.True(t, resp.IsUSDQuote)
	assert.Equal(t, api.usdCalls, 1)
}

func TestRepositoryPropagatesErrors(t *testing.T) {
	api := &fakeAPI{err: &APIError{StatusCode: 500, ErrorCode: "InternalServerError"}}
	repo := NewRepository(api)

	_, err := repo.FetchQuote(context.Background(), QuoteRequest{}, FetchOptions{})
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))

	_, err = repo.FetchIndicativeQuote(context.Background(), QuoteRequest{})
	assert.Error(t, err)
}

func TestQuoteRequestIsBridging(t *testing.T) {
	assert.False(t, QuoteRequest{TokenInChainID: 1, TokenOutChainID: 1}.IsBridging())
	assert.True(t, QuoteRequest{TokenInChainID: 1, TokenOutChainID: 10}.IsBridging())
}

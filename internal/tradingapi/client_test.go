package tradingapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/zeebo/assert"

	"github.com/hxuan190/swap-engine/internal/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL + "/", APIKey: "test-key", UniversalRouterVersion: "2.0"})
}

func TestClientQuote(t *testing.T) {
	var gotSource, gotKey, gotID string
	var gotReq QuoteRequest

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, quotePath)
		gotSource = r.Header.Get(headerRequestSource)
		gotKey = r.Header.Get("x-api-key")
		gotID = r.Header.Get("x-request-id")
		body, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(body, &gotReq)
		_, _ = w.Write([]byte(`{"requestId":"req-1","routing":"CLASSIC","quote":{"quoteId":"q1"}}`))
	})

	req := QuoteRequest{
		Type:            domain.ExactInput,
		Amount:          "1000",
		TokenInChainID:  domain.ChainMainnet,
		TokenOutChainID: domain.ChainMainnet,
		TokenIn:         domain.NativeAddressForTradingAPI,
		TokenOut:        "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	}

	resp, err := client.Quote(context.Background(), req, false)
	assert.NoError(t, err)
	assert.Equal(t, resp.RequestID, "req-1")
	assert.Equal(t, resp.Routing, domain.RoutingClassic)
	assert.False(t, resp.IsUSDQuote)
	assert.Equal(t, gotSource, "")
	assert.Equal(t, gotKey, "test-key")
	assert.True(t, gotID != "")
	assert.Equal(t, gotReq.Amount, "1000")

	resp, err = client.Quote(context.Background(), req, true)
	assert.NoError(t, err)
	assert.True(t, resp.IsUSDQuote)
	assert.Equal(t, gotSource, usdQuoteSource)
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantNoQ  bool
		wantCode string
	}{
		{name: "no route", status: http.StatusNotFound, body: `{"errorCode":"ResourceNotFound","detail":"No quotes available"}`, wantNoQ: true},
		{name: "amount too low", status: http.StatusNotFound, body: `{"errorCode":"QuoteAmountTooLowError","detail":"too low"}`, wantNoQ: true},
		{name: "server error", status: http.StatusInternalServerError, body: `{"errorCode":"InternalServerError","detail":"boom"}`, wantCode: "InternalServerError"},
		{name: "empty body", status: http.StatusBadGateway, body: ``, wantCode: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Quote(context.Background(), QuoteRequest{}, false)
			assert.Error(t, err)
			assert.Equal(t, errors.Is(err, ErrNoQuote), tt.wantNoQ)
			if !tt.wantNoQ {
				var apiErr *APIError
				assert.True(t, errors.As(err, &apiErr))
				assert.Equal(t, apiErr.StatusCode, tt.status)
				assert.Equal(t, apiErr.ErrorCode, tt.wantCode)
				assert.True(t, apiErr.Detail != "")
			}
		})
	}
}

func TestTransactionPayloadToRequest(t *testing.T) {
	p := &TransactionPayload{
		To:                   "0x66a9893cC07D91D95644AEDD05D03f95e1dBA8Af",
		From:                 "0x1111111111111111111111111111111111111111",
		Data:                 "0x3593564c",
		Value:                "0x0de0b6b3a7640000",
		ChainID:              domain.ChainMainnet,
		GasLimit:             "210000",
		MaxFeePerGas:         "30000000000",
		MaxPriorityFeePerGas: "1000000000",
	}

	tx, err := p.ToRequest()
	assert.NoError(t, err)
	assert.Equal(t, tx.Value.String(), "1000000000000000000")
	assert.Equal(t, tx.GasLimit, uint64(210000))
	assert.Equal(t, tx.MaxFeePerGas.String(), "30000000000")
	assert.Nil(t, tx.GasPrice)

	p.Value = "not-a-number"
	_, err = p.ToRequest()
	assert.Error(t, err)

	var nilPayload *TransactionPayload
	tx, err = nilPayload.ToRequest()
	assert.NoError(t, err)
	assert.Nil(t, tx)
}

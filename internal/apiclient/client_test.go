package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/zeebo/assert"

	api "github.com/hxuan190/swap-engine/internal/http"
)

func TestQuoteDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/api/v1/quote")
		assert.Equal(t, r.Header.Get("X-Wallet-Address"), "0xabc")
		var req api.TradeInputRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, req.Amount, "1000000")

		_, _ = w.Write([]byte(`{"success":true,"data":{"routing":"CLASSIC","latencyMs":12,"trade":{
			"outputAmount":{"currency":{"chainId":1,"symbol":"USDC","decimals":6},"raw":2500000},
			"slippageTolerance":"0.5"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "0xabc", 0)
	q, err := c.Quote(context.Background(), api.TradeInputRequest{Amount: "1000000"})
	assert.NoError(t, err)
	assert.Equal(t, q.Routing, "CLASSIC")
	assert.Equal(t, q.LatencyMs, int64(12))
	assert.NotNil(t, q.Trade)
	assert.Equal(t, q.Trade.OutputAmount.Decimal().String(), "2.5")
	assert.Equal(t, q.Trade.SlippageTolerance.String(), "0.5")
}

func TestErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"code":"RESOURCE_CONFLICT","error":"trade must be accepted"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", 0).PrepareSwap(context.Background(), "s1", "")
	var apiErr *Error
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErr.StatusCode, http.StatusConflict)
	assert.Equal(t, apiErr.Code, "RESOURCE_CONFLICT")
}

func TestNonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL, "", 0).CloseSession(context.Background(), "s1")
	var apiErr *Error
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErr.Message, "Bad Gateway")
}

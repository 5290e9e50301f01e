package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	gohttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeebo/assert"

	"github.com/hxuan190/swap-engine/internal/config"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/engine"
	"github.com/hxuan190/swap-engine/internal/swap/trade"
	"github.com/hxuan190/swap-engine/internal/swap/txinfo"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

const (
	account = "0x1111111111111111111111111111111111111111"
	usdc    = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

type stubQuotes struct {
	mu     sync.Mutex
	output string
	err    error
}

func (s *stubQuotes) set(output string) {
	s.mu.Lock()
	s.output = output
	s.mu.Unlock()
}

func (s *stubQuotes) FetchQuote(_ context.Context, req tradingapi.QuoteRequest, _ tradingapi.FetchOptions) (*tradingapi.QuoteResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	quote := fmt.Sprintf(`{
		"chainId": 1,
		"input": {"token": "0x0000000000000000000000000000000000000000", "amount": %q},
		"output": {"token": %q, "amount": %q},
		"slippage": 0.5,
		"tradeType": "EXACT_INPUT"
	}`, req.Amount, usdc, s.output)
	return &tradingapi.QuoteResponse{RequestID: "q", Routing: domain.RoutingClassic, Quote: json.RawMessage(quote)}, nil
}

func (s *stubQuotes) FetchIndicativeQuote(_ context.Context, req tradingapi.QuoteRequest) (*tradingapi.IndicativeQuoteResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &tradingapi.IndicativeQuoteResponse{
		RequestID: "ind",
		Input:     tradingapi.TokenAmount{Amount: req.Amount},
		Output:    tradingapi.TokenAmount{Amount: s.output},
		Type:      req.Type,
	}, nil
}

type stubTxInfo struct{}

func (stubTxInfo) GetSwapTxAndGasInfo(_ context.Context, p txinfo.Params) (*domain.SwapTxAndGasInfo, error) {
	return &domain.SwapTxAndGasInfo{
		Routing:    p.Trade.Routing(),
		Trade:      p.Trade,
		Approval:   p.ApprovalTxInfo,
		TxRequests: []*domain.TransactionRequest{{ChainID: domain.ChainMainnet, From: account, To: "0xrouter", Data: "0xswap"}},
	}, nil
}

func (stubTxInfo) AsyncBuilder(domain.Routing) (txinfo.AsyncBuilder, error) {
	return nil, txinfo.ErrMissingRoutingService
}

type stubApprovals struct{}

func (stubApprovals) Check(context.Context, string, domain.Trade) (domain.ApprovalTxInfo, error) {
	return domain.ApprovalTxInfo{Action: domain.ApprovalActionNone}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
}

type testServer struct {
	router *gin.Engine
	quotes *stubQuotes
	engine *engine.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conf := config.Defaults()
	quotes := &stubQuotes{output: "3000000000"}
	e := engine.New(engine.Options{
		Config:    conf,
		Trades:    trade.NewService(quotes, trade.NewPollingPolicy(conf), time.Minute),
		TxInfo:    stubTxInfo{},
		Approvals: stubApprovals{},
	})
	assert.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Stop() })

	return &testServer{router: NewRouter(nil, Handlers(e)...), quotes: quotes, engine: e}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func input(amount string) TradeInputRequest {
	return TradeInputRequest{
		TokenIn:    domain.Currency{ChainID: domain.ChainMainnet, Symbol: "ETH", Decimals: 18, IsNative: true},
		TokenOut:   domain.Currency{ChainID: domain.ChainMainnet, Address: usdc, Symbol: "USDC", Decimals: 6},
		ExactField: "input",
		Amount:     amount,
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(gohttp.MethodGet, "/health", nil))
	assert.Equal(t, w.Code, gohttp.StatusOK)
}

func TestQuote(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, gohttp.MethodPost, "/api/v1/quote", input("1000000000000000000"))
	assert.Equal(t, code, gohttp.StatusOK)
	assert.True(t, env.Success)

	var out struct {
		Routing     string `json:"routing"`
		Fingerprint string `json:"fingerprint"`
		Trade       struct {
			OutputAmount struct {
				Raw json.Number `json:"raw"`
			} `json:"outputAmount"`
		} `json:"trade"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, out.Routing, "CLASSIC")
	assert.True(t, out.Fingerprint != "")
	assert.Equal(t, out.Trade.OutputAmount.Raw.String(), "3000000000")

	code, env = s.do(t, gohttp.MethodPost, "/api/v1/quote/indicative", input("1000000000000000000"))
	assert.Equal(t, code, gohttp.StatusOK)
	assert.True(t, env.Success)
}

func TestQuoteRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	bad := input("1")
	bad.ExactField = "sideways"
	code, env := s.do(t, gohttp.MethodPost, "/api/v1/quote", bad)
	assert.Equal(t, code, gohttp.StatusBadRequest)
	assert.False(t, env.Success)

	noChain := input("1")
	noChain.TokenOut.ChainID = domain.ChainUnknown
	code, _ = s.do(t, gohttp.MethodPost, "/api/v1/quote", noChain)
	assert.Equal(t, code, gohttp.StatusBadRequest)

	code, _ = s.do(t, gohttp.MethodPost, "/api/v1/quote", map[string]string{"tokenIn": "x"})
	assert.Equal(t, code, gohttp.StatusBadRequest)
}

func TestQuoteUpstreamFailure(t *testing.T) {
	s := newTestServer(t)
	s.quotes.err = &tradingapi.APIError{StatusCode: 500, Detail: "boom"}

	code, env := s.do(t, gohttp.MethodPost, "/api/v1/quote", input("5"))
	assert.Equal(t, code, gohttp.StatusBadGateway)
	assert.False(t, env.Success)
}

type sessionView struct {
	ID                 string `json:"id"`
	RequiresAcceptance bool   `json:"requiresAcceptance"`
	Outcome            string `json:"acceptanceOutcome"`
	Steps              []struct {
		Type   string `json:"type"`
		Status string `json:"status"`
	} `json:"steps"`
}

func decodeView(t *testing.T, env envelope) sessionView {
	t.Helper()
	var v sessionView
	assert.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestSessionSwapFlow(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, gohttp.MethodPost, "/api/v1/sessions", CreateSessionRequest{Account: account})
	assert.Equal(t, code, gohttp.StatusOK)
	id := decodeView(t, env).ID
	assert.True(t, id != "")
	base := "/api/v1/sessions/" + id

	code, env = s.do(t, gohttp.MethodPut, base+"/input", input("1000000000000000000"))
	assert.Equal(t, code, gohttp.StatusOK)
	assert.Equal(t, decodeView(t, env).Outcome, "first")

	s.quotes.set("3100000000")
	code, env = s.do(t, gohttp.MethodPost, base+"/refresh?force=true", nil)
	assert.Equal(t, code, gohttp.StatusOK)
	assert.True(t, decodeView(t, env).RequiresAcceptance)

	code, env = s.do(t, gohttp.MethodPost, base+"/prepare", nil)
	assert.Equal(t, code, gohttp.StatusConflict)
	assert.Equal(t, env.Code, "RESOURCE_CONFLICT")

	code, _ = s.do(t, gohttp.MethodPost, base+"/accept", nil)
	assert.Equal(t, code, gohttp.StatusOK)

	code, env = s.do(t, gohttp.MethodPost, base+"/prepare", PrepareSwapRequest{Urgency: "fast"})
	assert.Equal(t, code, gohttp.StatusOK)
	v := decodeView(t, env)
	assert.Equal(t, len(v.Steps), 1)
	assert.Equal(t, v.Steps[0].Type, "SwapTransaction")
	assert.Equal(t, v.Steps[0].Status, "Active")

	code, _ = s.do(t, gohttp.MethodPost, base+"/steps/1/begin", nil)
	assert.Equal(t, code, gohttp.StatusConflict)

	code, _ = s.do(t, gohttp.MethodPost, base+"/steps/x/begin", nil)
	assert.Equal(t, code, gohttp.StatusBadRequest)

	code, _ = s.do(t, gohttp.MethodPost, base+"/steps/0/begin", nil)
	assert.Equal(t, code, gohttp.StatusOK)

	code, env = s.do(t, gohttp.MethodPost, base+"/steps/0/fail", FailStepRequest{Reason: "rejected"})
	assert.Equal(t, code, gohttp.StatusOK)
	assert.Equal(t, decodeView(t, env).Steps[0].Status, "Failed")

	code, env = s.do(t, gohttp.MethodPost, base+"/steps/0/retry", nil)
	assert.Equal(t, code, gohttp.StatusOK)
	assert.Equal(t, decodeView(t, env).Steps[0].Status, "Active")

	code, _ = s.do(t, gohttp.MethodPost, base+"/steps/0/complete", CompleteStepRequest{TxHash: "0xabc"})
	assert.Equal(t, code, gohttp.StatusConflict)

	code, _ = s.do(t, gohttp.MethodPost, base+"/steps/0/begin", nil)
	assert.Equal(t, code, gohttp.StatusOK)
	code, env = s.do(t, gohttp.MethodPost, base+"/steps/0/complete", CompleteStepRequest{TxHash: "0xabc"})
	assert.Equal(t, code, gohttp.StatusOK)
	assert.Equal(t, decodeView(t, env).Steps[0].Status, "Complete")

	code, _ = s.do(t, gohttp.MethodDelete, base, nil)
	assert.Equal(t, code, gohttp.StatusOK)
	code, env = s.do(t, gohttp.MethodGet, base, nil)
	assert.Equal(t, code, gohttp.StatusNotFound)
	assert.False(t, env.Success)
}

func TestSessionRejectsUnknownUrgency(t *testing.T) {
	s := newTestServer(t)
	sess := s.engine.NewSession(account)

	code, _ := s.do(t, gohttp.MethodPost, "/api/v1/sessions/"+sess.ID()+"/prepare", PrepareSwapRequest{Urgency: "yesterday"})
	assert.Equal(t, code, gohttp.StatusBadRequest)

	code, _ = s.do(t, gohttp.MethodPost, "/api/v1/sessions/"+sess.ID()+"/prepare", nil)
	assert.Equal(t, code, gohttp.StatusConflict)
}

func TestDebouncedInputIsAccepted(t *testing.T) {
	s := newTestServer(t)
	sess := s.engine.NewSession(account)

	code, env := s.do(t, gohttp.MethodPut, "/api/v1/sessions/"+sess.ID()+"/input?debounce=true", input("42"))
	assert.Equal(t, code, gohttp.StatusAccepted)
	assert.True(t, env.Success)
}

func TestSettingsEndpoints(t *testing.T) {
	s := newTestServer(t)
	path := "/api/v1/settings/" + account

	code, env := s.do(t, gohttp.MethodGet, path, nil)
	assert.Equal(t, code, gohttp.StatusOK)
	var got struct {
		RoutingPreference string `json:"routingPreference"`
		CustomSlippage    string `json:"customSlippage"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, got.RoutingPreference, string(domain.RoutingPreferenceBestPrice))

	code, env = s.do(t, gohttp.MethodPut, path, map[string]interface{}{"slippage": "0.8", "routingPreference": "fastest"})
	assert.Equal(t, code, gohttp.StatusOK)
	assert.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, got.CustomSlippage, "0.8")
	assert.Equal(t, got.RoutingPreference, string(domain.RoutingPreferenceFastest))

	code, _ = s.do(t, gohttp.MethodPut, path, map[string]interface{}{"slippage": "90"})
	assert.Equal(t, code, gohttp.StatusBadRequest)

	code, _ = s.do(t, gohttp.MethodPut, path, map[string]interface{}{"routingPreference": "sometimes"})
	assert.Equal(t, code, gohttp.StatusBadRequest)

	code, env = s.do(t, gohttp.MethodPost, "/api/v1/admin/settings/import", []map[string]interface{}{
		{"account": "0x2222222222222222222222222222222222222222", "txDeadline": int64(30 * time.Minute), "routingPreference": "CLASSIC"},
	})
	assert.Equal(t, code, gohttp.StatusOK)
	assert.True(t, env.Success)
	assert.Equal(t, s.engine.Settings("0x2222222222222222222222222222222222222222").RoutingPreference, domain.RoutingPreferenceClassic)
}

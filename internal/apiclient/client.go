// Package apiclient talks to the swap engine's HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/swap-engine/internal/domain"
	api "github.com/hxuan190/swap-engine/internal/http"
)

const apiPrefix = "/api/v1"

// Error is a failed envelope returned by the engine.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("swap engine: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("swap engine: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type Amount struct {
	Currency domain.Currency `json:"currency"`
	Raw      *big.Int        `json:"raw"`
}

// Decimal renders the amount in whole token units.
func (a Amount) Decimal() decimal.Decimal {
	if a.Raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.Raw, -a.Currency.Decimals)
}

type Trade struct {
	InputAmount       Amount          `json:"inputAmount"`
	OutputAmount      Amount          `json:"outputAmount"`
	TradeType         string          `json:"tradeType"`
	RequestID         string          `json:"requestId"`
	SlippageTolerance decimal.Decimal `json:"slippageTolerance"`
	PriceImpact       decimal.Decimal `json:"priceImpact"`
	Deadline          time.Time       `json:"deadline"`
}

type Quote struct {
	Trade       *Trade `json:"trade"`
	Routing     string `json:"routing"`
	Fingerprint string `json:"fingerprint"`
	LatencyMs   int64  `json:"latencyMs"`
}

type Step struct {
	Type      string                     `json:"type"`
	Status    string                     `json:"status"`
	TxRequest *domain.TransactionRequest `json:"txRequest,omitempty"`
	Deadline  time.Time                  `json:"deadline,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

type Session struct {
	ID                 string          `json:"id"`
	Account            string          `json:"account"`
	Trade              *Trade          `json:"trade"`
	Accepted           *Trade          `json:"acceptedTrade"`
	RequiresAcceptance bool            `json:"requiresAcceptance"`
	Outcome            string          `json:"acceptanceOutcome"`
	PriceChange        decimal.Decimal `json:"priceChangePct"`
	Steps              []Step          `json:"steps"`
	Error              string          `json:"error"`
}

type Settings struct {
	Account           string           `json:"account"`
	CustomSlippage    *decimal.Decimal `json:"customSlippage,omitempty"`
	TxDeadline        time.Duration    `json:"txDeadline"`
	RoutingPreference string           `json:"routingPreference"`
	Protocols         []string         `json:"protocols,omitempty"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
}

type Client struct {
	baseURL string
	wallet  string
	http    *http.Client
}

// New returns a client for the engine at baseURL. wallet, when set, is sent
// as the rate limiting key.
func New(baseURL, wallet string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		wallet:  wallet,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Quote(ctx context.Context, req api.TradeInputRequest) (*Quote, error) {
	var out Quote
	if err := c.do(ctx, http.MethodPost, "/quote", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSession(ctx context.Context, account string) (*Session, error) {
	return c.session(ctx, http.MethodPost, "/sessions", api.CreateSessionRequest{Account: account})
}

func (c *Client) SetInput(ctx context.Context, id string, req api.TradeInputRequest) (*Session, error) {
	return c.session(ctx, http.MethodPut, "/sessions/"+id+"/input", req)
}

func (c *Client) Accept(ctx context.Context, id string) (*Session, error) {
	return c.session(ctx, http.MethodPost, "/sessions/"+id+"/accept", nil)
}

func (c *Client) PrepareSwap(ctx context.Context, id, urgency string) (*Session, error) {
	return c.session(ctx, http.MethodPost, "/sessions/"+id+"/prepare", api.PrepareSwapRequest{Urgency: urgency})
}

func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+id, nil, nil)
}

func (c *Client) Settings(ctx context.Context, account string) (*Settings, error) {
	var out Settings
	if err := c.do(ctx, http.MethodGet, "/settings/"+account, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PutSettings(ctx context.Context, account string, req api.SettingsRequest) (*Settings, error) {
	var out Settings
	if err := c.do(ctx, http.MethodPut, "/settings/"+account, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) session(ctx context.Context, method, path string, body any) (*Session, error) {
	var out Session
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.wallet != "" {
		req.Header.Set("X-Wallet-Address", c.wallet)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s response", path)
	}

	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil || !env.Success {
		e := &Error{StatusCode: res.StatusCode, Code: env.Code, Message: env.Error}
		if e.Message == "" {
			e.Message = http.StatusText(res.StatusCode)
		}
		return e
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

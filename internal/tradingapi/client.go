package tradingapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hxuan190/swap-engine/internal/domain"
)

const (
	quotePath           = "/v1/quote"
	indicativeQuotePath = "/v1/indicative_quote"
	swapPath            = "/v1/swap"
	checkApprovalPath   = "/v1/check_approval"

	headerRequestSource = "x-request-source"
	usdQuoteSource      = "usd-quote"
)

var (
	// ErrNoQuote means the API found no route; it is not a transport failure.
	ErrNoQuote = errors.New("no quote available")
)

// APIError is a non-2xx response from the pricing API.
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"errorCode"`
	Detail     string `json:"detail"`
	RequestID  string `json:"id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trading api: %d %s: %s", e.StatusCode, e.ErrorCode, e.Detail)
}

type ClientConfig struct {
	BaseURL                string
	APIKey                 string
	Timeout                time.Duration
	UniversalRouterVersion string
}

type Client struct {
	baseURL       string
	apiKey        string
	routerVersion string
	http          *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		routerVersion: cfg.UniversalRouterVersion,
		http:          &http.Client{Timeout: timeout},
	}
}

func (c *Client) Quote(ctx context.Context, req QuoteRequest, isUSDQuote bool) (*QuoteResponse, error) {
	var resp QuoteResponse
	headers := map[string]string{}
	if isUSDQuote {
		headers[headerRequestSource] = usdQuoteSource
	}
	if err := c.post(ctx, quotePath, req, &resp, headers); err != nil {
		return nil, err
	}
	resp.IsUSDQuote = isUSDQuote
	return &resp, nil
}

func (c *Client) IndicativeQuote(ctx context.Context, req QuoteRequest) (*IndicativeQuoteResponse, error) {
	var resp IndicativeQuoteResponse
	if err := c.post(ctx, indicativeQuotePath, req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Swap(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	var resp SwapResponse
	if err := c.post(ctx, swapPath, req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CheckApproval(ctx context.Context, req CheckApprovalRequest) (*CheckApprovalResponse, error) {
	var resp CheckApprovalResponse
	if err := c.post(ctx, checkApprovalPath, req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any, headers map[string]string) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-request-id", uuid.NewString())
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}
	if c.routerVersion != "" {
		httpReq.Header.Set("x-universal-router-version", c.routerVersion)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	res, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s response", path)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		if len(data) > 0 {
			_ = sonic.Unmarshal(data, apiErr)
		}
		if apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(res.StatusCode)
		}
		if isNoRoute(apiErr) {
			return errors.Wrap(ErrNoQuote, apiErr.Error())
		}
		return apiErr
	}

	if err := sonic.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

func isNoRoute(e *APIError) bool {
	if e.StatusCode != http.StatusNotFound {
		return false
	}
	switch e.ErrorCode {
	case "ResourceNotFound", "QuoteAmountTooLowError", "NoRoutesFound":
		return true
	}
	return false
}

// ToRequest converts an API transaction payload into an unsigned request.
func (p *TransactionPayload) ToRequest() (*domain.TransactionRequest, error) {
	if p == nil {
		return nil, nil
	}
	tx := &domain.TransactionRequest{
		ChainID: p.ChainID,
		From:    p.From,
		To:      p.To,
		Data:    p.Data,
	}
	var err error
	if tx.Value, err = parseBig(p.Value); err != nil {
		return nil, errors.Wrap(err, "value")
	}
	if tx.MaxFeePerGas, err = parseBig(p.MaxFeePerGas); err != nil {
		return nil, errors.Wrap(err, "maxFeePerGas")
	}
	if tx.MaxPriorityFeePerGas, err = parseBig(p.MaxPriorityFeePerGas); err != nil {
		return nil, errors.Wrap(err, "maxPriorityFeePerGas")
	}
	if tx.GasPrice, err = parseBig(p.GasPrice); err != nil {
		return nil, errors.Wrap(err, "gasPrice")
	}
	if p.GasLimit != "" {
		if tx.GasLimit, err = strconv.ParseUint(p.GasLimit, 10, 64); err != nil {
			return nil, errors.Wrap(err, "gasLimit")
		}
	}
	return tx, nil
}

// parseBig accepts decimal or 0x-prefixed hex; empty yields nil.
func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

// ParseAmount parses a base-10 wei amount, returning nil for empty or invalid input.
func ParseAmount(s string) *big.Int {
	v, err := parseBig(s)
	if err != nil {
		return nil
	}
	return v
}

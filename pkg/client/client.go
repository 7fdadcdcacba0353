// Package client implements the REST surface of the Aori order-matching
// service: quoting, order submission, status, order queries, registry
// bootstrap data, and cancellation templates.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/aori-io/aori-go/pkg/numeric"
	"github.com/aori-io/aori-go/pkg/types"
)

// PathStyle selects which status endpoint a deployment serves.
type PathStyle int

const (
	// PathStyleData uses GET /data/status/{orderHash}.
	PathStyleData PathStyle = iota
	// PathStyleLegacy uses GET /swap/{orderHash}.
	PathStyleLegacy
)

const apiKeyHeader = "x-api-key"

// Client is an HTTP client for the Aori API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	pathStyle  PathStyle
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key sent in the x-api-key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithPathStyle selects the status endpoint layout.
func WithPathStyle(style PathStyle) Option {
	return func(c *Client) { c.pathStyle = style }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetQuote requests a priced quote. The request's input amount is normalized
// to a plain decimal string before transmission. Quotes are time-sensitive,
// so failures surface immediately without retries.
func (c *Client) GetQuote(ctx context.Context, req *types.QuoteRequest) (*types.QuoteResponse, error) {
	amount, err := numeric.Normalize(req.InputAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid input amount: %w", err)
	}
	wire := struct {
		Offerer     string `json:"offerer"`
		Recipient   string `json:"recipient"`
		InputToken  string `json:"inputToken"`
		OutputToken string `json:"outputToken"`
		InputAmount string `json:"inputAmount"`
		InputChain  string `json:"inputChain"`
		OutputChain string `json:"outputChain"`
	}{req.Offerer, req.Recipient, req.InputToken, req.OutputToken, amount, req.InputChain, req.OutputChain}

	var quote types.QuoteResponse
	if err := c.post(ctx, "/quote", wire, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// SubmitSwap submits a signed order. The order hash must be the quote's own
// hash, echoed unchanged.
func (c *Client) SubmitSwap(ctx context.Context, req *types.SwapRequest) (*types.SwapResponse, error) {
	var resp types.SwapResponse
	if err := c.post(ctx, "/swap", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOrderStatus fetches the current record for an order.
func (c *Client) GetOrderStatus(ctx context.Context, orderHash string) (*types.OrderRecord, error) {
	path := "/data/status/" + url.PathEscape(orderHash)
	if c.pathStyle == PathStyleLegacy {
		path = "/swap/" + url.PathEscape(orderHash)
	}
	var record types.OrderRecord
	if err := c.get(ctx, path, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// QueryOrders fetches a filtered, paginated order list. A 404 is an empty
// page, not an error.
func (c *Client) QueryOrders(ctx context.Context, filter *types.QueryOrdersFilter) (*types.QueryOrdersResponse, error) {
	params := url.Values{}
	if filter != nil {
		if filter.OrderHash != "" {
			params.Set("orderHash", filter.OrderHash)
		}
		if filter.Offerer != "" {
			params.Set("offerer", filter.Offerer)
		}
		if filter.Recipient != "" {
			params.Set("recipient", filter.Recipient)
		}
		if filter.Status != "" {
			params.Set("status", string(filter.Status))
		}
		if filter.Page > 0 {
			params.Set("page", strconv.Itoa(filter.Page))
		}
		if filter.Limit > 0 {
			params.Set("limit", strconv.Itoa(filter.Limit))
		}
	}

	var resp types.QueryOrdersResponse
	err := c.get(ctx, "/data/query", params, &resp)
	if err != nil {
		var apiErr *types.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return &types.QueryOrdersResponse{Orders: []types.OrderRecord{}}, nil
		}
		return nil, err
	}
	return &resp, nil
}

// GetCancelTx fetches the cancellation transaction template for an order.
func (c *Client) GetCancelTx(ctx context.Context, orderHash string) (*types.CancelTx, error) {
	var tx types.CancelTx
	if err := c.get(ctx, "/cancel/"+url.PathEscape(orderHash), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetChains fetches the supported chain list.
func (c *Client) GetChains(ctx context.Context) ([]types.ChainInfo, error) {
	var chains []types.ChainInfo
	if err := c.get(ctx, "/chains", nil, &chains); err != nil {
		return nil, err
	}
	return chains, nil
}

// GetTokens fetches the supported token list.
func (c *Client) GetTokens(ctx context.Context) ([]types.TokenInfo, error) {
	var tokens []types.TokenInfo
	if err := c.get(ctx, "/tokens", nil, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &types.NetworkError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.NetworkError{Endpoint: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("api error",
			zap.String("endpoint", path),
			zap.Int("status", resp.StatusCode))
		return &types.APIError{Endpoint: path, StatusCode: resp.StatusCode, Body: errorBody(body)}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// errorBody extracts a server error message, falling back to the raw body so
// the server's text is never lost.
func errorBody(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return string(body)
}

// Package aori is a client-side orchestration layer for the Aori cross-chain
// swap protocol: quoting, EIP-712 order signing, native and ERC20 execution
// paths, status tracking over polling and streaming, and single- or
// cross-chain cancellation.
package aori

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/aori-io/aori-go/config"
	"github.com/aori-io/aori-go/pkg/cancel"
	"github.com/aori-io/aori-go/pkg/client"
	"github.com/aori-io/aori-go/pkg/executor"
	"github.com/aori-io/aori-go/pkg/registry"
	"github.com/aori-io/aori-go/pkg/signer"
	"github.com/aori-io/aori-go/pkg/status"
	"github.com/aori-io/aori-go/pkg/swap"
	"github.com/aori-io/aori-go/pkg/types"
)

type options struct {
	baseURL    string
	wsBaseURL  string
	apiKey     string
	loadTokens bool
	pathStyle  client.PathStyle
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures an Engine at construction time. There is no other
// global state.
type Option func(*options)

// WithBaseURL overrides the REST base URL.
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithWSBaseURL overrides the WebSocket base URL.
func WithWSBaseURL(u string) Option { return func(o *options) { o.wsBaseURL = u } }

// WithAPIKey sets the API key, sent as a header on REST calls and as a query
// parameter on the stream URL.
func WithAPIKey(key string) Option { return func(o *options) { o.apiKey = key } }

// WithEagerTokens loads the full token list during construction.
func WithEagerTokens() Option { return func(o *options) { o.loadTokens = true } }

// WithPathStyle selects the status endpoint layout for the deployment.
func WithPathStyle(s client.PathStyle) Option { return func(o *options) { o.pathStyle = s } }

// WithHTTPClient replaces the REST transport.
func WithHTTPClient(hc *http.Client) Option { return func(o *options) { o.httpClient = hc } }

// WithLogger sets the engine logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// Engine orchestrates the order lifecycle against one API deployment. It
// owns its registry snapshot and at most one stream subscription, so
// multiple Engine instances never interfere.
type Engine struct {
	client     *client.Client
	registry   *registry.Registry
	dispatcher *swap.Dispatcher
	poller     *status.Poller
	canceller  *cancel.Engine
	logger     *zap.Logger

	wsBaseURL string
	apiKey    string

	mu     sync.Mutex
	stream *status.Stream
}

// New creates an Engine and loads the chain registry (and the token list
// when WithEagerTokens is set).
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	o := &options{
		baseURL:   config.DefaultBaseURL,
		wsBaseURL: config.DefaultWSBaseURL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	clientOpts := []client.Option{
		client.WithAPIKey(o.apiKey),
		client.WithPathStyle(o.pathStyle),
		client.WithLogger(o.logger),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(o.httpClient))
	}
	c := client.New(o.baseURL, clientOpts...)

	reg := registry.New(c, o.logger)
	if err := reg.Load(ctx, o.loadTokens); err != nil {
		return nil, err
	}

	return &Engine{
		client:     c,
		registry:   reg,
		dispatcher: swap.New(c, reg, o.logger),
		poller:     status.NewPoller(c, o.logger),
		canceller:  cancel.New(c, reg, o.logger),
		logger:     o.logger,
		wsBaseURL:  o.wsBaseURL,
		apiKey:     o.apiKey,
	}, nil
}

// FromConfig creates an Engine from environment-derived configuration.
func FromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithWSBaseURL(cfg.WSBaseURL),
		WithAPIKey(cfg.APIKey),
	}
	if cfg.LoadTokens {
		base = append(base, WithEagerTokens())
	}
	return New(ctx, append(base, opts...)...)
}

// Registry exposes the engine's chain/token snapshot.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// GetQuote requests a priced quote for a swap intent.
func (e *Engine) GetQuote(ctx context.Context, req *types.QuoteRequest) (*types.QuoteResponse, error) {
	return e.client.GetQuote(ctx, req)
}

// SignOrder builds and signs the quote's EIP-712 order.
func (e *Engine) SignOrder(ctx context.Context, quote *types.QuoteResponse, s signer.TypedDataSigner) (*signer.SignedOrder, error) {
	return signer.SignReadableOrder(ctx, quote, s, e.registry)
}

// ExecuteSwap routes the quote down the native or ERC20 path.
func (e *Engine) ExecuteSwap(ctx context.Context, quote *types.QuoteResponse, opts swap.Options) (*swap.Result, error) {
	return e.dispatcher.ExecuteSwap(ctx, quote, opts)
}

// SubmitSwap submits an already-signed order.
func (e *Engine) SubmitSwap(ctx context.Context, orderHash, signature string) (*types.SwapResponse, error) {
	return e.client.SubmitSwap(ctx, &types.SwapRequest{OrderHash: orderHash, Signature: signature})
}

// OrderStatus fetches the order's current record.
func (e *Engine) OrderStatus(ctx context.Context, orderHash string) (*types.OrderRecord, error) {
	return e.client.GetOrderStatus(ctx, orderHash)
}

// PollOrderStatus polls the order until a terminal status, the timeout, or
// ctx cancellation. Polling is the authority callers await for terminal
// resolution; stream events only accelerate it.
func (e *Engine) PollOrderStatus(ctx context.Context, orderHash string, opts status.PollOptions) (*types.OrderRecord, error) {
	return e.poller.PollOrderStatus(ctx, orderHash, opts)
}

// QueryOrders fetches a filtered, paginated order list.
func (e *Engine) QueryOrders(ctx context.Context, filter *types.QueryOrdersFilter) (*types.QueryOrdersResponse, error) {
	return e.client.QueryOrders(ctx, filter)
}

// CancelOrder cancels an order through the supplied executor, paying the
// cross-chain messaging fee when the server requires one.
func (e *Engine) CancelOrder(ctx context.Context, orderHash string, exec executor.TransactionExecutor) (*types.CancelOrderResponse, error) {
	return e.canceller.CancelOrder(ctx, orderHash, exec)
}

// SubscribeOrders opens the engine's stream subscription. An existing
// subscription is torn down first; an Engine owns at most one.
func (e *Engine) SubscribeOrders(ctx context.Context, opts status.StreamOptions) error {
	opts.BaseURL = e.wsBaseURL
	opts.APIKey = e.apiKey

	e.mu.Lock()
	if e.stream != nil {
		e.stream.Disconnect()
	}
	s := status.NewStream(opts, e.logger)
	e.stream = s
	e.mu.Unlock()

	return s.Connect(ctx)
}

// Unsubscribe closes the stream subscription, if any.
func (e *Engine) Unsubscribe() {
	e.mu.Lock()
	s := e.stream
	e.stream = nil
	e.mu.Unlock()
	if s != nil {
		s.Disconnect()
	}
}

// Close releases the engine's resources.
func (e *Engine) Close() {
	e.Unsubscribe()
}

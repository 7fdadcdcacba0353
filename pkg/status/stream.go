package status

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aori-io/aori-go/pkg/types"
)

// DefaultReconnectDelay is the fixed backoff between reconnection attempts.
// A client library reconnecting to one endpoint does not need exponential
// backoff; a short fixed delay keeps event gaps small.
const DefaultReconnectDelay = 2 * time.Second

// StreamOptions configures an order event subscription.
type StreamOptions struct {
	// BaseURL is the WebSocket base, e.g. wss://api.aori.io.
	BaseURL string
	// APIKey is appended as a query parameter; browser WebSocket clients
	// cannot set headers, so the server reads it from the URL.
	APIKey string

	// Subscription filters.
	Offerer   string
	Recipient string
	OrderHash string

	ReconnectDelay time.Duration

	OnConnect    func()
	OnMessage    func(event types.WSEvent)
	OnDisconnect func()
	OnError      func(err error)
}

// Stream is a persistent subscription to the order event feed. It reconnects
// with a fixed backoff after unexpected disconnects until Disconnect is
// called. Connect and Disconnect are idempotent; each Stream owns at most
// one live socket.
type Stream struct {
	opts   StreamOptions
	logger *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	// gen increments whenever the live socket changes. Read loops deliver
	// callbacks only while their generation is current, so a stale socket's
	// buffered messages can never double-fire after a reconnect.
	gen uint64
}

// NewStream creates a stream. It does not connect.
func NewStream(opts StreamOptions, logger *zap.Logger) *Stream {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{opts: opts, logger: logger}
}

// Connect dials the feed and starts delivering events. If already connected,
// the stale socket is closed first rather than left competing.
func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		stale := s.conn
		s.conn = nil
		s.gen++
		_ = stale.Close()
	}
	s.closed = false
	s.mu.Unlock()

	endpoint := s.buildURL()
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		werr := &types.NetworkError{Endpoint: "/stream", Err: err}
		if s.opts.OnError != nil {
			s.opts.OnError(werr)
		}
		return werr
	}

	s.mu.Lock()
	if s.closed {
		// Disconnect raced us; do not resurrect the session.
		s.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	s.conn = conn
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if s.opts.OnConnect != nil {
		s.opts.OnConnect()
	}
	go s.readLoop(ctx, conn, gen)
	return nil
}

// Disconnect tears the subscription down and stops reconnection. Calling it
// when not connected is a no-op.
func (s *Stream) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	wasConnected := conn != nil
	s.conn = nil
	s.closed = true
	s.gen++
	s.mu.Unlock()

	if wasConnected {
		_ = conn.Close()
		if s.opts.OnDisconnect != nil {
			s.opts.OnDisconnect()
		}
	}
}

// IsConnected reports whether a socket is currently live.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn, gen uint64) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var event types.WSEvent
		if jsonErr := json.Unmarshal(payload, &event); jsonErr != nil {
			// Malformed frames are dropped; they must never kill the stream.
			s.logger.Warn("dropping malformed stream message", zap.Error(jsonErr))
			continue
		}
		if !s.isCurrent(gen) {
			return
		}
		if s.opts.OnMessage != nil {
			s.opts.OnMessage(event)
		}
	}

	s.mu.Lock()
	if s.gen != gen || s.closed {
		// Replaced by a newer connection or deliberately torn down; the
		// newer owner handles callbacks from here.
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.mu.Unlock()

	if s.opts.OnDisconnect != nil {
		s.opts.OnDisconnect()
	}
	s.reconnect(ctx)
}

// reconnect retries at a fixed interval until the session is torn down or
// ctx is cancelled.
func (s *Stream) reconnect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.ReconnectDelay):
		}

		s.mu.Lock()
		stopped := s.closed
		s.mu.Unlock()
		if stopped {
			return
		}

		s.logger.Debug("reconnecting stream")
		if err := s.Connect(ctx); err == nil {
			return
		}
	}
}

func (s *Stream) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && !s.closed
}

func (s *Stream) buildURL() string {
	params := url.Values{}
	if s.opts.Offerer != "" {
		params.Set("offerer", s.opts.Offerer)
	}
	if s.opts.Recipient != "" {
		params.Set("recipient", s.opts.Recipient)
	}
	if s.opts.OrderHash != "" {
		params.Set("orderHash", s.opts.OrderHash)
	}
	if s.opts.APIKey != "" {
		params.Set("apiKey", s.opts.APIKey)
	}
	endpoint := s.opts.BaseURL + "/stream"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	return endpoint
}

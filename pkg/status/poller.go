// Package status tracks an order to its terminal state over two channels:
// HTTP polling, which is authoritative, and a WebSocket event stream, which
// is faster but advisory.
package status

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aori-io/aori-go/pkg/types"
)

// Default polling cadence.
const (
	DefaultPollInterval = 120 * time.Millisecond
	DefaultPollTimeout  = 60 * time.Second
)

// Fetcher fetches the current record for an order. *client.Client satisfies
// it.
type Fetcher interface {
	GetOrderStatus(ctx context.Context, orderHash string) (*types.OrderRecord, error)
}

// PollOptions tunes one polling run. All callbacks are optional.
type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration

	// OnStatusChange fires once per observed transition, including the
	// first observed status.
	OnStatusChange func(status types.Status, record *types.OrderRecord)
	// OnComplete fires when a terminal status is reached.
	OnComplete func(record *types.OrderRecord)
	// OnError fires on transient fetch failures; polling continues until the
	// deadline.
	OnError func(err error)

	// Events optionally feeds stream events for the same order into the
	// loop. A terminal event short-circuits the wait between checks, and
	// the loop re-fetches directly before resolving: a push message alone
	// is never trusted for terminal resolution.
	Events <-chan types.WSEvent
	// TrustStreamTerminal enables the short-circuit above. Off by default.
	TrustStreamTerminal bool
}

// Poller polls order status to terminal resolution.
type Poller struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewPoller creates a poller over the given fetcher.
func NewPoller(f Fetcher, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{fetcher: f, logger: logger}
}

// PollOrderStatus checks the order's status until it is terminal, the
// timeout elapses, or ctx is cancelled. Checks are serialized: the next
// check is scheduled only after the current one resolves, so requests never
// overlap. On timeout it returns a PollTimeoutError; the caller may re-poll.
func (p *Poller) PollOrderStatus(ctx context.Context, orderHash string, opts PollOptions) (*types.OrderRecord, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	deadline := time.Now().Add(timeout)

	// Last observed status is scoped to this call, so concurrent polls for
	// different orders never share it.
	var last types.Status

	for {
		record, err := p.fetcher.GetOrderStatus(ctx, orderHash)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("polling of order %s cancelled: %w", orderHash, ctx.Err())
			}
			if opts.OnError != nil {
				opts.OnError(err)
			}
			p.logger.Debug("status fetch failed", zap.String("orderHash", orderHash), zap.Error(err))
		} else {
			if record.Status != last {
				last = record.Status
				if opts.OnStatusChange != nil {
					opts.OnStatusChange(record.Status, record)
				}
			}
			if record.Status.IsTerminal() {
				if opts.OnComplete != nil {
					opts.OnComplete(record)
				}
				return record, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, &types.PollTimeoutError{OrderHash: orderHash, LastStatus: last}
		}

		if err := p.waitNext(ctx, orderHash, interval, opts); err != nil {
			return nil, err
		}
	}
}

// waitNext sleeps until the next check is due. A trusted terminal stream
// event for this order cuts the sleep short so the confirming fetch happens
// immediately.
func (p *Poller) waitNext(ctx context.Context, orderHash string, interval time.Duration, opts PollOptions) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("polling of order %s cancelled: %w", orderHash, ctx.Err())
		case <-timer.C:
			return nil
		case ev, ok := <-opts.Events:
			if !ok {
				opts.Events = nil
				continue
			}
			if opts.TrustStreamTerminal && ev.Order.OrderHash == orderHash && ev.Order.Status.IsTerminal() {
				p.logger.Debug("terminal stream event, confirming via fetch",
					zap.String("orderHash", orderHash),
					zap.String("status", string(ev.Order.Status)))
				return nil
			}
		}
	}
}

// Package cancel implements order cancellation. The server decides whether a
// cancellation is single-chain or cross-chain and what messaging fee it
// carries; this engine's job is getting the caller onto the right chain and
// dispatching the server-computed transaction faithfully.
package cancel

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/aori-io/aori-go/pkg/executor"
	"github.com/aori-io/aori-go/pkg/numeric"
	"github.com/aori-io/aori-go/pkg/registry"
	"github.com/aori-io/aori-go/pkg/types"
)

// Chain switches in wallet contexts are asynchronous and not awaitable, so
// convergence is detected by polling the executor's reported chain id.
const (
	DefaultSwitchAttempts = 20
	DefaultSwitchDelay    = 500 * time.Millisecond
)

// TxFetcher fetches cancellation templates. *client.Client satisfies it.
type TxFetcher interface {
	GetCancelTx(ctx context.Context, orderHash string) (*types.CancelTx, error)
}

// Engine cancels orders.
type Engine struct {
	fetcher        TxFetcher
	registry       *registry.Registry
	logger         *zap.Logger
	switchAttempts uint
	switchDelay    time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithSwitchPolicy overrides the chain-switch polling bounds.
func WithSwitchPolicy(attempts uint, delay time.Duration) Option {
	return func(e *Engine) {
		e.switchAttempts = attempts
		e.switchDelay = delay
	}
}

// New creates a cancellation engine.
func New(fetcher TxFetcher, reg *registry.Registry, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		fetcher:        fetcher,
		registry:       reg,
		logger:         logger,
		switchAttempts: DefaultSwitchAttempts,
		switchDelay:    DefaultSwitchDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CancelOrder fetches the cancellation template for orderHash, moves the
// executor onto the required chain if necessary, and dispatches the
// transaction. The template is fetched fresh on every attempt because the
// required fee can change between attempts. The response always carries the
// original failure text; it is never collapsed into a generic message.
func (e *Engine) CancelOrder(ctx context.Context, orderHash string, exec executor.TransactionExecutor) (*types.CancelOrderResponse, error) {
	fail := func(err error) (*types.CancelOrderResponse, error) {
		return &types.CancelOrderResponse{Success: false, Error: err.Error()}, err
	}

	cancelTx, err := e.fetcher.GetCancelTx(ctx, orderHash)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch cancel data for order %s: %w", orderHash, err))
	}

	chain, err := e.registry.ChainByKey(cancelTx.Chain)
	if err != nil {
		return fail(&types.UnsupportedChainError{ChainKey: cancelTx.Chain})
	}

	if err := e.ensureChain(ctx, exec, chain.ChainID); err != nil {
		return fail(err)
	}

	// Fee values may arrive as hex, scientific notation, or plain decimal;
	// all are widened exactly, never through a float.
	feeValue := cancelTx.Value
	if feeValue == "" {
		feeValue = "0"
	}
	fee, err := numeric.ParseBig(feeValue)
	if err != nil {
		return fail(fmt.Errorf("invalid cancellation fee %q: %w", cancelTx.Value, err))
	}
	isCrossChain := fee.Sign() != 0

	txHash, err := exec.SendTransaction(ctx, &executor.TxRequest{
		To:    common.HexToAddress(cancelTx.To),
		Value: fee,
		Data:  common.FromHex(cancelTx.Data),
	})
	if err != nil {
		return fail(fmt.Errorf("cancellation transaction for order %s failed: %w", orderHash, err))
	}

	receipt, err := exec.WaitForReceipt(ctx, txHash)
	if err != nil {
		return fail(fmt.Errorf("cancellation %s not confirmed: %w", txHash, err))
	}
	if receipt.Status == 0 {
		return fail(fmt.Errorf("cancellation transaction %s reverted", txHash))
	}

	e.logger.Debug("order cancelled",
		zap.String("orderHash", orderHash),
		zap.String("txHash", txHash),
		zap.Bool("crossChain", isCrossChain))

	resp := &types.CancelOrderResponse{
		Success:      true,
		TxHash:       txHash,
		IsCrossChain: isCrossChain,
	}
	if isCrossChain {
		resp.Fee = fee.String()
	}
	return resp, nil
}

// ensureChain moves the executor onto required, polling its reported chain
// id until it converges or the attempt budget runs out.
func (e *Engine) ensureChain(ctx context.Context, exec executor.TransactionExecutor, required uint64) error {
	current, err := exec.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read executor chain id: %w", err)
	}
	if current == required {
		return nil
	}

	switcher, ok := exec.(executor.ChainSwitcher)
	if !ok {
		return fmt.Errorf("executor is on chain %d but chain %d is required, and it cannot switch chains", current, required)
	}
	if err := switcher.SwitchChain(ctx, required); err != nil {
		return fmt.Errorf("chain switch to %d failed: %w", required, err)
	}

	lastSeen := current
	err = retry.Do(
		func() error {
			cur, err := exec.ChainID(ctx)
			if err != nil {
				return err
			}
			lastSeen = cur
			if cur != required {
				return fmt.Errorf("still on chain %d", cur)
			}
			return nil
		},
		retry.Attempts(e.switchAttempts),
		retry.Delay(e.switchDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return &types.ChainSwitchTimeoutError{CurrentChainID: lastSeen, RequiredChainID: required}
	}
	return nil
}

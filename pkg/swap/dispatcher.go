// Package swap routes a priced quote down the correct execution path: a
// native-asset deposit transaction, or an EIP-712 signed order submitted to
// the API.
package swap

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/aori-io/aori-go/pkg/client"
	"github.com/aori-io/aori-go/pkg/executor"
	"github.com/aori-io/aori-go/pkg/numeric"
	"github.com/aori-io/aori-go/pkg/registry"
	"github.com/aori-io/aori-go/pkg/signer"
	"github.com/aori-io/aori-go/pkg/types"
)

// State is a stage in the swap lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateQuoted    State = "quoted"
	StateNative    State = "native-path"
	StateERC20     State = "erc20-path"
	StateSubmitted State = "submitted"
	StateExecuted  State = "executed"
	StateTracking  State = "tracking"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateError     State = "error"
)

// Result reports how far a swap progressed and what it produced. When a step
// fails, State records the stage reached and Err retains the cause, so
// callers can tell "deposit confirmed but tracking pending" apart from
// "nothing moved".
type Result struct {
	State     State
	OrderHash string
	// TxHash is set on the native path: the deposit transaction. Order
	// matching is still tracked by OrderHash, never by this hash.
	TxHash   string
	Response *types.SwapResponse
	Err      error
}

// Options configures one swap execution.
type Options struct {
	// Signer is required on the ERC20 path.
	Signer signer.TypedDataSigner
	// Executor is required on the native path.
	Executor executor.TransactionExecutor
	// GasLimit overrides gas estimation for the native deposit.
	GasLimit uint64
}

// Dispatcher executes swaps against one API deployment.
type Dispatcher struct {
	client   *client.Client
	registry *registry.Registry
	logger   *zap.Logger
}

// New creates a dispatcher.
func New(c *client.Client, reg *registry.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{client: c, registry: reg, logger: logger}
}

// IsNativeSwap reports whether the quote takes the native deposit path.
func IsNativeSwap(quote *types.QuoteResponse) bool {
	return types.IsNativeToken(quote.InputToken)
}

// ExecuteSwap routes the quote down its path and returns once the order is
// submitted (ERC20) or the deposit is confirmed (native). Submission is
// never retried automatically: a second submission against one order hash is
// the caller's explicit decision.
func (d *Dispatcher) ExecuteSwap(ctx context.Context, quote *types.QuoteResponse, opts Options) (*Result, error) {
	if quote == nil {
		return &Result{State: StateIdle, Err: fmt.Errorf("nil quote")}, fmt.Errorf("nil quote")
	}

	if IsNativeSwap(quote) {
		return d.executeNative(ctx, quote, opts)
	}
	return d.executeERC20(ctx, quote, opts)
}

// executeNative deposits the native asset into the input chain's contract.
// No signature is involved; the transaction itself is the commitment.
func (d *Dispatcher) executeNative(ctx context.Context, quote *types.QuoteResponse, opts Options) (*Result, error) {
	result := &Result{State: StateNative, OrderHash: quote.OrderHash}
	fail := func(err error) (*Result, error) {
		result.State = StateError
		result.Err = err
		return result, err
	}

	if opts.Executor == nil {
		return fail(fmt.Errorf("native swap requires a transaction executor"))
	}

	chain, err := d.registry.ChainByKey(quote.InputChain)
	if err != nil {
		return fail(err)
	}
	value, err := numeric.ParseBig(quote.InputAmount)
	if err != nil {
		return fail(fmt.Errorf("invalid input amount: %w", err))
	}
	data, err := PackDeposit(quote.OrderHash)
	if err != nil {
		return fail(err)
	}

	txHash, err := opts.Executor.SendTransaction(ctx, &executor.TxRequest{
		To:       common.HexToAddress(chain.Address),
		Value:    value,
		Data:     data,
		GasLimit: opts.GasLimit,
	})
	if err != nil {
		return fail(fmt.Errorf("deposit transaction failed: %w", err))
	}
	result.TxHash = txHash

	receipt, err := opts.Executor.WaitForReceipt(ctx, txHash)
	if err != nil {
		return fail(fmt.Errorf("deposit %s not confirmed: %w", txHash, err))
	}
	if receipt.Status == 0 {
		return fail(fmt.Errorf("deposit transaction %s reverted", txHash))
	}

	d.logger.Debug("native deposit confirmed",
		zap.String("orderHash", quote.OrderHash),
		zap.String("txHash", txHash))

	result.State = StateExecuted
	return result, nil
}

// executeERC20 ensures the settlement contract can pull the input token,
// then signs the order and submits it to the API.
func (d *Dispatcher) executeERC20(ctx context.Context, quote *types.QuoteResponse, opts Options) (*Result, error) {
	result := &Result{State: StateERC20, OrderHash: quote.OrderHash}
	fail := func(err error) (*Result, error) {
		result.State = StateError
		result.Err = err
		return result, err
	}

	if opts.Signer == nil {
		return fail(fmt.Errorf("erc20 swap requires a typed-data signer"))
	}

	// When an executor is supplied, the allowance is verified (and topped up)
	// before submission. Without one, the caller manages approvals, as in a
	// wallet context.
	if opts.Executor != nil {
		caller, ok := opts.Executor.(executor.ContractCaller)
		if !ok {
			return fail(fmt.Errorf("executor cannot perform read-only calls, required for the allowance check"))
		}
		chain, err := d.registry.ChainByKey(quote.InputChain)
		if err != nil {
			return fail(err)
		}
		amount, err := numeric.ParseBig(quote.InputAmount)
		if err != nil {
			return fail(fmt.Errorf("invalid input amount: %w", err))
		}
		if _, err := EnsureApproval(ctx, opts.Executor, caller,
			common.HexToAddress(quote.InputToken),
			common.HexToAddress(quote.Offerer),
			common.HexToAddress(chain.Address),
			amount); err != nil {
			return fail(err)
		}
	}

	signed, err := signer.SignReadableOrder(ctx, quote, opts.Signer, d.registry)
	if err != nil {
		return fail(err)
	}

	resp, err := d.client.SubmitSwap(ctx, &types.SwapRequest{
		OrderHash: signed.OrderHash,
		Signature: signed.Signature,
	})
	if err != nil {
		return fail(fmt.Errorf("order %s signed but submission failed: %w", signed.OrderHash, err))
	}

	d.logger.Debug("order submitted",
		zap.String("orderHash", signed.OrderHash),
		zap.String("status", string(resp.Status)))

	result.State = StateSubmitted
	result.Response = resp
	return result, nil
}

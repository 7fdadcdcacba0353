// Package executor abstracts transaction dispatch so the swap and
// cancellation flows can run against any chain backend: a local key over
// RPC, a wallet bridge, or a test double.
package executor

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxRequest describes a transaction to send, estimate, or call.
type TxRequest struct {
	From     common.Address
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
}

// Receipt is the confirmed outcome of a transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
	// Status is 1 on success, 0 on revert.
	Status uint64
}

// TransactionExecutor is the capability the caller supplies for on-chain
// dispatch.
type TransactionExecutor interface {
	// ChainID reports the chain the executor is currently connected to.
	ChainID(ctx context.Context) (uint64, error)
	// SendTransaction signs and broadcasts a transaction, returning its hash.
	SendTransaction(ctx context.Context, tx *TxRequest) (string, error)
	// WaitForReceipt blocks until the transaction is mined or ctx is done.
	WaitForReceipt(ctx context.Context, txHash string) (*Receipt, error)
	// EstimateGas estimates the gas limit for a transaction.
	EstimateGas(ctx context.Context, tx *TxRequest) (uint64, error)
}

// ContractCaller is the optional read-only call capability, used for
// allowance checks.
type ContractCaller interface {
	CallContract(ctx context.Context, tx *TxRequest) ([]byte, error)
}

// ChainSwitcher is the optional capability to move the executor to another
// chain. Wallet-backed executors switch asynchronously, so callers must poll
// ChainID afterwards rather than assume the switch completed.
type ChainSwitcher interface {
	SwitchChain(ctx context.Context, chainID uint64) error
}

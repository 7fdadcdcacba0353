package cancel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aori-io/aori-go/pkg/executor"
	"github.com/aori-io/aori-go/pkg/registry"
	"github.com/aori-io/aori-go/pkg/types"
)

type fakeSource struct {
	chains []types.ChainInfo
}

func (f *fakeSource) GetChains(context.Context) ([]types.ChainInfo, error) { return f.chains, nil }
func (f *fakeSource) GetTokens(context.Context) ([]types.TokenInfo, error) { return nil, nil }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New(&fakeSource{chains: []types.ChainInfo{
		{ChainKey: "base", ChainID: 8453, EID: 30184, Address: "0x1000000000000000000000000000000000000001"},
		{ChainKey: "arbitrum", ChainID: 42161, EID: 30110, Address: "0x1000000000000000000000000000000000000002"},
	}}, zaptest.NewLogger(t))
	require.NoError(t, r.Load(context.Background(), false))
	return r
}

type fakeFetcher struct {
	tx  *types.CancelTx
	err error
}

func (f *fakeFetcher) GetCancelTx(context.Context, string) (*types.CancelTx, error) {
	return f.tx, f.err
}

// fakeExecutor reports a chain id and records dispatched transactions.
// switchTo controls what SwitchChain does: 0 means the switch never lands.
type fakeExecutor struct {
	mu            sync.Mutex
	chainID       uint64
	switchTo      uint64
	switched      bool
	sent          []*executor.TxRequest
	receiptStatus uint64
}

func (f *fakeExecutor) ChainID(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.switched && f.switchTo != 0 {
		return f.switchTo, nil
	}
	return f.chainID, nil
}

func (f *fakeExecutor) SwitchChain(_ context.Context, chainID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switched = true
	return nil
}

func (f *fakeExecutor) SendTransaction(_ context.Context, tx *executor.TxRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return "0xcanceltx", nil
}

func (f *fakeExecutor) WaitForReceipt(_ context.Context, txHash string) (*executor.Receipt, error) {
	return &executor.Receipt{TxHash: txHash, Status: f.receiptStatus, BlockNumber: 1}, nil
}

func (f *fakeExecutor) EstimateGas(context.Context, *executor.TxRequest) (uint64, error) {
	return 21000, nil
}

func cancelTemplate(value string) *types.CancelTx {
	return &types.CancelTx{
		OrderHash: "0xorder",
		Chain:     "base",
		To:        "0x1000000000000000000000000000000000000001",
		Value:     value,
		Data:      "0xdeadbeef",
	}
}

func TestCancelSingleChain(t *testing.T) {
	exec := &fakeExecutor{chainID: 8453, receiptStatus: 1}
	e := New(&fakeFetcher{tx: cancelTemplate("0")}, testRegistry(t), zaptest.NewLogger(t))

	resp, err := e.CancelOrder(context.Background(), "0xorder", exec)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "0xcanceltx", resp.TxHash)
	require.False(t, resp.IsCrossChain)
	require.Empty(t, resp.Fee)

	require.Len(t, exec.sent, 1)
	require.Equal(t, "0", exec.sent[0].Value.String())
}

func TestCancelCrossChainCarriesFee(t *testing.T) {
	exec := &fakeExecutor{chainID: 8453, receiptStatus: 1}
	e := New(&fakeFetcher{tx: cancelTemplate("1500000000000000")}, testRegistry(t), zaptest.NewLogger(t))

	resp, err := e.CancelOrder(context.Background(), "0xorder", exec)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.True(t, resp.IsCrossChain)
	require.Equal(t, "1500000000000000", resp.Fee)
	require.Equal(t, "1500000000000000", exec.sent[0].Value.String())
}

func TestCancelHexFee(t *testing.T) {
	// Fees arrive in whatever representation the server picked; the
	// dispatched value is always the exact integer.
	exec := &fakeExecutor{chainID: 8453, receiptStatus: 1}
	e := New(&fakeFetcher{tx: cancelTemplate("0x5543df729c000")}, testRegistry(t), zaptest.NewLogger(t))

	resp, err := e.CancelOrder(context.Background(), "0xorder", exec)
	require.NoError(t, err)
	require.True(t, resp.IsCrossChain)
	require.Equal(t, "1500000000000000", resp.Fee)
}

func TestCancelSwitchesChainWhenRequired(t *testing.T) {
	exec := &fakeExecutor{chainID: 42161, switchTo: 8453, receiptStatus: 1}
	e := New(&fakeFetcher{tx: cancelTemplate("0")}, testRegistry(t), zaptest.NewLogger(t),
		WithSwitchPolicy(3, time.Millisecond))

	resp, err := e.CancelOrder(context.Background(), "0xorder", exec)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.True(t, exec.switched)
}

func TestCancelChainSwitchTimeout(t *testing.T) {
	// SwitchChain is acknowledged but the reported chain id never moves.
	exec := &fakeExecutor{chainID: 42161, switchTo: 0, receiptStatus: 1}
	e := New(&fakeFetcher{tx: cancelTemplate("0")}, testRegistry(t), zaptest.NewLogger(t),
		WithSwitchPolicy(3, time.Millisecond))

	resp, err := e.CancelOrder(context.Background(), "0xorder", exec)
	require.Error(t, err)
	require.False(t, resp.Success)

	var switchErr *types.ChainSwitchTimeoutError
	require.True(t, errors.As(err, &switchErr))
	require.Equal(t, uint64(42161), switchErr.CurrentChainID)
	require.Equal(t, uint64(8453), switchErr.RequiredChainID)
	require.Empty(t, exec.sent)
}

func TestCancelExecutorCannotSwitch(t *testing.T) {
	// Embedding hides the fake's SwitchChain, leaving a value that only
	// satisfies TransactionExecutor.
	var plain executor.TransactionExecutor = struct {
		executor.TransactionExecutor
	}{&fakeExecutor{chainID: 42161}}

	e := New(&fakeFetcher{tx: cancelTemplate("0")}, testRegistry(t), zaptest.NewLogger(t))
	resp, err := e.CancelOrder(context.Background(), "0xorder", plain)
	require.Error(t, err)
	require.False(t, resp.Success)
	require.Contains(t, err.Error(), "cannot switch chains")
}

func TestCancelFetchFailureTextPreserved(t *testing.T) {
	exec := &fakeExecutor{chainID: 8453, receiptStatus: 1}
	e := New(&fakeFetcher{err: errors.New("order not found")}, testRegistry(t), zaptest.NewLogger(t))

	resp, err := e.CancelOrder(context.Background(), "0xmissing", exec)
	require.Error(t, err)
	require.False(t, resp.Success)
	// The underlying failure text survives into both the error chain and the
	// response.
	require.Contains(t, err.Error(), "failed to fetch cancel data for order 0xmissing")
	require.Contains(t, resp.Error, "order not found")
}

func TestCancelUnsupportedChain(t *testing.T) {
	tx := cancelTemplate("0")
	tx.Chain = "solana"
	e := New(&fakeFetcher{tx: tx}, testRegistry(t), zaptest.NewLogger(t))

	resp, err := e.CancelOrder(context.Background(), "0xorder", &fakeExecutor{chainID: 8453})
	require.Error(t, err)
	require.False(t, resp.Success)

	var unsupported *types.UnsupportedChainError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "solana", unsupported.ChainKey)
}

func TestCancelRevertedTransaction(t *testing.T) {
	exec := &fakeExecutor{chainID: 8453, receiptStatus: 0}
	e := New(&fakeFetcher{tx: cancelTemplate("0")}, testRegistry(t), zaptest.NewLogger(t))

	resp, err := e.CancelOrder(context.Background(), "0xorder", exec)
	require.Error(t, err)
	require.False(t, resp.Success)
	require.Contains(t, err.Error(), "reverted")
}

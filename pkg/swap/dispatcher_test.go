package swap

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aori-io/aori-go/pkg/client"
	"github.com/aori-io/aori-go/pkg/executor"
	"github.com/aori-io/aori-go/pkg/registry"
	"github.com/aori-io/aori-go/pkg/signer"
	"github.com/aori-io/aori-go/pkg/types"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type fakeSource struct {
	chains []types.ChainInfo
}

func (f *fakeSource) GetChains(context.Context) ([]types.ChainInfo, error) { return f.chains, nil }
func (f *fakeSource) GetTokens(context.Context) ([]types.TokenInfo, error) { return nil, nil }

// fakeExecutor records sent transactions and counts read-only calls.
type fakeExecutor struct {
	mu            sync.Mutex
	chainID       uint64
	sent          []*executor.TxRequest
	callCount     int
	receiptStatus uint64
	allowance     *big.Int
}

func (f *fakeExecutor) ChainID(context.Context) (uint64, error) { return f.chainID, nil }

func (f *fakeExecutor) SendTransaction(_ context.Context, tx *executor.TxRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return "0xtxhash", nil
}

func (f *fakeExecutor) WaitForReceipt(_ context.Context, txHash string) (*executor.Receipt, error) {
	return &executor.Receipt{TxHash: txHash, Status: f.receiptStatus, BlockNumber: 1}, nil
}

func (f *fakeExecutor) EstimateGas(context.Context, *executor.TxRequest) (uint64, error) {
	return 21000, nil
}

func (f *fakeExecutor) CallContract(context.Context, *executor.TxRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	allowance := f.allowance
	if allowance == nil {
		allowance = big.NewInt(0)
	}
	return common.LeftPadBytes(allowance.Bytes(), 32), nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New(&fakeSource{chains: []types.ChainInfo{
		{ChainKey: "base", ChainID: 8453, EID: 30184, Address: "0x1000000000000000000000000000000000000001"},
		{ChainKey: "arbitrum", ChainID: 42161, EID: 30110, Address: "0x1000000000000000000000000000000000000002"},
	}}, zaptest.NewLogger(t))
	require.NoError(t, r.Load(context.Background(), false))
	return r
}

func nativeQuote() *types.QuoteResponse {
	return &types.QuoteResponse{
		OrderHash:    "0x9f2c1d0a3b4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8",
		Offerer:      "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		Recipient:    "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		InputToken:   types.NativeTokenAddress,
		OutputToken:  "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		InputAmount:  "250000000000000000",
		OutputAmount: "700000000",
		InputChain:   "base",
		OutputChain:  "arbitrum",
		StartTime:    1700000000,
		EndTime:      1700000600,
	}
}

func erc20Quote() *types.QuoteResponse {
	q := nativeQuote()
	q.InputToken = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	q.InputAmount = "1000000"
	return q
}

func TestNativePathExecutesDeposit(t *testing.T) {
	exec := &fakeExecutor{chainID: 8453, receiptStatus: 1}
	d := New(client.New("http://unused.invalid"), testRegistry(t), zaptest.NewLogger(t))

	quote := nativeQuote()
	result, err := d.ExecuteSwap(context.Background(), quote, Options{Executor: exec, GasLimit: 300000})
	require.NoError(t, err)
	require.Equal(t, StateExecuted, result.State)
	require.Equal(t, "0xtxhash", result.TxHash)
	// Tracking key is the quote's order hash, not the deposit tx hash.
	require.Equal(t, quote.OrderHash, result.OrderHash)

	require.Len(t, exec.sent, 1)
	sent := exec.sent[0]
	require.Equal(t, common.HexToAddress("0x1000000000000000000000000000000000000001"), sent.To)
	require.Equal(t, "250000000000000000", sent.Value.String())
	require.Equal(t, uint64(300000), sent.GasLimit)
	require.NotEmpty(t, sent.Data)

	// The native path never touches allowances.
	require.Zero(t, exec.callCount)
}

func TestNativePathRevertIsError(t *testing.T) {
	exec := &fakeExecutor{chainID: 8453, receiptStatus: 0}
	d := New(client.New("http://unused.invalid"), testRegistry(t), zaptest.NewLogger(t))

	result, err := d.ExecuteSwap(context.Background(), nativeQuote(), Options{Executor: exec})
	require.Error(t, err)
	require.Equal(t, StateError, result.State)
	require.ErrorContains(t, err, "reverted")
	require.Equal(t, err, result.Err)
}

func TestERC20PathSignsAndSubmits(t *testing.T) {
	var submitted types.SwapRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/swap", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
		json.NewEncoder(w).Encode(types.SwapResponse{OrderRecord: types.OrderRecord{
			OrderHash: submitted.OrderHash,
			Status:    types.StatusPending,
		}})
	}))
	defer srv.Close()

	s, err := signer.NewPrivateKeySigner(testKey)
	require.NoError(t, err)
	d := New(client.New(srv.URL), testRegistry(t), zaptest.NewLogger(t))

	quote := erc20Quote()
	result, err := d.ExecuteSwap(context.Background(), quote, Options{Signer: s})
	require.NoError(t, err)
	require.Equal(t, StateSubmitted, result.State)
	require.Equal(t, quote.OrderHash, result.Response.OrderHash)

	// The submission echoes the quote's own order hash with a 65-byte
	// signature.
	require.Equal(t, quote.OrderHash, submitted.OrderHash)
	require.Len(t, common.FromHex(submitted.Signature), 65)
}

func TestERC20PathChecksAllowanceBeforeSubmission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.SwapResponse{OrderRecord: types.OrderRecord{
			OrderHash: "0xorder",
			Status:    types.StatusPending,
		}})
	}))
	defer srv.Close()

	s, err := signer.NewPrivateKeySigner(testKey)
	require.NoError(t, err)
	// Zero allowance forces an approval transaction before the order goes out.
	exec := &fakeExecutor{chainID: 8453, receiptStatus: 1}
	d := New(client.New(srv.URL), testRegistry(t), zaptest.NewLogger(t))

	_, err = d.ExecuteSwap(context.Background(), erc20Quote(), Options{Signer: s, Executor: exec})
	require.NoError(t, err)
	require.Equal(t, 1, exec.callCount)
	require.Len(t, exec.sent, 1)
	require.Equal(t, common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), exec.sent[0].To)
}

func TestERC20PathRequiresSigner(t *testing.T) {
	d := New(client.New("http://unused.invalid"), testRegistry(t), zaptest.NewLogger(t))
	result, err := d.ExecuteSwap(context.Background(), erc20Quote(), Options{})
	require.Error(t, err)
	require.Equal(t, StateError, result.State)
}

func TestEnsureApproval(t *testing.T) {
	token := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	spender := common.HexToAddress("0x1000000000000000000000000000000000000001")

	t.Run("sends approval when allowance falls short", func(t *testing.T) {
		exec := &fakeExecutor{chainID: 8453, receiptStatus: 1}
		txHash, err := EnsureApproval(context.Background(), exec, exec, token, owner, spender, big.NewInt(1000000))
		require.NoError(t, err)
		require.Equal(t, "0xtxhash", txHash)
		require.Equal(t, 1, exec.callCount)
		require.Len(t, exec.sent, 1)
		require.Equal(t, token, exec.sent[0].To)
	})

	t.Run("skips when allowance is sufficient", func(t *testing.T) {
		exec := &fakeExecutor{chainID: 8453, receiptStatus: 1, allowance: big.NewInt(2000000)}
		txHash, err := EnsureApproval(context.Background(), exec, exec, token, owner, spender, big.NewInt(1000000))
		require.NoError(t, err)
		require.Empty(t, txHash)
		require.Empty(t, exec.sent)
	})
}

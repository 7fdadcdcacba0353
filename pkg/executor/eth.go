package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const receiptPollInterval = 2 * time.Second

// EthExecutor implements TransactionExecutor, ContractCaller, and
// ChainSwitcher over go-ethereum RPC clients. It holds one RPC URL per chain
// id and signs locally with a private key; SwitchChain selects among the
// configured chains, dialing lazily.
type EthExecutor struct {
	rpcURLs map[uint64]string
	key     *ecdsa.PrivateKey
	from    common.Address

	mu      sync.Mutex
	clients map[uint64]*ethclient.Client
	current uint64
}

// NewEthExecutor creates an executor over the given chain-id -> RPC URL map,
// initially connected to initialChainID.
func NewEthExecutor(rpcURLs map[uint64]string, hexKey string, initialChainID uint64) (*EthExecutor, error) {
	if _, ok := rpcURLs[initialChainID]; !ok {
		return nil, fmt.Errorf("no RPC URL configured for chain %d", initialChainID)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &EthExecutor{
		rpcURLs: rpcURLs,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		clients: map[uint64]*ethclient.Client{},
		current: initialChainID,
	}, nil
}

// From returns the executor's sending address.
func (e *EthExecutor) From() common.Address {
	return e.from
}

// ChainID reports the currently selected chain.
func (e *EthExecutor) ChainID(_ context.Context) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, nil
}

// SwitchChain selects another configured chain.
func (e *EthExecutor) SwitchChain(_ context.Context, chainID uint64) error {
	if _, ok := e.rpcURLs[chainID]; !ok {
		return fmt.Errorf("no RPC URL configured for chain %d", chainID)
	}
	e.mu.Lock()
	e.current = chainID
	e.mu.Unlock()
	return nil
}

// SendTransaction signs and broadcasts tx on the current chain. When
// GasLimit is zero, the limit is estimated with a 20% buffer.
func (e *EthExecutor) SendTransaction(ctx context.Context, tx *TxRequest) (string, error) {
	chainID, client, err := e.client()
	if err != nil {
		return "", err
	}

	nonce, err := client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit := tx.GasLimit
	if gasLimit == 0 {
		estimated, err := e.EstimateGas(ctx, tx)
		if err != nil {
			return "", err
		}
		gasLimit = estimated * 120 / 100
	}

	raw := ethtypes.NewTransaction(nonce, tx.To, tx.Value, gasLimit, gasPrice, tx.Data)
	signed, err := ethtypes.SignTx(raw, ethtypes.LatestSignerForChainID(new(big.Int).SetUint64(chainID)), e.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// WaitForReceipt polls for the receipt until found or ctx expires.
func (e *EthExecutor) WaitForReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	_, client, err := e.client()
	if err != nil {
		return nil, err
	}

	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err == nil {
			return &Receipt{
				TxHash:      txHash,
				BlockNumber: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
				Status:      receipt.Status,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up waiting for receipt of %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// EstimateGas estimates the gas limit for tx on the current chain.
func (e *EthExecutor) EstimateGas(ctx context.Context, tx *TxRequest) (uint64, error) {
	_, client, err := e.client()
	if err != nil {
		return 0, err
	}
	to := tx.To
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  e.from,
		To:    &to,
		Value: tx.Value,
		Data:  tx.Data,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gas, nil
}

// CallContract performs a read-only call on the current chain.
func (e *EthExecutor) CallContract(ctx context.Context, tx *TxRequest) ([]byte, error) {
	_, client, err := e.client()
	if err != nil {
		return nil, err
	}
	to := tx.To
	result, err := client.CallContract(ctx, ethereum.CallMsg{
		From: tx.From,
		To:   &to,
		Data: tx.Data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}
	return result, nil
}

// Close releases all dialed RPC connections.
func (e *EthExecutor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.clients {
		c.Close()
	}
	e.clients = map[uint64]*ethclient.Client{}
}

// client returns the connection for the current chain, dialing on first use.
func (e *EthExecutor) client() (uint64, *ethclient.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.clients[e.current]; ok {
		return e.current, c, nil
	}
	c, err := ethclient.Dial(e.rpcURLs[e.current])
	if err != nil {
		return 0, nil, fmt.Errorf("failed to connect to RPC endpoint for chain %d: %w", e.current, err)
	}
	e.clients[e.current] = c
	return e.current, c, nil
}

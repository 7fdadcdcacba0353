package swap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/aori-io/aori-go/pkg/executor"
)

// Minimal ABIs for the calls the swap flow needs.
const (
	erc20ABI = `[
		{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
		{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
	]`
	depositABI = `[{"constant":false,"inputs":[{"name":"orderHash","type":"bytes32"}],"name":"deposit","outputs":[],"type":"function"}]`
)

// PackDeposit builds the calldata for a native-asset deposit keyed to an
// order hash.
func PackDeposit(orderHash string) ([]byte, error) {
	parsed, err := abi.JSON(strings.NewReader(depositABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse deposit ABI: %w", err)
	}
	data, err := parsed.Pack("deposit", common.HexToHash(orderHash))
	if err != nil {
		return nil, fmt.Errorf("failed to pack deposit data: %w", err)
	}
	return data, nil
}

// Allowance reads the ERC20 allowance granted by owner to spender.
func Allowance(ctx context.Context, caller executor.ContractCaller, token, owner, spender common.Address) (*big.Int, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}
	data, err := parsed.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance data: %w", err)
	}
	result, err := caller.CallContract(ctx, &executor.TxRequest{From: owner, To: token, Data: data})
	if err != nil {
		return nil, fmt.Errorf("allowance call failed: %w", err)
	}
	return new(big.Int).SetBytes(result), nil
}

// EnsureApproval checks the current allowance and, when it falls short of
// amount, sends an approval and waits for it to confirm. Returns the
// approval transaction hash, or "" when no approval was needed. Only the
// ERC20 path ever calls this; native deposits carry no allowance concept.
func EnsureApproval(ctx context.Context, exec executor.TransactionExecutor, caller executor.ContractCaller, token, owner, spender common.Address, amount *big.Int) (string, error) {
	current, err := Allowance(ctx, caller, token, owner, spender)
	if err != nil {
		return "", err
	}
	if current.Cmp(amount) >= 0 {
		return "", nil
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return "", fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}
	data, err := parsed.Pack("approve", spender, amount)
	if err != nil {
		return "", fmt.Errorf("failed to pack approve data: %w", err)
	}

	txHash, err := exec.SendTransaction(ctx, &executor.TxRequest{From: owner, To: token, Data: data})
	if err != nil {
		return "", fmt.Errorf("approval transaction failed: %w", err)
	}
	receipt, err := exec.WaitForReceipt(ctx, txHash)
	if err != nil {
		return txHash, fmt.Errorf("approval %s not confirmed: %w", txHash, err)
	}
	if receipt.Status == 0 {
		return txHash, fmt.Errorf("approval transaction %s reverted", txHash)
	}
	return txHash, nil
}

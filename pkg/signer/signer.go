// Package signer builds the protocol's canonical EIP-712 typed data from a
// quote and obtains a signature through an injected signing capability.
package signer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/aori-io/aori-go/pkg/numeric"
	"github.com/aori-io/aori-go/pkg/registry"
	"github.com/aori-io/aori-go/pkg/types"
)

// EIP-712 domain constants for the current protocol version.
const (
	DomainName    = "Aori"
	DomainVersion = "0.3.1"
	PrimaryType   = "Order"
)

// TypedDataSigner is the typed-data signing capability the caller injects:
// a local key, a remote signer, or a wallet bridge.
type TypedDataSigner interface {
	// Address returns the signing address.
	Address() common.Address
	// SignTypedData signs an EIP-712 payload, returning a 65-byte signature
	// with V in {27, 28}.
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
}

// SignedOrder pairs a signature with the quote's own order hash. The hash is
// never recomputed client-side; echoing it guarantees server and client
// agree on order identity.
type SignedOrder struct {
	OrderHash string
	Signature string
}

var domainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// Order schema without solver exclusivity.
var orderType = []apitypes.Type{
	{Name: "offerer", Type: "address"},
	{Name: "recipient", Type: "address"},
	{Name: "inputToken", Type: "address"},
	{Name: "outputToken", Type: "address"},
	{Name: "inputAmount", Type: "uint128"},
	{Name: "outputAmount", Type: "uint128"},
	{Name: "startTime", Type: "uint32"},
	{Name: "endTime", Type: "uint32"},
	{Name: "srcEid", Type: "uint32"},
	{Name: "dstEid", Type: "uint32"},
}

// Order schema with solver exclusivity fields.
var orderTypeExclusive = append(append([]apitypes.Type{}, orderType...),
	apitypes.Type{Name: "exclusiveSolver", Type: "address"},
	apitypes.Type{Name: "exclusiveSolverDuration", Type: "uint16"},
)

// BuildTypedData constructs the typed data for a quote. The domain is always
// bound to the input chain's id and verifying contract, even for cross-chain
// orders. Bit-widths follow the on-chain struct exactly: amounts uint128,
// times and endpoint ids uint32, exclusivity duration uint16.
func BuildTypedData(quote *types.QuoteResponse, inputChain, outputChain *types.ChainInfo) (apitypes.TypedData, error) {
	inputAmount, err := numeric.Normalize(quote.InputAmount)
	if err != nil {
		return apitypes.TypedData{}, fmt.Errorf("invalid input amount: %w", err)
	}
	outputAmount, err := numeric.Normalize(quote.OutputAmount)
	if err != nil {
		return apitypes.TypedData{}, fmt.Errorf("invalid output amount: %w", err)
	}

	message := apitypes.TypedDataMessage{
		"offerer":      quote.Offerer,
		"recipient":    quote.Recipient,
		"inputToken":   quote.InputToken,
		"outputToken":  quote.OutputToken,
		"inputAmount":  inputAmount,
		"outputAmount": outputAmount,
		"startTime":    strconv.FormatUint(uint64(quote.StartTime), 10),
		"endTime":      strconv.FormatUint(uint64(quote.EndTime), 10),
		"srcEid":       strconv.FormatUint(uint64(inputChain.EID), 10),
		"dstEid":       strconv.FormatUint(uint64(outputChain.EID), 10),
	}

	fields := orderType
	if quote.ExclusiveSolver != "" {
		fields = orderTypeExclusive
		message["exclusiveSolver"] = quote.ExclusiveSolver
		message["exclusiveSolverDuration"] = strconv.FormatUint(uint64(quote.ExclusiveSolverDuration), 10)
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			PrimaryType:    fields,
		},
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainId:           math.NewHexOrDecimal256(int64(inputChain.ChainID)),
			VerifyingContract: inputChain.Address,
		},
		Message: message,
	}, nil
}

// SignReadableOrder resolves the quote's chains, builds the typed data, and
// signs it. The returned order hash is the quote's own.
func SignReadableOrder(ctx context.Context, quote *types.QuoteResponse, s TypedDataSigner, reg *registry.Registry) (*SignedOrder, error) {
	inputChain, err := reg.ChainByKey(quote.InputChain)
	if err != nil {
		return nil, err
	}
	outputChain, err := reg.ChainByKey(quote.OutputChain)
	if err != nil {
		return nil, err
	}

	typedData, err := BuildTypedData(quote, inputChain, outputChain)
	if err != nil {
		return nil, err
	}

	sig, err := s.SignTypedData(ctx, typedData)
	if err != nil {
		return nil, &types.SigningError{OrderHash: quote.OrderHash, Err: err}
	}

	return &SignedOrder{
		OrderHash: quote.OrderHash,
		Signature: hexutil.Encode(sig),
	}, nil
}

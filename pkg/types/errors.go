package types

import (
	"fmt"
	"strings"
)

// NetworkError is a transport-level failure. Retryable at the caller's
// discretion.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response. Body carries the server's message
// verbatim.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d) from %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

// UnknownChainError is a registry miss during quote signing.
type UnknownChainError struct {
	ChainKey  string
	Available []string
}

func (e *UnknownChainError) Error() string {
	return fmt.Sprintf("unknown chain %q, available chains: %s", e.ChainKey, strings.Join(e.Available, ", "))
}

// UnsupportedChainError is a registry miss during cancellation.
type UnsupportedChainError struct {
	ChainKey string
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("unsupported chain %q", e.ChainKey)
}

// SigningError wraps a failure from the injected typed-data signer, most
// commonly a wallet rejection.
type SigningError struct {
	OrderHash string
	Err       error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("failed to sign order %s: %v", e.OrderHash, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// PollTimeoutError means the order did not reach a terminal status within the
// polling deadline. The caller may re-poll.
type PollTimeoutError struct {
	OrderHash  string
	LastStatus Status
}

func (e *PollTimeoutError) Error() string {
	if e.LastStatus == "" {
		return fmt.Sprintf("timed out polling status of order %s", e.OrderHash)
	}
	return fmt.Sprintf("timed out polling status of order %s (last status %q)", e.OrderHash, e.LastStatus)
}

// ChainSwitchTimeoutError means the executor never reported the chain id a
// cancellation requires. Fatal for the current attempt.
type ChainSwitchTimeoutError struct {
	CurrentChainID  uint64
	RequiredChainID uint64
}

func (e *ChainSwitchTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for chain switch: on chain %d, need chain %d", e.CurrentChainID, e.RequiredChainID)
}

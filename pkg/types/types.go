package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NativeTokenAddress is the sentinel address representing a chain's native
// asset. A quote whose input token equals this address takes the native
// deposit path instead of the signed-order path.
const NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// IsNativeToken reports whether addr is the native-asset sentinel.
func IsNativeToken(addr string) bool {
	return strings.EqualFold(addr, NativeTokenAddress)
}

// ChainInfo describes one supported chain. Instances are immutable once
// loaded into a registry snapshot.
type ChainInfo struct {
	ChainKey  string  `json:"chainKey"`
	ChainID   uint64  `json:"chainId"`
	EID       uint32  `json:"eid"`
	Address   string  `json:"address"`
	BlockTime float64 `json:"blockTime"`
}

// TokenInfo describes one supported token. Decimals may be absent in the
// upstream data, in which case lookup falls back to a symbol-based table.
type TokenInfo struct {
	Address  string `json:"address"`
	ChainKey string `json:"chainKey"`
	Symbol   string `json:"symbol"`
	Decimals *uint8 `json:"decimals,omitempty"`
}

// FlexUint64 is a uint64 that unmarshals from either a JSON number or a
// numeric string; the API is inconsistent about which form timestamps use.
type FlexUint64 uint64

func (f *FlexUint64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid unsigned integer %q: %w", s, err)
	}
	*f = FlexUint64(v)
	return nil
}

func (f FlexUint64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(f), 10)), nil
}

// QuoteRequest is a swap intent priced by POST /quote. InputAmount may be a
// string, any Go integer type, or a *big.Int; it is normalized to a plain
// decimal string (smallest token unit) before transmission.
type QuoteRequest struct {
	Offerer     string `json:"offerer"`
	Recipient   string `json:"recipient"`
	InputToken  string `json:"inputToken"`
	OutputToken string `json:"outputToken"`
	InputAmount any    `json:"inputAmount"`
	InputChain  string `json:"inputChain"`
	OutputChain string `json:"outputChain"`
}

// QuoteResponse is a priced quote. OrderHash is computed server-side and is
// opaque to the client; it is echoed verbatim on submission and cancellation.
type QuoteResponse struct {
	OrderHash               string     `json:"orderHash"`
	SigningHash             string     `json:"signingHash"`
	Offerer                 string     `json:"offerer"`
	Recipient               string     `json:"recipient"`
	InputToken              string     `json:"inputToken"`
	OutputToken             string     `json:"outputToken"`
	InputAmount             string     `json:"inputAmount"`
	OutputAmount            string     `json:"outputAmount"`
	InputChain              string     `json:"inputChain"`
	OutputChain             string     `json:"outputChain"`
	StartTime               FlexUint64 `json:"startTime"`
	EndTime                 FlexUint64 `json:"endTime"`
	EstimatedTime           FlexUint64 `json:"estimatedTime"`
	ExclusiveSolver         string     `json:"exclusiveSolver,omitempty"`
	ExclusiveSolverDuration FlexUint64 `json:"exclusiveSolverDuration,omitempty"`
}

// SwapRequest submits a signed order to POST /swap.
type SwapRequest struct {
	OrderHash string `json:"orderHash"`
	Signature string `json:"signature"`
}

// SwapResponse echoes the accepted order along with its initial status.
type SwapResponse struct {
	OrderRecord
}

// OrderRecord is the server's view of an order, returned by the status and
// query endpoints and carried inside stream events.
type OrderRecord struct {
	OrderHash    string     `json:"orderHash"`
	Offerer      string     `json:"offerer"`
	Recipient    string     `json:"recipient"`
	InputToken   string     `json:"inputToken"`
	OutputToken  string     `json:"outputToken"`
	InputAmount  string     `json:"inputAmount"`
	OutputAmount string     `json:"outputAmount"`
	InputChain   string     `json:"inputChain"`
	OutputChain  string     `json:"outputChain"`
	StartTime    FlexUint64 `json:"startTime"`
	EndTime      FlexUint64 `json:"endTime"`
	Status       Status     `json:"status"`
	SrcTxHash    string     `json:"srcTx,omitempty"`
	DstTxHash    string     `json:"dstTx,omitempty"`
	CreatedAt    FlexUint64 `json:"createdAt,omitempty"`
	UpdatedAt    FlexUint64 `json:"updatedAt,omitempty"`
}

// QueryOrdersFilter narrows GET /data/query results.
type QueryOrdersFilter struct {
	OrderHash string
	Offerer   string
	Recipient string
	Status    Status
	Page      int
	Limit     int
}

// QueryOrdersResponse is one page of orders. A server 404 maps to an empty
// page rather than an error.
type QueryOrdersResponse struct {
	Orders       []OrderRecord `json:"orders"`
	TotalRecords int           `json:"totalRecords"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
}

// CancelTx is the server-computed transaction template required to cancel an
// order. Value carries the cross-chain messaging fee in wei, "0" when the
// cancellation is single-chain. Templates are fetched fresh per attempt.
type CancelTx struct {
	OrderHash string `json:"orderHash"`
	Chain     string `json:"chain"`
	To        string `json:"to"`
	Value     string `json:"value"`
	Data      string `json:"data"`
}

// CancelOrderResponse is the outcome of a cancellation attempt.
type CancelOrderResponse struct {
	Success      bool   `json:"success"`
	TxHash       string `json:"txHash,omitempty"`
	IsCrossChain bool   `json:"isCrossChain"`
	Fee          string `json:"fee,omitempty"`
	Error        string `json:"error,omitempty"`
}

// WSEvent is one message on the order event stream.
type WSEvent struct {
	EventType string      `json:"eventType"`
	Order     OrderRecord `json:"order"`
}

// UnmarshalJSON tolerates both {"eventType":...} and the older
// {"type":...} framing of stream events.
func (e *WSEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		EventType string      `json:"eventType"`
		Type      string      `json:"type"`
		Order     OrderRecord `json:"order"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.EventType = raw.EventType
	if e.EventType == "" {
		e.EventType = raw.Type
	}
	e.Order = raw.Order
	return nil
}

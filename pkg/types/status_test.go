package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]Status{
		"completed":  StatusCompleted,
		"Completed":  StatusCompleted,
		"SrcFailed":  StatusSrcFailed,
		"src_failed": StatusSrcFailed,
		"Pending":    StatusPending,
		"cancelled":  StatusCancelled,
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeStatus(in), "input %q", in)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusSrcFailed, StatusCancelled} {
		require.True(t, s.IsTerminal(), "%s", s)
	}
	for _, s := range []Status{StatusPending, StatusReceived, Status("matching")} {
		require.False(t, s.IsTerminal(), "%s", s)
	}
}

func TestStatusUnmarshalForms(t *testing.T) {
	var record OrderRecord
	require.NoError(t, json.Unmarshal([]byte(`{"orderHash":"0xabc","status":"completed"}`), &record))
	require.Equal(t, StatusCompleted, record.Status)

	require.NoError(t, json.Unmarshal([]byte(`{"orderHash":"0xabc","status":{"type":"SrcFailed"}}`), &record))
	require.Equal(t, StatusSrcFailed, record.Status)
}

func TestWSEventUnmarshalFraming(t *testing.T) {
	var ev WSEvent
	require.NoError(t, json.Unmarshal([]byte(`{"eventType":"update","order":{"orderHash":"0x1","status":"pending"}}`), &ev))
	require.Equal(t, "update", ev.EventType)
	require.Equal(t, StatusPending, ev.Order.Status)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"update","order":{"orderHash":"0x1","status":"Completed"}}`), &ev))
	require.Equal(t, "update", ev.EventType)
	require.Equal(t, StatusCompleted, ev.Order.Status)
}

func TestIsNativeToken(t *testing.T) {
	require.True(t, IsNativeToken(NativeTokenAddress))
	require.True(t, IsNativeToken("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"))
	require.False(t, IsNativeToken("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"))
}

func TestFlexUint64(t *testing.T) {
	var v struct {
		A FlexUint64 `json:"a"`
		B FlexUint64 `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1700000000,"b":"1700000600"}`), &v))
	require.Equal(t, FlexUint64(1700000000), v.A)
	require.Equal(t, FlexUint64(1700000600), v.B)
}

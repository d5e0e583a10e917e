package rpc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPayloadIdIsNonColliding(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := PayloadId()
		require.False(t, seen[id], "collision at iteration %d", i)
		seen[id] = true
	}
}

func TestNewRequestRoundTrip(t *testing.T) {
	req, err := NewRequest("eth_sendTransaction", []map[string]string{{"to": "0x1"}})
	require.NoError(t, err)
	require.Equal(t, "2.0", req.Jsonrpc)
	require.Equal(t, "eth_sendTransaction", req.Method)
	require.NotZero(t, req.Id)

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	isRequest, isResponse := Classify(raw)
	require.True(t, isRequest)
	require.False(t, isResponse)
}

func TestClassifyDetectsResponse(t *testing.T) {
	resp, err := NewResult(42, "0xdeadbeef")
	require.NoError(t, err)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	isRequest, isResponse := Classify(raw)
	require.False(t, isRequest)
	require.True(t, isResponse)
}

func TestDecodeResultRejectsErrorResponse(t *testing.T) {
	resp := Response{Id: 1, Jsonrpc: "2.0", Error: &ResponseError{Code: -32000, Message: "nope"}}
	var out string
	err := DecodeResult(resp, &out)
	require.ErrorIs(t, err, ErrRpcError)
}

func TestCorrelatorResolvesRegisteredWaiter(t *testing.T) {
	c := NewCorrelator(time.Second)
	c.Register(7)

	go func() {
		resp, err := NewResult(7, "0xabc")
		require.NoError(t, err)
		require.True(t, c.Resolve(resp))
	}()

	resp, err := c.Wait(context.Background(), 7)
	require.NoError(t, err)

	var out string
	require.NoError(t, DecodeResult(resp, &out))
	require.Equal(t, "0xabc", out)
}

func TestCorrelatorResolveIsNoOpForUnknownId(t *testing.T) {
	c := NewCorrelator(time.Second)
	resp, err := NewResult(99, "ignored")
	require.NoError(t, err)
	require.False(t, c.Resolve(resp))
}

func TestCorrelatorWaitTimesOut(t *testing.T) {
	c := NewCorrelator(20 * time.Millisecond)
	c.Register(1)

	_, err := c.Wait(context.Background(), 1)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestCorrelatorWaitRespectsContextCancellation(t *testing.T) {
	c := NewCorrelator(time.Minute)
	c.Register(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Wait(ctx, 1)
	require.ErrorIs(t, err, ErrTimeout)
}

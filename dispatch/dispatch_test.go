package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitFansOutToAllMatchingListeners(t *testing.T) {
	d := New()
	var calls []string
	d.On("connect", func(json.RawMessage) { calls = append(calls, "first") })
	d.On("connect", func(json.RawMessage) { calls = append(calls, "second") })
	d.On("disconnect", func(json.RawMessage) { calls = append(calls, "wrong-event") })

	d.Emit("connect", nil)
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestEmitFallsBackToCallRequest(t *testing.T) {
	d := New()
	var got string
	d.On(CallRequestEvent, func(payload json.RawMessage) { got = string(payload) })

	d.Emit("eth_sendTransaction", json.RawMessage(`{"x":1}`))
	require.JSONEq(t, `{"x":1}`, got)
}

func TestEmitDoesNotFallBackWhenSpecificListenerExists(t *testing.T) {
	d := New()
	fallbackFired := false
	specificFired := false
	d.On(CallRequestEvent, func(json.RawMessage) { fallbackFired = true })
	d.On("wc_sessionRequest", func(json.RawMessage) { specificFired = true })

	d.Emit("wc_sessionRequest", nil)
	require.True(t, specificFired)
	require.False(t, fallbackFired)
}

func TestOffRemovesOnlyTheTargetedListener(t *testing.T) {
	d := New()
	var calls []string
	h1 := d.On("connect", func(json.RawMessage) { calls = append(calls, "one") })
	d.On("connect", func(json.RawMessage) { calls = append(calls, "two") })

	d.Off(h1)
	d.Emit("connect", nil)
	require.Equal(t, []string{"two"}, calls)
}

func TestDuplicateRegistrationsFireMultipleTimes(t *testing.T) {
	d := New()
	count := 0
	cb := func(json.RawMessage) { count++ }
	d.On("response:1", cb)
	d.On("response:1", cb)

	d.Emit("response:1", nil)
	require.Equal(t, 2, count)
}

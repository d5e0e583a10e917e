package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaywire/relaylink/envelope"
	"github.com/relaywire/relaylink/store"
	"github.com/relaywire/relaylink/transport"
)

// relayedMock forwards every published frame directly to a peer mock,
// modeling a relay bridge without a real network hop.
type relayedMock struct {
	*transport.Mock
	peer *transport.Mock
}

func (r *relayedMock) Send(f transport.Frame) error {
	if err := r.Mock.Send(f); err != nil {
		return err
	}
	if f.Type == transport.FramePublish {
		r.peer.Deliver(f)
	}
	return nil
}

func newLinkedPair() (*relayedMock, *relayedMock) {
	a := transport.NewMock()
	b := transport.NewMock()
	return &relayedMock{Mock: a, peer: b}, &relayedMock{Mock: b, peer: a}
}

func newTestSession(t transport.Transport, st store.Store) *Session {
	return New(Deps{
		Crypto:      envelope.NewChaChaCrypto(),
		Transport:   t,
		Store:       st,
		ClientMeta:  func() Meta { return Meta{Name: "test-peer"} },
		CallTimeout: 2 * time.Second,
	})
}

func TestFullHandshakeApproveCallKill(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tA, tB := newLinkedPair()
	storeA := store.NewMemory()
	storeB := store.NewMemory()

	dapp := newTestSession(tA, storeA)
	wallet := newTestSession(tB, storeB)

	dapp.Listen(ctx)
	wallet.Listen(ctx)

	require.NoError(t, dapp.CreateSession(ctx, "https://b.example"))
	require.Equal(t, StatePending, dapp.State())

	topic := dapp.Snapshot().HandshakeTopic
	key := dapp.keys.Key()
	require.NoError(t, wallet.Join(ctx, "https://b.example", topic, key))

	// Re-deliver the dApp's already-sent wc_sessionRequest frame, which
	// the wallet's mock dropped before Join set its handshake-topic
	// filter, now that the wallet side is listening on that topic.
	for _, f := range tA.Sent {
		if f.Type == transport.FramePublish {
			tB.Deliver(f)
		}
	}

	require.Eventually(t, func() bool {
		return wallet.Snapshot().PeerId != ""
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, wallet.ApproveSession(ctx, 1, []string{"0xabc"}))

	require.Eventually(t, func() bool {
		return dapp.State() == StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	snap := dapp.Snapshot()
	require.Equal(t, 1, snap.ChainId)
	require.Equal(t, []string{"0xabc"}, snap.Accounts)
	require.True(t, wallet.State() == StateConnected)

	// Key rotation should have completed and converged on both sides.
	require.Eventually(t, func() bool {
		return string(dapp.keys.Key()) == string(wallet.keys.Key()) && len(dapp.keys.Key()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	// Generic call round-trip: dApp sends eth_sendTransaction, wallet
	// replies with a result.
	wallet.On("eth_sendTransaction", func(payload json.RawMessage) {
		var call CallRequest
		require.NoError(t, json.Unmarshal(payload, &call))
		go func() {
			_ = wallet.Reply(call.Id, "0xdeadbeef")
		}()
	})

	var result string
	err := dapp.Call(ctx, "eth_sendTransaction", map[string]string{"to": "0x1", "value": "0x0"}, &result)
	require.NoError(t, err)
	require.Equal(t, "0xdeadbeef", result)

	require.NoError(t, dapp.KillSession(ctx, nil))
	require.Eventually(t, func() bool {
		return wallet.State() != StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	gotA, err := storeA.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, gotA)
}

func TestApproveSessionRejectsWhenAlreadyConnected(t *testing.T) {
	ctx := context.Background()
	_, tB := newLinkedPair()
	wallet := newTestSession(tB, nil)
	wallet.snapshot.Connected = true

	err := wallet.ApproveSession(ctx, 1, nil)
	require.ErrorIs(t, err, ErrPreconditionViolation)
}

func TestUpdateSessionRejectsWhenNotConnected(t *testing.T) {
	ctx := context.Background()
	_, tB := newLinkedPair()
	wallet := newTestSession(tB, nil)

	err := wallet.UpdateSession(ctx, 1, nil)
	require.ErrorIs(t, err, ErrPreconditionViolation)
}

func TestCallRejectsWhenNotConnected(t *testing.T) {
	ctx := context.Background()
	tA, _ := newLinkedPair()
	dapp := newTestSession(tA, nil)

	var out string
	err := dapp.Call(ctx, "eth_sign", nil, &out)
	require.ErrorIs(t, err, ErrPreconditionViolation)
}

func TestClientMetaIsResolvedOnceAtConstruction(t *testing.T) {
	tA, _ := newLinkedPair()
	calls := 0
	s := New(Deps{
		Crypto:    envelope.NewChaChaCrypto(),
		Transport: tA,
		ClientMeta: func() Meta {
			calls++
			return Meta{Name: "once"}
		},
	})
	require.Equal(t, 1, calls)
	require.True(t, s.Snapshot().ClientMeta.resolved())
}

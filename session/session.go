// Copyright (C) 2025 relaywire
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaywire/relaylink/dispatch"
	"github.com/relaywire/relaylink/envelope"
	"github.com/relaywire/relaylink/internal/metrics"
	"github.com/relaywire/relaylink/keyswap"
	"github.com/relaywire/relaylink/rpc"
	"github.com/relaywire/relaylink/store"
	"github.com/relaywire/relaylink/transport"
)

// Event names emitted via the dispatcher, forming the synthetic-event
// half of the observable surface alongside raw RPC method names.
const (
	EventConnect       = "connect"
	EventDisconnect    = "disconnect"
	EventSessionUpdate = "session_update"
)

// Internal JSON-RPC method names carried over the relay.
const (
	methodSessionRequest = "wc_sessionRequest"
	methodSessionUpdate  = "wc_sessionUpdate"
	methodExchangeKey    = "wc_exchangeKey"
)

// Session is the client-side state machine for one relay-mediated
// connection. A single Session plays either the dApp role (via
// CreateSession) or the wallet role (via its first inbound
// wc_sessionRequest) — both roles share the same transitions, matching
// the protocol's symmetric wire format.
type Session struct {
	crypto      envelope.Crypto
	transport   transport.Transport
	dispatcher  *dispatch.Dispatcher
	correlator  *rpc.Correlator
	keys        *keyswap.Manager
	store       store.Store
	clientMeta  func() Meta

	mu               sync.Mutex
	snapshot         Snapshot
	terminated       bool
	handshakeStarted time.Time
}

// Deps bundles the collaborators a Session needs. ClientMeta is called
// once, in New, to resolve the local client metadata immediately —
// never lazily from a getter, so it is immutable for the session's
// lifetime.
type Deps struct {
	Crypto      envelope.Crypto
	Transport   transport.Transport
	Store       store.Store // optional; nil is tolerated
	ClientMeta  func() Meta
	CallTimeout time.Duration
}

// New constructs a fresh Session with no bridge, key, or peer yet
// established (StateFresh). The caller drives it into StatePending via
// CreateSession (dApp role) or Join (wallet role); a joined session then
// adopts its peer from the first inbound wc_sessionRequest frame.
func New(deps Deps) *Session {
	meta := Meta{}
	if deps.ClientMeta != nil {
		meta = deps.ClientMeta()
	}
	meta.ResolvedAt = now()

	s := &Session{
		crypto:     deps.Crypto,
		transport:  deps.Transport,
		dispatcher: dispatch.New(),
		correlator: rpc.NewCorrelator(deps.CallTimeout),
		store:      deps.Store,
		snapshot:   Snapshot{ClientMeta: meta, ClientId: uuid.NewString()},
	}
	s.keys = keyswap.NewManager(nil)
	return s
}

// ClientId returns the locally generated, immutable identifier this
// session uses as its own relay topic.
func (s *Session) ClientId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.ClientId
}

// now exists so tests can see real wall-clock ResolvedAt timestamps
// without this package depending on anything non-deterministic beyond
// time.Now itself.
func now() time.Time { return time.Now() }

// On registers a listener for an event name or RPC method name.
func (s *Session) On(event string, cb func(payload json.RawMessage)) dispatch.ListenerHandle {
	return s.dispatcher.On(event, cb)
}

// Off removes a previously registered listener.
func (s *Session) Off(handle dispatch.ListenerHandle) {
	s.dispatcher.Off(handle)
}

// State reports the session's coarse lifecycle position, per the
// invariant: connected iff peerId is set and approved; pending iff a
// handshakeTopic is staged and not yet connected.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if s.terminated {
		return StateTerminated
	}
	if s.snapshot.Connected {
		return StateConnected
	}
	if s.snapshot.HandshakeTopic != "" {
		return StatePending
	}
	return StateFresh
}

// Snapshot returns a copy of the current serializable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	cp := s.snapshot
	cp.Key = hex.EncodeToString(s.keys.Key())
	accounts := make([]string, len(s.snapshot.Accounts))
	copy(accounts, s.snapshot.Accounts)
	cp.Accounts = accounts
	return cp
}

// Listen starts the background loop that reads inbound frames from the
// transport and routes them through handleFrame. It returns
// immediately; frames are processed on a dedicated goroutine for the
// lifetime of ctx or until the transport's frame channel closes.
func (s *Session) Listen(ctx context.Context) {
	go func() {
		frames := s.transport.Frames()
		errs := s.transport.Errs()
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-frames:
				if !ok {
					return
				}
				// Each frame is handled on its own goroutine: a
				// request handler (e.g. the key-exchange initiator)
				// may block awaiting a correlated response, which
				// must not stall this loop from delivering that very
				// response.
				go s.handleFrame(ctx, f)
			case err, ok := <-errs:
				if !ok {
					return
				}
				_ = err // transport-protocol errors are fatal to the receive path only
			}
		}
	}()
}

// publish seals v under the current key and sends it as a publish
// frame on topic.
func (s *Session) publish(topic string, v any) error {
	key := s.keys.Key()
	env, err := envelope.Seal(s.crypto, v, key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("session: marshal envelope: %w", err)
	}
	return s.transport.Send(transport.Frame{
		Topic:   topic,
		Type:    transport.FramePublish,
		Payload: string(raw),
	})
}

// publishUnderKey is identical to publish but seals under an explicit
// key rather than the session's current one — used during key
// rotation, where the acknowledgment must travel under the OLD key.
func (s *Session) publishUnderKey(topic string, v any, key []byte) error {
	env, err := envelope.Seal(s.crypto, v, key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("session: marshal envelope: %w", err)
	}
	return s.transport.Send(transport.Frame{
		Topic:   topic,
		Type:    transport.FramePublish,
		Payload: string(raw),
	})
}

// open decrypts a frame payload (a JSON-encoded envelope) under the
// current key into v.
func (s *Session) open(payload string, v any) error {
	var env json.RawMessage
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrTransportProtocol, err)
	}
	return envelope.Open(s.crypto, env, s.keys.Key(), v)
}

func (s *Session) emit(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	s.dispatcher.Emit(event, raw)
}

// persist serializes and saves the current snapshot, bumping Version.
// A nil store is tolerated (no-op).
func (s *Session) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	s.snapshot.Version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: marshal snapshot: %w", err)
	}
	return s.store.Save(ctx, raw)
}

// erase removes the persisted snapshot, if a store is configured.
func (s *Session) erase(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Remove(ctx)
}

// Restore loads Deps.Store's slot (if any) and adopts it as this
// session's state, per the "local client meta always wins" decision: a
// loaded peerId/peerMeta/bridge/key/accounts replace the fresh
// session's corresponding fields, but ClientMeta is left untouched
// since it was already resolved locally in New.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	raw, err := s.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("session: load snapshot: %w", err)
	}
	if raw == nil {
		return false, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return false, fmt.Errorf("session: unmarshal snapshot: %w", err)
	}

	key, err := hex.DecodeString(snap.Key)
	if err != nil {
		return false, fmt.Errorf("session: decode stored key: %w", err)
	}

	s.mu.Lock()
	localMeta := s.snapshot.ClientMeta
	s.snapshot = snap
	s.snapshot.ClientMeta = localMeta
	s.keys = keyswap.NewManager(key)
	s.mu.Unlock()
	return true, nil
}

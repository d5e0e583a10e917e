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
	"time"

	"github.com/google/uuid"

	"github.com/relaywire/relaylink/internal/logger"
	"github.com/relaywire/relaylink/internal/metrics"
	"github.com/relaywire/relaylink/keyswap"
	"github.com/relaywire/relaylink/rpc"
	"github.com/relaywire/relaylink/transport"
)

// CreateSession starts a new handshake as the dApp: it generates a
// fresh key, allocates a handshake id and topic, and publishes
// wc_sessionRequest on that topic. The call returns as soon as the
// request is sent; the eventual approval or rejection arrives
// asynchronously as a connect or disconnect event.
func (s *Session) CreateSession(ctx context.Context, bridge string) error {
	s.mu.Lock()
	if s.stateLocked() != StateFresh {
		s.mu.Unlock()
		return fmt.Errorf("%w: createSession requires StateFresh, got %s", ErrPreconditionViolation, s.stateLocked())
	}
	s.mu.Unlock()

	key, err := s.crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("session: generate key: %w", err)
	}
	s.keys = keyswap.NewManager(key)

	handshakeTopic := newTopic()
	handshakeId := rpc.PayloadId()

	s.mu.Lock()
	s.snapshot.Bridge = bridge
	s.snapshot.HandshakeTopic = handshakeTopic
	s.snapshot.HandshakeId = handshakeId
	s.handshakeStarted = time.Now()
	clientId := s.snapshot.ClientId
	clientMeta := s.snapshot.ClientMeta
	s.mu.Unlock()

	metrics.HandshakesInitiated.WithLabelValues("dapp").Inc()
	metrics.SessionsCreated.WithLabelValues("dapp").Inc()

	if err := s.transport.Open(ctx, bridge, clientId); err != nil {
		return fmt.Errorf("session: open transport: %w", err)
	}

	params := []sessionRequestParams{{PeerId: clientId, PeerMeta: clientMeta}}
	req := rpc.Request{Id: handshakeId, Jsonrpc: "2.0", Method: methodSessionRequest}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("session: marshal session request params: %w", err)
	}
	req.Params = rawParams

	s.correlator.Register(handshakeId)
	if err := s.publish(handshakeTopic, req); err != nil {
		s.correlator.Abandon(handshakeId)
		return err
	}

	if err := s.persist(ctx); err != nil {
		return err
	}

	go s.awaitHandshakeResponse(ctx, handshakeId)
	return nil
}

// Join is the wallet-side counterpart to CreateSession: it adopts a
// bridge and handshakeTopic learned from a scanned handshake URI, opens
// the transport, and waits for the dApp's wc_sessionRequest to arrive
// via Listen/handleFrame.
func (s *Session) Join(ctx context.Context, bridge, handshakeTopic string, key []byte) error {
	s.mu.Lock()
	if s.stateLocked() != StateFresh {
		s.mu.Unlock()
		return fmt.Errorf("%w: join requires StateFresh, got %s", ErrPreconditionViolation, s.stateLocked())
	}
	s.snapshot.Bridge = bridge
	s.snapshot.HandshakeTopic = handshakeTopic
	s.handshakeStarted = time.Now()
	clientId := s.snapshot.ClientId
	s.mu.Unlock()

	s.keys = keyswap.NewManager(key)
	metrics.HandshakesInitiated.WithLabelValues("wallet").Inc()
	metrics.SessionsCreated.WithLabelValues("wallet").Inc()

	s.transport.SetHandshakeTopic(handshakeTopic)
	if err := s.transport.Open(ctx, bridge, clientId); err != nil {
		return fmt.Errorf("session: open transport: %w", err)
	}
	return nil
}

func (s *Session) awaitHandshakeResponse(ctx context.Context, handshakeId int64) {
	resp, err := s.correlator.Wait(ctx, handshakeId)
	if err != nil {
		metrics.HandshakesFailed.WithLabelValues("timeout").Inc()
		return
	}
	var result sessionResponseResult
	if err := rpc.DecodeResult(resp, &result); err != nil {
		metrics.HandshakesFailed.WithLabelValues("transport_error").Inc()
		s.emit(EventDisconnect, sessionUpdateParams{Approved: false, Message: err.Error()})
		return
	}

	if !result.Approved {
		s.recordHandshakeOutcome("rejected")
		_ = s.erase(ctx)
		s.emit(EventDisconnect, sessionUpdateParams{Message: result.Message})
		return
	}

	s.mu.Lock()
	s.snapshot.PeerId = result.PeerId
	s.snapshot.PeerMeta = result.PeerMeta
	s.snapshot.ChainId = result.ChainId
	s.snapshot.Accounts = result.Accounts
	s.snapshot.Connected = true
	s.mu.Unlock()

	s.recordHandshakeOutcome("approved")
	metrics.SessionsActive.Inc()
	_ = s.persist(ctx)
	s.emit(EventConnect, sessionUpdateParams{ChainId: result.ChainId, Accounts: result.Accounts})
}

// recordHandshakeOutcome reports HandshakesCompleted and, if the
// handshake's start was recorded, HandshakeDuration.
func (s *Session) recordHandshakeOutcome(outcome string) {
	metrics.HandshakesCompleted.WithLabelValues(outcome).Inc()
	s.mu.Lock()
	started := s.handshakeStarted
	s.mu.Unlock()
	if !started.IsZero() {
		metrics.HandshakeDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	}
}

// handleFrame is the single inbound entry point: topic filtering has
// already happened in the transport, so every frame here is addressed
// to this session. Decryption failures and malformed JSON are fatal to
// this frame only, not the whole receive loop.
func (s *Session) handleFrame(ctx context.Context, f transport.Frame) {
	logger.Debug("inbound frame", logger.String("topic", f.Topic))

	var raw json.RawMessage
	if err := s.open(f.Payload, &raw); err != nil {
		logger.ErrorMsg("dropped inbound frame: decrypt failed", logger.String("topic", f.Topic), logger.Error(err))
		return
	}

	isRequest, isResponse := rpc.Classify(raw)
	switch {
	case isResponse:
		var resp rpc.Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			logger.Warn("dropped inbound frame: malformed response", logger.String("topic", f.Topic), logger.Error(err))
			return
		}
		if s.correlator.Resolve(resp) {
			return
		}
		metrics.RPCResponsesUnmatched.Inc()
		s.emit(fmt.Sprintf("response:%d", resp.Id), resp.Result)
	case isRequest:
		var req rpc.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			logger.Warn("dropped inbound frame: malformed request", logger.String("topic", f.Topic), logger.Error(err))
			return
		}
		s.handleRequest(ctx, req)
	}
}

func (s *Session) handleRequest(ctx context.Context, req rpc.Request) {
	switch req.Method {
	case methodSessionRequest:
		metrics.RPCRequestsProcessed.WithLabelValues(req.Method, "handled").Inc()
		s.handleSessionRequest(ctx, req)
	case methodSessionUpdate:
		metrics.RPCRequestsProcessed.WithLabelValues(req.Method, "handled").Inc()
		s.handleSessionUpdate(ctx, req)
	case methodExchangeKey:
		metrics.RPCRequestsProcessed.WithLabelValues(req.Method, "handled").Inc()
		s.handleExchangeKey(ctx, req)
	default:
		metrics.RPCRequestsProcessed.WithLabelValues(req.Method, "unhandled").Inc()
		s.emit(req.Method, CallRequest{Id: req.Id, Method: req.Method, Params: req.Params})
	}
}

// Reply publishes a JSON-RPC result in answer to an inbound CallRequest,
// on whichever topic currently addresses the peer.
func (s *Session) Reply(id int64, result any) error {
	s.mu.Lock()
	topic := s.targetTopicLocked()
	s.mu.Unlock()

	resp, err := rpc.NewResult(id, result)
	if err != nil {
		return err
	}
	return s.publish(topic, resp)
}

// handleSessionRequest is the wallet-side entry point: the first
// inbound wc_sessionRequest on a session with no peer yet adopts the peer identity
// and kicks off the forward-secrecy key exchange.
func (s *Session) handleSessionRequest(ctx context.Context, req rpc.Request) {
	s.mu.Lock()
	if s.snapshot.PeerId != "" || s.snapshot.Connected {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	var params []sessionRequestParams
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return
	}
	peer := params[0]
	peer.PeerMeta.ResolvedAt = now()

	s.mu.Lock()
	s.snapshot.HandshakeId = req.Id
	s.snapshot.PeerId = peer.PeerId
	s.snapshot.PeerMeta = peer.PeerMeta
	s.mu.Unlock()

	s.emit(methodSessionRequest, req.Params)
	s.initiateKeyExchange(ctx)
}

// initiateKeyExchange runs the key-manager side of §4.7: stage a
// nextKey, send wc_exchangeKey encrypted under the still-current key,
// and commit locally once the peer's acknowledgment arrives.
func (s *Session) initiateKeyExchange(ctx context.Context) {
	s.mu.Lock()
	sessionId := s.snapshot.HandshakeTopic
	if sessionId == "" {
		sessionId = s.snapshot.PeerId
	}
	clientId := s.snapshot.ClientId
	clientMeta := s.snapshot.ClientMeta
	topic := s.targetTopicLocked()
	s.mu.Unlock()

	nextKey, err := s.keys.BeginRotation(sessionId, s.crypto.GenerateKey)
	if err != nil {
		logger.Warn("key rotation not started", logger.String("sessionId", sessionId), logger.Error(err))
		return
	}

	id := rpc.PayloadId()
	params := []exchangeKeyParams{{PeerId: clientId, PeerMeta: clientMeta, NextKey: hex.EncodeToString(nextKey)}}
	rawParams, err := json.Marshal(params)
	if err != nil {
		s.keys.Abort()
		return
	}
	req := rpc.Request{Id: id, Jsonrpc: "2.0", Method: methodExchangeKey, Params: rawParams}

	s.correlator.Register(id)
	if err := s.publish(topic, req); err != nil {
		s.correlator.Abandon(id)
		s.keys.Abort()
		return
	}

	resp, err := s.correlator.Wait(ctx, id)
	if err != nil {
		logger.Warn("key rotation aborted: no ack", logger.String("sessionId", sessionId), logger.Error(err))
		s.keys.Abort()
		return
	}
	if err := rpc.DecodeResult(resp, nil); err != nil {
		logger.Warn("key rotation aborted: peer rejected", logger.String("sessionId", sessionId), logger.Error(err))
		s.keys.Abort()
		return
	}
	s.keys.Commit()
	logger.Info("key rotation committed", logger.String("sessionId", sessionId), logger.String("role", "initiator"))
}

// handleExchangeKey is the responder side of §4.7: a peer has offered a
// nextKey. Overlapping rotations (nextKey already staged locally) are
// rejected rather than silently accepted.
func (s *Session) handleExchangeKey(ctx context.Context, req rpc.Request) {
	var params []exchangeKeyParams
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return
	}
	nextKey, err := hex.DecodeString(params[0].NextKey)
	if err != nil {
		return
	}

	s.mu.Lock()
	topic := s.targetTopicLocked()
	s.mu.Unlock()

	oldKey := s.keys.Key()
	if err := s.keys.StageReceived(nextKey); err != nil {
		logger.Warn("key rotation rejected: already in flight", logger.Error(err))
		return
	}

	resp, err := rpc.NewResult(req.Id, true)
	if err != nil {
		s.keys.Abort()
		return
	}
	if err := s.publishUnderKey(topic, resp, oldKey); err != nil {
		s.keys.Abort()
		return
	}
	s.keys.Commit()
	logger.Info("key rotation committed", logger.String("role", "responder"))
}

// ApproveSession is the wallet-side reply to an inbound wc_sessionRequest,
// granting the dApp access to chainId/accounts.
func (s *Session) ApproveSession(ctx context.Context, chainId int, accounts []string) error {
	s.mu.Lock()
	if s.snapshot.Connected {
		s.mu.Unlock()
		return fmt.Errorf("%w: approveSession requires not connected", ErrPreconditionViolation)
	}
	handshakeId := s.snapshot.HandshakeId
	topic := s.targetTopicLocked()
	clientId := s.snapshot.ClientId
	clientMeta := s.snapshot.ClientMeta
	s.mu.Unlock()

	result := sessionResponseResult{
		Approved: true,
		ChainId:  chainId,
		Accounts: accounts,
		PeerId:   clientId,
		PeerMeta: clientMeta,
	}
	resp, err := rpc.NewResult(handshakeId, result)
	if err != nil {
		return err
	}
	if err := s.publish(topic, resp); err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshot.ChainId = chainId
	s.snapshot.Accounts = accounts
	s.snapshot.Connected = true
	s.mu.Unlock()

	s.recordHandshakeOutcome("approved")
	metrics.SessionsActive.Inc()
	logger.Info("session connected", logger.String("clientId", clientId), logger.Int("chainId", chainId))

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.emit(EventConnect, sessionUpdateParams{ChainId: chainId, Accounts: accounts})
	return nil
}

// RejectSession is the wallet-side negative reply to a pending
// handshake. It erases any persisted snapshot.
func (s *Session) RejectSession(ctx context.Context, rejectErr error) error {
	s.mu.Lock()
	if s.snapshot.Connected {
		s.mu.Unlock()
		return fmt.Errorf("%w: rejectSession requires not connected", ErrPreconditionViolation)
	}
	handshakeId := s.snapshot.HandshakeId
	topic := s.targetTopicLocked()
	s.mu.Unlock()

	message := ""
	if rejectErr != nil {
		message = rejectErr.Error()
	}
	result := sessionResponseResult{Approved: false, Message: message}
	resp, err := rpc.NewResult(handshakeId, result)
	if err != nil {
		return err
	}
	if err := s.publish(topic, resp); err != nil {
		return err
	}

	s.recordHandshakeOutcome("rejected")
	metrics.SessionsTerminated.WithLabelValues("reject").Inc()
	logger.Info("session disconnected", logger.String("reason", "rejected"), logger.String("message", message))

	if err := s.erase(ctx); err != nil {
		return err
	}
	s.emit(EventDisconnect, sessionUpdateParams{Message: message})
	return nil
}

// UpdateSession pushes a new chainId/accounts pair to the peer while
// already connected.
func (s *Session) UpdateSession(ctx context.Context, chainId int, accounts []string) error {
	s.mu.Lock()
	if !s.snapshot.Connected {
		s.mu.Unlock()
		return fmt.Errorf("%w: updateSession requires connected", ErrPreconditionViolation)
	}
	topic := s.targetTopicLocked()
	s.mu.Unlock()

	params := []sessionUpdateParams{{Approved: true, ChainId: chainId, Accounts: accounts}}
	req, err := rpc.NewRequest(methodSessionUpdate, params)
	if err != nil {
		return err
	}
	if err := s.publish(topic, req); err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshot.ChainId = chainId
	s.snapshot.Accounts = accounts
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.emit(EventSessionUpdate, sessionUpdateParams{ChainId: chainId, Accounts: accounts})
	return nil
}

// KillSession ends an active session, notifying the peer and erasing
// any persisted snapshot.
func (s *Session) KillSession(ctx context.Context, killErr error) error {
	s.mu.Lock()
	if !s.snapshot.Connected {
		s.mu.Unlock()
		return fmt.Errorf("%w: killSession requires connected", ErrPreconditionViolation)
	}
	topic := s.targetTopicLocked()
	s.mu.Unlock()

	message := ""
	if killErr != nil {
		message = killErr.Error()
	}
	params := []sessionUpdateParams{{Approved: false, Message: message}}
	req, err := rpc.NewRequest(methodSessionUpdate, params)
	if err != nil {
		return err
	}
	if err := s.publish(topic, req); err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshot.Connected = false
	s.terminated = true
	s.mu.Unlock()

	metrics.SessionsTerminated.WithLabelValues("kill").Inc()
	metrics.SessionsActive.Dec()
	logger.Info("session disconnected", logger.String("reason", "kill"), logger.String("message", message))

	if err := s.erase(ctx); err != nil {
		return err
	}
	s.emit(EventDisconnect, sessionUpdateParams{Message: message})
	return nil
}

// handleSessionUpdate processes an inbound wc_sessionUpdate, which may
// arrive from either role.
func (s *Session) handleSessionUpdate(ctx context.Context, req rpc.Request) {
	var params []sessionUpdateParams
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return
	}
	update := params[0]

	if !update.Approved {
		s.mu.Lock()
		wasConnected := s.snapshot.Connected
		s.snapshot.Connected = false
		s.terminated = true
		s.mu.Unlock()
		metrics.SessionsTerminated.WithLabelValues("peer_update").Inc()
		if wasConnected {
			metrics.SessionsActive.Dec()
		}
		logger.Info("session disconnected", logger.String("reason", "peer_update"), logger.String("message", update.Message))
		_ = s.erase(ctx)
		s.emit(EventDisconnect, update)
		return
	}

	s.mu.Lock()
	wasConnected := s.snapshot.Connected
	s.snapshot.ChainId = update.ChainId
	s.snapshot.Accounts = update.Accounts
	s.snapshot.Connected = true
	s.mu.Unlock()

	_ = s.persist(ctx)
	if !wasConnected {
		logger.Info("session connected", logger.Int("chainId", update.ChainId))
		s.emit(EventConnect, update)
	} else {
		s.emit(EventSessionUpdate, update)
	}
}

// Call sends an arbitrary passthrough RPC method (eth_sendTransaction,
// eth_sign, eth_signTypedData, ...) and blocks for the peer's result.
func (s *Session) Call(ctx context.Context, method string, params any, result any) error {
	s.mu.Lock()
	if !s.snapshot.Connected {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s requires connected", ErrPreconditionViolation, method)
	}
	topic := s.targetTopicLocked()
	s.mu.Unlock()

	req, err := rpc.NewRequest(method, params)
	if err != nil {
		return err
	}

	start := time.Now()
	s.correlator.Register(req.Id)
	if err := s.publish(topic, req); err != nil {
		s.correlator.Abandon(req.Id)
		return err
	}

	resp, err := s.correlator.Wait(ctx, req.Id)
	if err != nil {
		return err
	}
	metrics.CallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return rpc.DecodeResult(resp, result)
}

// targetTopicLocked returns peerId once known, falling back to
// handshakeTopic beforehand. Caller must hold s.mu.
func (s *Session) targetTopicLocked() string {
	if s.snapshot.PeerId != "" {
		return s.snapshot.PeerId
	}
	return s.snapshot.HandshakeTopic
}

// newTopic allocates a fresh handshake rendezvous topic.
func newTopic() string {
	return uuid.NewString()
}

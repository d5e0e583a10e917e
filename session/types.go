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

// Package session implements the handshake/approve/reject/update/kill
// state machine that sits on top of the transport, rpc, dispatch,
// envelope, and keyswap packages.
package session

import (
	"encoding/json"
	"time"
)

// State is the coarse lifecycle position of a Session.
type State int

const (
	StateFresh State = iota
	StatePending
	StateConnected
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StatePending:
		return "pending"
	case StateConnected:
		return "connected"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Meta describes one peer of a session.
type Meta struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`

	// ResolvedAt records when this Meta was first observed. Client-side
	// meta is resolved once, when the Session is constructed, and peer
	// meta when the peer's wc_sessionRequest arrives; this field lets
	// callers distinguish "never resolved" from a genuinely empty Meta.
	ResolvedAt time.Time `json:"resolvedAt,omitempty"`
}

func (m Meta) resolved() bool {
	return !m.ResolvedAt.IsZero()
}

// Snapshot is the serializable unit persisted via store.Store.
type Snapshot struct {
	Connected      bool   `json:"connected"`
	Bridge         string `json:"bridge"`
	Key            string `json:"key"` // hex-encoded
	ClientId       string `json:"clientId"`
	PeerId         string `json:"peerId"`
	ClientMeta     Meta   `json:"clientMeta"`
	PeerMeta       Meta   `json:"peerMeta"`
	HandshakeId    int64  `json:"handshakeId"`
	HandshakeTopic string `json:"handshakeTopic"`
	ChainId        int    `json:"chainId"`
	Accounts       []string `json:"accounts"`

	// Version increments on every persisted mutation. Added so a store
	// backend can detect it is looking at a stale read without needing
	// a database-level transaction.
	Version int `json:"version"`
}

// sessionRequestParams is the payload of an outbound/inbound
// wc_sessionRequest.
type sessionRequestParams struct {
	PeerId   string `json:"peerId"`
	PeerMeta Meta   `json:"peerMeta"`
	ChainId  int    `json:"chainId,omitempty"`
}

// sessionResponseResult is the result payload of the handshake response
// (the reply to wc_sessionRequest), normalized to a single shape per
// the "no double-unwrap" decision: callers always see exactly this
// struct, never a doubly-wrapped variant.
type sessionResponseResult struct {
	Approved bool     `json:"approved"`
	ChainId  int      `json:"chainId,omitempty"`
	Accounts []string `json:"accounts,omitempty"`
	PeerId   string   `json:"peerId,omitempty"`
	PeerMeta Meta     `json:"peerMeta,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// sessionUpdateParams is the payload of wc_sessionUpdate, used both
// outbound (killSession/updateSession) and inbound.
type sessionUpdateParams struct {
	Approved bool     `json:"approved"`
	ChainId  int      `json:"chainId,omitempty"`
	Accounts []string `json:"accounts,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// CallRequest is the payload delivered to listeners for any inbound RPC
// method that is not one of the internal handshake/update/exchange
// methods (eth_sendTransaction, eth_sign, eth_signTypedData, and any
// other passthrough method). It carries the request id so a listener
// can answer it via Session.Reply.
type CallRequest struct {
	Id     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// exchangeKeyParams is the payload of wc_exchangeKey.
type exchangeKeyParams struct {
	PeerId   string `json:"peerId"`
	PeerMeta Meta   `json:"peerMeta"`
	NextKey  string `json:"nextKey"` // hex-encoded
}

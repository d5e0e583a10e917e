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

package relaylink

import (
	"errors"

	"github.com/relaywire/relaylink/envelope"
	"github.com/relaywire/relaylink/keyswap"
	"github.com/relaywire/relaylink/rpc"
	"github.com/relaywire/relaylink/session"
	"github.com/relaywire/relaylink/transport"
)

// Error kinds returned by the connector. Callers should use errors.Is.
// Most of these are aliases of the sentinel a Connector's embedded
// *session.Session actually returns, re-exported here so a caller
// never has to import the sub-packages just to check an error kind.
var (
	// ErrMissingInitialization is returned when the constructor is given
	// none of {bridge, uri, session}.
	ErrMissingInitialization = errors.New("relaylink: one of bridge, uri, or session must be provided")

	// ErrInvalidUri is returned by New when Options.URI is a malformed or
	// unsupported handshake URI, or carries a key that is not valid hex.
	ErrInvalidUri = errors.New("relaylink: invalid handshake uri")

	// ErrPreconditionViolation is returned when a session operation is
	// called from the wrong state (e.g. approving a session twice).
	ErrPreconditionViolation = session.ErrPreconditionViolation

	// ErrTransportProtocolError is returned when a relay frame or its
	// inner envelope cannot be parsed as JSON.
	ErrTransportProtocolError = transport.ErrTransportProtocol

	// ErrRpcError is returned when a JSON-RPC response carries no result.
	ErrRpcError = rpc.ErrRpcError

	// ErrCryptoUnavailable is returned when no key is staged yet, or when
	// the injected crypto provider yields nothing (e.g. a frame that does
	// not decrypt under the current key).
	ErrCryptoUnavailable = envelope.ErrNoKey

	// ErrTimeout is returned when a pending call is not answered before
	// its deadline.
	ErrTimeout = rpc.ErrTimeout

	// ErrQueueOverflow is returned when the pre-connect send queue has
	// reached its configured capacity.
	ErrQueueOverflow = transport.ErrQueueOverflow

	// ErrKeyExchangeInFlight is returned when a key rotation is requested
	// while one is already staged and unresolved.
	ErrKeyExchangeInFlight = keyswap.ErrInFlight
)

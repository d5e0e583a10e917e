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

// Package relaylink is a client-side connector for a relay-mediated,
// end-to-end encrypted JSON-RPC session between a dApp and a remote
// wallet. It wires together a handshake URI codec, an AEAD envelope
// codec, a websocket relay transport, a JSON-RPC correlation layer, an
// event dispatcher, a session state machine, and a two-phase key
// rotation manager.
//
// A Connector is built from exactly one of a bridge URL (fresh dApp
// session), a handshake URI (wallet joining an existing handshake), or
// a restored Snapshot (resuming a previously persisted session).
package relaylink

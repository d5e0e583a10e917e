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

// Package uri parses and emits the "wc:" handshake URI that a dApp
// displays (typically as a QR code) so a wallet can rendezvous with it
// on a relay. The URI is both a human-shared artifact and cryptographic
// material: it carries the relay address, the handshake topic, and the
// shared symmetric key, hex-encoded.
package uri

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SupportedVersion is the only handshake URI version this codec accepts.
const SupportedVersion = 1

// Params is the decoded content of a handshake URI.
type Params struct {
	HandshakeTopic string
	Version        int
	Bridge         string
	Key            string // hex-encoded symmetric key
}

// Format emits a handshake URI of the form:
//
//	wc:<handshakeTopic>@<version>?bridge=<url-encoded>&key=<hex>
func Format(p Params) string {
	version := p.Version
	if version == 0 {
		version = SupportedVersion
	}
	q := url.Values{}
	q.Set("bridge", p.Bridge)
	q.Set("key", p.Key)
	return fmt.Sprintf("wc:%s@%d?%s", p.HandshakeTopic, version, q.Encode())
}

// Parse decodes a handshake URI, validating the protocol, version, and
// that bridge/key/handshakeTopic are all present.
func Parse(raw string) (Params, error) {
	protocol, rest, ok := strings.Cut(raw, ":")
	if !ok || protocol != "wc" {
		return Params{}, fmt.Errorf("%w: protocol must be \"wc\"", ErrInvalidUri)
	}

	topicAndVersion, query, ok := strings.Cut(rest, "?")
	if !ok {
		return Params{}, fmt.Errorf("%w: missing query component", ErrInvalidUri)
	}

	topic, versionStr, ok := strings.Cut(topicAndVersion, "@")
	if !ok || topic == "" {
		return Params{}, fmt.Errorf("%w: missing handshake topic", ErrInvalidUri)
	}

	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return Params{}, fmt.Errorf("%w: non-numeric version %q", ErrInvalidUri, versionStr)
	}
	if version != SupportedVersion {
		return Params{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidUri, version)
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidUri, err)
	}

	bridge := values.Get("bridge")
	key := values.Get("key")
	if bridge == "" {
		return Params{}, fmt.Errorf("%w: missing bridge", ErrInvalidUri)
	}
	if key == "" {
		return Params{}, fmt.Errorf("%w: missing key", ErrInvalidUri)
	}

	return Params{
		HandshakeTopic: topic,
		Version:        version,
		Bridge:         bridge,
		Key:            key,
	}, nil
}

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

// Package envelope wraps and unwraps JSON payloads in an AEAD envelope.
// The actual cryptography is injected: this layer never sees raw key
// material beyond what it hands to the Crypto interface, and it treats
// the envelope itself as opaque JSON produced by that interface.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoKey is returned when Seal/Open is attempted with a nil or empty
// key, and when the Crypto provider yields no envelope (Seal) or no
// plaintext (Open, e.g. under a wrong key).
var ErrNoKey = errors.New("envelope: no key available")

// Crypto is the injected cryptographic primitive contract. Implementations
// must be safe for concurrent use.
type Crypto interface {
	// GenerateKey returns fresh key material, typically 32 random bytes.
	GenerateKey() ([]byte, error)

	// Encrypt seals plaintext under key, returning an opaque envelope.
	Encrypt(plaintext []byte, key []byte) (json.RawMessage, error)

	// Decrypt opens an envelope under key. A nil return (with a nil
	// error) signals that decryption could not be completed (e.g. the
	// key is wrong); callers must treat that as a crypto failure, not a
	// successful empty payload.
	Decrypt(env json.RawMessage, key []byte) ([]byte, error)
}

// Seal marshals v to JSON and encrypts it under key via c. If key is
// empty, Seal returns (nil, ErrNoKey) and emits no frame, matching the
// "CryptoUnavailable" contract: a missing key is not a hard failure, it
// simply means nothing to send yet.
func Seal(c Crypto, v any, key []byte) (json.RawMessage, error) {
	if len(key) == 0 {
		return nil, ErrNoKey
	}

	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("envelope: marshal payload: %w", err)
	}

	env, err := c.Encrypt(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("envelope: encrypt: %w", err)
	}
	if env == nil {
		return nil, ErrNoKey
	}
	return env, nil
}

// Open decrypts env under key via c and unmarshals the plaintext into v.
func Open(c Crypto, env json.RawMessage, key []byte, v any) error {
	if len(key) == 0 {
		return ErrNoKey
	}

	plaintext, err := c.Decrypt(env, key)
	if err != nil {
		return fmt.Errorf("envelope: decrypt: %w", err)
	}
	if plaintext == nil {
		return ErrNoKey
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("envelope: unmarshal payload: %w", err)
	}
	return nil
}

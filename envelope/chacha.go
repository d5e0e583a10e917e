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

package envelope

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/relaywire/relaylink/internal/metrics"
)

// wireEnvelope is the concrete envelope shape produced by ChaChaCrypto.
// It is the reference envelope mentioned in spec §6: the ciphertext
// with its Poly1305 tag appended, the nonce (the "IV"), a separate copy
// of that Poly1305 tag under "hmac", and a format version. No key hint
// is carried.
type wireEnvelope struct {
	Data    string `json:"data"`
	IV      string `json:"iv"`
	HMAC    string `json:"hmac"`
	Version int    `json:"version"`
}

// ChaChaCrypto implements Crypto using ChaCha20-Poly1305 AEAD with keys
// derived through HKDF-SHA256, the same primitive stack SAGE's
// SecureSession uses for its transport-level encryption.
type ChaChaCrypto struct{}

// NewChaChaCrypto returns the default injected crypto provider.
func NewChaChaCrypto() ChaChaCrypto { return ChaChaCrypto{} }

// GenerateKey returns 32 random bytes suitable as a ChaCha20-Poly1305 key.
func (ChaChaCrypto) GenerateKey() ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

func deriveAEADKey(key []byte) ([]byte, error) {
	out := make([]byte, chacha20poly1305.KeySize)
	h := hkdf.New(sha256.New, key, nil, []byte("relaylink/envelope"))
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, fmt.Errorf("derive aead key: %w", err)
	}
	return out, nil
}

// Encrypt seals plaintext, returning it as the opaque wireEnvelope JSON.
func (ChaChaCrypto) Encrypt(plaintext []byte, key []byte) (json.RawMessage, error) {
	start := time.Now()
	aeadKey, err := deriveAEADKey(key)
	if err != nil {
		metrics.EnvelopeOperations.WithLabelValues("seal", "error").Inc()
		return nil, err
	}
	aead, err := chacha20poly1305.New(aeadKey)
	if err != nil {
		metrics.EnvelopeOperations.WithLabelValues("seal", "error").Inc()
		return nil, fmt.Errorf("new aead: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		metrics.EnvelopeOperations.WithLabelValues("seal", "error").Inc()
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)

	env := wireEnvelope{
		Data:    base64.StdEncoding.EncodeToString(sealed),
		IV:      base64.StdEncoding.EncodeToString(nonce),
		HMAC:    base64.StdEncoding.EncodeToString(sealed[len(sealed)-aead.Overhead():]),
		Version: 1,
	}
	out, err := json.Marshal(env)
	if err != nil {
		metrics.EnvelopeOperations.WithLabelValues("seal", "error").Inc()
		return nil, err
	}
	metrics.EnvelopeOperations.WithLabelValues("seal", "ok").Inc()
	metrics.EnvelopeOperationDuration.WithLabelValues("seal").Observe(time.Since(start).Seconds())
	metrics.EnvelopeSize.Observe(float64(len(plaintext)))
	return out, nil
}

// Decrypt opens an envelope produced by Encrypt. It returns (nil, nil)
// on authentication failure, matching the Crypto contract's "null on
// failure" semantics rather than surfacing a distinct error type.
func (ChaChaCrypto) Decrypt(raw json.RawMessage, key []byte) ([]byte, error) {
	start := time.Now()
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.EnvelopeOperations.WithLabelValues("open", "error").Inc()
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	aeadKey, err := deriveAEADKey(key)
	if err != nil {
		metrics.EnvelopeOperations.WithLabelValues("open", "error").Inc()
		return nil, err
	}
	aead, err := chacha20poly1305.New(aeadKey)
	if err != nil {
		metrics.EnvelopeOperations.WithLabelValues("open", "error").Inc()
		return nil, fmt.Errorf("new aead: %w", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		metrics.EnvelopeOperations.WithLabelValues("open", "error").Inc()
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		metrics.EnvelopeOperations.WithLabelValues("open", "error").Inc()
		return nil, fmt.Errorf("decode nonce: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		metrics.EnvelopeOperations.WithLabelValues("open", "auth_failed").Inc()
		return nil, nil
	}
	metrics.EnvelopeOperations.WithLabelValues("open", "ok").Inc()
	metrics.EnvelopeOperationDuration.WithLabelValues("open").Observe(time.Since(start).Seconds())
	metrics.EnvelopeSize.Observe(float64(len(plaintext)))
	return plaintext, nil
}

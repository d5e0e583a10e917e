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

// Package keyswap implements the two-phase symmetric-key rotation
// protocol: a new key is staged as nextKey, acknowledged by the peer
// under the old key, and only then swapped in on both sides.
package keyswap

import (
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/relaywire/relaylink/internal/metrics"
)

// ErrInFlight is returned when a rotation is requested while one is
// already staged for the session.
var ErrInFlight = errors.New("keyswap: key exchange already in flight")

// Manager guards the current key and an optional staged nextKey for a
// single session, enforcing that at most one rotation is in flight at
// a time. The singleflight group collapses concurrent initiations for
// the same session id into one actual rotation rather than racing two
// nextKey assignments.
type Manager struct {
	group singleflight.Group

	mu      sync.Mutex
	key     []byte
	nextKey []byte
}

// NewManager constructs a Manager seeded with the session's current key.
func NewManager(key []byte) *Manager {
	return &Manager{key: key}
}

// Key returns the currently active key.
func (m *Manager) Key() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key
}

// BeginRotation stages nextKey if no rotation is already in flight for
// sessionId, via generate. If a rotation is already staged, it returns
// ErrInFlight without calling generate again.
func (m *Manager) BeginRotation(sessionId string, generate func() ([]byte, error)) ([]byte, error) {
	m.mu.Lock()
	if m.nextKey != nil {
		m.mu.Unlock()
		metrics.KeyRotations.WithLabelValues("rejected_in_flight").Inc()
		return nil, ErrInFlight
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(sessionId, func() (any, error) {
		m.mu.Lock()
		if m.nextKey != nil {
			m.mu.Unlock()
			return nil, ErrInFlight
		}
		m.mu.Unlock()

		next, err := generate()
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.nextKey = next
		m.mu.Unlock()
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// StageReceived records a nextKey offered by the peer, rejecting the
// offer with ErrInFlight if a rotation is already staged locally.
func (m *Manager) StageReceived(next []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextKey != nil {
		metrics.KeyRotations.WithLabelValues("rejected_in_flight").Inc()
		return ErrInFlight
	}
	m.nextKey = next
	return nil
}

// Commit performs the swap: key := nextKey; nextKey := nil. It is a
// no-op if no rotation is staged.
func (m *Manager) Commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextKey == nil {
		return
	}
	m.key = m.nextKey
	m.nextKey = nil
	metrics.KeyRotations.WithLabelValues("committed").Inc()
}

// Abort discards a staged nextKey without committing it, for a
// rotation that failed before the peer's acknowledgment arrived.
func (m *Manager) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextKey != nil {
		metrics.KeyRotations.WithLabelValues("aborted").Inc()
	}
	m.nextKey = nil
}

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

package transport

import (
	"context"
	"sync"
)

// Mock is an in-memory Transport for tests. It captures every frame
// handed to Send (post-open) so assertions can inspect exactly what a
// session tried to publish, and lets tests inject inbound frames via
// Deliver.
type Mock struct {
	mu             sync.Mutex
	opened         bool
	bridge         string
	clientId       string
	handshakeTopic string
	queue          *sendQueue

	Sent []Frame

	frames chan Frame
	errs   chan error
}

// NewMock constructs a Mock transport with the default queue capacity.
func NewMock() *Mock {
	return &Mock{
		queue:  newSendQueue(DefaultQueueCapacity),
		frames: make(chan Frame, 64),
		errs:   make(chan error, 8),
	}
}

// SetHandshakeTopic registers the handshake-topic inbound filter.
func (m *Mock) SetHandshakeTopic(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handshakeTopic = topic
}

// Open marks the mock as connected, recording the initial subscribe
// frame and draining anything queued beforehand, same as Relay.
func (m *Mock) Open(_ context.Context, bridge, clientId string) error {
	m.mu.Lock()
	m.opened = true
	m.bridge = bridge
	m.clientId = clientId
	m.mu.Unlock()

	m.Sent = append(m.Sent, Frame{Topic: clientId, Type: FrameSubscribe, Payload: ""})
	for _, f := range m.queue.drain() {
		m.Sent = append(m.Sent, f)
	}
	return nil
}

// Send records frame if open, otherwise queues it.
func (m *Mock) Send(frame Frame) error {
	m.mu.Lock()
	opened := m.opened
	m.mu.Unlock()

	if !opened {
		return m.queue.offer(frame)
	}
	m.Sent = append(m.Sent, frame)
	return nil
}

// Deliver injects an inbound frame as if received from the bridge,
// applying the same topic filter a real Relay would.
func (m *Mock) Deliver(f Frame) {
	m.mu.Lock()
	clientId, handshakeTopic := m.clientId, m.handshakeTopic
	m.mu.Unlock()

	if !topicAllowed(f.Topic, clientId, handshakeTopic) {
		return
	}
	m.frames <- f
}

// DeliverRaw decodes raw bytes as a Frame and delivers it, surfacing a
// decode failure on Errs instead of Frames — used to exercise the
// malformed-JSON fatal path in tests.
func (m *Mock) DeliverRaw(raw []byte) {
	f, err := decodeFrame(raw)
	if err != nil {
		m.errs <- err
		return
	}
	m.Deliver(f)
}

// Frames returns the inbound frame channel.
func (m *Mock) Frames() <-chan Frame { return m.frames }

// Errs returns the fatal receive-path error channel.
func (m *Mock) Errs() <-chan error { return m.errs }

// Close is a no-op for the mock beyond closing the frames channel.
func (m *Mock) Close() error {
	close(m.frames)
	return nil
}

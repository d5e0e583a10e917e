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
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaywire/relaylink/internal/logger"
	"github.com/relaywire/relaylink/internal/metrics"
)

// Relay is the websocket-backed Transport implementation used against a
// real bridge server.
type Relay struct {
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn

	queue          *sendQueue
	clientId       string
	handshakeTopic string

	frames chan Frame
	errs   chan error

	closeOnce sync.Once
	closed    chan struct{}
}

// NewRelay constructs a Relay with the default pre-connect queue
// capacity. Call SetHandshakeTopic before Open if inbound frames on the
// handshake topic must also be delivered.
func NewRelay() *Relay {
	return NewRelayWithCapacity(DefaultQueueCapacity)
}

// NewRelayWithCapacity constructs a Relay whose pre-connect send queue
// is bounded at capacity (falling back to DefaultQueueCapacity when
// capacity <= 0), for callers feeding a configured queue size in from
// config.BridgeConfig.
func NewRelayWithCapacity(capacity int) *Relay {
	return &Relay{
		dialTimeout: 30 * time.Second,
		queue:       newSendQueue(capacity),
		frames:      make(chan Frame, 64),
		errs:        make(chan error, 8),
		closed:      make(chan struct{}),
	}
}

// SetHandshakeTopic registers the handshake-topic filter alongside
// clientId for inbound frame acceptance.
func (r *Relay) SetHandshakeTopic(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handshakeTopic = topic
}

// Open dials bridge (rewriting http(s) to ws(s)), emits the initial
// subscribe frame for clientId, then drains the pre-connect queue.
func (r *Relay) Open(ctx context.Context, bridge, clientId string) error {
	select {
	case <-r.closed:
		return ErrClosed
	default:
	}

	wsURL, err := rewriteScheme(bridge)
	if err != nil {
		return fmt.Errorf("transport: invalid bridge url: %w", err)
	}

	dialer := &websocket.Dialer{HandshakeTimeout: r.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("transport: dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("transport: dial failed: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.clientId = clientId
	r.mu.Unlock()

	if err := r.writeFrame(Frame{Topic: clientId, Type: FrameSubscribe, Payload: ""}); err != nil {
		return err
	}
	for _, f := range r.queue.drain() {
		if err := r.writeFrame(f); err != nil {
			return err
		}
	}

	go r.readLoop()
	return nil
}

// Send publishes frame, queuing it if the socket is not yet open.
func (r *Relay) Send(frame Frame) error {
	select {
	case <-r.closed:
		return ErrClosed
	default:
	}

	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()

	if conn == nil {
		return r.queue.offer(frame)
	}
	return r.writeFrame(frame)
}

func (r *Relay) writeFrame(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return fmt.Errorf("transport: not connected")
	}
	if err := r.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	metrics.FramesSent.WithLabelValues(string(f.Type)).Inc()
	return nil
}

func (r *Relay) readLoop() {
	for {
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()
		if conn == nil {
			return
		}

		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			logger.ErrorMsg("relay read failed", logger.Error(err))
			select {
			case r.errs <- fmt.Errorf("%w: %v", ErrTransportProtocol, err):
			default:
			}
			close(r.frames)
			return
		}

		r.mu.Lock()
		clientId, handshakeTopic := r.clientId, r.handshakeTopic
		r.mu.Unlock()

		if !topicAllowed(f.Topic, clientId, handshakeTopic) {
			logger.Warn("dropped frame: topic not subscribed", logger.String("topic", f.Topic))
			metrics.FramesDropped.Inc()
			continue
		}
		metrics.FramesReceived.Inc()
		select {
		case r.frames <- f:
		case <-r.closed:
			return
		}
	}
}

// Frames returns the filtered inbound frame channel.
func (r *Relay) Frames() <-chan Frame { return r.frames }

// Errs returns the fatal receive-path error channel.
func (r *Relay) Errs() <-chan error { return r.errs }

// Close tears down the socket. Idempotent.
func (r *Relay) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.closed)
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

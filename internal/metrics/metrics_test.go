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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHandshakeMetricsIncrement(t *testing.T) {
	HandshakesInitiated.WithLabelValues("dapp").Inc()
	HandshakesCompleted.WithLabelValues("approved").Inc()
	HandshakesFailed.WithLabelValues("timeout").Inc()
	HandshakeDuration.WithLabelValues("approved").Observe(0.25)

	assert.NotZero(t, testutil.CollectAndCount(HandshakesInitiated))
	assert.NotZero(t, testutil.CollectAndCount(HandshakeDuration))
}

func TestSessionMetricsIncrement(t *testing.T) {
	SessionsCreated.WithLabelValues("wallet").Inc()
	SessionsActive.Inc()
	SessionsTerminated.WithLabelValues("kill").Inc()
	CallDuration.WithLabelValues("eth_sendTransaction").Observe(0.1)

	assert.NotZero(t, testutil.CollectAndCount(SessionsCreated))
	assert.NotZero(t, testutil.CollectAndCount(CallDuration))
}

func TestTransportMetricsIncrement(t *testing.T) {
	FramesSent.WithLabelValues("pub").Inc()
	FramesReceived.Inc()
	FramesDropped.Inc()
	QueueOverflows.Inc()
	KeyRotations.WithLabelValues("committed").Inc()

	assert.NotZero(t, testutil.CollectAndCount(FramesSent))
	assert.NotZero(t, testutil.CollectAndCount(KeyRotations))
}

func TestRPCAndCryptoMetricsIncrement(t *testing.T) {
	RPCRequestsProcessed.WithLabelValues("wc_sessionUpdate", "handled").Inc()
	RPCResponsesUnmatched.Inc()
	EnvelopeSize.Observe(256)
	EnvelopeOperations.WithLabelValues("open", "ok").Inc()
	EnvelopeOperationDuration.WithLabelValues("seal").Observe(0.0005)

	assert.NotZero(t, testutil.CollectAndCount(RPCRequestsProcessed))
	assert.NotZero(t, testutil.CollectAndCount(EnvelopeOperations))
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	h := Handler()
	assert.NotNil(t, h)
}

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCRequestsProcessed tracks inbound JSON-RPC requests handled by
	// a session, by method and outcome.
	RPCRequestsProcessed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_processed_total",
			Help:      "Total inbound JSON-RPC requests processed, by method and outcome",
		},
		[]string{"method", "outcome"}, // outcome: handled, unhandled, malformed
	)

	// RPCResponsesUnmatched tracks inbound responses that did not
	// correlate to any pending call.
	RPCResponsesUnmatched = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "responses_unmatched_total",
			Help:      "Total inbound responses with no matching correlator entry",
		},
	)

	// EnvelopeSize tracks the plaintext size of envelope payloads, both
	// sealed and opened.
	EnvelopeSize = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "envelope_size_bytes",
			Help:      "Envelope plaintext payload size in bytes, on seal and open",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		},
	)
)

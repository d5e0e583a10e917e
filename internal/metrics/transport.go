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
	// FramesSent tracks frames published to the relay, by type.
	FramesSent = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "frames_sent_total",
			Help:      "Total frames sent to the relay, by frame type",
		},
		[]string{"type"}, // pub, sub
	)

	// FramesReceived tracks frames accepted by the topic filter.
	FramesReceived = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "frames_received_total",
			Help:      "Total inbound frames accepted by the topic filter",
		},
	)

	// FramesDropped tracks inbound frames rejected by the topic filter.
	FramesDropped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "frames_dropped_total",
			Help:      "Total inbound frames dropped by the topic filter",
		},
	)

	// QueueOverflows tracks Send calls rejected by the bounded
	// pre-connect queue.
	QueueOverflows = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "queue_overflows_total",
			Help:      "Total Send calls rejected because the pre-connect queue was full",
		},
	)

	// KeyRotations tracks key-swap rotation outcomes: committed,
	// aborted, or rejected because one was already in flight.
	KeyRotations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keyswap",
			Name:      "rotations_total",
			Help:      "Total key rotations, by outcome",
		},
		[]string{"outcome"}, // committed, aborted, rejected_in_flight
	)
)

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

// Package metrics exposes Prometheus counters/gauges/histograms for the
// connector's sessions, frames, and key rotations.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "relaylink"

// Registry is the registry every metric in this package is registered
// against. Handler serves it for callers mounting it in their own
// server; StartServer runs a standalone listener for it.
var Registry = prometheus.NewRegistry()

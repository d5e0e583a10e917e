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

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BridgeConfig holds the relay connection parameters a Session's
// Deps are built from.
type BridgeConfig struct {
	URL            string        `yaml:"url" json:"url"`
	DialTimeout    time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	CallTimeout    time.Duration `yaml:"call_timeout" json:"call_timeout"`
	QueueCapacity  int           `yaml:"queue_capacity" json:"queue_capacity"`
}

// BridgePresets names a handful of public relay bridges operators
// commonly point the connector at.
var BridgePresets = map[string]*BridgeConfig{
	"local": {
		URL:           "ws://localhost:5000",
		DialTimeout:   10 * time.Second,
		CallTimeout:   5 * time.Minute,
		QueueCapacity: 256,
	},
	"bridge.walletconnect.org": {
		URL:           "https://bridge.walletconnect.org",
		DialTimeout:   30 * time.Second,
		CallTimeout:   5 * time.Minute,
		QueueCapacity: 256,
	},
}

// LoadBridgeConfig resolves a named preset (falling back to "local")
// and applies RELAYLINK_* environment overrides on top of it.
func LoadBridgeConfig(preset string) (*BridgeConfig, error) {
	base, ok := BridgePresets[strings.ToLower(preset)]
	if !ok {
		base = BridgePresets["local"]
	}

	cfg := &BridgeConfig{
		URL:           base.URL,
		DialTimeout:   base.DialTimeout,
		CallTimeout:   base.CallTimeout,
		QueueCapacity: base.QueueCapacity,
	}
	applyBridgeDefaults(cfg)

	if url := getEnvOrDefault("RELAYLINK_BRIDGE_URL", ""); url != "" {
		cfg.URL = url
	}
	if timeout := getEnvDuration("RELAYLINK_CALL_TIMEOUT", cfg.CallTimeout); timeout != cfg.CallTimeout {
		cfg.CallTimeout = timeout
	}
	if capStr := getEnvOrDefault("RELAYLINK_QUEUE_CAPACITY", ""); capStr != "" {
		n, err := strconv.Atoi(capStr)
		if err != nil {
			return nil, fmt.Errorf("invalid RELAYLINK_QUEUE_CAPACITY: %w", err)
		}
		cfg.QueueCapacity = n
	}

	return cfg, nil
}

// applyBridgeDefaults fills zero-valued fields with the connector's
// baseline timeouts, matching rpc.DefaultCallTimeout and
// transport.DefaultQueueCapacity.
func applyBridgeDefaults(cfg *BridgeConfig) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 5 * time.Minute
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = 256
	}
}

// Validate reports whether the bridge configuration is usable.
func (c *BridgeConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("bridge url is required")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be greater than 0")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be greater than 0")
	}
	return nil
}

// IsLocal reports whether the bridge points at a loopback address.
func (c *BridgeConfig) IsLocal() bool {
	return strings.Contains(c.URL, "localhost") || strings.Contains(c.URL, "127.0.0.1")
}

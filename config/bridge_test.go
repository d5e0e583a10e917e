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
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBridgeConfigDefaultsToLocal(t *testing.T) {
	cfg, err := LoadBridgeConfig("unknown-preset")
	require.NoError(t, err)
	assert.Equal(t, BridgePresets["local"].URL, cfg.URL)
	assert.True(t, cfg.IsLocal())
}

func TestLoadBridgeConfigNamedPreset(t *testing.T) {
	cfg, err := LoadBridgeConfig("bridge.walletconnect.org")
	require.NoError(t, err)
	assert.Equal(t, "https://bridge.walletconnect.org", cfg.URL)
	assert.False(t, cfg.IsLocal())
}

func TestLoadBridgeConfigEnvOverrides(t *testing.T) {
	os.Setenv("RELAYLINK_BRIDGE_URL", "wss://custom-bridge.example.com")
	os.Setenv("RELAYLINK_CALL_TIMEOUT", "90s")
	os.Setenv("RELAYLINK_QUEUE_CAPACITY", "512")
	defer os.Unsetenv("RELAYLINK_BRIDGE_URL")
	defer os.Unsetenv("RELAYLINK_CALL_TIMEOUT")
	defer os.Unsetenv("RELAYLINK_QUEUE_CAPACITY")

	cfg, err := LoadBridgeConfig("local")
	require.NoError(t, err)
	assert.Equal(t, "wss://custom-bridge.example.com", cfg.URL)
	assert.Equal(t, 90*time.Second, cfg.CallTimeout)
	assert.Equal(t, 512, cfg.QueueCapacity)
}

func TestLoadBridgeConfigInvalidQueueCapacity(t *testing.T) {
	os.Setenv("RELAYLINK_QUEUE_CAPACITY", "not-a-number")
	defer os.Unsetenv("RELAYLINK_QUEUE_CAPACITY")

	_, err := LoadBridgeConfig("local")
	assert.Error(t, err)
}

func TestBridgeConfigValidate(t *testing.T) {
	cfg := &BridgeConfig{URL: "", QueueCapacity: 256, CallTimeout: time.Minute}
	assert.Error(t, cfg.Validate())

	cfg.URL = "ws://localhost:5000"
	assert.NoError(t, cfg.Validate())

	cfg.QueueCapacity = 0
	assert.Error(t, cfg.Validate())
}

func TestApplyBridgeDefaults(t *testing.T) {
	cfg := &BridgeConfig{}
	applyBridgeDefaults(cfg)
	assert.Equal(t, 30*time.Second, cfg.DialTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CallTimeout)
	assert.Equal(t, 256, cfg.QueueCapacity)
}

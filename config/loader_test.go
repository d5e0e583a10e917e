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
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(LoaderOptions{
		ConfigDir:      ".",
		Environment:    "development",
		SkipValidation: true,
	})

	if err != nil {
		t.Fatalf("Failed to load development config: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "development")
	}

	if cfg.Bridge == nil || cfg.Bridge.QueueCapacity == 0 {
		t.Error("Bridge QueueCapacity should have a default value")
	}
}

func TestLoadForEnvironment(t *testing.T) {
	tests := []string{"development", "staging", "production", "local"}

	for _, env := range tests {
		t.Run(env, func(t *testing.T) {
			cfg, err := Load(LoaderOptions{
				ConfigDir:      ".",
				Environment:    env,
				SkipValidation: true,
			})
			if err != nil {
				t.Fatalf("Failed to load %s config: %v", env, err)
			}

			if cfg.Environment != env {
				t.Errorf("Environment = %q, want %q", cfg.Environment, env)
			}
		})
	}
}

func TestLoadWithEnvOverridesApplied(t *testing.T) {
	os.Setenv("RELAYLINK_BRIDGE_URL", "wss://override-bridge:5000")
	os.Setenv("RELAYLINK_LOG_LEVEL", "debug")
	defer os.Unsetenv("RELAYLINK_BRIDGE_URL")
	defer os.Unsetenv("RELAYLINK_LOG_LEVEL")

	cfg := &Config{
		Environment: "development",
		Bridge:      &BridgeConfig{URL: "ws://localhost:5000"},
		Logging:     &LoggingConfig{Level: "info"},
	}
	setDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if cfg.Bridge.URL != "wss://override-bridge:5000" {
		t.Errorf("Bridge.URL = %q, want %q", cfg.Bridge.URL, "wss://override-bridge:5000")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadWithCustomConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	testConfig := `
environment: test
logging:
  level: info
  format: json
`
	if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(LoaderOptions{
		ConfigDir:      tmpDir,
		Environment:    "test",
		SkipValidation: true,
	})

	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg == nil {
		t.Fatal("Config should not be nil")
	}
	if cfg.Environment != "test" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "test")
	}
}

func TestDefaultLoaderOptions(t *testing.T) {
	opts := DefaultLoaderOptions()

	if opts.ConfigDir != "config" {
		t.Errorf("ConfigDir = %q, want %q", opts.ConfigDir, "config")
	}

	if opts.SkipEnvSubstitution {
		t.Error("SkipEnvSubstitution should be false by default")
	}

	if opts.SkipValidation {
		t.Error("SkipValidation should be false by default")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.Environment != "development" {
		t.Errorf("Default environment = %q, want %q", cfg.Environment, "development")
	}
	if cfg.Bridge.CallTimeout == 0 {
		t.Error("Bridge CallTimeout should have a default value")
	}
}

func TestValidateRejectsUnknownStoreBackend(t *testing.T) {
	cfg := &Config{
		Bridge: &BridgeConfig{URL: "ws://localhost:5000"},
		Store:  &StoreConfig{Backend: "sqlite"},
	}
	setDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Error("validate() should reject an unknown store backend")
	}
}

func TestValidateRejectsPostgresWithoutDSN(t *testing.T) {
	cfg := &Config{
		Bridge: &BridgeConfig{URL: "ws://localhost:5000"},
		Store:  &StoreConfig{Backend: "postgres"},
	}
	setDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Error("validate() should reject a postgres backend with no dsn")
	}
}

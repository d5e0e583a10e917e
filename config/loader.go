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
	"os"
	"path/filepath"
)

// LoaderOptions configures the configuration loader.
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config)
	ConfigDir string
	// Environment overrides automatic environment detection
	Environment string
	// SkipEnvSubstitution disables environment variable substitution
	SkipEnvSubstitution bool
	// SkipValidation disables configuration validation
	SkipValidation bool
}

// DefaultLoaderOptions returns default loader options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigDir:           "config",
		Environment:         "",
		SkipEnvSubstitution: false,
		SkipValidation:      false,
	}
}

// Load loads configuration with automatic environment detection: it
// tries <env>.yaml, then default.yaml, then config.yaml, falling back
// to an empty, defaulted Config if none are found.
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	envConfigPath := filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env))
	cfg, err := loadConfigFile(envConfigPath)
	if err != nil {
		defaultConfigPath := filepath.Join(options.ConfigDir, "default.yaml")
		cfg, err = loadConfigFile(defaultConfigPath)
		if err != nil {
			configPath := filepath.Join(options.ConfigDir, "config.yaml")
			cfg, err = loadConfigFile(configPath)
			if err != nil {
				cfg = &Config{}
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	setDefaults(cfg)

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}

	applyEnvironmentOverrides(cfg)

	if !options.SkipValidation {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadConfigFile loads a single config file.
func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides overrides config with RELAYLINK_* environment
// variables — the highest-priority source, applied after file load and
// ${VAR} substitution.
func applyEnvironmentOverrides(cfg *Config) {
	if url := os.Getenv("RELAYLINK_BRIDGE_URL"); url != "" && cfg.Bridge != nil {
		cfg.Bridge.URL = url
	}
	if timeout := os.Getenv("RELAYLINK_CALL_TIMEOUT"); timeout != "" && cfg.Bridge != nil {
		cfg.Bridge.CallTimeout = getEnvDuration("RELAYLINK_CALL_TIMEOUT", cfg.Bridge.CallTimeout)
	}

	if backend := os.Getenv("RELAYLINK_STORE_BACKEND"); backend != "" && cfg.Store != nil {
		cfg.Store.Backend = backend
	}
	if dsn := os.Getenv("RELAYLINK_STORE_DSN"); dsn != "" && cfg.Store != nil {
		cfg.Store.DSN = dsn
	}

	if logLevel := os.Getenv("RELAYLINK_LOG_LEVEL"); logLevel != "" && cfg.Logging != nil {
		cfg.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("RELAYLINK_LOG_FORMAT"); logFormat != "" && cfg.Logging != nil {
		cfg.Logging.Format = logFormat
	}

	if cfg.Metrics != nil {
		if _, ok := os.LookupEnv("RELAYLINK_METRICS_ENABLED"); ok {
			cfg.Metrics.Enabled = getEnvBool("RELAYLINK_METRICS_ENABLED", cfg.Metrics.Enabled)
		}
	}
}

// validate reports the first configuration problem found, if any.
func validate(cfg *Config) error {
	if cfg.Bridge != nil {
		if err := cfg.Bridge.Validate(); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
	}
	if cfg.Store != nil {
		switch cfg.Store.Backend {
		case "memory", "postgres":
		default:
			return fmt.Errorf("store: unknown backend %q", cfg.Store.Backend)
		}
		if cfg.Store.Backend == "postgres" && cfg.Store.DSN == "" {
			return fmt.Errorf("store: dsn is required for postgres backend")
		}
	}
	if cfg.Logging != nil {
		switch cfg.Logging.Level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging: unknown level %q", cfg.Logging.Level)
		}
	}
	return nil
}

// LoadForEnvironment loads configuration for a specific environment.
func LoadForEnvironment(environment string) (*Config, error) {
	return Load(LoaderOptions{
		ConfigDir:   "config",
		Environment: environment,
	})
}

// MustLoad loads configuration or panics on error.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

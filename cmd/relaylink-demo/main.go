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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaywire/relaylink/config"
	"github.com/relaywire/relaylink/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "relaylink-demo",
	Short: "relaylink demo CLI - drives a sample dApp/wallet session",
	Long: `relaylink-demo exercises the relaylink connector end to end:
handshake, approval, a passthrough RPC call, and key rotation, all over
an in-memory relay so the demo needs no network.

This tool supports:
- demo: run a full dApp/wallet session against an in-memory relay
- uri: format or parse a "wc:" handshake URI`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Logging != nil {
			logger.GetDefaultLogger().SetLevel(parseLevel(cfg.Logging.Level))
		}
		return nil
	},
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	// Note: commands are registered in their respective files:
	// - demo.go: demoCmd
	// - uri.go: uriCmd
}

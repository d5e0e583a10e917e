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

	"github.com/spf13/cobra"

	"github.com/relaywire/relaylink/uri"
)

var (
	uriBridge string
	uriKey    string
	uriTopic  string
)

var uriCmd = &cobra.Command{
	Use:   "uri",
	Short: "Format or parse a \"wc:\" handshake URI",
}

var uriFormatCmd = &cobra.Command{
	Use:   "format",
	Short: "Build a handshake URI from its parts",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(uri.Format(uri.Params{
			HandshakeTopic: uriTopic,
			Bridge:         uriBridge,
			Key:            uriKey,
		}))
		return nil
	},
}

var uriParseCmd = &cobra.Command{
	Use:   "parse [uri]",
	Short: "Parse a handshake URI into its parts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := uri.Parse(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("handshakeTopic: %s\nversion:        %d\nbridge:         %s\nkey:            %s\n",
			params.HandshakeTopic, params.Version, params.Bridge, params.Key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uriCmd)
	uriCmd.AddCommand(uriFormatCmd)
	uriCmd.AddCommand(uriParseCmd)

	uriFormatCmd.Flags().StringVar(&uriTopic, "topic", "", "handshake topic")
	uriFormatCmd.Flags().StringVar(&uriBridge, "bridge", "", "bridge url")
	uriFormatCmd.Flags().StringVar(&uriKey, "key", "", "hex-encoded symmetric key")
}

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
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaywire/relaylink"
	"github.com/relaywire/relaylink/config"
	"github.com/relaywire/relaylink/session"
	"github.com/relaywire/relaylink/transport"
	"github.com/relaywire/relaylink/uri"
)

var demoBridge string

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a full dApp/wallet session over an in-memory relay",
	Example: `  # Run the demo against the "local" bridge preset (config.BridgePresets)
  relaylink-demo demo

  # Run it against a different named preset or literal bridge URL
  relaylink-demo demo --bridge bridge.walletconnect.org`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().StringVar(&demoBridge, "bridge", "local", "bridge preset name or literal URL used in the simulated session")
}

// relayedMock forwards every published frame directly to a peer mock,
// letting two connectors transact without an actual relay server.
type relayedMock struct {
	*transport.Mock
	peer *transport.Mock
}

func (r *relayedMock) Send(f transport.Frame) error {
	if err := r.Mock.Send(f); err != nil {
		return err
	}
	if f.Type == transport.FramePublish {
		r.peer.Deliver(f)
	}
	return nil
}

func newLinkedPair() (*relayedMock, *relayedMock) {
	a := transport.NewMock()
	b := transport.NewMock()
	return &relayedMock{Mock: a, peer: b}, &relayedMock{Mock: b, peer: a}
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bridgeCfg, err := config.LoadBridgeConfig(demoBridge)
	if err != nil {
		return fmt.Errorf("resolve bridge %q: %w", demoBridge, err)
	}

	dappTransport, walletTransport := newLinkedPair()

	fmt.Printf("dApp: creating session against %s...\n", bridgeCfg.URL)
	dapp, err := relaylink.New(ctx, relaylink.Options{
		Bridge:     bridgeCfg.URL,
		Transport:  dappTransport,
		ClientMeta: func() session.Meta { return session.Meta{Name: "relaylink-demo-dapp", URL: "https://dapp.example"} },
	})
	if err != nil {
		return fmt.Errorf("create dapp session: %w", err)
	}
	dapp.Listen(ctx)

	snap := dapp.Snapshot()
	wcURI := uri.Format(uri.Params{
		HandshakeTopic: snap.HandshakeTopic,
		Bridge:         bridgeCfg.URL,
		Key:            snap.Key,
	})
	fmt.Printf("dApp: handshake uri %s\n", wcURI)

	fmt.Println("wallet: joining session...")
	wallet, err := relaylink.New(ctx, relaylink.Options{
		URI:        wcURI,
		Transport:  walletTransport,
		ClientMeta: func() session.Meta { return session.Meta{Name: "relaylink-demo-wallet", URL: "https://wallet.example"} },
	})
	if err != nil {
		return fmt.Errorf("join wallet session: %w", err)
	}
	wallet.Listen(ctx)

	if err := waitFor(ctx, func() bool { return wallet.Snapshot().PeerId != "" }); err != nil {
		return fmt.Errorf("wallet never observed the dApp's session request: %w", err)
	}

	fmt.Println("wallet: approving session...")
	if err := wallet.ApproveSession(ctx, 1, []string{"0xabc0000000000000000000000000000000dead"}); err != nil {
		return fmt.Errorf("approve session: %w", err)
	}

	if err := waitFor(ctx, func() bool { return dapp.State() == session.StateConnected }); err != nil {
		return fmt.Errorf("dApp never saw the approval: %w", err)
	}
	fmt.Printf("dApp: connected, accounts=%v chainId=%d\n", dapp.Snapshot().Accounts, dapp.Snapshot().ChainId)

	wallet.On("eth_sendTransaction", func(payload json.RawMessage) {
		var call session.CallRequest
		if err := json.Unmarshal(payload, &call); err != nil {
			return
		}
		fmt.Printf("wallet: received eth_sendTransaction id=%d\n", call.Id)
		go func() {
			_ = wallet.Reply(call.Id, "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
		}()
	})

	var result string
	if err := dapp.Call(ctx, "eth_sendTransaction", map[string]string{"to": "0x1", "value": "0x0"}, &result); err != nil {
		return fmt.Errorf("eth_sendTransaction call: %w", err)
	}
	fmt.Printf("dApp: eth_sendTransaction result = %s\n", result)

	fmt.Println("dApp: killing session...")
	if err := dapp.KillSession(ctx, nil); err != nil {
		return fmt.Errorf("kill session: %w", err)
	}

	if err := waitFor(ctx, func() bool { return wallet.State() != session.StateConnected }); err != nil {
		return fmt.Errorf("wallet never saw the kill: %w", err)
	}
	fmt.Println("wallet: session terminated")

	return nil
}

func waitFor(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

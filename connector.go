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

package relaylink

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaywire/relaylink/config"
	"github.com/relaywire/relaylink/envelope"
	"github.com/relaywire/relaylink/internal/logger"
	"github.com/relaywire/relaylink/session"
	"github.com/relaywire/relaylink/store"
	"github.com/relaywire/relaylink/transport"
	"github.com/relaywire/relaylink/uri"
)

// Options configures a Connector. Exactly one of Bridge or URI must be
// supplied for a fresh dApp or joining-wallet session; if both are
// empty, a session is picked up implicitly from Store, provided Store
// holds a previously persisted snapshot.
type Options struct {
	// Bridge is a relay URL to start a fresh dApp-role handshake
	// against. Mutually exclusive with URI.
	Bridge string

	// URI is a "wc:" handshake URI to join as the wallet role.
	// Mutually exclusive with Bridge.
	URI string

	// Store persists the session snapshot. Optional; when Bridge and
	// URI are both empty, a snapshot found here is what admits the
	// constructor. Pass store.NewMemory() for process-local-only
	// persistence, or nil to disable persistence entirely.
	Store store.Store

	// Crypto is the AEAD envelope provider. Defaults to
	// envelope.NewChaChaCrypto().
	Crypto envelope.Crypto

	// ClientMeta resolves the local client's metadata once, at
	// construction time. Optional.
	ClientMeta func() session.Meta

	// CallTimeout bounds outbound JSON-RPC calls. Defaults to
	// rpc.DefaultCallTimeout.
	CallTimeout time.Duration

	// Transport overrides the websocket relay transport, primarily for
	// tests. Defaults to a fresh transport.NewRelay() sized by the
	// loaded Config's queue capacity.
	Transport transport.Transport

	// Config overrides the automatically loaded configuration. Leave nil
	// to have New call config.Load(); the resolved Bridge.CallTimeout,
	// Bridge.QueueCapacity, and Store.Backend fill in whatever the rest
	// of Options leaves unset.
	Config *config.Config
}

// Connector is the constructed, ready-to-Listen client connection. It
// embeds *session.Session, so Connector exposes the full session
// surface (On, Off, ApproveSession, Call, and so on) directly.
type Connector struct {
	*session.Session
}

// New builds a Connector per Options, admitting exactly one of
// {Bridge, URI, a session restored from Store}. For Bridge and URI, the
// underlying transport has been opened on success and the Connector is
// ready to have Listen called on it. For a session restored from Store,
// New loads the snapshot and key but does not open the transport.
func New(ctx context.Context, opts Options) (*Connector, error) {
	if opts.Bridge != "" && opts.URI != "" {
		return nil, fmt.Errorf("relaylink: only one of Bridge or URI may be set: %w", ErrMissingInitialization)
	}

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("relaylink: load config: %w", err)
		}
		cfg = loaded
	}

	// Bridge may name a known preset (e.g. "local") instead of a literal
	// URL; resolve it through the same config path an operator's
	// RELAYLINK_BRIDGE_URL override would take.
	bridge := opts.Bridge
	bridgeCfg := cfg.Bridge
	if _, isPreset := config.BridgePresets[strings.ToLower(bridge)]; isPreset {
		resolved, err := config.LoadBridgeConfig(bridge)
		if err != nil {
			return nil, fmt.Errorf("relaylink: resolve bridge preset %q: %w", bridge, err)
		}
		bridge = resolved.URL
		bridgeCfg = resolved
	}

	crypto := opts.Crypto
	if crypto == nil {
		crypto = envelope.NewChaChaCrypto()
	}

	callTimeout := opts.CallTimeout
	if callTimeout == 0 && bridgeCfg != nil {
		callTimeout = bridgeCfg.CallTimeout
	}

	tr := opts.Transport
	if tr == nil {
		capacity := transport.DefaultQueueCapacity
		if bridgeCfg != nil && bridgeCfg.QueueCapacity > 0 {
			capacity = bridgeCfg.QueueCapacity
		}
		tr = transport.NewRelayWithCapacity(capacity)
	}

	st := opts.Store
	if st == nil && cfg.Store != nil {
		built, err := buildStore(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("relaylink: build store: %w", err)
		}
		st = built
	}

	deps := session.Deps{
		Crypto:      crypto,
		Transport:   tr,
		Store:       st,
		ClientMeta:  opts.ClientMeta,
		CallTimeout: callTimeout,
	}
	s := session.New(deps)

	switch {
	case opts.Bridge != "":
		if err := s.CreateSession(ctx, bridge); err != nil {
			return nil, fmt.Errorf("relaylink: create session: %w", err)
		}
	case opts.URI != "":
		params, err := uri.Parse(opts.URI)
		if err != nil {
			return nil, fmt.Errorf("relaylink: %w: %v", ErrInvalidUri, err)
		}
		key, err := hex.DecodeString(params.Key)
		if err != nil {
			return nil, fmt.Errorf("relaylink: %w: decode key: %v", ErrInvalidUri, err)
		}
		if err := s.Join(ctx, params.Bridge, params.HandshakeTopic, key); err != nil {
			return nil, fmt.Errorf("relaylink: join session: %w", err)
		}
	default:
		ok, err := s.Restore(ctx)
		if err != nil {
			return nil, fmt.Errorf("relaylink: restore session: %w", err)
		}
		if !ok {
			return nil, ErrMissingInitialization
		}
		logger.Info("session restored from store", logger.String("clientId", s.ClientId()))
	}

	return &Connector{Session: s}, nil
}

// buildStore constructs a store.Store from a config.StoreConfig,
// connecting a pgxpool when the backend is postgres. The caller owns
// the resulting pool's lifecycle via the returned store, same as
// passing one in through Options.Store directly.
func buildStore(ctx context.Context, sc *config.StoreConfig) (store.Store, error) {
	switch sc.Backend {
	case "", "memory":
		return store.NewMemory(), nil
	case "postgres":
		if sc.DSN == "" {
			return nil, fmt.Errorf("postgres store backend requires a dsn")
		}
		pool, err := pgxpool.New(ctx, sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		return store.NewPostgres(pool), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

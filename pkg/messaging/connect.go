// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/nats-io/nats.go"

	"github.com/luxfi/srup/pkg/config"
	"github.com/luxfi/srup/pkg/logger"
)

const (
	reconnectWait = 2 * time.Second
	retryDelay    = time.Second
)

// Connect dials NATS, retrying the initial connection up to
// cfg.ConnectAttempts times. Once connected the client reconnects forever.
func Connect(ctx context.Context, cfg config.NATSConfig, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1), // retry forever
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("Disconnected from NATS", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed!")
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}

	var nc *nats.Conn
	err := retry.Do(
		func() error {
			var err error
			nc, err = nats.Connect(cfg.URL, opts...)
			return err
		},
		retry.Attempts(attempts),
		retry.Delay(retryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Retrying NATS connection", "attempt", n+1, "url", cfg.URL, "err", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("messaging: connect %s: %w", cfg.URL, err)
	}
	logger.Info("Connected to NATS", "url", nc.ConnectedUrl())
	return nc, nil
}

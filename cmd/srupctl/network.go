package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"github.com/luxfi/srup/pkg/backup"
	"github.com/luxfi/srup/pkg/keys"
	"github.com/luxfi/srup/pkg/logger"
	"github.com/luxfi/srup/pkg/messaging"
	"github.com/luxfi/srup/pkg/replay"
	"github.com/luxfi/srup/pkg/srup"
)

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Publish a serialized message to NATS",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Message file, binary or hex", Required: true},
			&cli.StringFlag{Name: "subject", Usage: "Subject (default nats.subject)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			msg, err := readMessage(c.String("in"))
			if err != nil {
				return err
			}
			if !msg.Signed() {
				return srup.ErrUnsigned
			}
			subject := c.String("subject")
			if subject == "" {
				subject = cfg.NATS.Subject
			}

			nc, err := messaging.Connect(ctx, cfg.NATS, "srupctl-publish")
			if err != nil {
				return err
			}
			defer nc.Close()

			if err := messaging.NewPublisher(messaging.NewNATSPubSub(nc)).Publish(subject, msg); err != nil {
				return err
			}
			if err := nc.FlushTimeout(5 * time.Second); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			logger.Info("Published message", "subject", subject, "message", msg.String())
			return nil
		},
	}
}

func listenCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Receive, verify and replay-check messages from NATS",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Usage: "Subject (default nats.subject)"},
		},
		Action: runListen,
	}
}

func runListen(ctx context.Context, c *cli.Command) error {
	ring, err := keys.LoadKeyring(cfg.Keys.Senders)
	if err != nil {
		return err
	}
	if len(ring.Senders()) == 0 {
		return fmt.Errorf("no trusted senders: configure keys.senders")
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	appCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Backup.Enabled {
		nodeID := cfg.SenderID
		if nodeID == "" {
			nodeID = "node"
		}
		exec, err := backup.NewExecutor(nodeID, store, []byte(cfg.Backup.EncryptionKey), cfg.Backup.Dir)
		if err != nil {
			return err
		}
		period := time.Duration(cfg.Backup.PeriodSeconds) * time.Second
		mgr, err := backup.NewManager(appCtx, exec, period, backup.NewS3Config(cfg.Backup, nodeID))
		if err != nil {
			return err
		}
		mgr.Start(appCtx)
		defer mgr.Stop()
	}

	nc, err := messaging.Connect(appCtx, cfg.NATS, "srupctl-listen")
	if err != nil {
		return err
	}
	defer nc.Close()

	subject := c.String("subject")
	if subject == "" {
		subject = cfg.NATS.Subject
	}
	receiver, err := messaging.NewReceiver(messaging.NewNATSPubSub(nc), messaging.ReceiverConfig{
		Subject:       subject,
		ResultSubject: cfg.NATS.ResultSubject,
		Keys:          ring,
		Guard:         replay.NewGuard(store),
		Handler: func(ctx context.Context, msg *srup.Message) error {
			fmt.Println(msg.String())
			return nil
		},
	})
	if err != nil {
		return err
	}
	if err := receiver.Start(appCtx); err != nil {
		return err
	}

	logger.Info("Listening", "subject", subject, "senders", len(ring.Senders()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	select {
	case <-sigChan:
		logger.Warn("Shutdown signal received, stopping...")
	case <-appCtx.Done():
	}

	if err := receiver.Stop(); err != nil {
		logger.Error("Failed to stop receiver", err)
	}
	if err := nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		logger.Error("Failed to drain NATS connection", err)
	}
	return nil
}

// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/luxfi/srup/pkg/event"
	"github.com/luxfi/srup/pkg/logger"
	"github.com/luxfi/srup/pkg/replay"
	"github.com/luxfi/srup/pkg/srup"
)

// KeyResolver finds the key that verifies a sender's messages.
type KeyResolver interface {
	Verifier(sender uint64) (srup.Verifier, error)
}

// Handler receives messages that passed verification and the replay check.
type Handler func(ctx context.Context, msg *srup.Message) error

// ReceiverConfig wires a Receiver.
type ReceiverConfig struct {
	Subject string
	// ResultSubject receives one VerificationEvent per inbound message.
	// Empty disables result publishing.
	ResultSubject string
	Keys          KeyResolver
	// Guard is optional; nil disables replay protection.
	Guard   *replay.Guard
	Handler Handler
}

// Receiver subscribes to a subject and processes every inbound message.
type Receiver struct {
	ps  PubSub
	cfg ReceiverConfig
	sub Subscription
	log zerolog.Logger
}

func NewReceiver(ps PubSub, cfg ReceiverConfig) (*Receiver, error) {
	if cfg.Subject == "" {
		return nil, errors.New("messaging: receiver subject is required")
	}
	if cfg.Keys == nil {
		return nil, errors.New("messaging: receiver key resolver is required")
	}
	return &Receiver{ps: ps, cfg: cfg, log: logger.NewLogger("receiver")}, nil
}

// Start subscribes. Messages are processed until Stop or ctx is done.
func (r *Receiver) Start(ctx context.Context) error {
	sub, err := r.ps.Subscribe(r.cfg.Subject, func(m *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		r.Process(ctx, m.Subject, m.Data)
	})
	if err != nil {
		return fmt.Errorf("messaging: subscribe %s: %w", r.cfg.Subject, err)
	}
	r.sub = sub
	r.log.Info().Str("subject", r.cfg.Subject).Msg("Receiver started")
	return nil
}

func (r *Receiver) Stop() error {
	if r.sub == nil {
		return nil
	}
	err := r.sub.Unsubscribe()
	r.sub = nil
	return err
}

// Process runs the receive pipeline on one payload and returns the
// resulting event, which is also published when a result subject is set.
func (r *Receiver) Process(ctx context.Context, subject string, data []byte) *event.VerificationEvent {
	correlationID := uuid.NewString()
	ev := r.process(ctx, correlationID, subject, data)

	l := r.log.With().
		Str("correlation_id", correlationID).
		Str("subject", subject).
		Str("sender", ev.SenderID).
		Str("sequence", ev.SequenceID).
		Logger()
	if ev.ResultType == event.ResultTypeSuccess {
		l.Info().Str("type", ev.MessageType).Msg("Accepted message")
	} else {
		l.Warn().Str("code", string(ev.ErrorCode)).Str("reason", ev.ErrorReason).Msg("Rejected message")
	}

	if r.cfg.ResultSubject != "" {
		payload, err := ev.Marshal()
		if err == nil {
			err = r.ps.Publish(r.cfg.ResultSubject, payload)
		}
		if err != nil {
			l.Error().Err(err).Msg("Failed to publish verification event")
		}
	}
	return ev
}

func (r *Receiver) process(ctx context.Context, correlationID, subject string, data []byte) *event.VerificationEvent {
	msg, err := srup.Decode(data)
	if err != nil {
		code := event.ErrorCodeMalformed
		if errors.Is(err, srup.ErrUnknownType) {
			code = event.ErrorCodeUnknownType
		}
		return event.CreateVerificationFailure(correlationID, subject, nil, code, err)
	}

	sender, _ := msg.SenderID()
	key, err := r.cfg.Keys.Verifier(sender)
	if err != nil {
		return event.CreateVerificationFailure(correlationID, subject, msg, event.ErrorCodeUnknownSender, err)
	}
	if !msg.Verify(key) {
		return event.CreateVerificationFailure(correlationID, subject, msg, event.ErrorCodeBadSignature,
			errors.New("signature does not verify"))
	}

	if r.cfg.Guard != nil {
		if err := r.cfg.Guard.AcceptMessage(msg); err != nil {
			code := event.ErrorCodeStore
			if errors.Is(err, replay.ErrReplay) {
				code = event.ErrorCodeReplay
			}
			return event.CreateVerificationFailure(correlationID, subject, msg, code, err)
		}
	}

	if r.cfg.Handler != nil {
		if err := r.cfg.Handler(ctx, msg); err != nil {
			return event.CreateVerificationFailure(correlationID, subject, msg, event.ErrorCodeHandler, err)
		}
	}
	return event.CreateVerificationSuccess(correlationID, subject, msg)
}

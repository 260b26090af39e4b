// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package messaging

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/luxfi/srup/pkg/logger"
	"github.com/luxfi/srup/pkg/srup"
)

// Publisher sends signed messages.
type Publisher struct {
	ps  PubSub
	log zerolog.Logger
}

func NewPublisher(ps PubSub) *Publisher {
	return &Publisher{ps: ps, log: logger.NewLogger("publisher")}
}

// Publish serializes msg and publishes it on subject. msg must be signed.
func (p *Publisher) Publish(subject string, msg *srup.Message) error {
	data, err := msg.Serialize()
	if err != nil {
		return fmt.Errorf("messaging: serialize: %w", err)
	}
	if err := p.ps.Publish(subject, data); err != nil {
		return fmt.Errorf("messaging: publish %s: %w", subject, err)
	}
	p.log.Debug().
		Str("subject", subject).
		Stringer("message", msg).
		Int("bytes", len(data)).
		Msg("Published message")
	return nil
}

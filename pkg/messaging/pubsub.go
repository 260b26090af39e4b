// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package messaging carries serialized SRUP messages over NATS and runs the
// receive pipeline: decode, verify, replay check, hand off.
package messaging

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
)

// Subscription is an active subscription.
type Subscription interface {
	Unsubscribe() error
}

// PubSub is the publish/subscribe surface the package needs from NATS.
type PubSub interface {
	Publish(topic string, message []byte) error
	Subscribe(topic string, handler func(msg *nats.Msg)) (Subscription, error)
}

type natsPubSub struct {
	nc *nats.Conn
}

// NewNATSPubSub adapts a NATS connection to PubSub.
func NewNATSPubSub(nc *nats.Conn) PubSub {
	return &natsPubSub{nc: nc}
}

func (n *natsPubSub) Publish(topic string, message []byte) error {
	return n.nc.Publish(topic, message)
}

func (n *natsPubSub) Subscribe(topic string, handler func(msg *nats.Msg)) (Subscription, error) {
	sub, err := n.nc.Subscribe(topic, handler)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// MemoryPubSub delivers messages synchronously within the process. Topic
// patterns support the NATS '*' and '>' wildcards.
type MemoryPubSub struct {
	mu   sync.RWMutex
	subs []*memorySubscription
}

type memorySubscription struct {
	topic   string
	handler func(msg *nats.Msg)
	closed  atomic.Bool
}

func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{}
}

func (p *MemoryPubSub) Publish(topic string, message []byte) error {
	p.mu.RLock()
	subs := make([]*memorySubscription, 0, len(p.subs))
	for _, s := range p.subs {
		if !s.closed.Load() && subjectMatches(s.topic, topic) {
			subs = append(subs, s)
		}
	}
	p.mu.RUnlock()

	for _, s := range subs {
		data := make([]byte, len(message))
		copy(data, message)
		s.handler(&nats.Msg{Subject: topic, Data: data})
	}
	return nil
}

func (p *MemoryPubSub) Subscribe(topic string, handler func(msg *nats.Msg)) (Subscription, error) {
	sub := &memorySubscription{topic: topic, handler: handler}
	p.mu.Lock()
	p.subs = append(p.subs, sub)
	p.mu.Unlock()
	return sub, nil
}

func (s *memorySubscription) Unsubscribe() error {
	s.closed.Store(true)
	return nil
}

func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, p := range pt {
		if p == ">" {
			return len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}

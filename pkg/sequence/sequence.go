// Package sequence hands out strictly increasing SRUP sequence ids per
// sender and persists the counter so a restart never reuses one.
package sequence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/luxfi/srup/pkg/kvstore"
	"github.com/luxfi/srup/pkg/logger"
)

const keyPrefix = "sequence"

var (
	ErrExhausted     = errors.New("sequence: counter exhausted")
	ErrCorruptRecord = errors.New("sequence: corrupt counter record")
)

// Allocator is safe for concurrent use.
type Allocator struct {
	mu    sync.Mutex
	store kvstore.KVStore
}

func NewAllocator(store kvstore.KVStore) *Allocator {
	return &Allocator{store: store}
}

func counterKey(sender uint64) string {
	return kvstore.PrefixedKey(keyPrefix, fmt.Sprintf("%016x", sender))
}

func (a *Allocator) current(sender uint64) (uint64, bool, error) {
	data, err := a.store.Get(counterKey(sender))
	if errors.Is(err, kvstore.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("%w: %d bytes for sender %#x", ErrCorruptRecord, len(data), sender)
	}
	return binary.BigEndian.Uint64(data), true, nil
}

// Next returns the next sequence id for sender. The first id is 1. The
// counter is stored before the id is returned.
func (a *Allocator) Next(sender uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	last, ok, err := a.current(sender)
	if err != nil {
		return 0, err
	}
	next := uint64(1)
	if ok {
		if last == math.MaxUint64 {
			return 0, ErrExhausted
		}
		next = last + 1
	}
	if err := a.store.Put(counterKey(sender), binary.BigEndian.AppendUint64(nil, next)); err != nil {
		return 0, fmt.Errorf("sequence: store: %w", err)
	}
	logger.Debug("Allocated sequence id", "sender", sender, "sequence", next)
	return next, nil
}

// Peek returns the last allocated id for sender.
func (a *Allocator) Peek(sender uint64) (uint64, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current(sender)
}

// Advance moves the counter forward to at least seq. Lower values are
// ignored.
func (a *Allocator) Advance(sender, seq uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	last, ok, err := a.current(sender)
	if err != nil {
		return err
	}
	if ok && seq <= last {
		return nil
	}
	return a.store.Put(counterKey(sender), binary.BigEndian.AppendUint64(nil, seq))
}

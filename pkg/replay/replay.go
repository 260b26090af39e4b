// Package replay rejects SRUP messages whose sequence id is not newer than
// the last one accepted from the same sender. State survives restarts
// through a kvstore.
package replay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"

	"github.com/luxfi/srup/pkg/kvstore"
	"github.com/luxfi/srup/pkg/logger"
	"github.com/luxfi/srup/pkg/srup"
)

const keyPrefix = "replay"

var (
	ErrReplay        = errors.New("replay: sequence id already seen")
	ErrMissingHeader = errors.New("replay: message has no sender or sequence id")
)

// Record is the persisted high-water mark for one sender.
type Record struct {
	SenderID   uint64 `cbor:"1,keyasint"`
	SequenceID uint64 `cbor:"2,keyasint"`
	AcceptedAt int64  `cbor:"3,keyasint"`
}

// Guard tracks the highest accepted sequence id per sender.
type Guard struct {
	mu    sync.Mutex
	store kvstore.KVStore
	cache map[uint64]Record
	log   zerolog.Logger
	now   func() time.Time
}

func NewGuard(store kvstore.KVStore) *Guard {
	return &Guard{
		store: store,
		cache: make(map[uint64]Record),
		log:   logger.NewLogger("replay"),
		now:   time.Now,
	}
}

func recordKey(sender uint64) string {
	return kvstore.PrefixedKey(keyPrefix, fmt.Sprintf("%016x", sender))
}

// load returns the record for sender. Callers hold g.mu.
func (g *Guard) load(sender uint64) (Record, bool, error) {
	if r, ok := g.cache[sender]; ok {
		return r, true, nil
	}
	data, err := g.store.Get(recordKey(sender))
	if errors.Is(err, kvstore.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("replay: load sender %#x: %w", sender, err)
	}
	var r Record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return Record{}, false, fmt.Errorf("replay: decode sender %#x: %w", sender, err)
	}
	g.cache[sender] = r
	return r, true, nil
}

func (g *Guard) check(sender, seq uint64) error {
	r, ok, err := g.load(sender)
	if err != nil {
		return err
	}
	if ok && seq <= r.SequenceID {
		return fmt.Errorf("%w: sender %#x sequence %#x (last %#x)", ErrReplay, sender, seq, r.SequenceID)
	}
	return nil
}

// Check reports ErrReplay if seq is not newer than the last accepted
// sequence id for sender. It records nothing.
func (g *Guard) Check(sender, seq uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.check(sender, seq)
}

// Accept checks seq and, if it is new, records it as the sender's
// high-water mark.
func (g *Guard) Accept(sender, seq uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.check(sender, seq); err != nil {
		g.log.Warn().Uint64("sender", sender).Uint64("sequence", seq).Msg("Rejected replayed message")
		return err
	}

	r := Record{SenderID: sender, SequenceID: seq, AcceptedAt: g.now().UnixNano()}
	data, err := cbor.Marshal(r)
	if err != nil {
		return fmt.Errorf("replay: encode: %w", err)
	}
	if err := g.store.Put(recordKey(sender), data); err != nil {
		return fmt.Errorf("replay: store sender %#x: %w", sender, err)
	}
	g.cache[sender] = r
	return nil
}

// AcceptMessage runs Accept with the message's sender and sequence ids.
// Call it only after the message has verified.
func (g *Guard) AcceptMessage(m *srup.Message) error {
	sender, ok := m.SenderID()
	if !ok {
		return ErrMissingHeader
	}
	seq, ok := m.SequenceID()
	if !ok {
		return ErrMissingHeader
	}
	return g.Accept(sender, seq)
}

// Last returns the high-water mark for sender, if any.
func (g *Guard) Last(sender uint64) (Record, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.load(sender)
}

// Reset forgets sender, allowing its sequence to restart.
func (g *Guard) Reset(sender uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.cache, sender)
	if err := g.store.Delete(recordKey(sender)); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return err
	}
	g.log.Info().Uint64("sender", sender).Msg("Reset replay state")
	return nil
}

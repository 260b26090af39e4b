package keys

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/luxfi/srup/pkg/config"
	"github.com/luxfi/srup/pkg/srup"
)

var ErrUnknownSender = errors.New("keys: no public key for sender")

// Keyring maps sender ids to the public keys that verify them.
type Keyring struct {
	mu   sync.RWMutex
	keys map[uint64]PublicKey
}

func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[uint64]PublicKey)}
}

// LoadKeyring loads one public key file per sender. Sender ids may be
// decimal or 0x-prefixed hex.
func LoadKeyring(senders map[string]string) (*Keyring, error) {
	ring := NewKeyring()
	for id, path := range senders {
		sender, err := config.ParseID(id)
		if err != nil {
			return nil, fmt.Errorf("keys: sender id %q: %w", id, err)
		}
		pub, err := LoadPublicKey(path)
		if err != nil {
			return nil, err
		}
		ring.Add(sender, pub)
	}
	return ring, nil
}

// Add registers or replaces the key for sender.
func (k *Keyring) Add(sender uint64, pub PublicKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[sender] = pub
}

// PublicKey returns the key registered for sender.
func (k *Keyring) PublicKey(sender uint64) (PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pub, ok := k.keys[sender]
	return pub, ok
}

// Verifier returns the key for sender as a srup.Verifier.
func (k *Keyring) Verifier(sender uint64) (srup.Verifier, error) {
	pub, ok := k.PublicKey(sender)
	if !ok {
		return nil, fmt.Errorf("%w: %#x", ErrUnknownSender, sender)
	}
	return pub, nil
}

// Senders lists the registered sender ids in ascending order.
func (k *Keyring) Senders() []uint64 {
	k.mu.RLock()
	ids := lo.Keys(k.keys)
	k.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

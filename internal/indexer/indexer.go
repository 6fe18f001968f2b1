// Package indexer mints sequential identifiers, optionally wrapping at a modulus.
package indexer

import (
	"fmt"
	"sync"

	"github.com/wagiedev/vim-channel-go/internal/errors"
)

// Indexer yields 0, 1, 2, ... and wraps to 0 after modulus-1 when a modulus
// is set. It is safe for concurrent use, so one Indexer may be shared by
// several senders on the same channel.
type Indexer struct {
	mu      sync.Mutex
	next    uint64
	modulus uint64 // 0 means unbounded
}

// New returns an Indexer that wraps at modulus. A modulus below 2 cannot
// produce a cyclic sequence and is rejected.
func New(modulus uint64) (*Indexer, error) {
	if modulus < 2 {
		return nil, fmt.Errorf("%w: got %d", errors.ErrInvalidModulus, modulus)
	}

	return &Indexer{modulus: modulus}, nil
}

// NewUnbounded returns an Indexer that never wraps.
func NewUnbounded() *Indexer {
	return &Indexer{}
}

// Next returns the current value and advances the counter.
func (i *Indexer) Next() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()

	v := i.next

	i.next++
	if i.modulus != 0 && i.next >= i.modulus {
		i.next = 0
	}

	return v
}

// Modulus returns the configured modulus, or 0 when unbounded.
func (i *Indexer) Modulus() uint64 {
	return i.modulus
}

// Package waiter correlates responses to outstanding requests by id.
//
// A caller reserves an id before sending its request and then waits on the
// returned Pending. The inbound side resolves the id when the response
// arrives. Each Pending settles exactly once: by Resolve, by its timeout, by
// the caller's context, or by Close. Whichever happens first wins and every
// later attempt is a no-op.
package waiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/vim-channel-go/internal/errors"
	"github.com/wagiedev/vim-channel-go/internal/message"
)

// Reservator is a table of pending responses keyed by id.
type Reservator struct {
	log *slog.Logger

	mu      sync.Mutex
	pending map[int64]*Pending
	closed  error
}

// ReserveOption configures a single reservation.
type ReserveOption func(*Pending)

// WithTimeout fails the reservation with ErrRequestTimeout if it is not
// resolved within d. A zero or negative d means no timeout.
func WithTimeout(d time.Duration) ReserveOption {
	return func(p *Pending) {
		p.timeout = d
	}
}

// New creates an empty Reservator.
func New(log *slog.Logger) *Reservator {
	return &Reservator{
		log:     log.With("component", "waiter"),
		pending: make(map[int64]*Pending, 16),
	}
}

// Reserve allocates a pending slot for id.
//
// It fails immediately with ErrDuplicateReservation if id is already pending;
// the existing reservation is left untouched.
func (r *Reservator) Reserve(id int64, opts ...ReserveOption) (*Pending, error) {
	p := &Pending{
		id:    id,
		table: r,
		done:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrWaiterClosed, r.closed)
	}

	if _, exists := r.pending[id]; exists {
		r.log.Warn("Duplicate response reservation", "id", id)

		return nil, fmt.Errorf("%w: %d", errors.ErrDuplicateReservation, id)
	}

	r.pending[id] = p

	if p.timeout > 0 {
		p.timer = time.AfterFunc(p.timeout, func() {
			r.release(p, fmt.Errorf("%w after %s", errors.ErrRequestTimeout, p.timeout))
		})
	}

	r.log.Debug("Reserved response slot", "id", id, "timeout", p.timeout)

	return p, nil
}

// Resolve fulfills the pending slot for id with msg and frees it.
// It reports false, without error, when nobody is waiting for id.
func (r *Reservator) Resolve(id int64, msg message.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.pending[id]
	if !exists {
		return false
	}

	delete(r.pending, id)
	p.settle(msg, nil)

	r.log.Debug("Resolved response slot", "id", id)

	return true
}

// Close fails every pending reservation with reason and rejects new ones
// until Reopen is called.
func (r *Reservator) Close(reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed == nil {
		r.closed = reason
	}

	for id, p := range r.pending {
		delete(r.pending, id)
		p.settle(message.Message{}, reason)
	}
}

// Reopen lets a closed Reservator accept reservations again.
func (r *Reservator) Reopen() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = nil
}

// Len returns the number of pending reservations.
func (r *Reservator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

// release settles p with err if p still owns its slot.
func (r *Reservator) release(p *Pending, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending[p.id] != p {
		return
	}

	delete(r.pending, p.id)
	p.settle(message.Message{}, err)

	r.log.Debug("Released response slot", "id", p.id, "error", err)
}

// Pending is a single reserved response.
type Pending struct {
	id      int64
	table   *Reservator
	timeout time.Duration
	timer   *time.Timer

	// Written once under table.mu before done is closed.
	done chan struct{}
	msg  message.Message
	err  error
}

// ID returns the reserved id.
func (p *Pending) ID() int64 {
	return p.id
}

// Done is closed once the reservation has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the reservation settles and returns its outcome.
//
// If ctx ends first the slot is freed and ctx's error is returned, unless a
// response won the race, in which case the response is returned.
func (p *Pending) Wait(ctx context.Context) (message.Message, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		p.table.release(p, ctx.Err())
		<-p.done
	}

	return p.msg, p.err
}

// Cancel frees the slot without waiting. It is a no-op once settled.
func (p *Pending) Cancel() {
	p.table.release(p, context.Canceled)
}

// settle must be called with table.mu held after the slot was removed.
func (p *Pending) settle(msg message.Message, err error) {
	if p.timer != nil {
		p.timer.Stop()
	}

	p.msg = msg
	p.err = err

	close(p.done)
}

package session

import (
	"context"
	"sync"
)

// queue is the unbounded FIFO between Send and the outbound pipeline.
type queue struct {
	mu     sync.Mutex
	items  [][]byte
	closed bool
	ready  chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

// push appends data and reports false if the queue was closed.
func (q *queue) push(data []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, data)
	q.notify()

	return true
}

// close stops accepting items. Items already queued are still popped.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.notify()
}

// pop returns the oldest item, or false once the queue is closed and empty.
func (q *queue) pop(ctx context.Context) ([]byte, bool, error) {
	for {
		q.mu.Lock()

		if len(q.items) > 0 {
			data := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()

			return data, true, nil
		}

		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false, nil
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, false, context.Cause(ctx)
		}
	}
}

func (q *queue) notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

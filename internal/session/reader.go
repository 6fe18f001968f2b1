package session

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// readDeadliner is implemented by streams whose blocked reads can be
// interrupted, such as net.Conn and *os.File pipes.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type readResult struct {
	data []byte
	err  error
}

// ctxReader makes reads on a plain io.Reader cancelable.
//
// A read that is still blocked when the bound context ends is left running.
// Its result is kept and returned by the first Read of the next binding, so no
// input is lost across session runs. Only one goroutine may call Read.
type ctxReader struct {
	r   io.Reader
	ctx context.Context

	inflight chan readResult
	rest     []byte
	restErr  error

	// Set when a read deadline was forced to interrupt a blocked read.
	interrupted atomic.Bool
	stop        func()
}

func newCtxReader(r io.Reader) *ctxReader {
	return &ctxReader{r: r, ctx: context.Background()}
}

// bind makes subsequent reads return the cause of ctx once it ends.
func (cr *ctxReader) bind(ctx context.Context) {
	cr.ctx = ctx

	// A flag left by an earlier binding only matters for the read it
	// interrupted.
	if cr.inflight == nil {
		cr.interrupted.Store(false)
	}

	if d, ok := cr.r.(readDeadliner); ok {
		_ = d.SetReadDeadline(time.Time{})

		fired := make(chan struct{})
		stop := context.AfterFunc(ctx, func() {
			defer close(fired)

			cr.interrupted.Store(true)
			_ = d.SetReadDeadline(time.Now())
		})

		cr.stop = func() {
			if !stop() {
				<-fired
			}
		}
	}
}

// unbind detaches the context. It returns only after any pending deadline
// change has been applied, so the next bind can clear it.
func (cr *ctxReader) unbind() {
	if cr.stop != nil {
		cr.stop()
		cr.stop = nil
	}

	cr.ctx = context.Background()
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if len(cr.rest) > 0 || cr.restErr != nil {
		return cr.drain(p)
	}

	for {
		if cr.inflight == nil {
			cr.inflight = cr.start(len(p))
		}

		select {
		case res := <-cr.inflight:
			cr.inflight = nil

			if stderrors.Is(res.err, os.ErrDeadlineExceeded) && cr.interrupted.Swap(false) {
				res.err = nil

				if len(res.data) == 0 {
					if cr.ctx.Err() != nil {
						return 0, context.Cause(cr.ctx)
					}

					continue
				}
			}

			cr.rest, cr.restErr = res.data, res.err

			return cr.drain(p)

		case <-cr.ctx.Done():
			return 0, context.Cause(cr.ctx)
		}
	}
}

func (cr *ctxReader) start(size int) chan readResult {
	ch := make(chan readResult, 1)

	go func() {
		buf := make([]byte, size)
		n, err := cr.r.Read(buf)
		ch <- readResult{data: buf[:n], err: err}
	}()

	return ch
}

func (cr *ctxReader) drain(p []byte) (int, error) {
	n := copy(p, cr.rest)
	cr.rest = cr.rest[n:]

	if len(cr.rest) > 0 {
		return n, nil
	}

	err := cr.restErr
	cr.restErr = nil

	return n, err
}

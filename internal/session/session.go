// Package session runs a duplex JSON channel over one byte stream.
//
// A Session owns a reader and a writer. While running it decodes inbound
// values, resolves responses to outstanding requests and hands everything
// else to the configured handlers. Outbound values are written in the order
// they were sent. A Session may be started again once it is idle.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/vim-channel-go/internal/config"
	"github.com/wagiedev/vim-channel-go/internal/errors"
	"github.com/wagiedev/vim-channel-go/internal/indexer"
	"github.com/wagiedev/vim-channel-go/internal/jsonstream"
	"github.com/wagiedev/vim-channel-go/internal/message"
	"github.com/wagiedev/vim-channel-go/internal/waiter"
)

// State is the lifecycle state of a Session.
type State int

const (
	// StateIdle means no run is active and the stream is not in use.
	StateIdle State = iota
	// StateRunning means both pipelines are active.
	StateRunning
	// StateDraining means the peer closed its side and queued output is
	// still being written.
	StateDraining
	// StateStopping means the owner asked the run to stop.
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Compile-time check that Session can be handed to handlers.
var _ config.Peer = (*Session)(nil)

// Session is a restartable duplex channel.
type Session struct {
	log     *slog.Logger
	opts    *config.Options
	reader  *ctxReader
	w       io.Writer
	waiter  *waiter.Reservator
	indexer *indexer.Indexer

	// dec is only touched by the inbound pipeline and by Start while idle.
	dec *jsonstream.Decoder

	// writeMu is held for the whole of each Write, including writes
	// abandoned by a forced shutdown.
	writeMu sync.Mutex

	mu     sync.Mutex
	state  State
	run    *run
	closed bool
}

// run is one Start-to-idle cycle.
type run struct {
	id  ulid.ULID
	log *slog.Logger

	queue     *queue
	inCancel  context.CancelCauseFunc
	outCancel context.CancelCauseFunc
	stopExt   func() bool

	done chan struct{}
	err  error
}

// New creates an idle Session over r and w. It fails only if opts asks for
// an invalid indexer modulus.
func New(r io.Reader, w io.Writer, opts *config.Options) (*Session, error) {
	if opts == nil {
		opts = config.Default()
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	log = log.With("component", "session")

	idx, err := opts.NewIndexer()
	if err != nil {
		return nil, fmt.Errorf("create indexer: %w", err)
	}

	return &Session{
		log:     log,
		opts:    opts,
		reader:  newCtxReader(r),
		w:       w,
		waiter:  waiter.New(log),
		indexer: idx,
	}, nil
}

// Indexer returns the allocator for correlation ids of this session.
func (s *Session) Indexer() *indexer.Indexer {
	return s.indexer
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Running reports whether Send and Recv are currently accepted.
func (s *Session) Running() bool {
	return s.State() == StateRunning
}

// Closed reports whether the owner shut the session down. It is reset by the
// next Start.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Start launches the inbound and outbound pipelines.
//
// The run lives until the peer closes its side, a pipeline fails, or the
// owner shuts it down. If ctx ends first the run is force shut down.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return errors.ErrAlreadyRunning
	}

	id := ulid.Make()
	r := &run{
		id:    id,
		log:   s.log.With("run_id", id.String()),
		queue: newQueue(),
		done:  make(chan struct{}),
	}

	// Background so the pipelines outlive a short-lived ctx; ctx is tied in
	// through AfterFunc below.
	eg, egCtx := errgroup.WithContext(context.Background())

	inCtx, inCancel := context.WithCancelCause(egCtx)
	outCtx, outCancel := context.WithCancelCause(egCtx)

	r.inCancel = inCancel
	r.outCancel = outCancel

	if s.dec == nil {
		s.dec = jsonstream.NewDecoder(s.reader)
	} else {
		s.dec = s.dec.Resume(s.reader)
	}

	s.waiter.Reopen()
	s.state = StateRunning
	s.run = r
	s.closed = false

	eg.Go(func() error {
		return s.inbound(inCtx, r)
	})

	eg.Go(func() error {
		return s.outbound(outCtx, r)
	})

	r.stopExt = context.AfterFunc(ctx, func() {
		r.log.Debug("Context ended, forcing shutdown")
		s.stop(r, true)
	})

	go s.finish(r, eg)

	r.log.Info("Session started")

	return nil
}

// finish waits for both pipelines and returns the session to idle.
func (s *Session) finish(r *run, eg *errgroup.Group) {
	err := eg.Wait()

	r.stopExt()
	r.inCancel(nil)
	r.outCancel(nil)

	s.mu.Lock()
	r.err = err
	s.run = nil
	s.state = StateIdle
	s.mu.Unlock()

	if err != nil {
		r.log.Error("Session stopped with error", "error", err)
	} else {
		r.log.Info("Session stopped")
	}

	close(r.done)
}

// Send enqueues v for outbound delivery. Values are written in the order
// Send was called. v is encoded before Send returns.
func (s *Session) Send(v any) error {
	data, err := jsonstream.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode outbound value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return errors.ErrNotRunning
	}

	if !s.run.queue.push(data) {
		return errors.ErrNotRunning
	}

	s.run.log.Debug("Queued outbound value", "bytes", len(data))

	return nil
}

// Recv reserves id and returns the pending response. The reservation fails
// with ErrDuplicateReservation if id is already pending.
func (s *Session) Recv(id int64, opts ...waiter.ReserveOption) (*waiter.Pending, error) {
	s.mu.Lock()
	running := s.state == StateRunning
	s.mu.Unlock()

	if !running {
		return nil, errors.ErrNotRunning
	}

	return s.waiter.Reserve(id, opts...)
}

// Done returns a channel closed when the current run ends. It is already
// closed when the session is idle.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run == nil {
		done := make(chan struct{})
		close(done)

		return done
	}

	return s.run.done
}

// Wait blocks until the current run has returned to idle and reports why it
// ended. A deliberate shutdown is reported as nil.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	r := s.run
	s.mu.Unlock()

	if r == nil {
		return errors.ErrNotRunning
	}

	return r.wait(ctx)
}

// Shutdown stops reading, lets queued output drain, and waits for the run to
// end.
func (s *Session) Shutdown(ctx context.Context) error {
	return s.shutdown(ctx, false)
}

// ForceShutdown stops both pipelines without flushing queued output and
// waits for the run to end. A write already in progress is abandoned; it
// keeps the stream locked until it returns, so later writes never interleave
// with it.
func (s *Session) ForceShutdown(ctx context.Context) error {
	return s.shutdown(ctx, true)
}

func (s *Session) shutdown(ctx context.Context, force bool) error {
	s.mu.Lock()
	r := s.run

	// A draining run may still be forced; anything else already stopping is
	// a state error.
	if r == nil || (s.state != StateRunning && !(force && s.state == StateDraining)) {
		s.mu.Unlock()

		return errors.ErrNotRunning
	}

	s.stopLocked(r, force)
	s.mu.Unlock()

	r.log.Info("Shutting down", "force", force)

	return r.wait(ctx)
}

func (s *Session) stop(r *run, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != r {
		return
	}

	s.stopLocked(r, force)
}

func (s *Session) stopLocked(r *run, force bool) {
	s.state = StateStopping
	s.closed = true

	r.queue.close()
	r.inCancel(errors.ErrShutdown)

	if force {
		r.outCancel(errors.ErrShutdown)
	}
}

func (r *run) wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// inbound decodes values until the peer closes its side or ctx ends.
func (s *Session) inbound(ctx context.Context, r *run) (err error) {
	log := r.log.With("pipeline", "inbound")

	s.reader.bind(ctx)

	defer func() {
		s.reader.unbind()
		s.endInbound(r, err)
		log.Debug("Inbound pipeline stopped", "error", err)
	}()

	for {
		v, decErr := s.dec.Decode()
		if decErr == io.EOF {
			log.Debug("Peer closed the stream")

			return nil
		}

		if decErr != nil {
			if ctx.Err() != nil {
				return ignoreShutdown(context.Cause(ctx))
			}

			if _, ok := stderrors.AsType[*errors.DecodeError](decErr); ok {
				// Buffered input is garbage; the next run starts clean.
				s.dec = nil

				log.Error("Failed to decode inbound value", "error", decErr)

				return decErr
			}

			log.Error("Failed to read inbound stream", "error", decErr)

			return fmt.Errorf("read inbound stream: %w", decErr)
		}

		s.dispatch(ctx, log, v)
	}
}

// endInbound closes the response table and lets the outbound side drain.
func (s *Session) endInbound(r *run, err error) {
	reason := errors.ErrSessionClosed
	if err != nil && !stderrors.Is(err, errors.ErrShutdown) {
		reason = fmt.Errorf("%w: %w", errors.ErrSessionClosed, err)
	}

	s.waiter.Close(reason)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run == r && s.state == StateRunning {
		s.state = StateDraining
	}

	r.queue.close()
}

// handlerKey marks contexts passed to message handlers. The value is the
// dispatching session.
type handlerKey struct{}

// InHandler reports whether ctx was derived from a handler call made by s's
// inbound pipeline. A request waited on under such a context cannot be
// answered: the reply is only read after the handler returns.
func (s *Session) InHandler(ctx context.Context) bool {
	owner, _ := ctx.Value(handlerKey{}).(*Session)

	return owner == s
}

func (s *Session) dispatch(ctx context.Context, log *slog.Logger, v any) {
	ctx = context.WithValue(ctx, handlerKey{}, s)

	msg, ok := message.Parse(v)
	if !ok {
		log.Warn("Received invalid message", "value", v)

		if h := s.opts.OnInvalidMessage; h != nil {
			h(ctx, s, v)
		}

		return
	}

	if msg.IsResponse() {
		if !s.waiter.Resolve(msg.ID, msg) {
			log.Debug("Dropped response without waiter", "id", msg.ID)
		}

		return
	}

	log.Debug("Received message", "id", msg.ID)

	if h := s.opts.OnMessage; h != nil {
		h(ctx, s, msg)
	}
}

// outbound writes queued values in order until the queue is closed and
// empty, or ctx ends.
func (s *Session) outbound(ctx context.Context, r *run) error {
	log := r.log.With("pipeline", "outbound")
	defer log.Debug("Outbound pipeline stopped")

	for {
		data, ok, err := r.queue.pop(ctx)
		if err != nil {
			return ignoreShutdown(err)
		}

		if !ok {
			return nil
		}

		if err := s.write(ctx, data); err != nil {
			if ctx.Err() != nil {
				log.Debug("Abandoned outbound write", "bytes", len(data))

				return ignoreShutdown(err)
			}

			log.Error("Failed to write outbound value", "error", err)

			return err
		}

		log.Debug("Wrote outbound value", "bytes", len(data))
	}
}

// write performs one Write in a goroutine so ctx can abandon it.
func (s *Session) write(ctx context.Context, data []byte) error {
	done := make(chan error, 1)

	go func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		_, err := s.w.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write outbound stream: %w", err)
		}

		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// ignoreShutdown turns the deliberate shutdown cause into a normal return so
// the errgroup does not cancel the other pipeline.
func ignoreShutdown(err error) error {
	if stderrors.Is(err, errors.ErrShutdown) {
		return nil
	}

	return err
}

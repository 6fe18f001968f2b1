package vimchannel

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/wagiedev/vim-channel-go/internal/command"
	"github.com/wagiedev/vim-channel-go/internal/config"
	"github.com/wagiedev/vim-channel-go/internal/errors"
	"github.com/wagiedev/vim-channel-go/internal/session"
	"github.com/wagiedev/vim-channel-go/internal/waiter"
)

// closeTimeout bounds how long Close waits for an active run to end.
const closeTimeout = 5 * time.Second

// clientImpl adds the command helpers on top of a session.
type clientImpl struct {
	log     *slog.Logger
	options *config.Options
	session *session.Session
}

// Compile-time check that *clientImpl implements the Client interface.
var _ Client = (*clientImpl)(nil)

func newClientImpl(r io.Reader, w io.Writer, options *config.Options) (*clientImpl, error) {
	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	s, err := session.New(r, w, options)
	if err != nil {
		return nil, err
	}

	return &clientImpl{
		log:     log.With("component", "client"),
		options: options,
		session: s,
	}, nil
}

func (c *clientImpl) Start(ctx context.Context) error {
	return c.session.Start(ctx)
}

func (c *clientImpl) Wait(ctx context.Context) error {
	return c.session.Wait(ctx)
}

func (c *clientImpl) Shutdown(ctx context.Context) error {
	return c.session.Shutdown(ctx)
}

func (c *clientImpl) ForceShutdown(ctx context.Context) error {
	return c.session.ForceShutdown(ctx)
}

func (c *clientImpl) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	err := c.session.ForceShutdown(ctx)
	if stderrors.Is(err, errors.ErrNotRunning) {
		// Idle, or another shutdown is already in progress.
		select {
		case <-c.session.Done():
			return nil
		case <-ctx.Done():
			return fmt.Errorf("close: %w", ctx.Err())
		}
	}

	return err
}

func (c *clientImpl) Send(v any) error {
	return c.session.Send(v)
}

func (c *clientImpl) Recv(id int64, opts ...ReserveOption) (*Pending, error) {
	return c.session.Recv(id, opts...)
}

func (c *clientImpl) State() State {
	return c.session.State()
}

func (c *clientImpl) Running() bool {
	return c.session.Running()
}

func (c *clientImpl) Closed() bool {
	return c.session.Closed()
}

func (c *clientImpl) Done() <-chan struct{} {
	return c.session.Done()
}

func (c *clientImpl) Redraw(ctx context.Context, force bool) error {
	return c.notify(ctx, command.Redraw(force))
}

func (c *clientImpl) Ex(ctx context.Context, cmd string) error {
	return c.notify(ctx, command.Ex(cmd))
}

func (c *clientImpl) Normal(ctx context.Context, keys string) error {
	return c.notify(ctx, command.Normal(keys))
}

func (c *clientImpl) Reply(ctx context.Context, id int64, payload any) error {
	if id < 0 {
		return fmt.Errorf("%w: reply id must not be negative, got %d", errors.ErrInvalidID, id)
	}

	return c.notify(ctx, command.Reply(id, payload))
}

func (c *clientImpl) Expr(ctx context.Context, expr string) (any, error) {
	return c.request(ctx, func(id int64) (command.Command, error) {
		return command.Expr(expr, id)
	})
}

func (c *clientImpl) Call(ctx context.Context, fn string, args ...any) (any, error) {
	return c.request(ctx, func(id int64) (command.Command, error) {
		return command.Call(fn, args, id)
	})
}

// notify sends a fire-and-forget value.
func (c *clientImpl) notify(ctx context.Context, v any) error {
	if err := c.check(ctx); err != nil {
		return err
	}

	return c.session.Send(v)
}

// request reserves a fresh id, sends the command built for it and waits for
// the reply.
func (c *clientImpl) request(
	ctx context.Context,
	build func(id int64) (command.Command, error),
) (any, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	if c.session.InHandler(ctx) {
		return nil, errors.ErrRequestInHandler
	}

	id := c.nextID()

	cmd, err := build(id)
	if err != nil {
		return nil, err
	}

	var opts []waiter.ReserveOption
	if timeout := c.options.GetRequestTimeout(); timeout > 0 {
		opts = append(opts, waiter.WithTimeout(timeout))
	}

	pending, err := c.session.Recv(id, opts...)
	if err != nil {
		return nil, c.closedOr(err)
	}

	if err := c.session.Send(cmd); err != nil {
		pending.Cancel()

		return nil, c.closedOr(err)
	}

	c.log.Debug("Sent request", "command", cmd.Name(), "id", id)

	msg, err := pending.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s request %d: %w", cmd.Name(), id, err)
	}

	return msg.Payload, nil
}

// nextID maps the next index to a strictly negative id: 0 -> -1, 1 -> -2.
func (c *clientImpl) nextID() int64 {
	return -int64(c.session.Indexer().Next()&math.MaxInt64) - 1
}

func (c *clientImpl) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.session.Closed() {
		return errors.ErrSessionClosed
	}

	return nil
}

// closedOr reports ErrSessionClosed for a state error caused by the owner
// shutting the client down.
func (c *clientImpl) closedOr(err error) error {
	if stderrors.Is(err, errors.ErrInvalidState) && c.session.Closed() {
		return errors.ErrSessionClosed
	}

	return err
}

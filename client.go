package vimchannel

import (
	"context"
	"io"
)

// Client is a duplex JSON channel to one peer, with helpers for the Vim
// channel command set.
//
// A Client is restartable: after a run ends (peer EOF, error, or shutdown)
// Start may be called again on the same stream.
//
// Example usage:
//
//	client, err := vimchannel.New(conn, conn, vimchannel.WithLogger(slog.Default()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	lines, err := client.Expr(ctx, "line('$')")
//	if err != nil {
//	    log.Fatal(err)
//	}
type Client interface {
	// Start launches the inbound and outbound pipelines.
	// Returns ErrAlreadyRunning unless the client is idle. If ctx ends
	// while the run is active the run is force shut down.
	Start(ctx context.Context) error

	// Wait blocks until the current run ends and returns its error.
	// Deliberate shutdowns report nil.
	Wait(ctx context.Context) error

	// Shutdown stops reading, flushes queued output and waits for the run to
	// end.
	Shutdown(ctx context.Context) error

	// ForceShutdown stops the run without flushing queued output.
	ForceShutdown(ctx context.Context) error

	// Close force shuts down any active run. Safe to call multiple times.
	Close() error

	// Send enqueues a command or message. Values are written in call order.
	Send(v any) error

	// Recv reserves a response slot for id. Send the request after Recv so
	// the response cannot arrive unobserved.
	Recv(id int64, opts ...ReserveOption) (*Pending, error)

	// State returns the lifecycle state.
	State() State

	// Running reports whether Send and Recv are accepted.
	Running() bool

	// Closed reports whether the owner shut the client down.
	Closed() bool

	// Done is closed when the current run ends.
	Done() <-chan struct{}

	// Redraw sends ["redraw", ""] or ["redraw", "force"].
	Redraw(ctx context.Context, force bool) error

	// Ex sends ["ex", command].
	Ex(ctx context.Context, command string) error

	// Normal sends ["normal", keys].
	Normal(ctx context.Context, keys string) error

	// Expr evaluates expr in the peer and returns the result.
	Expr(ctx context.Context, expr string) (any, error)

	// Call calls fn with args in the peer and returns the result.
	Call(ctx context.Context, fn string, args ...any) (any, error)

	// Reply answers a request the peer sent with a non-negative id.
	Reply(ctx context.Context, id int64, payload any) error
}

// New creates an idle Client over r and w. Call Start to begin.
//
// It fails only if the options ask for an invalid id modulus.
func New(r io.Reader, w io.Writer, opts ...Option) (Client, error) {
	return newClientImpl(r, w, applyOptions(opts))
}

package vimchannel

import (
	"context"
	"fmt"
	"io"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client over r and w, starts it, executes the callback
// function, and force shuts the client down via Close() on every exit path.
//
// If Close() fails, a warning is logged but does not override the callback's
// error.
//
// Example usage:
//
//	err := vimchannel.WithClient(ctx, conn, conn, func(c vimchannel.Client) error {
//	    if err := c.Ex(ctx, "echo 'hello'"); err != nil {
//	        return err
//	    }
//	    name, err := c.Call(ctx, "bufname", "%")
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(name)
//	    return nil
//	},
//	    vimchannel.WithLogger(log),
//	    vimchannel.WithRequestTimeout(5*time.Second),
//	)
func WithClient(
	ctx context.Context,
	r io.Reader,
	w io.Writer,
	fn func(Client) error,
	opts ...Option,
) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client, err := newClientImpl(r, w, options)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close client", "error", closeErr)
		}
	}()

	return fn(client)
}

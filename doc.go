// Package vimchannel talks to a Vim channel in JSON mode.
//
// A channel is one duplex byte stream carrying JSON values back to back with
// no separator. Both sides send messages of the form [id, payload]. Requests
// made from this side use strictly negative ids and the peer answers with the
// same id; non-negative ids are requests or notifications from the peer.
// Commands are tagged tuples:
//
//	["redraw", "" | "force"]
//	["ex", command]
//	["normal", keys]
//	["expr", expr, id?]
//	["call", fn, args, id?]
//
// # Basic Usage
//
// Vim connects with ch_open("localhost:8765", {"mode": "json"}). Accept the
// connection and drive it with a Client:
//
//	conn, err := ln.Accept()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = vimchannel.WithClient(ctx, conn, conn, func(c vimchannel.Client) error {
//	    if err := c.Ex(ctx, "echo 'connected'"); err != nil {
//	        return err
//	    }
//	    last, err := c.Expr(ctx, "line('$')")
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println("buffer has", last, "lines")
//	    return nil
//	})
//
// # Lifecycle
//
// Start launches an inbound and an outbound pipeline. Shutdown stops reading
// and lets queued output drain; ForceShutdown drops queued output. Wait
// reports why a run ended: nil after a shutdown or peer EOF, a *DecodeError
// for malformed input. A Client may be started again once idle.
//
// # Handlers
//
// Unsolicited messages from the peer go to the handler set with
// WithMessageHandler; anything that is not a message goes to
// WithInvalidMessageHandler. Both run one at a time in arrival order.
//
// # Logging
//
// For detailed operation tracking, use WithLogger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	client, err := vimchannel.New(conn, conn, vimchannel.WithLogger(logger))
//
// # Error Handling
//
// State errors wrap ErrInvalidState. Helpers used after Shutdown return
// ErrSessionClosed:
//
//	if _, err := client.Expr(ctx, "1"); err != nil {
//	    if errors.Is(err, vimchannel.ErrSessionClosed) {
//	        return nil
//	    }
//	    if decodeErr, ok := errors.AsType[*vimchannel.DecodeError](err); ok {
//	        log.Fatalf("bad input at byte %d", decodeErr.Offset)
//	    }
//	    log.Fatal(err)
//	}
package vimchannel

package vimchannel

import (
	"log/slog"
	"time"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMessageHandler sets the handler for unsolicited inbound messages.
//
// The handler runs on the inbound goroutine, so inbound processing waits for
// it. Reply through the Peer it receives:
//
//	vimchannel.WithMessageHandler(func(ctx context.Context, peer vimchannel.Peer, msg vimchannel.Message) {
//	    _ = peer.Send(vimchannel.NewReply(msg.ID, "pong"))
//	})
//
// Replies to Expr and Call are read by the same goroutine, so a request made
// with the handler's ctx fails with ErrRequestInHandler. Make requests from a
// new goroutine with a context of its own:
//
//	func(_ context.Context, peer vimchannel.Peer, msg vimchannel.Message) {
//	    go func() {
//	        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	        defer cancel()
//
//	        name, err := client.Call(ctx, "bufname", "%")
//	        if err != nil {
//	            return
//	        }
//	        _ = peer.Send(vimchannel.NewReply(msg.ID, name))
//	    }()
//	}
func WithMessageHandler(h MessageHandler) Option {
	return func(o *Options) {
		o.OnMessage = h
	}
}

// WithInvalidMessageHandler sets the handler for inbound values that are not
// [id, payload] messages.
func WithInvalidMessageHandler(h InvalidMessageHandler) Option {
	return func(o *Options) {
		o.OnInvalidMessage = h
	}
}

// WithRequestTimeout bounds how long Expr and Call wait for a reply.
// If not set, the VIMCHANNEL_REQUEST_TIMEOUT env var (seconds) applies, and
// otherwise there is no timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = timeout
	}
}

// WithIndexer shares one id allocator between cooperating clients.
func WithIndexer(idx *Indexer) Option {
	return func(o *Options) {
		o.Indexer = idx
	}
}

// WithModulus makes the client's own id allocator wrap at modulus.
// A modulus below 2 makes New fail.
func WithModulus(modulus uint64) Option {
	return func(o *Options) {
		o.Modulus = modulus
	}
}

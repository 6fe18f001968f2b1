package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/wagiedev/vim-channel-go/internal/indexer"
	"github.com/wagiedev/vim-channel-go/internal/message"
)

// RequestTimeoutEnv overrides the default request timeout, in whole seconds.
const RequestTimeoutEnv = "VIMCHANNEL_REQUEST_TIMEOUT"

// Peer is the part of a running session handed to inbound handlers.
type Peer interface {
	// Send enqueues one value for outbound delivery.
	Send(v any) error
}

// MessageHandler is called for every unsolicited, well-formed inbound message,
// one at a time and in arrival order.
type MessageHandler func(ctx context.Context, peer Peer, msg message.Message)

// InvalidMessageHandler is called for inbound JSON values that are not
// messages.
type InvalidMessageHandler func(ctx context.Context, peer Peer, v any)

// Options configures a channel session.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// OnMessage receives unsolicited inbound messages. Optional.
	OnMessage MessageHandler

	// OnInvalidMessage receives inbound values that fail the message shape
	// check. Optional.
	OnInvalidMessage InvalidMessageHandler

	// RequestTimeout bounds how long request helpers wait for a reply.
	// Zero means no timeout unless RequestTimeoutEnv is set.
	RequestTimeout time.Duration

	// Indexer mints correlation ids. Set it to share one allocator between
	// cooperating senders. If nil, each session gets its own.
	Indexer *indexer.Indexer

	// Modulus bounds a session-owned Indexer. Zero means unbounded.
	// Ignored when Indexer is set.
	Modulus uint64
}

// Default returns Options with every field at its zero default.
func Default() *Options {
	return &Options{}
}

// GetRequestTimeout returns the request timeout from options, env var, or
// zero.
func (o *Options) GetRequestTimeout() time.Duration {
	if o != nil && o.RequestTimeout > 0 {
		return o.RequestTimeout
	}

	if timeoutStr := os.Getenv(RequestTimeoutEnv); timeoutStr != "" {
		if timeoutSec, err := strconv.Atoi(timeoutStr); err == nil && timeoutSec > 0 {
			return time.Duration(timeoutSec) * time.Second
		}
	}

	return 0
}

// NewIndexer returns the shared Indexer if one was given, otherwise a fresh
// one bounded by Modulus.
func (o *Options) NewIndexer() (*indexer.Indexer, error) {
	if o != nil && o.Indexer != nil {
		return o.Indexer, nil
	}

	if o == nil || o.Modulus == 0 {
		return indexer.NewUnbounded(), nil
	}

	return indexer.New(o.Modulus)
}

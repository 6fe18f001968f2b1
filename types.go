package vimchannel

import (
	"time"

	"github.com/wagiedev/vim-channel-go/internal/command"
	"github.com/wagiedev/vim-channel-go/internal/config"
	"github.com/wagiedev/vim-channel-go/internal/indexer"
	"github.com/wagiedev/vim-channel-go/internal/message"
	"github.com/wagiedev/vim-channel-go/internal/session"
	"github.com/wagiedev/vim-channel-go/internal/waiter"
)

// Re-export types from internal packages

// ===== Options and Configuration =====

// Options configures a Client.
type Options = config.Options

// Peer is the send capability handed to inbound handlers.
type Peer = config.Peer

// MessageHandler receives unsolicited inbound messages.
type MessageHandler = config.MessageHandler

// InvalidMessageHandler receives inbound values that are not messages.
type InvalidMessageHandler = config.InvalidMessageHandler

// ===== Identifiers =====

// Indexer mints sequential ids, optionally wrapping at a modulus.
type Indexer = indexer.Indexer

// NewIndexer returns an Indexer that wraps at modulus. A modulus below 2
// fails with ErrInvalidModulus.
func NewIndexer(modulus uint64) (*Indexer, error) {
	return indexer.New(modulus)
}

// NewUnboundedIndexer returns an Indexer that never wraps.
func NewUnboundedIndexer() *Indexer {
	return indexer.NewUnbounded()
}

// ===== Session =====

// State is the lifecycle state of a Client.
type State = session.State

const (
	// StateIdle means no run is active.
	StateIdle = session.StateIdle
	// StateRunning means Send and Recv are accepted.
	StateRunning = session.StateRunning
	// StateDraining means the peer closed its side and output is flushing.
	StateDraining = session.StateDraining
	// StateStopping means the owner asked the run to stop.
	StateStopping = session.StateStopping
)

// Pending is a reserved response.
type Pending = waiter.Pending

// ReserveOption configures a single Recv.
type ReserveOption = waiter.ReserveOption

// WithResponseTimeout fails a Recv with ErrRequestTimeout after d.
func WithResponseTimeout(d time.Duration) ReserveOption {
	return waiter.WithTimeout(d)
}

// ===== Wire values =====

// Message is the [id, payload] pair.
type Message = message.Message

// NewMessage builds a Message.
func NewMessage(id int64, payload any) Message {
	return message.New(id, payload)
}

// NewReply builds the answer to a request the peer sent with id.
func NewReply(id int64, payload any) Message {
	return command.Reply(id, payload)
}

// ParseMessage reports whether a decoded value has the [id, payload] shape.
func ParseMessage(v any) (Message, bool) {
	return message.Parse(v)
}

// Command is a tagged tuple such as ["ex", "echo 1"].
type Command = command.Command

// Command validators over decoded values.
var (
	IsRedraw  = command.IsRedraw
	IsEx      = command.IsEx
	IsNormal  = command.IsNormal
	IsExpr    = command.IsExpr
	IsCall    = command.IsCall
	IsCommand = command.IsCommand
)

package vimchannel

import "github.com/wagiedev/vim-channel-go/internal/errors"

// Re-export error types from internal package

// DecodeError indicates the inbound stream is not valid JSON.
type DecodeError = errors.DecodeError

// ProtocolError indicates a value could not be turned into a wire command.
type ProtocolError = errors.ProtocolError

// ChannelError is the base interface for all typed channel errors.
type ChannelError = errors.ChannelError

// Re-export sentinel errors from internal package.
var (
	// ErrInvalidState is the parent of ErrNotRunning and ErrAlreadyRunning.
	ErrInvalidState = errors.ErrInvalidState

	// ErrNotRunning indicates the client is not running.
	ErrNotRunning = errors.ErrNotRunning

	// ErrAlreadyRunning indicates Start was called on an active client.
	ErrAlreadyRunning = errors.ErrAlreadyRunning

	// ErrSessionClosed indicates a helper was used after the owner shut the
	// client down, or a pending request lost its session.
	ErrSessionClosed = errors.ErrSessionClosed

	// ErrDuplicateReservation indicates a response id is already pending.
	ErrDuplicateReservation = errors.ErrDuplicateReservation

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrWaiterClosed indicates the response table stopped accepting waiters.
	ErrWaiterClosed = errors.ErrWaiterClosed

	// ErrInvalidID indicates an id of the wrong sign.
	ErrInvalidID = errors.ErrInvalidID

	// ErrInvalidModulus indicates an id modulus below 2.
	ErrInvalidModulus = errors.ErrInvalidModulus

	// ErrRequestInHandler indicates Expr or Call was made with a message
	// handler's context. Issue the request from a new goroutine instead.
	ErrRequestInHandler = errors.ErrRequestInHandler
)

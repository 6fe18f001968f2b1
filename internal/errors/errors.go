package errors

import (
	"errors"
	"fmt"
)

// ChannelError is the base interface for all typed channel errors.
type ChannelError interface {
	error
	IsChannelError() bool
}

// Compile-time verification that all error types implement ChannelError.
var (
	_ ChannelError = (*DecodeError)(nil)
	_ ChannelError = (*ProtocolError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrInvalidState is the parent of every session state error.
	ErrInvalidState = errors.New("invalid session state")

	// ErrNotRunning indicates an operation that needs a running session was called
	// while the session was idle or stopping.
	ErrNotRunning = fmt.Errorf("%w: session is not running", ErrInvalidState)

	// ErrAlreadyRunning indicates Start was called on a session that has not
	// returned to idle yet.
	ErrAlreadyRunning = fmt.Errorf("%w: session is already running", ErrInvalidState)

	// ErrSessionClosed indicates a command helper was used after the session was
	// shut down by its owner.
	ErrSessionClosed = errors.New("session closed")

	// ErrDuplicateReservation indicates a response id already has a pending waiter.
	ErrDuplicateReservation = errors.New("response id already reserved")

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrWaiterClosed indicates the response table no longer accepts waiters.
	ErrWaiterClosed = errors.New("response table closed")

	// ErrInvalidID indicates a request-style command was given a non-negative id.
	ErrInvalidID = errors.New("request id must be negative")

	// ErrInvalidModulus indicates an indexer modulus below 2.
	ErrInvalidModulus = errors.New("indexer modulus must be at least 2")

	// ErrRequestInHandler indicates a request was made under a message
	// handler's context. Inbound processing waits for the handler, so the
	// reply could never be read.
	ErrRequestInHandler = errors.New("request made from inside a message handler")

	// ErrShutdown is the cancellation cause used for deliberate shutdowns.
	// It never reaches callers of Wait.
	ErrShutdown = errors.New("session shutdown")
)

// DecodeError indicates the inbound byte stream is not valid JSON.
// Offset is the number of bytes consumed when the failure was detected.
type DecodeError struct {
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode JSON at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsChannelError implements ChannelError.
func (e *DecodeError) IsChannelError() bool { return true }

// ProtocolError indicates a value could not be turned into a wire command.
type ProtocolError struct {
	Value any
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid command %v: %v", e.Value, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsChannelError implements ChannelError.
func (e *ProtocolError) IsChannelError() bool { return true }

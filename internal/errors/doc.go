// Package errors defines error types for channel sessions.
//
// Sentinels cover lifecycle and response-table failures. DecodeError and
// ProtocolError carry details of malformed input and malformed commands. All
// error types support unwrapping and can be checked using errors.Is,
// errors.As, and errors.AsType.
package errors

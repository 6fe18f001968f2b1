package vimchannel

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStateErrors_ShareParent tests that both state errors match ErrInvalidState.
func TestStateErrors_ShareParent(t *testing.T) {
	require.ErrorIs(t, ErrNotRunning, ErrInvalidState)
	require.ErrorIs(t, ErrAlreadyRunning, ErrInvalidState)
	require.NotErrorIs(t, ErrSessionClosed, ErrInvalidState)
	require.NotErrorIs(t, ErrRequestTimeout, ErrDuplicateReservation)
}

// TestDecodeError_Formatting tests DecodeError formatting and unwrapping.
func TestDecodeError_Formatting(t *testing.T) {
	var v any
	syntaxErr := json.Unmarshal([]byte("hello"), &v)

	err := fmt.Errorf("wait: %w", &DecodeError{Offset: 1, Err: syntaxErr})

	require.Contains(t, err.Error(), "offset 1")
	require.Contains(t, err.Error(), "invalid character 'h'")

	decodeErr, ok := stderrors.AsType[*DecodeError](err)
	require.True(t, ok)
	require.Equal(t, int64(1), decodeErr.Offset)

	_, ok = stderrors.AsType[*json.SyntaxError](err)
	require.True(t, ok)

	var channelErr ChannelError
	require.ErrorAs(t, err, &channelErr)
	require.True(t, channelErr.IsChannelError())
}

// TestProtocolError_Formatting tests ProtocolError formatting and unwrapping.
func TestProtocolError_Formatting(t *testing.T) {
	err := &ProtocolError{Value: Command{"expr", "1"}, Err: ErrInvalidID}

	require.Contains(t, err.Error(), "invalid command")
	require.ErrorIs(t, err, ErrInvalidID)
}

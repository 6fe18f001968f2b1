// Package message defines the generic [id, payload] unit of the channel.
//
// Negative ids mark responses to requests sent from this side. Zero and
// positive ids belong to the peer, which uses them for its own requests and
// notifications.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Message is an (id, payload) pair. On the wire it is the array [id, payload].
// Payload may be any JSON value, including null; it is never absent.
type Message struct {
	ID      int64
	Payload any
}

// New returns a Message with the given id and payload.
func New(id int64, payload any) Message {
	return Message{ID: id, Payload: payload}
}

// IsResponse reports whether the message answers a locally initiated request.
func (m Message) IsResponse() bool {
	return m.ID < 0
}

// MarshalJSON encodes the message as a two-element array.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{m.ID, m.Payload})
}

// UnmarshalJSON decodes a two-element array whose first element is an integer.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("message: %w", err)
	}

	if len(raw) != 2 {
		return fmt.Errorf("message: want 2 elements, got %d", len(raw))
	}

	var id int64
	if err := json.Unmarshal(raw[0], &id); err != nil {
		return fmt.Errorf("message id: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw[1]))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return fmt.Errorf("message payload: %w", err)
	}

	m.ID = id
	m.Payload = payload

	return nil
}

// Parse reports whether v, a decoded JSON value, has the Message shape and
// returns it. Anything other than a two-element array with an integer first
// element is not a Message.
func Parse(v any) (Message, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return Message{}, false
	}

	id, ok := ToInt64(arr[0])
	if !ok {
		return Message{}, false
	}

	return Message{ID: id, Payload: arr[1]}, true
}

// IsMessage reports whether v has the Message shape.
func IsMessage(v any) bool {
	_, ok := Parse(v)

	return ok
}

// ToInt64 converts a decoded JSON number to int64. Non-integral or out of
// range values are rejected.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()

		return i, err == nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}

		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

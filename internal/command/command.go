// Package command builds and recognizes the tagged-tuple commands sent to the
// peer.
//
// Wire shapes:
//
//	["redraw", "" | "force"]
//	["ex", expr]
//	["normal", expr]
//	["expr", expr, id?]
//	["call", fn, args, id?]
//
// Commands that expect a reply carry a strictly negative id as their last
// element. The peer answers with the message [id, result].
package command

import (
	"fmt"

	"github.com/wagiedev/vim-channel-go/internal/errors"
	"github.com/wagiedev/vim-channel-go/internal/message"
)

// Command names.
const (
	NameRedraw = "redraw"
	NameEx     = "ex"
	NameNormal = "normal"
	NameExpr   = "expr"
	NameCall   = "call"
)

// Command is a tagged tuple whose first element is the command name.
type Command []any

// Name returns the leading discriminator, or "" if there is none.
func (c Command) Name() string {
	if len(c) == 0 {
		return ""
	}

	name, _ := c[0].(string)

	return name
}

// ID returns the trailing correlation id of an expr or call command.
func (c Command) ID() (int64, bool) {
	var idx int

	switch c.Name() {
	case NameExpr:
		idx = 2
	case NameCall:
		idx = 3
	default:
		return 0, false
	}

	if len(c) <= idx {
		return 0, false
	}

	return message.ToInt64(c[idx])
}

// Redraw builds ["redraw", ""] or ["redraw", "force"].
func Redraw(force bool) Command {
	if force {
		return Command{NameRedraw, "force"}
	}

	return Command{NameRedraw, ""}
}

// Ex builds ["ex", expr].
func Ex(expr string) Command {
	return Command{NameEx, expr}
}

// Normal builds ["normal", expr].
func Normal(expr string) Command {
	return Command{NameNormal, expr}
}

// Expr builds ["expr", expr] or, with an id, ["expr", expr, id].
// The id must be negative.
func Expr(expr string, id ...int64) (Command, error) {
	cmd := Command{NameExpr, expr}

	return withID(cmd, id)
}

// Call builds ["call", fn, args] or, with an id, ["call", fn, args, id].
// A nil args is sent as an empty array. The id must be negative.
func Call(fn string, args []any, id ...int64) (Command, error) {
	if args == nil {
		args = []any{}
	}

	cmd := Command{NameCall, fn, args}

	return withID(cmd, id)
}

// Reply builds [id, payload], the answer to a request the peer sent with a
// non-negative id.
func Reply(id int64, payload any) message.Message {
	return message.New(id, payload)
}

func withID(cmd Command, id []int64) (Command, error) {
	switch len(id) {
	case 0:
		return cmd, nil
	case 1:
		if id[0] >= 0 {
			return nil, &errors.ProtocolError{
				Value: cmd,
				Err:   fmt.Errorf("%w: got %d", errors.ErrInvalidID, id[0]),
			}
		}

		return append(cmd, id[0]), nil
	default:
		return nil, &errors.ProtocolError{
			Value: cmd,
			Err:   fmt.Errorf("at most one id, got %d", len(id)),
		}
	}
}

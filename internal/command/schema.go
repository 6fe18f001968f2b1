package command

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// tuple returns an array schema whose first element is the constant name and
// whose remaining elements follow items. The last optional elements may be
// omitted.
func tuple(name string, optional int, items ...*jsonschema.Schema) *jsonschema.Schema {
	prefix := append([]*jsonschema.Schema{{Const: jsonschema.Ptr[any](name)}}, items...)

	return &jsonschema.Schema{
		Type:        "array",
		PrefixItems: prefix,
		MinItems:    jsonschema.Ptr(len(prefix) - optional),
		MaxItems:    jsonschema.Ptr(len(prefix)),
	}
}

func typed(t string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: t}
}

// Schemas returns the JSON Schema of every command keyed by name.
func Schemas() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		NameRedraw: tuple(NameRedraw, 0, &jsonschema.Schema{Type: "string", Enum: []any{"", "force"}}),
		NameEx:     tuple(NameEx, 0, typed("string")),
		NameNormal: tuple(NameNormal, 0, typed("string")),
		NameExpr:   tuple(NameExpr, 1, typed("string"), typed("integer")),
		NameCall:   tuple(NameCall, 1, typed("string"), typed("array"), typed("integer")),
	}
}

var resolved = sync.OnceValue(func() map[string]*jsonschema.Resolved {
	out := make(map[string]*jsonschema.Resolved, 5)

	for name, schema := range Schemas() {
		rs, err := schema.Resolve(nil)
		if err != nil {
			panic(fmt.Sprintf("command: resolve %s schema: %v", name, err))
		}

		out[name] = rs
	}

	return out
})

// Validate checks v against the schema of the command named by its first
// element.
func Validate(v any) error {
	arr, ok := normalize(v)
	if !ok {
		return fmt.Errorf("command must be an array, got %T", v)
	}

	if len(arr) == 0 {
		return fmt.Errorf("command is empty")
	}

	name, _ := arr[0].(string)

	rs, ok := resolved()[name]
	if !ok {
		return fmt.Errorf("unknown command %v", arr[0])
	}

	return rs.Validate(arr)
}

func is(name string, v any) bool {
	arr, ok := normalize(v)
	if !ok {
		return false
	}

	return resolved()[name].Validate(arr) == nil
}

// IsRedraw reports whether v is ["redraw", "" | "force"].
func IsRedraw(v any) bool { return is(NameRedraw, v) }

// IsEx reports whether v is ["ex", string].
func IsEx(v any) bool { return is(NameEx, v) }

// IsNormal reports whether v is ["normal", string].
func IsNormal(v any) bool { return is(NameNormal, v) }

// IsExpr reports whether v is ["expr", string] or ["expr", string, integer].
func IsExpr(v any) bool { return is(NameExpr, v) }

// IsCall reports whether v is ["call", string, array] or
// ["call", string, array, integer].
func IsCall(v any) bool { return is(NameCall, v) }

// IsCommand reports whether v is any known command.
func IsCommand(v any) bool {
	return Validate(v) == nil
}

// normalize copies the top level of an array value and turns json.Number
// elements into Go numbers, which the schema validator types as integer or
// number.
func normalize(v any) ([]any, bool) {
	var arr []any

	switch a := v.(type) {
	case Command:
		arr = a
	case []any:
		arr = a
	default:
		return nil, false
	}

	out := make([]any, len(arr))

	for i, e := range arr {
		n, ok := e.(json.Number)
		if !ok {
			out[i] = e

			continue
		}

		if n64, err := n.Int64(); err == nil {
			out[i] = n64
		} else if f, err := n.Float64(); err == nil {
			out[i] = f
		} else {
			out[i] = e
		}
	}

	return out, true
}

package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/vim-channel-go/internal/jsonstream"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "vimchannel"

// Commander is the part of a channel client the tools drive.
type Commander interface {
	Redraw(ctx context.Context, force bool) error
	Ex(ctx context.Context, command string) error
	Normal(ctx context.Context, keys string) error
	Expr(ctx context.Context, expr string) (any, error)
	Call(ctx context.Context, fn string, args ...any) (any, error)
}

// tool binds an MCP tool definition to a Commander operation.
type tool struct {
	name        string
	description string
	schema      *jsonschema.Schema
	run         func(ctx context.Context, c Commander, args map[string]any) (any, error)
}

// okReply is the result of commands the peer does not answer.
const okReply = "ok"

func tools() []tool {
	return []tool{
		{
			name:        "redraw",
			description: "Redraw the editor screen. Set force to clear and redraw everything.",
			schema:      object(nil, map[string]*jsonschema.Schema{"force": {Type: "boolean"}}),
			run: func(ctx context.Context, c Commander, args map[string]any) (any, error) {
				force, _ := args["force"].(bool)

				return okReply, c.Redraw(ctx, force)
			},
		},
		{
			name:        "ex",
			description: "Run an Ex command, as if typed after ':'.",
			schema:      object([]string{"command"}, map[string]*jsonschema.Schema{"command": {Type: "string"}}),
			run: func(ctx context.Context, c Commander, args map[string]any) (any, error) {
				return okReply, c.Ex(ctx, args["command"].(string))
			},
		},
		{
			name:        "normal",
			description: "Execute keys as Normal mode commands.",
			schema:      object([]string{"keys"}, map[string]*jsonschema.Schema{"keys": {Type: "string"}}),
			run: func(ctx context.Context, c Commander, args map[string]any) (any, error) {
				return okReply, c.Normal(ctx, args["keys"].(string))
			},
		},
		{
			name:        "expr",
			description: "Evaluate a Vim expression and return its value as JSON.",
			schema:      object([]string{"expr"}, map[string]*jsonschema.Schema{"expr": {Type: "string"}}),
			run: func(ctx context.Context, c Commander, args map[string]any) (any, error) {
				return c.Expr(ctx, args["expr"].(string))
			},
		},
		{
			name:        "call",
			description: "Call a Vim function with arguments and return its value as JSON.",
			schema: object([]string{"function"}, map[string]*jsonschema.Schema{
				"function": {Type: "string"},
				"args":     {Type: "array"},
			}),
			run: func(ctx context.Context, c Commander, args map[string]any) (any, error) {
				fnArgs, _ := args["args"].([]any)

				return c.Call(ctx, args["function"].(string), fnArgs...)
			},
		},
	}
}

func object(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

// NewServer returns an MCP server whose tools forward to c.
func NewServer(log *slog.Logger, c Commander, version string) *mcp.Server {
	log = log.With("component", "mcpbridge")

	server := mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: version},
		&mcp.ServerOptions{Logger: log},
	)

	for _, t := range tools() {
		resolved, err := t.schema.Resolve(nil)
		if err != nil {
			panic(fmt.Sprintf("mcpbridge: resolve %s schema: %v", t.name, err))
		}

		server.AddTool(NewTool(t.name, t.description, t.schema), handler(log, c, t, resolved))
	}

	return server
}

func handler(log *slog.Logger, c Commander, t tool, resolved *jsonschema.Resolved) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		if err := resolved.Validate(args); err != nil {
			return ErrorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		log.Debug("Calling tool", "tool", t.name)

		reply, err := t.run(ctx, c, args)
		if err != nil {
			log.Warn("Tool failed", "tool", t.name, "error", err)

			return ErrorResult(fmt.Sprintf("%s failed: %v", t.name, err)), nil
		}

		text, err := jsonstream.Marshal(reply)
		if err != nil {
			return ErrorResult(fmt.Sprintf("encode reply: %v", err)), nil
		}

		return TextResult(string(text)), nil
	}
}

// NewTool creates an mcp.Tool with the given parameters.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil {
		return make(map[string]any), nil
	}

	if len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	if args == nil {
		args = make(map[string]any)
	}

	return args, nil
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

package mcpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type fakeCommander struct {
	mu    sync.Mutex
	calls [][]any
	reply any
	err   error
}

func (f *fakeCommander) record(call ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
}

func (f *fakeCommander) Redraw(_ context.Context, force bool) error {
	f.record("redraw", force)

	return f.err
}

func (f *fakeCommander) Ex(_ context.Context, command string) error {
	f.record("ex", command)

	return f.err
}

func (f *fakeCommander) Normal(_ context.Context, keys string) error {
	f.record("normal", keys)

	return f.err
}

func (f *fakeCommander) Expr(_ context.Context, expr string) (any, error) {
	f.record("expr", expr)

	return f.reply, f.err
}

func (f *fakeCommander) Call(_ context.Context, fn string, args ...any) (any, error) {
	f.record("call", fn, args)

	return f.reply, f.err
}

func connect(t *testing.T, c Commander) *mcpgo.ClientSession {
	t.Helper()

	ctx := context.Background()
	server := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)), c, "test")
	serverTransport, clientTransport := mcpgo.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcpgo.NewClient(&mcpgo.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		cs.Close()
		ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcpgo.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()

	result, err := cs.CallTool(context.Background(), &mcpgo.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcpgo.TextContent)
	require.True(t, ok, "expected text content")

	return text.Text, result.IsError
}

func TestServer_ListTools(t *testing.T) {
	cs := connect(t, &fakeCommander{})

	result, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		require.NotEmpty(t, tool.Description)
	}

	sort.Strings(names)
	require.Equal(t, []string{"call", "ex", "expr", "normal", "redraw"}, names)
}

func TestServer_CommandTools(t *testing.T) {
	fake := &fakeCommander{}
	cs := connect(t, fake)

	tests := []struct {
		name string
		args map[string]any
		want []any
	}{
		{name: "redraw", args: map[string]any{}, want: []any{"redraw", false}},
		{name: "redraw", args: map[string]any{"force": true}, want: []any{"redraw", true}},
		{name: "ex", args: map[string]any{"command": "echo 1"}, want: []any{"ex", "echo 1"}},
		{name: "normal", args: map[string]any{"keys": "gg"}, want: []any{"normal", "gg"}},
	}

	for _, tt := range tests {
		text, isError := callTool(t, cs, tt.name, tt.args)
		require.False(t, isError, text)
		require.Equal(t, `"ok"`, text)
	}

	require.Len(t, fake.calls, len(tests))

	for i, tt := range tests {
		require.Equal(t, tt.want, fake.calls[i])
	}
}

func TestServer_RequestToolsReturnJSON(t *testing.T) {
	fake := &fakeCommander{reply: []any{"a", json.Number("2")}}
	cs := connect(t, fake)

	text, isError := callTool(t, cs, "expr", map[string]any{"expr": "getline(1, 2)"})
	require.False(t, isError, text)
	require.Equal(t, `["a",2]`, text)

	text, isError = callTool(t, cs, "call", map[string]any{
		"function": "matchstr",
		"args":     []any{"testing", "ing"},
	})
	require.False(t, isError, text)
	require.Equal(t, `["a",2]`, text)

	require.Equal(t, []any{"call", "matchstr", []any{"testing", "ing"}}, fake.calls[1])
}

func TestServer_CallWithoutArgs(t *testing.T) {
	fake := &fakeCommander{reply: "x"}
	cs := connect(t, fake)

	_, isError := callTool(t, cs, "call", map[string]any{"function": "localtime"})
	require.False(t, isError)
	require.Equal(t, []any{"call", "localtime", []any(nil)}, fake.calls[0])
}

func TestServer_InvalidArguments(t *testing.T) {
	fake := &fakeCommander{}
	cs := connect(t, fake)

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{name: "missing required", tool: "ex", args: map[string]any{}},
		{name: "wrong type", tool: "normal", args: map[string]any{"keys": 3}},
		{name: "unknown property", tool: "expr", args: map[string]any{"expr": "1", "extra": true}},
		{name: "args not array", tool: "call", args: map[string]any{"function": "f", "args": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isError := callTool(t, cs, tt.tool, tt.args)
			require.True(t, isError)
			require.Contains(t, text, "invalid arguments")
		})
	}

	require.Empty(t, fake.calls)
}

func TestServer_CommandFailure(t *testing.T) {
	cs := connect(t, &fakeCommander{err: errors.New("channel closed")})

	text, isError := callTool(t, cs, "expr", map[string]any{"expr": "1"})
	require.True(t, isError)
	require.Equal(t, "expr failed: channel closed", text)
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments(nil)
	require.NoError(t, err)
	require.Empty(t, args)

	args, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{
		Arguments: json.RawMessage(`{"keys":"dd"}`),
	}})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"keys": "dd"}, args)

	_, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{
		Arguments: json.RawMessage(`[1]`),
	}})
	require.Error(t, err)
}

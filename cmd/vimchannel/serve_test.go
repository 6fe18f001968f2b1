package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/vim-channel-go/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServe_BridgesToolCalls(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	served := make(chan error, 1)

	go func() {
		served <- serve(ctx, discardLogger(), ln, config.DefaultFile(), serverTransport)
	}()

	vim, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	defer vim.Close()

	// Answer one expr request the way Vim would.
	go func() {
		dec := json.NewDecoder(vim)

		var req []any
		if err := dec.Decode(&req); err != nil {
			return
		}

		_ = json.NewEncoder(vim).Encode([]any{req[2], 42})
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	defer cs.Close()

	result, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "expr",
		Arguments: map[string]any{"expr": "6 * 7"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.Equal(t, "42", text.Text)

	// Vim hanging up ends the bridge.
	require.NoError(t, vim.Close())

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("serve did not return after Vim disconnected")
	}
}

func TestServe_CancelWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	serverTransport, _ := mcp.NewInMemoryTransports()

	served := make(chan error, 1)

	go func() {
		served <- serve(ctx, discardLogger(), ln, config.DefaultFile(), serverTransport)
	}()

	cancel()

	select {
	case err := <-served:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig("", "", "")
		require.NoError(t, err)
		require.Equal(t, config.DefaultFile(), cfg)
	})

	t.Run("flags override file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vimchannel.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
listen = "127.0.0.1:9000"
log_level = "warn"
request_timeout = "3s"
`), 0o600))

		cfg, err := loadConfig(path, "127.0.0.1:9001", "debug")
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:9001", cfg.Listen)
		require.Equal(t, slog.LevelDebug, cfg.LogLevel)
		require.Equal(t, 3*time.Second, cfg.RequestTimeout)
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := loadConfig("", "", "loud")
		require.ErrorContains(t, err, "parsing log level")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"), "", "")
		require.ErrorContains(t, err, "load config")
	})
}

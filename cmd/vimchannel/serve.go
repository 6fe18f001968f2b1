package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	vimchannel "github.com/wagiedev/vim-channel-go"
	"github.com/wagiedev/vim-channel-go/internal/config"
	"github.com/wagiedev/vim-channel-go/internal/mcpbridge"
)

// serve accepts one connection from ln and bridges it to an MCP session on
// transport. It returns when Vim disconnects, the MCP client leaves, or ctx
// ends.
func serve(
	ctx context.Context,
	log *slog.Logger,
	ln net.Listener,
	cfg config.File,
	transport mcp.Transport,
) error {
	conn, err := accept(ctx, ln)
	if err != nil {
		return err
	}
	defer conn.Close()

	log = log.With("peer", conn.RemoteAddr().String())
	log.Info("Vim connected")

	client, err := vimchannel.New(conn, conn,
		vimchannel.WithLogger(log),
		vimchannel.WithRequestTimeout(cfg.RequestTimeout),
		vimchannel.WithModulus(cfg.Modulus),
		vimchannel.WithInvalidMessageHandler(func(_ context.Context, _ vimchannel.Peer, v any) {
			log.Warn("Ignoring value from Vim", "value", v)
		}),
	)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close client", "error", closeErr)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := client.Start(runCtx); err != nil {
		return fmt.Errorf("starting client: %w", err)
	}

	go func() {
		select {
		case <-client.Done():
			log.Info("Vim disconnected")
			cancel()
		case <-runCtx.Done():
		}
	}()

	server := mcpbridge.NewServer(log, client, version)

	err = server.Run(runCtx, transport)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// accept waits for one connection and closes ln.
func accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf("accepting connection: %w", err)
	}

	return conn, nil
}

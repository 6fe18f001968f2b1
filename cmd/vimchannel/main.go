// Command vimchannel accepts one Vim channel connection over TCP and exposes
// it to an MCP client on stdin and stdout.
//
// In Vim, connect with:
//
//	:let ch = ch_open('127.0.0.1:8765', {'mode': 'json'})
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"

	"github.com/wagiedev/vim-channel-go/internal/config"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "vimchannel",
		Usage:   "bridge a Vim JSON channel to the Model Context Protocol",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "wait for Vim to connect, then serve MCP on stdio",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "Path to a TOML config file.",
					},
					&cli.StringFlag{
						Name:  "listen",
						Usage: "The address to accept the Vim connection on. Overrides the config file.",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "One of [debug,info,warn,error]. Overrides the config file.",
					},
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"), c.String("listen"), c.String("log-level"))
	if err != nil {
		return err
	}

	// stdout carries MCP traffic, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := listen(ctx, cfg.Listen)
	if err != nil {
		return err
	}

	logger.Info("Waiting for Vim", "listen", ln.Addr().String())

	return serve(ctx, logger, ln, cfg, &mcp.StdioTransport{})
}

// loadConfig reads path if set and applies the flag overrides.
func loadConfig(path, listenAddr, level string) (config.File, error) {
	cfg := config.DefaultFile()

	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.File{}, err
		}

		cfg = loaded
	}

	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	if level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return config.File{}, fmt.Errorf("parsing log level: %w", err)
		}
	}

	return cfg, nil
}

func listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	return ln, nil
}

//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startVim launches a headless Vim that opens a JSON channel back to a local
// listener and returns the accepted connection. The test is skipped when no
// vim binary is installed.
func startVim(t *testing.T) net.Conn {
	t.Helper()

	vimPath, err := exec.LookPath("vim")
	if err != nil {
		t.Skip("vim not installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer ln.Close()

	open := fmt.Sprintf("let g:ch = ch_open('%s', {'mode': 'json'})", ln.Addr().String())

	cmd := exec.CommandContext(ctx, vimPath,
		"-N", "-u", "NONE", "-i", "NONE", "-n", "--not-a-term",
		"-c", open,
	)

	// Vim stays up while its stdin is open.
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)

	require.NoError(t, cmd.Start())

	t.Cleanup(func() {
		stdin.Close()
		cancel()
		_ = cmd.Wait()
	})

	accepted := make(chan net.Conn, 1)

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	select {
	case conn := <-accepted:
		t.Cleanup(func() { conn.Close() })

		return conn
	case <-time.After(10 * time.Second):
		t.Fatal("vim did not connect")

		return nil
	}
}

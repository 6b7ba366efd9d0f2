package core

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"filesh/config"
	"filesh/internal/storage"
	"filesh/util"
)

func quietLogger() *util.Logger {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}

// testConfig returns a loopback server config on a free port.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	port, err := util.FindFreePort()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Listen = true
	cfg.BindHost = "127.0.0.1"
	cfg.Port = port
	cfg.Root = t.TempDir()
	return cfg
}

// startServe runs a ServeMode over engine until the test ends.
func startServe(t *testing.T, cfg *config.Config, engine storage.Engine) *ServeMode {
	t.Helper()
	mode := NewServeMode(cfg, engine, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mode.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(config.DefaultGracePeriod + time.Second):
			t.Error("serve did not stop")
		}
	})

	waitForListener(t, cfg.ListenAddr())
	return mode
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			c.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("nothing listening on %s", addr)
}

// lineClient speaks the protocol the way telnet would.
type lineClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialClient(t *testing.T, addr string) *lineClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &lineClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

// expectPrompt consumes exactly the prompt text.
func (c *lineClient) expectPrompt(want string) {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	buf := make([]byte, len(want))
	_, err := io.ReadFull(c.r, buf)
	require.NoError(c.t, err)
	require.Equal(c.t, want, string(buf))
}

// do sends line and returns the response lines up to the next prompt,
// which must equal prompt.
func (c *lineClient) do(line, prompt string) []string {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\r\n"))
	require.NoError(c.t, err)

	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	var lines []string
	var pending strings.Builder
	for {
		b, err := c.r.ReadByte()
		require.NoError(c.t, err, "reading reply to %q", line)
		pending.WriteByte(b)
		s := pending.String()
		if strings.HasSuffix(s, "\r\n") {
			lines = append(lines, strings.TrimSuffix(s, "\r\n"))
			pending.Reset()
			continue
		}
		if s == prompt {
			return lines
		}
	}
}

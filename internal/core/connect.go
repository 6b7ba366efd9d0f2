package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"filesh/internal/capability"
	"filesh/internal/retry"
	"filesh/internal/transport"
	"filesh/util"
)

// ConnectMode dials a filesh server and relays the terminal to it, so
// the service is usable without telnet.
type ConnectMode struct {
	Dialer  transport.Dialer
	Address string
	Backoff *retry.Backoff
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the server, retrying per Backoff, and relays until either
// side closes.  The transport is closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	var conn net.Conn
	dial := func(attempt int) error {
		m.Logger.Verbose("connecting to %s (attempt %d)", m.Address, attempt)
		c, err := m.Dialer.Dial(ctx, "tcp", m.Address)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	var err error
	if m.Backoff != nil {
		b := *m.Backoff
		if b.OnRetry == nil {
			b.OnRetry = func(_ int, err error, wait time.Duration) {
				m.Logger.Verbose("%v; retrying in %s", err, wait.Round(time.Millisecond))
			}
		}
		err = b.Do(ctx, dial)
	} else {
		err = dial(1)
	}
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Verbose("connected to %s", conn.RemoteAddr())

	relay := &capability.Relay{Stdin: m.stdin(), Stdout: m.stdout(), Logger: m.Logger}
	return relay.Run(ctx, conn)
}

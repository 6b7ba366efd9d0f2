package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"

	ncerr "filesh/internal/errors"
)

// lineTerminator ends every response line; telnet-style clients expect CRLF.
const lineTerminator = "\r\n"

// ── inbound ──────────────────────────────────────────────────────────

// StreamConn frames a byte stream into lines.  It is used for plain TCP
// connections and works over any net.Conn.
type StreamConn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	w       *bufio.Writer
	idle    time.Duration
}

// NewStreamConn wraps conn.  Lines longer than maxLine bytes fail with
// ErrLineTooLong; a positive idle arms a read deadline before every
// line.
func NewStreamConn(conn net.Conn, maxLine int, idle time.Duration) *StreamConn {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, min(maxLine, 4096)), maxLine)
	return &StreamConn{
		conn:    conn,
		scanner: sc,
		w:       bufio.NewWriter(conn),
		idle:    idle,
	}
}

// ReadLine implements LineConn.
func (c *StreamConn) ReadLine() (string, error) {
	if c.idle > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.idle)) //nolint:errcheck
	}
	if c.scanner.Scan() {
		// ScanLines already drops a trailing \r.
		return c.scanner.Text(), nil
	}

	err := c.scanner.Err()
	switch {
	case err == nil:
		return "", io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		return "", ncerr.ErrLineTooLong
	case isTimeout(err):
		return "", ncerr.ErrTimeout
	default:
		return "", ncerr.Wrap("read", c.conn.RemoteAddr().String(), err)
	}
}

// WriteLines implements LineConn.
func (c *StreamConn) WriteLines(lines ...string) error {
	for _, l := range lines {
		if _, err := c.w.WriteString(l + lineTerminator); err != nil {
			return ncerr.Wrap("write", c.conn.RemoteAddr().String(), err)
		}
	}
	return c.flush()
}

// Prompt implements LineConn.
func (c *StreamConn) Prompt(p string) error {
	if _, err := c.w.WriteString(p); err != nil {
		return ncerr.Wrap("write", c.conn.RemoteAddr().String(), err)
	}
	return c.flush()
}

// RemoteAddr implements LineConn.
func (c *StreamConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close implements LineConn.
func (c *StreamConn) Close() error { return c.conn.Close() }

func (c *StreamConn) flush() error {
	if err := c.w.Flush(); err != nil {
		return ncerr.Wrap("write", c.conn.RemoteAddr().String(), err)
	}
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ── outbound ─────────────────────────────────────────────────────────

// TCPDialer establishes plain TCP connections for the client mode.
type TCPDialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration // 0 uses the net package default
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, ncerr.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }

package transport

import (
	"io"
	"net"
	"sync"

	"golang.org/x/term"

	ncerr "filesh/internal/errors"
)

// TerminalConn serves the line protocol to an interactive terminal, such
// as an SSH session channel.  x/term handles echo and line editing; the
// prompt becomes the terminal's own prompt, so it is redrawn by ReadLine.
type TerminalConn struct {
	rw     io.ReadWriteCloser
	term   *term.Terminal
	remote net.Addr

	closeOnce sync.Once
	closeErr  error
}

// NewTerminalConn wraps rw.  remote identifies the peer in logs.
func NewTerminalConn(rw io.ReadWriteCloser, remote net.Addr) *TerminalConn {
	return &TerminalConn{
		rw:     rw,
		term:   term.NewTerminal(rw, ""),
		remote: remote,
	}
}

// ReadLine implements LineConn.
func (c *TerminalConn) ReadLine() (string, error) {
	line, err := c.term.ReadLine()
	if err != nil {
		if err == io.EOF {
			return "", io.EOF
		}
		return "", ncerr.Wrap("read", c.addr(), err)
	}
	return line, nil
}

// WriteLines implements LineConn.  The terminal translates "\n" to
// "\r\n" on output.
func (c *TerminalConn) WriteLines(lines ...string) error {
	for _, l := range lines {
		if _, err := c.term.Write([]byte(l + "\n")); err != nil {
			return ncerr.Wrap("write", c.addr(), err)
		}
	}
	return nil
}

// Prompt implements LineConn.
func (c *TerminalConn) Prompt(p string) error {
	c.term.SetPrompt(p)
	return nil
}

// SetSize forwards a window-change request to the line editor.
func (c *TerminalConn) SetSize(width, height int) error {
	return c.term.SetSize(width, height)
}

// RemoteAddr implements LineConn.
func (c *TerminalConn) RemoteAddr() net.Addr { return c.remote }

// Close implements LineConn.  It is safe to call more than once.
func (c *TerminalConn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.rw.Close() })
	return c.closeErr
}

func (c *TerminalConn) addr() string {
	if c.remote == nil {
		return "terminal"
	}
	return c.remote.String()
}

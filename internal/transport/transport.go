// Package transport provides the connection plumbing under the command
// protocol.  A LineConn delivers one client line at a time and writes
// response lines plus an unterminated prompt back; it hides whether the
// peer is a raw TCP socket or an SSH terminal.  Dialer covers the
// outbound side used by the client mode.
package transport

import (
	"context"
	"net"
)

// LineConn is a line-framed, bidirectional text connection.
type LineConn interface {
	// ReadLine blocks for the next line with its terminator stripped.
	// It returns io.EOF once the peer has gone away.
	ReadLine() (string, error)

	// WriteLines writes each line followed by a line terminator.
	WriteLines(lines ...string) error

	// Prompt shows p without a terminator so the client's input
	// continues on the same line.
	Prompt(p string) error

	// RemoteAddr identifies the peer.
	RemoteAddr() net.Addr

	// Close tears the connection down; a blocked ReadLine returns.
	Close() error
}

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}

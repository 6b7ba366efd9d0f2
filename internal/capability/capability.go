// Package capability defines what happens over an established
// connection.  Server-side behaviours implement Capability and operate
// on a Session rather than a raw net.Conn, which keeps them testable
// and decoupled from whether the peer arrived over TCP or SSH.
package capability

import (
	"context"

	"filesh/internal/session"
)

// Capability handles a single connection according to a specific
// behaviour.  Shell, the command loop, is the server's implementation.
type Capability interface {
	// Handle runs the capability against the given session.
	// It blocks until the connection is done or the context is
	// cancelled.
	Handle(ctx context.Context, sess *session.Session) error
}

package capability

import (
	"context"
	"io"
	"net"

	"filesh/util"
)

// Relay is the client side: it copies the user's terminal to the server
// and the server's replies back until either side closes.
type Relay struct {
	Stdin  io.Reader
	Stdout io.Writer
	Logger *util.Logger
}

// Run shuttles bytes over conn until the server closes it, stdin ends,
// or ctx is cancelled.
func (r *Relay) Run(ctx context.Context, conn net.Conn) error {
	stats, err := util.Pump(ctx, conn, r.Stdin, r.Stdout)
	if r.Logger != nil {
		r.Logger.Verbose("sent %d bytes, received %d bytes", stats.Sent, stats.Received)
	}
	return err
}

package util

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
)

// PumpStats counts the bytes moved by [Pump] in each direction.
type PumpStats struct {
	Received int64 // network → writer
	Sent     int64 // reader → network
}

// Pump shuffles data between a network connection and a local
// reader/writer pair (the client's stdin/stdout) until the server
// closes the connection, the local reader fails, or ctx is cancelled.
//
// A clean EOF on the reader half-closes the connection instead of
// tearing it down, so the server's final prompt still arrives.  Pump
// returns once the network side is done; a reader blocked in Read (a
// terminal's stdin) is left to finish on its own.
func Pump(ctx context.Context, conn net.Conn, r io.Reader, w io.Writer) (PumpStats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var received, sent atomic.Int64
	recvErr := make(chan error, 1)
	sendErr := make(chan error, 1)

	// network → writer
	go func() {
		n, err := io.Copy(w, conn)
		received.Add(n)
		recvErr <- err
		cancel()
	}()

	// reader → network
	go func() {
		n, err := io.Copy(conn, r)
		sent.Add(n)
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.CloseWrite() //nolint:errcheck
		}
		sendErr <- err
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblock any pending reads/writes
	rerr := <-recvErr

	stats := PumpStats{Received: received.Load(), Sent: sent.Load()}
	select {
	case err := <-sendErr:
		if !IsHarmless(err) {
			return stats, err
		}
	default:
	}
	if !IsHarmless(rerr) {
		return stats, rerr
	}
	return stats, nil
}

// IsHarmless returns true for errors that are expected when a peer
// goes away or the local side shuts down.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

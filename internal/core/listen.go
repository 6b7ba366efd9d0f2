package core

import (
	"context"
	"fmt"
	"net"
	"time"

	"filesh/config"
	ncerr "filesh/internal/errors"
	"filesh/internal/retry"
	"filesh/internal/transport"
	"filesh/util"
)

// ListenMode accepts TCP connections and serves the command protocol
// on each one in its own goroutine.
type ListenMode struct {
	Address     string // "host:port"
	MaxLine     int
	IdleTimeout time.Duration
	Server      *Server
	Logger      *util.Logger
}

// Run listens until ctx is cancelled.  On shutdown the listener closes,
// live sessions are closed and awaited for up to the grace period.
func (m *ListenMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return ncerr.Wrap("listen", m.Address, err)
	}
	m.Logger.Info("listening on %s (tcp)", ln.Addr())

	err = acceptLoop(ctx, ln, m.Server, func(conn net.Conn) {
		lc := transport.NewStreamConn(conn, m.MaxLine, m.IdleTimeout)
		m.Server.serve(ctx, lc, conn.RemoteAddr().String())
	})

	m.Server.Registry.CloseAll()
	if !m.Server.Drain(config.DefaultGracePeriod) {
		m.Logger.Warn("sessions still running after %s", config.DefaultGracePeriod)
	}
	return err
}

// acceptLoop hands each accepted connection to handle in a goroutine
// tracked by srv.  Temporary accept errors are retried with backoff; it
// returns nil once ctx is cancelled.
func acceptLoop(ctx context.Context, ln net.Listener, srv *Server, handle func(net.Conn)) error {
	logger := srv.Logger
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	backoff := &retry.Backoff{
		InitialDelay: config.DefaultAcceptBackoff,
		MaxDelay:     config.DefaultMaxAcceptBackoff,
		MaxAttempts:  0,
		Retryable: func(err error) bool {
			return ctx.Err() == nil && ncerr.IsTemporary(err)
		},
		OnRetry: func(attempt int, err error, wait time.Duration) {
			logger.Warn("accept (attempt %d): %v; retrying in %s", attempt, err, wait)
		},
	}

	for {
		var conn net.Conn
		err := backoff.Do(ctx, func(int) error {
			c, err := ln.Accept()
			if err != nil {
				return err
			}
			conn = c
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		logger.Verbose("connection from %s", conn.RemoteAddr())
		srv.spawn(func() { handle(conn) })
	}
}

package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	ncerr "filesh/internal/errors"
	"filesh/internal/capability"
	"filesh/internal/metrics"
	"filesh/internal/session"
	"filesh/internal/transport"
	"filesh/util"
)

// Server is the state every listener shares: the command loop, the
// registry of live sessions and the metrics collector.
type Server struct {
	Capability capability.Capability
	Registry   *session.Registry
	Metrics    *metrics.Collector
	Logger     *util.Logger

	wg sync.WaitGroup
}

// serve runs one session over conn and blocks until it ends.  Errors
// are logged, never propagated: a broken client must not stop the
// listener.
func (s *Server) serve(ctx context.Context, conn transport.LineConn, nick string) {
	defer conn.Close()

	sess := session.New(conn, nick, nil)
	sess.Logger = s.Logger.With(
		zap.String("session", sess.ID[:8]),
		zap.Stringer("remote", conn.RemoteAddr()),
	)

	s.Registry.Add(sess)
	s.Metrics.SessionOpened()
	defer func() {
		s.Registry.Remove(sess.ID)
		s.Metrics.SessionClosed()
	}()

	sess.Logger.Info("client connected as %s", nick)
	start := time.Now()

	err := s.Capability.Handle(ctx, sess)
	switch {
	case err == nil:
		sess.Logger.Info("client disconnected after %s", time.Since(start).Truncate(time.Millisecond))
	case ncerr.Is(err, ncerr.ErrTimeout):
		sess.Logger.Verbose("idle timeout, closing")
	case util.IsHarmless(err):
		sess.Logger.Verbose("connection closed: %v", err)
	default:
		s.Metrics.RecordError(err.Error())
		sess.Logger.Error("session ended: %v", err)
	}
}

// spawn runs fn in a goroutine that Drain waits for.
func (s *Server) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Drain waits up to grace for every running session to finish and
// reports whether they all did.
func (s *Server) Drain(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}

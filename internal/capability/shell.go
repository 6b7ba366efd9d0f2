package capability

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	ncerr "filesh/internal/errors"
	"filesh/internal/protocol"
	"filesh/internal/session"
)

// Shell serves the command protocol: it prompts, reads one line,
// dispatches it, writes the reply, and repeats until the client leaves.
type Shell struct {
	Dispatcher *protocol.Dispatcher
}

// Handle implements Capability.  A clean disconnect, or cancellation
// of ctx, returns nil.  A panic while serving is recovered and reported
// as an error; only this session's connection is affected.
func (s *Shell) Handle(ctx context.Context, sess *session.Session) (err error) {
	m := s.Dispatcher.Metrics

	defer func() {
		if r := recover(); r != nil {
			m.RecordError(fmt.Sprint(r))
			if sess.Logger != nil {
				sess.Logger.Error("panic in session %s: %v\n%s", sess.ID, r, debug.Stack())
			}
			err = fmt.Errorf("session %s: panic: %v", sess.ID, r)
		}
	}()

	stop := context.AfterFunc(ctx, func() { sess.Conn.Close() })
	defer stop()

	prompt := s.Dispatcher.Prompt(sess)
	if err := sess.Conn.Prompt(prompt); err != nil {
		return quietAfterCancel(ctx, err)
	}
	m.BytesSent(int64(len(prompt)))

	for {
		line, err := sess.Conn.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return quietAfterCancel(ctx, err)
		}
		m.BytesReceived(int64(len(line) + 1))

		reply := s.Dispatcher.Handle(sess, line)
		if err := sess.Conn.WriteLines(reply.Lines...); err != nil {
			return quietAfterCancel(ctx, err)
		}
		if err := sess.Conn.Prompt(reply.Prompt); err != nil {
			return quietAfterCancel(ctx, err)
		}
		m.BytesSent(replySize(reply))
	}
}

// quietAfterCancel drops connection errors caused by the shutdown
// closing the connection under a blocked read.
func quietAfterCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil && !ncerr.Is(err, ncerr.ErrLineTooLong) {
		return nil
	}
	return err
}

func replySize(r protocol.Reply) int64 {
	n := len(r.Prompt)
	for _, l := range r.Lines {
		n += len(l) + 2
	}
	return int64(n)
}

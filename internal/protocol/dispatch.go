package protocol

import (
	"fmt"
	"io"

	ncerr "filesh/internal/errors"
	"filesh/internal/metrics"
	"filesh/internal/session"
	"filesh/internal/storage"
	"filesh/util"
)

// Reply is the server's turn after one client line.
type Reply struct {
	Lines  []string // response lines, each written with a terminator
	Prompt string   // written bare after Lines
}

// Dispatcher executes client lines against a shared Engine.  One
// Dispatcher serves every session; per-connection state lives in the
// Session passed to Handle.
type Dispatcher struct {
	Engine  storage.Engine
	Metrics *metrics.Collector // nil disables accounting
}

// NewDispatcher creates a Dispatcher over engine.
func NewDispatcher(engine storage.Engine, m *metrics.Collector) *Dispatcher {
	return &Dispatcher{Engine: engine, Metrics: m}
}

// Handle runs one line for sess.  Protocol and engine errors become a
// single response line; the prompt is always present.
func (d *Dispatcher) Handle(sess *session.Session, line string) Reply {
	return Reply{
		Lines:  d.execute(sess, line),
		Prompt: d.Prompt(sess),
	}
}

// Prompt renders "<nickname> <cwd> : " for sess.
func (d *Dispatcher) Prompt(sess *session.Session) string {
	return fmt.Sprintf("%s %s : ", sess.Nickname(), d.Engine.DisplayPath(sess.Cwd()))
}

func (d *Dispatcher) execute(sess *session.Session, line string) []string {
	log := sessionLogger(sess)
	name, args := Parse(line)

	cmd, err := Validate(name, args)
	if err != nil {
		d.Metrics.ProtocolError()
		log.Debug("rejected %q: %v", line, err)
		return []string{err.Error()}
	}

	d.Metrics.RecordCommand(cmd.Name())
	log.Debug("%s %v", cmd.Name(), args)

	lines, err := cmd.run(&runEnv{sess: sess, engine: d.Engine, d: d})
	if err != nil {
		if ncerr.IsStorage(err) {
			d.Metrics.StorageError()
			log.Verbose("%s: %v", cmd.Name(), err)
		} else {
			d.Metrics.RecordError(err.Error())
			log.Error("%s: %v", cmd.Name(), err)
		}
		return append(lines, err.Error())
	}
	return lines
}

var quiet = func() *util.Logger {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}()

func sessionLogger(sess *session.Session) *util.Logger {
	if sess.Logger != nil {
		return sess.Logger
	}
	return quiet
}

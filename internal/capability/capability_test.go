package capability

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ncerr "filesh/internal/errors"
	"filesh/internal/metrics"
	"filesh/internal/protocol"
	"filesh/internal/session"
	"filesh/internal/storage"
	"filesh/internal/transport"
	"filesh/util"
)

// scriptConn feeds a fixed list of lines and records everything written.
type scriptConn struct {
	mu      sync.Mutex
	lines   []string
	written []string
	prompts []string
	closed  bool
	after   error // returned once lines run out; io.EOF when nil
}

func (c *scriptConn) ReadLine() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		if c.after != nil {
			return "", c.after
		}
		return "", io.EOF
	}
	l := c.lines[0]
	c.lines = c.lines[1:]
	return l, nil
}

func (c *scriptConn) WriteLines(lines ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, lines...)
	return nil
}

func (c *scriptConn) Prompt(p string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, p)
	return nil
}

func (c *scriptConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40001}
}

func (c *scriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func quietLogger() *util.Logger {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}

func newShell(engine storage.Engine, m *metrics.Collector) *Shell {
	return &Shell{Dispatcher: protocol.NewDispatcher(engine, m)}
}

func TestShell_Script(t *testing.T) {
	conn := &scriptConn{lines: []string{
		"mkdir docs",
		"cd docs",
		"touch a.txt",
		"changenick bob",
		"bogus",
	}}
	m := metrics.New()
	sess := session.New(conn, "alice", quietLogger())

	err := newShell(storage.NewMemory(), m).Handle(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"directory docs created",
		"file a.txt created",
		"user nick has been changed",
		"unknown command",
	}, conn.written)

	// Initial prompt plus one per line.
	assert.Equal(t, []string{
		"alice / : ",
		"alice / : ",
		"alice /docs : ",
		"alice /docs : ",
		"bob /docs : ",
		"bob /docs : ",
	}, conn.prompts)

	assert.Greater(t, m.TotalBytesIn(), int64(0))
	assert.Greater(t, m.TotalBytesOut(), int64(0))
}

func TestShell_ReadErrorSurfaces(t *testing.T) {
	conn := &scriptConn{after: ncerr.ErrLineTooLong}
	sess := session.New(conn, "alice", quietLogger())

	err := newShell(storage.NewMemory(), nil).Handle(context.Background(), sess)
	assert.ErrorIs(t, err, ncerr.ErrLineTooLong)
}

// panicEngine blows up on ls.
type panicEngine struct{ storage.Engine }

func (panicEngine) List(string) (string, error) { panic("boom") }

func TestShell_RecoversPanic(t *testing.T) {
	conn := &scriptConn{lines: []string{"ls"}}
	m := metrics.New()
	sess := session.New(conn, "alice", quietLogger())

	err := newShell(panicEngine{storage.NewMemory()}, m).Handle(context.Background(), sess)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.EqualValues(t, 1, m.ErrorCount())
}

func TestShell_CancelClosesConn(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	go io.Copy(io.Discard, client) //nolint:errcheck

	conn := transport.NewStreamConn(server, 1024, 0)
	sess := session.New(conn, "alice", quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newShell(storage.NewMemory(), nil).Handle(ctx, sess) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shell did not stop after cancel")
	}
}

// TestShell_OverTCP drives the shell through a real socket and checks
// the exact bytes a telnet-style client sees.
func TestShell_OverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	engine := storage.NewMemory()
	served := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			served <- err
			return
		}
		conn := transport.NewStreamConn(c, 4096, 0)
		defer conn.Close()
		served <- newShell(engine, nil).Handle(context.Background(), session.New(conn, "alice", quietLogger()))
	}()

	c, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	r := bufio.NewReader(c)

	readPrompt := func(want string) {
		t.Helper()
		buf := make([]byte, len(want))
		_, err := io.ReadFull(r, buf)
		require.NoError(t, err)
		assert.Equal(t, want, string(buf))
	}

	readPrompt("alice / : ")

	_, err = c.Write([]byte("touch x\r\n"))
	require.NoError(t, err)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "file x created\r\n", line)
	readPrompt("alice / : ")

	_, err = c.Write([]byte("--help\n"))
	require.NoError(t, err)
	for range protocol.HelpLines() {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(line, "\t"), "help line %q", line)
	}
	readPrompt("alice / : ")

	c.(*net.TCPConn).CloseWrite() //nolint:errcheck
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shell did not finish after client EOF")
	}
}

// TestRelay_Run verifies Relay shuttles data between the terminal
// streams and the connection.
func TestRelay_Run(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn) // echo
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	input := bytes.NewBufferString("hello relay\n")
	output := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	relay := &Relay{Stdin: input, Stdout: output, Logger: quietLogger()}
	if err := relay.Run(ctx, conn); err != nil {
		t.Fatalf("Relay.Run: %v", err)
	}

	if got := output.String(); got != "hello relay\n" {
		t.Errorf("output = %q, want %q", got, "hello relay\n")
	}
}

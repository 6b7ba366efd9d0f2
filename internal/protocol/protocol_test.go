package protocol

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ncerr "filesh/internal/errors"
	"filesh/internal/metrics"
	"filesh/internal/session"
	"filesh/internal/storage"
)

// stubConn satisfies transport.LineConn for sessions that never touch
// the network.
type stubConn struct{}

func (stubConn) ReadLine() (string, error)  { return "", nil }
func (stubConn) WriteLines(...string) error { return nil }
func (stubConn) Prompt(string) error        { return nil }
func (stubConn) Close() error               { return nil }
func (stubConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}
}

func newSession(nick string) *session.Session {
	return session.New(stubConn{}, nick, nil)
}

// countingEngine records every call and fails with err when set.
type countingEngine struct {
	calls   []string
	err     error
	removed []string
}

func (e *countingEngine) note(op string) error {
	e.calls = append(e.calls, op)
	return e.err
}

func (e *countingEngine) List(string) (string, error) { return "a\nb", e.note("ls") }
func (e *countingEngine) MakeDir(_, n string) (string, error) {
	return "directory " + n + " created", e.note("mkdir")
}
func (e *countingEngine) Touch(_, n string) (string, error) {
	return "file " + n + " created", e.note("touch")
}
func (e *countingEngine) ChangeDir(cwd, t string) (string, error) {
	return storage.Resolve(cwd, t), e.note("cd")
}
func (e *countingEngine) Remove(_, n string) (string, error) {
	return "file " + n + " removed", e.note("rm")
}
func (e *countingEngine) ForceRemove(_, n string) error {
	e.removed = append(e.removed, n)
	return e.note("force")
}
func (e *countingEngine) Copy(string, string, string) error { return e.note("copy") }
func (e *countingEngine) ReadText(string, string) ([]string, error) {
	return []string{"x"}, e.note("cat")
}
func (e *countingEngine) DisplayPath(cwd string) string { return cwd }

func TestParse(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArgs []string
	}{
		{"ls", "ls", []string{}},
		{"copy a b", "copy", []string{"a", "b"}},
		{"  mkdir   docs  ", "mkdir", []string{"docs"}},
		{"", "", nil},
		{"   \t", "", nil},
	}
	for _, tt := range tests {
		name, args := Parse(tt.line)
		assert.Equal(t, tt.wantName, name, "line %q", tt.line)
		if tt.wantArgs == nil {
			assert.Nil(t, args, "line %q", tt.line)
		} else {
			assert.Equal(t, tt.wantArgs, args, "line %q", tt.line)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr error
	}{
		{"ls", List{}, nil},
		{"--help", Help{}, nil},
		{"Y", Confirm{}, nil},
		{"N", Decline{}, nil},
		{"changenick bob", ChangeNick{Nick: "bob"}, nil},
		{"mkdir d", MakeDir{Name: "d"}, nil},
		{"touch f", Touch{Name: "f"}, nil},
		{"cd ..", ChangeDir{Target: ".."}, nil},
		{"rm f", Remove{Name: "f"}, nil},
		{"cat f", Cat{Name: "f"}, nil},
		{"copy a b", Copy{Src: "a", Dst: "b"}, nil},

		{"ls extra", nil, ncerr.ErrBadArity},
		{"Y now", nil, ncerr.ErrBadArity},
		{"mkdir", nil, ncerr.ErrBadArity},
		{"mkdir a b", nil, ncerr.ErrBadArity},
		{"copy a", nil, ncerr.ErrBadArity},
		{"copy a b c", nil, ncerr.ErrBadArity},

		{"", nil, ncerr.ErrUnknownCommand},
		{"dir", nil, ncerr.ErrUnknownCommand},
		{"y", nil, ncerr.ErrUnknownCommand},
		{"LS", nil, ncerr.ErrUnknownCommand},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := Validate(Parse(tt.line))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, cmd)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestArityTable(t *testing.T) {
	want := map[string]int{
		"ls": 0, "--help": 0, "Y": 0, "N": 0,
		"copy":       2,
		"changenick": 1, "mkdir": 1, "touch": 1, "cd": 1, "rm": 1, "cat": 1,
	}
	assert.Len(t, Names(), len(want))
	for name, n := range want {
		got, ok := Arity(name)
		assert.True(t, ok, name)
		assert.Equal(t, n, got, name)
	}
}

func TestHelpLines(t *testing.T) {
	lines := HelpLines()
	require.Len(t, lines, 8)
	for i, name := range []string{"ls", "mkdir", "touch", "cd", "rm", "copy", "cat", "changenick"} {
		assert.Contains(t, lines[i], name)
		assert.True(t, strings.HasPrefix(lines[i], "\t"))
	}
}

func TestDispatcher_ProtocolErrorsNeverReachEngine(t *testing.T) {
	eng := &countingEngine{}
	m := metrics.New()
	d := NewDispatcher(eng, m)
	sess := newSession("alice")

	for _, line := range []string{"ls -la", "mkdir", "copy x", "rm a b", "Y y", "cat"} {
		r := d.Handle(sess, line)
		assert.Equal(t, []string{"unknown parameters"}, r.Lines, line)
	}
	for _, line := range []string{"", "dir", "exit", "n"} {
		r := d.Handle(sess, line)
		assert.Equal(t, []string{"unknown command"}, r.Lines, line)
	}

	assert.Empty(t, eng.calls)
	assert.EqualValues(t, 10, m.ProtocolErrors())
	_, armed := sess.Pending()
	assert.False(t, armed)
}

func TestDispatcher_PromptAlwaysPresent(t *testing.T) {
	d := NewDispatcher(&countingEngine{err: ncerr.Storage("ls", "/", ncerr.ErrNotFound)}, nil)
	sess := newSession("alice")

	for _, line := range []string{"ls", "bogus", "N", "--help"} {
		assert.Equal(t, "alice / : ", d.Handle(sess, line).Prompt, line)
	}
}

func TestDispatcher_ChangeNick(t *testing.T) {
	d := NewDispatcher(storage.NewMemory(), nil)
	sess := newSession("alice")
	sess.SetCwd("/docs")

	r := d.Handle(sess, "changenick bob")
	assert.Equal(t, []string{"user nick has been changed"}, r.Lines)
	assert.Equal(t, "bob /docs : ", r.Prompt)
	assert.Equal(t, "/docs", sess.Cwd())
}

func TestDispatcher_RoundTrip(t *testing.T) {
	d := NewDispatcher(storage.NewMemory(), nil)
	sess := newSession("alice")

	r := d.Handle(sess, "mkdir d")
	assert.Equal(t, []string{"directory d created"}, r.Lines)

	r = d.Handle(sess, "ls")
	assert.Contains(t, strings.Join(r.Lines, "\n"), "d/")

	r = d.Handle(sess, "rm d")
	assert.Equal(t, []string{"directory d removed"}, r.Lines)

	r = d.Handle(sess, "mkdir d")
	assert.Equal(t, []string{"directory d created"}, r.Lines)
	r = d.Handle(sess, "mkdir d")
	require.Len(t, r.Lines, 1)
	assert.Contains(t, r.Lines[0], "already exists")
}

func TestDispatcher_ChangeDir(t *testing.T) {
	d := NewDispatcher(storage.NewMemory(), nil)
	sess := newSession("alice")
	d.Handle(sess, "mkdir docs")
	d.Handle(sess, "touch plain")

	r := d.Handle(sess, "cd docs")
	assert.Empty(t, r.Lines)
	assert.Equal(t, "alice /docs : ", r.Prompt)

	r = d.Handle(sess, "cd missing")
	require.Len(t, r.Lines, 1)
	assert.Contains(t, r.Lines[0], "no such file or directory")
	assert.Equal(t, "/docs", sess.Cwd())

	r = d.Handle(sess, "cd /plain")
	require.Len(t, r.Lines, 1)
	assert.Equal(t, "/docs", sess.Cwd())

	d.Handle(sess, "cd ..")
	assert.Equal(t, storage.Root, sess.Cwd())
	d.Handle(sess, "cd docs")
	d.Handle(sess, "cd ~")
	assert.Equal(t, storage.Root, sess.Cwd())
}

func TestDispatcher_CopyAndCat(t *testing.T) {
	eng := storage.NewMemory()
	d := NewDispatcher(eng, nil)
	sess := newSession("alice")
	d.Handle(sess, "touch a.txt")

	r := d.Handle(sess, "copy a.txt b.txt")
	assert.Equal(t, []string{"copied"}, r.Lines)

	r = d.Handle(sess, "cat b.txt")
	assert.Equal(t, []string{""}, r.Lines)

	r = d.Handle(sess, "cat nope")
	require.Len(t, r.Lines, 1)
	assert.Contains(t, r.Lines[0], "no such file or directory")
}

func TestDispatcher_CatAppendsBlankLine(t *testing.T) {
	d := NewDispatcher(&countingEngine{}, nil)
	r := d.Handle(newSession("alice"), "cat f")
	assert.Equal(t, []string{"x", ""}, r.Lines)
}

func TestConfirmation_Yes(t *testing.T) {
	m := metrics.New()
	d := NewDispatcher(storage.NewMemory(), m)
	sess := newSession("alice")
	d.Handle(sess, "mkdir full")
	d.Handle(sess, "touch full/inside")

	r := d.Handle(sess, "rm full")
	require.Len(t, r.Lines, 1)
	assert.Contains(t, r.Lines[0], "(Y/N)")
	target, armed := sess.Pending()
	assert.True(t, armed)
	assert.Equal(t, "/full", target)

	r = d.Handle(sess, "Y")
	assert.Equal(t, []string{"deleted"}, r.Lines)
	_, armed = sess.Pending()
	assert.False(t, armed)
	assert.EqualValues(t, 1, m.ConfirmedDeletes())

	r = d.Handle(sess, "cd full")
	require.Len(t, r.Lines, 1)
	assert.Contains(t, r.Lines[0], "no such file or directory")

	// A second answer is a no-op.
	assert.Empty(t, d.Handle(sess, "Y").Lines)
	assert.Empty(t, d.Handle(sess, "N").Lines)
}

func TestConfirmation_No(t *testing.T) {
	eng := storage.NewMemory()
	d := NewDispatcher(eng, nil)
	sess := newSession("alice")
	d.Handle(sess, "mkdir full")
	d.Handle(sess, "touch full/inside")
	d.Handle(sess, "rm full")

	r := d.Handle(sess, "N")
	assert.Empty(t, r.Lines)
	_, armed := sess.Pending()
	assert.False(t, armed)

	assert.Empty(t, d.Handle(sess, "Y").Lines)
	_, err := eng.ChangeDir(storage.Root, "full")
	assert.NoError(t, err)
}

func TestConfirmation_PersistsAcrossCommands(t *testing.T) {
	d := NewDispatcher(storage.NewMemory(), nil)
	sess := newSession("alice")
	d.Handle(sess, "mkdir full")
	d.Handle(sess, "mkdir other")
	d.Handle(sess, "touch full/inside")
	d.Handle(sess, "rm full")

	// Unrelated commands, including a cd, leave the slot armed on the
	// path resolved at rm time.
	d.Handle(sess, "ls")
	d.Handle(sess, "cd other")
	d.Handle(sess, "bogus")
	target, armed := sess.Pending()
	require.True(t, armed)
	assert.Equal(t, "/full", target)

	assert.Equal(t, []string{"deleted"}, d.Handle(sess, "Y").Lines)
}

func TestConfirmation_ArmedEvenOnSuccess(t *testing.T) {
	eng := &countingEngine{}
	d := NewDispatcher(eng, nil)
	sess := newSession("alice")

	r := d.Handle(sess, "rm f")
	assert.Equal(t, []string{"file f removed"}, r.Lines)
	target, armed := sess.Pending()
	assert.True(t, armed)
	assert.Equal(t, "/f", target)

	assert.Equal(t, []string{"deleted"}, d.Handle(sess, "Y").Lines)
	assert.Equal(t, []string{"/f"}, eng.removed)
}

func TestConfirmation_NewRmOverwrites(t *testing.T) {
	eng := &countingEngine{}
	d := NewDispatcher(eng, nil)
	sess := newSession("alice")

	d.Handle(sess, "rm first")
	d.Handle(sess, "rm second")
	d.Handle(sess, "Y")
	assert.Equal(t, []string{"/second"}, eng.removed)
}

func TestConfirmation_FailedDeleteClearsSlot(t *testing.T) {
	eng := &countingEngine{}
	d := NewDispatcher(eng, nil)
	sess := newSession("alice")
	d.Handle(sess, "rm gone")

	eng.err = ncerr.Storage("rm", "/gone", ncerr.ErrNotFound)
	r := d.Handle(sess, "Y")
	require.Len(t, r.Lines, 1)
	assert.Contains(t, r.Lines[0], "no such file or directory")

	_, armed := sess.Pending()
	assert.False(t, armed)
}

func TestConfirmation_IsolatedPerSession(t *testing.T) {
	eng := storage.NewMemory()
	d := NewDispatcher(eng, nil)
	alice := newSession("alice")
	bob := newSession("bob")

	d.Handle(alice, "mkdir full")
	d.Handle(alice, "touch full/inside")
	d.Handle(alice, "rm full")

	// bob cannot answer alice's question.
	assert.Empty(t, d.Handle(bob, "Y").Lines)
	_, err := eng.ChangeDir(storage.Root, "full")
	require.NoError(t, err)

	_, armed := alice.Pending()
	assert.True(t, armed)
	assert.Equal(t, []string{"deleted"}, d.Handle(alice, "Y").Lines)
}

func TestDispatcher_Metrics(t *testing.T) {
	m := metrics.New()
	d := NewDispatcher(storage.NewMemory(), m)
	sess := newSession("alice")

	d.Handle(sess, "ls")
	d.Handle(sess, "ls")
	d.Handle(sess, "cat missing")
	d.Handle(sess, "nope")

	assert.EqualValues(t, 2, m.Commands()["ls"])
	assert.EqualValues(t, 1, m.Commands()["cat"])
	assert.EqualValues(t, 1, m.StorageErrors())
	assert.EqualValues(t, 1, m.ProtocolErrors())
}

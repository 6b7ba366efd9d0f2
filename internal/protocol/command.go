package protocol

import (
	"sort"
	"strings"

	ncerr "filesh/internal/errors"
	"filesh/internal/session"
	"filesh/internal/storage"
)

// Command is one validated client request.  The set of implementations
// is closed: each variant carries exactly the arguments its arity
// requires and executes itself against the session and the engine.
type Command interface {
	// Name returns the protocol keyword.
	Name() string

	// run performs the command and returns its response lines.  A
	// returned error becomes a single response line.
	run(env *runEnv) ([]string, error)
}

// runEnv is what a command may touch while it runs.
type runEnv struct {
	sess   *session.Session
	engine storage.Engine
	d      *Dispatcher
}

// ── variants ─────────────────────────────────────────────────────────

// One variant per protocol keyword.
type (
	Help       struct{}
	ChangeNick struct{ Nick string }
	List       struct{}
	MakeDir    struct{ Name string }
	Touch      struct{ Name string }
	ChangeDir  struct{ Target string }
	Remove     struct{ Name string }
	Copy       struct{ Src, Dst string }
	Cat        struct{ Name string }
	Confirm    struct{}
	Decline    struct{}
)

func (Help) Name() string       { return "--help" }
func (ChangeNick) Name() string { return "changenick" }
func (List) Name() string       { return "ls" }
func (MakeDir) Name() string    { return "mkdir" }
func (Touch) Name() string      { return "touch" }
func (ChangeDir) Name() string  { return "cd" }
func (Remove) Name() string     { return "rm" }
func (Copy) Name() string       { return "copy" }
func (Cat) Name() string        { return "cat" }
func (Confirm) Name() string    { return "Y" }
func (Decline) Name() string    { return "N" }

func (Help) run(*runEnv) ([]string, error) {
	return HelpLines(), nil
}

func (c ChangeNick) run(env *runEnv) ([]string, error) {
	env.sess.SetNickname(c.Nick)
	return []string{"user nick has been changed"}, nil
}

func (List) run(env *runEnv) ([]string, error) {
	listing, err := env.engine.List(env.sess.Cwd())
	if err != nil {
		return nil, err
	}
	return strings.Split(listing, "\n"), nil
}

func (c MakeDir) run(env *runEnv) ([]string, error) {
	status, err := env.engine.MakeDir(env.sess.Cwd(), c.Name)
	if err != nil {
		return nil, err
	}
	return []string{status}, nil
}

func (c Touch) run(env *runEnv) ([]string, error) {
	status, err := env.engine.Touch(env.sess.Cwd(), c.Name)
	if err != nil {
		return nil, err
	}
	return []string{status}, nil
}

// run moves the session only when the engine accepts the target.
func (c ChangeDir) run(env *runEnv) ([]string, error) {
	dir, err := env.engine.ChangeDir(env.sess.Cwd(), c.Target)
	if err != nil {
		return nil, err
	}
	env.sess.SetCwd(dir)
	return nil, nil
}

// run arms the confirmation slot before asking the engine, whatever the
// outcome.  The target is resolved now so a later cd does not change
// what Y deletes.
func (c Remove) run(env *runEnv) ([]string, error) {
	cwd := env.sess.Cwd()
	env.sess.Arm(storage.Resolve(cwd, c.Name))

	status, err := env.engine.Remove(cwd, c.Name)
	if err != nil {
		return nil, err
	}
	return []string{status}, nil
}

func (c Copy) run(env *runEnv) ([]string, error) {
	if err := env.engine.Copy(env.sess.Cwd(), c.Src, c.Dst); err != nil {
		return nil, err
	}
	return []string{"copied"}, nil
}

func (c Cat) run(env *runEnv) ([]string, error) {
	lines, err := env.engine.ReadText(env.sess.Cwd(), c.Name)
	if err != nil {
		return nil, err
	}
	return append(lines, ""), nil
}

// run is a no-op unless a target is armed.  The slot is cleared before
// the delete runs, so a failed delete still leaves the session idle.
func (Confirm) run(env *runEnv) ([]string, error) {
	target, ok := env.sess.Take()
	if !ok {
		return nil, nil
	}
	if err := env.engine.ForceRemove(storage.Root, target); err != nil {
		return nil, err
	}
	env.d.Metrics.ConfirmedDelete()
	return []string{"deleted"}, nil
}

func (Decline) run(env *runEnv) ([]string, error) {
	env.sess.Clear()
	return nil, nil
}

// ── arity table ──────────────────────────────────────────────────────

type entry struct {
	arity int
	build func(args []string) Command
}

var table = map[string]entry{
	"--help":     {0, func([]string) Command { return Help{} }},
	"ls":         {0, func([]string) Command { return List{} }},
	"Y":          {0, func([]string) Command { return Confirm{} }},
	"N":          {0, func([]string) Command { return Decline{} }},
	"changenick": {1, func(a []string) Command { return ChangeNick{Nick: a[0]} }},
	"mkdir":      {1, func(a []string) Command { return MakeDir{Name: a[0]} }},
	"touch":      {1, func(a []string) Command { return Touch{Name: a[0]} }},
	"cd":         {1, func(a []string) Command { return ChangeDir{Target: a[0]} }},
	"rm":         {1, func(a []string) Command { return Remove{Name: a[0]} }},
	"cat":        {1, func(a []string) Command { return Cat{Name: a[0]} }},
	"copy":       {2, func(a []string) Command { return Copy{Src: a[0], Dst: a[1]} }},
}

// Validate turns a parsed line into a Command.  It fails with
// ErrUnknownCommand for names outside the table and ErrBadArity when
// the argument count does not match.
func Validate(name string, args []string) (Command, error) {
	e, ok := table[name]
	if !ok {
		return nil, ncerr.ErrUnknownCommand
	}
	if len(args) != e.arity {
		return nil, ncerr.ErrBadArity
	}
	return e.build(args), nil
}

// Arity reports the required argument count of a command name.
func Arity(name string) (int, bool) {
	e, ok := table[name]
	return e.arity, ok
}

// Names returns every command keyword, sorted.
func Names() []string {
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

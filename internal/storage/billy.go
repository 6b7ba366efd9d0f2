package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	ncerr "filesh/internal/errors"
)

// BillyEngine implements Engine on top of a go-billy filesystem.
//
// A single RWMutex serialises every mutating call (mkdir, touch, rm,
// copy) against every other call, so two sessions racing to create the
// same name see exactly one success.  ls, cat and cd share the read
// lock and never observe a half-written copy.
type BillyEngine struct {
	// MaxTextSize caps what cat reads in bytes; 0 means DefaultMaxTextSize.
	MaxTextSize int64

	fs billy.Filesystem
	mu sync.RWMutex
}

// DefaultMaxTextSize is the largest file cat prints.
const DefaultMaxTextSize = 1 << 20

// New wraps an existing billy filesystem.  The filesystem's root is the
// shared root.
func New(fs billy.Filesystem) *BillyEngine {
	return &BillyEngine{fs: fs}
}

// NewLocal serves the host directory root, creating it if needed.
// osfs chroots every path under root.
func NewLocal(root string) (*BillyEngine, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create root %s: %w", root, err)
	}
	return New(osfs.New(root)), nil
}

// NewMemory returns an engine over an empty in-memory tree.
func NewMemory() *BillyEngine {
	return New(memfs.New())
}

// Unwrap returns the underlying billy.Filesystem.
func (e *BillyEngine) Unwrap() billy.Filesystem { return e.fs }

// ── read-only operations ─────────────────────────────────────────────

// List implements Engine.
func (e *BillyEngine) List(cwd string) (string, error) {
	dir := Resolve(cwd, ".")

	e.mu.RLock()
	defer e.mu.RUnlock()

	if dir != Root {
		info, err := e.stat("ls", dir)
		if err != nil {
			return "", err
		}
		if !info.IsDir() {
			return "", ncerr.Storage("ls", dir, ncerr.ErrInvalidPath)
		}
	}

	infos, err := e.fs.ReadDir(dir)
	if err != nil {
		// An untouched in-memory root has no entry of its own yet.
		if dir == Root && os.IsNotExist(err) {
			return formatListing(nil), nil
		}
		return "", mapErr("ls", dir, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return formatListing(infos), nil
}

// ChangeDir implements Engine.
func (e *BillyEngine) ChangeDir(cwd, target string) (string, error) {
	p := Resolve(cwd, target)
	if p == Root {
		return Root, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	info, err := e.stat("cd", p)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", ncerr.Storage("cd", p, ncerr.ErrInvalidPath)
	}
	return p, nil
}

// ReadText implements Engine.  A file counts as text when it is valid
// UTF-8 and carries no NUL bytes.  Files over MaxTextSize fail with
// ErrTooLarge.
func (e *BillyEngine) ReadText(cwd, name string) ([]string, error) {
	p := Resolve(cwd, name)

	e.mu.RLock()
	defer e.mu.RUnlock()

	info, err := e.stat("cat", p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, ncerr.Storage("cat", p, ncerr.ErrNotText)
	}

	limit := e.MaxTextSize
	if limit <= 0 {
		limit = DefaultMaxTextSize
	}
	if info.Size() > limit {
		return nil, ncerr.Storage("cat", p, ncerr.ErrTooLarge)
	}

	f, err := e.fs.Open(p)
	if err != nil {
		return nil, mapErr("cat", p, err)
	}
	defer f.Close()

	// The file may grow between Stat and Read.
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, mapErr("cat", p, err)
	}
	if int64(len(data)) > limit {
		return nil, ncerr.Storage("cat", p, ncerr.ErrTooLarge)
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return nil, ncerr.Storage("cat", p, ncerr.ErrNotText)
	}
	return splitLines(string(data)), nil
}

// DisplayPath implements Engine.
func (e *BillyEngine) DisplayPath(cwd string) string {
	if cwd == "" {
		return Root
	}
	return cwd
}

// ── mutating operations ──────────────────────────────────────────────

// MakeDir implements Engine.
func (e *BillyEngine) MakeDir(cwd, name string) (string, error) {
	p := Resolve(cwd, name)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkCreatable("mkdir", p); err != nil {
		return "", err
	}
	if err := e.fs.MkdirAll(p, 0o755); err != nil {
		return "", mapErr("mkdir", p, err)
	}
	return fmt.Sprintf("directory %s created", name), nil
}

// Touch implements Engine.
func (e *BillyEngine) Touch(cwd, name string) (string, error) {
	p := Resolve(cwd, name)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkCreatable("touch", p); err != nil {
		return "", err
	}
	f, err := e.fs.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", mapErr("touch", p, err)
	}
	if err := f.Close(); err != nil {
		return "", mapErr("touch", p, err)
	}
	return fmt.Sprintf("file %s created", name), nil
}

// Remove implements Engine.
func (e *BillyEngine) Remove(cwd, name string) (string, error) {
	p := Resolve(cwd, name)
	if p == Root {
		return "", ncerr.Storage("rm", p, ncerr.ErrInvalidPath)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	info, err := e.stat("rm", p)
	if err != nil {
		return "", err
	}

	kind := "file"
	if info.IsDir() {
		kind = "directory"
		entries, err := e.fs.ReadDir(p)
		if err != nil {
			return "", mapErr("rm", p, err)
		}
		if len(entries) > 0 {
			return "", &ncerr.StorageError{
				Op:   "rm",
				Path: p,
				Err:  ncerr.ErrNotEmpty,
				Hint: "delete anyway? (Y/N)",
			}
		}
	}

	if err := e.fs.Remove(p); err != nil {
		return "", mapErr("rm", p, err)
	}
	return fmt.Sprintf("%s %s removed", kind, name), nil
}

// ForceRemove implements Engine.
func (e *BillyEngine) ForceRemove(cwd, name string) error {
	p := Resolve(cwd, name)
	if p == Root {
		return ncerr.Storage("rm", p, ncerr.ErrInvalidPath)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.stat("rm", p); err != nil {
		return err
	}
	if err := util.RemoveAll(e.fs, p); err != nil {
		return mapErr("rm", p, err)
	}
	return nil
}

// Copy implements Engine.  Directories are copied recursively; the
// destination must not exist yet.
func (e *BillyEngine) Copy(cwd, src, dst string) error {
	from := Resolve(cwd, src)
	to := Resolve(cwd, dst)
	// The root contains every destination, so it is never a source.
	if from == Root {
		return ncerr.Storage("copy", from, ncerr.ErrInvalidPath)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	info, err := e.stat("copy", from)
	if err != nil {
		return err
	}
	if err := e.checkCreatable("copy", to); err != nil {
		return err
	}

	if !info.IsDir() {
		return e.copyFile(from, to, info.Mode())
	}

	if strings.HasPrefix(to, from+"/") {
		return ncerr.Storage("copy", to, ncerr.ErrInvalidPath)
	}
	return util.Walk(e.fs, from, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return mapErr("copy", p, err)
		}
		target := path.Join(to, strings.TrimPrefix(p, from))
		if fi.IsDir() {
			return mapErr("copy", target, e.fs.MkdirAll(target, dirPerm(fi.Mode())))
		}
		return e.copyFile(p, target, fi.Mode())
	})
}

// ── helpers ──────────────────────────────────────────────────────────

// stat wraps fs.Stat with error mapping; callers hold e.mu.
func (e *BillyEngine) stat(op, p string) (os.FileInfo, error) {
	info, err := e.fs.Stat(p)
	if err != nil {
		return nil, mapErr(op, p, err)
	}
	return info, nil
}

// checkCreatable verifies p does not exist yet and its parent is a
// directory; callers hold the write lock.
func (e *BillyEngine) checkCreatable(op, p string) error {
	if p == Root {
		return ncerr.Storage(op, p, ncerr.ErrAlreadyExists)
	}

	if parent := path.Dir(p); parent != Root {
		info, err := e.stat(op, parent)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return ncerr.Storage(op, parent, ncerr.ErrInvalidPath)
		}
	}

	if _, err := e.fs.Stat(p); err == nil {
		return ncerr.Storage(op, p, ncerr.ErrAlreadyExists)
	} else if !os.IsNotExist(err) {
		return mapErr(op, p, err)
	}
	return nil
}

func (e *BillyEngine) copyFile(from, to string, mode os.FileMode) error {
	in, err := e.fs.Open(from)
	if err != nil {
		return mapErr("copy", from, err)
	}
	defer in.Close()

	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := e.fs.OpenFile(to, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return mapErr("copy", to, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return mapErr("copy", to, err)
	}
	return mapErr("copy", to, out.Close())
}

func dirPerm(mode os.FileMode) os.FileMode {
	if perm := mode.Perm(); perm != 0 {
		return perm
	}
	return 0o755
}

// mapErr translates filesystem errors into StorageError kinds.  A nil
// err stays nil.
func mapErr(op, p string, err error) error {
	switch {
	case err == nil:
		return nil
	case ncerr.IsStorage(err):
		return err
	case os.IsNotExist(err):
		return ncerr.Storage(op, p, ncerr.ErrNotFound)
	case os.IsExist(err):
		return ncerr.Storage(op, p, ncerr.ErrAlreadyExists)
	case ncerr.Is(err, billy.ErrCrossedBoundary), ncerr.Is(err, syscall.ENOTDIR):
		return ncerr.Storage(op, p, ncerr.ErrInvalidPath)
	default:
		return &ncerr.StorageError{Op: op, Path: p, Err: err}
	}
}

// splitLines splits text into lines, accepting \n and \r\n endings.
// A trailing terminator does not produce an empty last line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

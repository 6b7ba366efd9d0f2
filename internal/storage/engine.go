// Package storage is the filesystem side of filesh: every session
// shares one Engine, which executes directory and file effects against
// a single root and reports expected failures as *errors.StorageError
// values.
//
// Paths handed to an Engine are interpreted relative to the caller's
// current directory, or from the root when they start with "/".  The
// root is "/" in this virtual namespace and can never be escaped.
package storage

import (
	"path"
	"strings"
)

// Engine is the contract the command dispatcher relies on.  cwd is
// always a root-relative virtual path previously returned by ChangeDir
// (or Root).
type Engine interface {
	// List returns a formatted listing of cwd.
	List(cwd string) (string, error)

	// MakeDir creates a directory; fails with ErrAlreadyExists.
	MakeDir(cwd, name string) (string, error)

	// Touch creates an empty file; fails with ErrAlreadyExists.
	Touch(cwd, name string) (string, error)

	// ChangeDir resolves target and returns the new current directory;
	// fails with ErrNotFound or ErrInvalidPath.
	ChangeDir(cwd, target string) (string, error)

	// Remove deletes a file or an empty directory; fails with
	// ErrNotFound or ErrNotEmpty.
	Remove(cwd, name string) (string, error)

	// ForceRemove deletes name and everything beneath it; fails with
	// ErrNotFound.
	ForceRemove(cwd, name string) error

	// Copy duplicates a file or a directory tree; fails with
	// ErrNotFound or ErrAlreadyExists.
	Copy(cwd, src, dst string) error

	// ReadText returns the lines of a text file; fails with
	// ErrNotFound, ErrNotText or ErrTooLarge.
	ReadText(cwd, name string) ([]string, error)

	// DisplayPath renders cwd for the prompt.
	DisplayPath(cwd string) string
}

// Root is the virtual path of the shared root directory.
const Root = "/"

// Resolve joins name onto cwd in the virtual namespace.  "~" is the
// root, absolute names start from the root, and ".." never climbs
// above it.
func Resolve(cwd, name string) string {
	switch {
	case name == "~":
		return Root
	case strings.HasPrefix(name, "~/"):
		return path.Clean("/" + name[2:])
	case strings.HasPrefix(name, "/"):
		return path.Clean(name)
	}
	if cwd == "" {
		cwd = Root
	}
	return path.Clean(path.Join("/", cwd, name))
}

// Package errors provides domain-specific error types for filesh.
//
// Storage failures are expected, recoverable conditions and travel as
// values: a *StorageError carries the operation and path and wraps one
// of the kind sentinels below, so callers branch with Is rather than
// string matching.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Storage kinds ────────────────────────────────────────────────────

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("no such file or directory")
	ErrNotEmpty      = errors.New("directory is not empty")
	ErrInvalidPath   = errors.New("invalid path")
	ErrNotText       = errors.New("not a text file")
	ErrTooLarge      = errors.New("file too large")
)

// ── Protocol sentinels ───────────────────────────────────────────────
//
// Their messages go to the client verbatim.

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArity       = errors.New("unknown parameters")
)

// ── Lifecycle sentinels ──────────────────────────────────────────────

var (
	ErrLineTooLong = errors.New("line exceeds maximum length")
	ErrTimeout     = errors.New("operation timed out")
)

// ── Structured error types ───────────────────────────────────────────

// StorageError is returned by every failing Storage Engine operation.
type StorageError struct {
	Op   string // "ls", "mkdir", "touch", "cd", "rm", "copy", "cat"
	Path string // root-relative path the operation targeted
	Err  error  // one of the kind sentinels, or an unexpected I/O error
	Hint string // optional follow-up for the user
}

func (e *StorageError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	if e.Hint != "" {
		s += "; " + e.Hint
	}
	return s
}

func (e *StorageError) Unwrap() error { return e.Err }

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "listen", "accept", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents a failure on the SSH front-end.
type SSHError struct {
	Op     string // "hostkey", "handshake", "channel"
	Remote string
	Err    error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s: %v", e.Op, e.Remote, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Storage creates a StorageError for op on path.
func Storage(op, path string, kind error) *StorageError {
	return &StorageError{Op: op, Path: path, Err: kind}
}

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, remote string, err error) *SSHError {
	return &SSHError{Op: op, Remote: remote, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsStorage reports whether err came out of the Storage Engine.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsProtocol reports whether err was produced by command validation.
func IsProtocol(err error) bool {
	return errors.Is(err, ErrUnknownCommand) || errors.Is(err, ErrBadArity)
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsTemporary reports whether err represents a temporary condition.
func IsTemporary(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }

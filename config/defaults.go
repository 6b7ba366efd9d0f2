package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultPort is the command-protocol port.
	DefaultPort = 5000

	// DefaultRoot is the directory shared by every session.
	DefaultRoot = "server"

	// DefaultMaxLineLength bounds one command line in bytes.
	DefaultMaxLineLength = 4096

	// DefaultRetries is the number of client dial attempts.
	DefaultRetries = 1

	// DefaultConnTimeout is the client TCP dial timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultAcceptBackoff is the first pause after a temporary accept
	// error; it doubles up to DefaultMaxAcceptBackoff.
	DefaultAcceptBackoff = 5 * time.Millisecond

	// DefaultMaxAcceptBackoff caps the accept retry pause.
	DefaultMaxAcceptBackoff = time.Second

	// DefaultGracePeriod is how long shutdown waits for handlers to finish.
	DefaultGracePeriod = 5 * time.Second
)

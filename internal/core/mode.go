// Package core is the orchestration layer.  It composes transports
// and capabilities into complete operational modes and provides a
// builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	storage  →  session  →  protocol  →  capability  →  core  →  cmd (CLI)
//
// transport sits beside session: it frames bytes into lines for both
// the TCP and the SSH listener.
package core

import "context"

// Mode represents a complete operational mode of filesh (serve or
// connect) or one listener within the serve mode.  Each mode owns its
// full lifecycle from setup to teardown and returns when ctx is
// cancelled or a fatal error occurs.
type Mode interface {
	Run(ctx context.Context) error
}

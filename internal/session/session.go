// Package session holds the per-connection state of the command
// protocol: who the client is called, where it is in the shared tree,
// and whether it owes an answer to a destructive delete.
//
// A Session is owned by the goroutine serving its connection.  The
// mutex exists so the admin endpoint can take snapshots while that
// goroutine is running.
package session

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"filesh/internal/storage"
	"filesh/internal/transport"
	"filesh/util"
)

// Session encapsulates the runtime state for a single connection.
type Session struct {
	ID      string
	Remote  net.Addr
	Started time.Time
	Conn    transport.LineConn
	Logger  *util.Logger

	mu       sync.Mutex
	nickname string
	cwd      string
	pending  string // resolved rm target awaiting Y/N; "" when idle
	armed    bool
}

// New creates a Session bound to conn.  The nickname starts as the
// connection identifier and the current directory at the shared root.
func New(conn transport.LineConn, nickname string, logger *util.Logger) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Remote:   conn.RemoteAddr(),
		Started:  time.Now(),
		Conn:     conn,
		Logger:   logger,
		nickname: nickname,
		cwd:      storage.Root,
	}
}

// Nickname returns the display name used in the prompt.
func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// SetNickname replaces the display name.
func (s *Session) SetNickname(nick string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nickname = nick
}

// Cwd returns the current directory as a root-relative virtual path.
func (s *Session) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// SetCwd moves the session to dir.
func (s *Session) SetCwd(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cwd = dir
}

// ── confirmation slot ────────────────────────────────────────────────
//
// IDLE ⇄ AWAITING_CONFIRMATION(target).  Arm overwrites any previous
// target; Take and Clear both return the slot to IDLE.

// Arm records target as awaiting a Y/N answer.
func (s *Session) Arm(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = target
	s.armed = true
}

// Pending reports the armed target, if any.
func (s *Session) Pending() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.armed
}

// Take returns the armed target and clears the slot in one step.
func (s *Session) Take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.pending, s.armed
	s.pending, s.armed = "", false
	return target, ok
}

// Clear drops any armed target and reports whether one was set.
func (s *Session) Clear() bool {
	_, ok := s.Take()
	return ok
}

// ── snapshots ────────────────────────────────────────────────────────

// Info is a point-in-time view of a session.
type Info struct {
	ID                   string `json:"id"`
	Nickname             string `json:"nickname"`
	Cwd                  string `json:"cwd"`
	Remote               string `json:"remote"`
	Since                string `json:"since"`
	AwaitingConfirmation bool   `json:"awaiting_confirmation"`
}

// Info returns a snapshot of s.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	remote := ""
	if s.Remote != nil {
		remote = s.Remote.String()
	}
	return Info{
		ID:                   s.ID,
		Nickname:             s.nickname,
		Cwd:                  s.cwd,
		Remote:               remote,
		Since:                s.Started.Format(time.RFC3339),
		AwaitingConfirmation: s.armed,
	}
}

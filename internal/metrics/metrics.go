// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of a filesh server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a filesh server.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	sessionsActive atomic.Int64
	sessionsTotal  atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	protocolErrors atomic.Int64
	storageErrors  atomic.Int64
	confirmations  atomic.Int64
	errorsTotal    atomic.Int64

	mu              sync.RWMutex
	commands        map[string]int64
	startTime       time.Time
	lastHealthCheck time.Time
	lastError       time.Time
	lastErrorMsg    string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{
		commands:  make(map[string]int64),
		startTime: time.Now(),
	}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the active and total counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// ActiveSessions returns the current number of open sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from clients.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to clients.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Command metrics ──────────────────────────────────────────────────

// RecordCommand counts one dispatched command by name.
func (c *Collector) RecordCommand(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.commands[name]++
	c.mu.Unlock()
}

// Commands returns a copy of the per-command counts.
func (c *Collector) Commands() map[string]int64 {
	if c == nil {
		return map[string]int64{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.commands))
	for k, v := range c.commands {
		out[k] = v
	}
	return out
}

// ProtocolError counts a line rejected before dispatch.
func (c *Collector) ProtocolError() {
	if c == nil {
		return
	}
	c.protocolErrors.Add(1)
}

// StorageError counts a command the storage engine refused.
func (c *Collector) StorageError() {
	if c == nil {
		return
	}
	c.storageErrors.Add(1)
}

// ConfirmedDelete counts a forced delete executed after "Y".
func (c *Collector) ConfirmedDelete() {
	if c == nil {
		return
	}
	c.confirmations.Add(1)
}

// ProtocolErrors returns the number of rejected lines.
func (c *Collector) ProtocolErrors() int64 {
	if c == nil {
		return 0
	}
	return c.protocolErrors.Load()
}

// StorageErrors returns the number of refused commands.
func (c *Collector) StorageErrors() int64 {
	if c == nil {
		return 0
	}
	return c.storageErrors.Load()
}

// ConfirmedDeletes returns the number of forced deletes.
func (c *Collector) ConfirmedDeletes() int64 {
	if c == nil {
		return 0
	}
	return c.confirmations.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
// It is meant for unexpected failures, not for refused commands.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Health ───────────────────────────────────────────────────────────

// RecordHealthCheck updates the last health check timestamp.
func (c *Collector) RecordHealthCheck() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lastHealthCheck = time.Now()
	c.mu.Unlock()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// CommandCount is one entry of the per-command breakdown.
type CommandCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string         `json:"uptime"`
	SessionsActive   int64          `json:"sessions_active"`
	SessionsTotal    int64          `json:"sessions_total"`
	BytesIn          int64          `json:"bytes_in"`
	BytesOut         int64          `json:"bytes_out"`
	Commands         []CommandCount `json:"commands,omitempty"`
	ProtocolErrors   int64          `json:"protocol_errors"`
	StorageErrors    int64          `json:"storage_errors"`
	ConfirmedDeletes int64          `json:"confirmed_deletes"`
	ErrorsTotal      int64          `json:"errors_total"`
	LastHealthCheck  string         `json:"last_health_check,omitempty"`
	LastError        string         `json:"last_error,omitempty"`
	LastErrorMessage string         `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:   c.sessionsActive.Load(),
		SessionsTotal:    c.sessionsTotal.Load(),
		BytesIn:          c.bytesIn.Load(),
		BytesOut:         c.bytesOut.Load(),
		ProtocolErrors:   c.protocolErrors.Load(),
		StorageErrors:    c.storageErrors.Load(),
		ConfirmedDeletes: c.confirmations.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	for name, n := range c.commands {
		s.Commands = append(s.Commands, CommandCount{Name: name, Count: n})
	}
	sort.Slice(s.Commands, func(i, j int) bool { return s.Commands[i].Name < s.Commands[j].Name })

	if !c.lastHealthCheck.IsZero() {
		s.LastHealthCheck = c.lastHealthCheck.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}

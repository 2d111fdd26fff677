package security

import (
	"sync"
	"time"

	"github.com/caedonai/lord-commander-sub000/internal/domain/security"
)

// DefaultHistoryLimit caps the number of records kept per key
const DefaultHistoryLimit = 1000

// Record is the minimal projection of a violation kept for correlation.
// History is never the audit record; it exists only so later calls can
// cross-reference earlier activity.
type Record struct {
	ViolationID string
	Type        security.ViolationType
	Severity    security.Severity
	Timestamp   time.Time
}

// History is a process-lifetime, bounded store of violation records keyed
// by session or client. Eviction is FIFO per key: once a key reaches the
// limit the oldest records are dropped, a documented lossy bound.
//
// The handle carries its own mutex so hosts that invoke analysis from
// multiple goroutines stay safe without external serialization.
type History struct {
	mu      sync.Mutex
	limit   int
	entries map[string][]Record
}

// NewHistory creates an empty history with the given per-key cap.
// Non-positive limits fall back to DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		limit:   limit,
		entries: make(map[string][]Record),
	}
}

// SessionKey builds the history key for a session identifier
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// ClientKey builds the history key for a client identifier
func ClientKey(clientID string) string {
	return "client:" + clientID
}

// Append records violations under key, evicting oldest-first past the cap
func (h *History) Append(key string, records ...Record) {
	if key == "" || len(records) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.entries[key], records...)
	if overflow := len(list) - h.limit; overflow > 0 {
		list = list[overflow:]
	}
	h.entries[key] = list
}

// Snapshot returns a copy of all records under key
func (h *History) Snapshot(key string) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.entries[key]
	out := make([]Record, len(list))
	copy(out, list)
	return out
}

// Since returns a copy of records under key at or after cutoff
func (h *History) Since(key string, cutoff time.Time) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []Record
	for _, r := range h.entries[key] {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records under key
func (h *History) Len(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries[key])
}

// Reset drops all recorded history. Intended for tests and trail rotation.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make(map[string][]Record)
}

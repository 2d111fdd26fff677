package audit

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caedonai/lord-commander-sub000/internal/domain/audit"
	"github.com/caedonai/lord-commander-sub000/internal/domain/errors"
)

// Storage is the persistence port for one trail. Implementations own the
// chain: Add seals the entry against the current chain head before
// persisting it.
//
// List and Clear return the stored entry pointers; callers must treat
// entries as immutable after persistence.
type Storage interface {
	// Add seals the entry (checksum plus link to the predecessor) and
	// persists it. Adding an already sealed entry is an error.
	Add(entry *audit.Entry) error

	// List returns a snapshot slice of all stored entries in insertion
	// order.
	List() []*audit.Entry

	Len() int
	SizeBytes() int64

	// Clear removes every entry and resets the chain head, returning
	// the removed batch. Rotation is built on this.
	Clear() []*audit.Entry

	// RemoveOldest removes up to n entries from the front of the trail
	// and returns them.
	RemoveOldest(n int) []*audit.Entry

	// RemoveExpired removes the leading run of entries that are older
	// than the cutoff or past their retention deadline. It stops at the
	// first entry to keep, so the remaining chain stays verifiable.
	RemoveExpired(now, olderThan time.Time) int
}

// MemoryStorageConfig caps the in-memory backend
type MemoryStorageConfig struct {
	MaxEntries   int
	MaxSizeBytes int64
	Algorithm    audit.ChecksumAlgorithm
}

// MemoryStorage is the reference backend: an append-only slice with the
// chain head tracked alongside. Caps are enforced after each insert by
// evicting oldest entries first; eviction is logged and reported through
// the hook so it is never silent.
type MemoryStorage struct {
	mu           sync.RWMutex
	entries      []*audit.Entry
	sizeBytes    int64
	lastChecksum string

	cfg     MemoryStorageConfig
	logger  *zap.Logger
	onEvict func(n int)
}

// MemoryStorageOption customizes a MemoryStorage
type MemoryStorageOption func(*MemoryStorage)

// WithEvictionHook registers a callback invoked with the number of
// entries dropped whenever caps force an eviction
func WithEvictionHook(hook func(n int)) MemoryStorageOption {
	return func(s *MemoryStorage) { s.onEvict = hook }
}

// NewMemoryStorage creates the in-memory backend
func NewMemoryStorage(cfg MemoryStorageConfig, logger *zap.Logger, opts ...MemoryStorageOption) *MemoryStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = audit.ChecksumSHA256
	}
	s := &MemoryStorage{
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add seals the entry against the current chain head and appends it
func (s *MemoryStorage) Add(entry *audit.Entry) error {
	if entry == nil {
		return errors.NewValidationError("NIL_ENTRY", "cannot store a nil entry")
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := entry.Seal(s.cfg.Algorithm, s.lastChecksum); err != nil {
		return err
	}

	s.entries = append(s.entries, entry)
	s.sizeBytes += int64(entry.SizeBytes())
	s.lastChecksum = entry.Checksum

	s.evictLocked()
	return nil
}

// evictLocked enforces the count and size caps, dropping oldest entries.
// The newest entry is never evicted even if it alone exceeds the size cap.
func (s *MemoryStorage) evictLocked() {
	evicted := 0
	for len(s.entries) > 1 {
		overCount := s.cfg.MaxEntries > 0 && len(s.entries) > s.cfg.MaxEntries
		overSize := s.cfg.MaxSizeBytes > 0 && s.sizeBytes > s.cfg.MaxSizeBytes
		if !overCount && !overSize {
			break
		}
		oldest := s.entries[0]
		s.entries[0] = nil
		s.entries = s.entries[1:]
		s.sizeBytes -= int64(oldest.SizeBytes())
		evicted++
	}
	if evicted == 0 {
		return
	}

	s.logger.Warn("audit entries evicted by storage caps",
		zap.Int("evicted", evicted),
		zap.Int("remaining", len(s.entries)),
		zap.Int64("size_bytes", s.sizeBytes),
	)
	if s.onEvict != nil {
		s.onEvict(evicted)
	}
}

// List returns a snapshot of the stored entries
func (s *MemoryStorage) List() []*audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of stored entries
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SizeBytes returns the estimated serialized footprint of the trail
func (s *MemoryStorage) SizeBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sizeBytes
}

// Clear removes all entries and resets the chain head
func (s *MemoryStorage) Clear() []*audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.entries
	s.entries = nil
	s.sizeBytes = 0
	s.lastChecksum = ""
	return out
}

// RemoveOldest removes up to n entries from the front of the trail
func (s *MemoryStorage) RemoveOldest(n int) []*audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return nil
	}
	if n > len(s.entries) {
		n = len(s.entries)
	}
	removed := make([]*audit.Entry, n)
	copy(removed, s.entries[:n])
	for i := 0; i < n; i++ {
		s.entries[i] = nil
		s.sizeBytes -= int64(removed[i].SizeBytes())
	}
	s.entries = s.entries[n:]
	if len(s.entries) == 0 {
		s.sizeBytes = 0
	}
	return removed
}

// RemoveExpired drops the leading run of entries older than the cutoff or
// past retention. Stopping at the first retained entry keeps every
// surviving entry's predecessor link intact.
func (s *MemoryStorage) RemoveExpired(now, olderThan time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, entry := range s.entries {
		expired := entry.RetentionExpired(now) ||
			(!olderThan.IsZero() && entry.Timestamp.Before(olderThan))
		if !expired {
			break
		}
		n++
	}
	if n == 0 {
		return 0
	}
	for i := 0; i < n; i++ {
		s.sizeBytes -= int64(s.entries[i].SizeBytes())
		s.entries[i] = nil
	}
	s.entries = s.entries[n:]
	if len(s.entries) == 0 {
		s.sizeBytes = 0
	}

	s.logger.Info("expired audit entries removed",
		zap.Int("removed", n),
		zap.Int("remaining", len(s.entries)),
	)
	return n
}

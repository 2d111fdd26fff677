package audit

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/caedonai/lord-commander-sub000/internal/domain/audit"
	"github.com/caedonai/lord-commander-sub000/internal/domain/errors"
	"github.com/caedonai/lord-commander-sub000/internal/metrics"
)

// TrailManager orchestrates one audit trail: filtering, enrichment,
// batching, persistence, query, verification, export, and rotation.
//
// In synchronous mode every RecordEvent persists under a single write
// mutex before returning, so persisted order matches call order even
// under concurrent callers and storage failures surface to the caller.
// In asynchronous mode events accumulate in a batch buffer that is
// swapped out atomically on flush; a flush runs to completion once
// started, and Close drains everything before releasing storage.
type TrailManager struct {
	cfg     Config
	storage Storage

	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *metrics.Registry

	enabledTypes map[audit.EventType]struct{}
	system       audit.SystemContext

	// writeMu serializes all persistence, sync writes and batch
	// flushes alike.
	writeMu sync.Mutex

	batchMu sync.Mutex
	batch   []*audit.Entry

	done      chan struct{}
	flusherWG sync.WaitGroup
	closed    atomic.Bool

	stateMu         sync.Mutex
	integrityStatus audit.IntegrityStatus
	lastVerified    time.Time

	onRotate func(rotated []*audit.Entry)

	filteredCount  int64
	persistedCount int64
}

// TrailOption customizes a TrailManager
type TrailOption func(*TrailManager)

// WithStorage injects a storage backend, bypassing backend construction
// from the config
func WithStorage(storage Storage) TrailOption {
	return func(m *TrailManager) { m.storage = storage }
}

// WithMetrics injects a metrics registry
func WithMetrics(registry *metrics.Registry) TrailOption {
	return func(m *TrailManager) { m.metrics = registry }
}

// WithRotationHandler registers a callback receiving each auto-rotated
// batch. Without one the rotated entries are discarded with a warning.
func WithRotationHandler(handler func(rotated []*audit.Entry)) TrailOption {
	return func(m *TrailManager) { m.onRotate = handler }
}

// NewTrailManager creates and starts a trail manager
func NewTrailManager(cfg Config, logger *zap.Logger, opts ...TrailOption) (*TrailManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	m := &TrailManager{
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("audit.trail"),
		system: audit.SystemContext{
			Hostname:  hostname,
			PID:       os.Getpid(),
			Component: cfg.Component,
		},
		done:            make(chan struct{}),
		integrityStatus: audit.IntegrityUnknown,
	}
	for _, opt := range opts {
		opt(m)
	}

	if len(cfg.EnabledEventTypes) > 0 {
		m.enabledTypes = make(map[audit.EventType]struct{}, len(cfg.EnabledEventTypes))
		for _, et := range cfg.EnabledEventTypes {
			m.enabledTypes[et] = struct{}{}
		}
	}

	if m.storage == nil {
		switch cfg.StorageBackend {
		case BackendMemory:
			m.storage = NewMemoryStorage(MemoryStorageConfig{
				MaxEntries:   cfg.MaxEntries,
				MaxSizeBytes: cfg.MaxSizeBytes,
				Algorithm:    cfg.ChecksumAlgorithm,
			}, logger, WithEvictionHook(m.countEvicted))
		case BackendFile, BackendDatabase, BackendExternal:
			return nil, errors.NewValidationError("UNSUPPORTED_STORAGE_BACKEND",
				"storage backend "+string(cfg.StorageBackend)+" is a documented extension point; only memory is implemented")
		default:
			return nil, errors.NewValidationError("UNKNOWN_STORAGE_BACKEND",
				"unknown storage backend: "+string(cfg.StorageBackend))
		}
	}

	if cfg.Async {
		m.flusherWG.Add(1)
		go m.flushLoop()
	}

	logger.Info("audit trail started",
		zap.String("trail", cfg.TrailName),
		zap.String("backend", string(cfg.StorageBackend)),
		zap.String("checksum_algorithm", string(cfg.ChecksumAlgorithm)),
		zap.Bool("async", cfg.Async),
	)
	return m, nil
}

// CreateEvent starts a builder for this trail
func (m *TrailManager) CreateEvent(eventType audit.EventType) *audit.EntryBuilder {
	return audit.NewEntryBuilder(eventType)
}

// RecordEvent applies the trail's filters, enriches the entry, and either
// persists it (sync) or buffers it for the next flush (async). Entries
// dropped by a filter return nil; that is a policy decision, not an error.
func (m *TrailManager) RecordEvent(ctx context.Context, entry *audit.Entry) error {
	if m.closed.Load() {
		return errors.NewBusinessError("TRAIL_CLOSED", "audit trail is closed")
	}
	if entry == nil {
		return errors.NewValidationError("NIL_ENTRY", "cannot record a nil entry")
	}

	if !m.admits(entry) {
		atomic.AddInt64(&m.filteredCount, 1)
		if m.metrics != nil {
			m.metrics.EventsFiltered.Add(ctx, 1,
				metric.WithAttributes(attribute.String("trail", m.cfg.TrailName)))
		}
		return nil
	}

	m.enrich(ctx, entry)

	if !m.cfg.Async {
		m.writeMu.Lock()
		defer m.writeMu.Unlock()
		return m.persist(ctx, []*audit.Entry{entry})
	}

	m.batchMu.Lock()
	m.batch = append(m.batch, entry)
	full := len(m.batch) >= m.cfg.BatchSize
	m.batchMu.Unlock()

	if full {
		return m.Flush(ctx)
	}
	return nil
}

// RecordEvents records a sequence of entries, stopping at the first failure
func (m *TrailManager) RecordEvents(ctx context.Context, entries []*audit.Entry) error {
	for _, entry := range entries {
		if err := m.RecordEvent(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// admits applies the enabled-event-type and minimum-severity filters
func (m *TrailManager) admits(entry *audit.Entry) bool {
	if m.enabledTypes != nil {
		if _, ok := m.enabledTypes[entry.EventType]; !ok {
			return false
		}
	}
	return entry.Severity.AtLeast(m.cfg.MinimumSeverity)
}

// enrich fills in system context, retention, and tracing identifiers that
// the caller left unset
func (m *TrailManager) enrich(ctx context.Context, entry *audit.Entry) {
	if entry.SystemContext == nil {
		sc := m.system
		entry.SystemContext = &sc
	}
	if entry.RetentionUntil.IsZero() {
		entry.RetentionUntil = entry.Timestamp.
			AddDate(0, 0, m.cfg.DefaultRetentionDays)
	}
	if entry.TraceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			entry.TraceID = sc.TraceID().String()
			entry.SpanID = sc.SpanID().String()
		}
	}
}

// Flush swaps out the current batch and persists it. Events recorded
// while the flush is running accumulate in the fresh buffer and land in
// the next batch.
func (m *TrailManager) Flush(ctx context.Context) error {
	m.batchMu.Lock()
	pending := m.batch
	m.batch = nil
	m.batchMu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.persist(ctx, pending)
}

// persist writes one batch to storage. Caller holds writeMu.
func (m *TrailManager) persist(ctx context.Context, entries []*audit.Entry) error {
	ctx, span := m.tracer.Start(ctx, "TrailManager.persist",
		trace.WithAttributes(attribute.Int("batch.size", len(entries))))
	defer span.End()

	start := time.Now()
	for _, entry := range entries {
		if err := m.storage.Add(entry); err != nil {
			m.logger.Error("failed to persist audit entry",
				zap.String("entry_id", entry.ID.String()),
				zap.Error(err),
			)
			return errors.Wrap(err, "audit entry persistence failed")
		}
		atomic.AddInt64(&m.persistedCount, 1)
	}

	if m.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("trail", m.cfg.TrailName))
		m.metrics.EntriesPersisted.Add(ctx, int64(len(entries)), attrs)
		m.metrics.TrailFlushes.Add(ctx, 1, attrs)
		m.metrics.FlushDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, attrs)
	}

	if m.cfg.AutoRotate && m.cfg.RotationSizeBytes > 0 &&
		m.storage.SizeBytes() >= m.cfg.RotationSizeBytes {
		m.rotateLocked("size threshold crossed")
	}
	return nil
}

// flushLoop drives timer-based flushing in async mode
func (m *TrailManager) flushLoop() {
	defer m.flusherWG.Done()

	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.Flush(context.Background()); err != nil {
				m.logger.Error("timed flush failed", zap.Error(err))
			}
		case <-m.done:
			return
		}
	}
}

// Rotate snapshots and clears the trail, resetting the chain head. The
// returned batch belongs to the caller for archival. The first entry
// persisted after rotation starts a fresh chain.
func (m *TrailManager) Rotate(ctx context.Context) ([]*audit.Entry, error) {
	if m.closed.Load() {
		return nil, errors.NewBusinessError("TRAIL_CLOSED", "audit trail is closed")
	}
	if err := m.Flush(ctx); err != nil {
		return nil, err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.rotateLocked("explicit rotation"), nil
}

// rotateLocked performs the snapshot-and-reset. Caller holds writeMu.
func (m *TrailManager) rotateLocked(reason string) []*audit.Entry {
	rotated := m.storage.Clear()

	m.stateMu.Lock()
	m.integrityStatus = audit.IntegrityUnknown
	m.lastVerified = time.Time{}
	m.stateMu.Unlock()

	m.logger.Info("audit trail rotated",
		zap.String("trail", m.cfg.TrailName),
		zap.String("reason", reason),
		zap.Int("rotated_entries", len(rotated)),
	)

	if m.onRotate != nil {
		m.onRotate(rotated)
	} else if reason != "explicit rotation" {
		m.logger.Warn("auto-rotated batch discarded; no rotation handler registered",
			zap.Int("entries", len(rotated)))
	}
	return rotated
}

// Cleanup removes entries older than the cutoff or past their retention
// deadline, returning how many were removed
func (m *TrailManager) Cleanup(olderThan time.Time) (int, error) {
	if m.closed.Load() {
		return 0, errors.NewBusinessError("TRAIL_CLOSED", "audit trail is closed")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	removed := m.storage.RemoveExpired(time.Now().UTC(), olderThan)
	return removed, nil
}

// GetMetadata recomputes trail counters from storage
func (m *TrailManager) GetMetadata() Metadata {
	entries := m.storage.List()

	md := Metadata{
		TrailName:         m.cfg.TrailName,
		TotalEntries:      len(entries),
		SizeBytes:         m.storage.SizeBytes(),
		ChecksumAlgorithm: m.cfg.ChecksumAlgorithm,
	}
	for _, entry := range entries {
		if md.OldestEntry.IsZero() || entry.Timestamp.Before(md.OldestEntry) {
			md.OldestEntry = entry.Timestamp
		}
		if entry.Timestamp.After(md.NewestEntry) {
			md.NewestEntry = entry.Timestamp
		}
	}

	m.stateMu.Lock()
	md.IntegrityStatus = m.integrityStatus
	md.LastVerified = m.lastVerified
	m.stateMu.Unlock()
	return md
}

// Stats exposes internal counters for observability and tests
func (m *TrailManager) Stats() (persisted, filtered int64) {
	return atomic.LoadInt64(&m.persistedCount), atomic.LoadInt64(&m.filteredCount)
}

// Close stops the flush timer, drains the batch buffer with a final
// flush, and marks the trail closed. Safe to call once.
func (m *TrailManager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	if m.cfg.Async {
		close(m.done)
		m.flusherWG.Wait()
	}

	err := m.Flush(context.Background())

	persisted, filtered := m.Stats()
	m.logger.Info("audit trail closed",
		zap.String("trail", m.cfg.TrailName),
		zap.Int64("persisted", persisted),
		zap.Int64("filtered", filtered),
		zap.Int("stored", m.storage.Len()),
	)
	return err
}

func (m *TrailManager) countEvicted(n int) {
	if m.metrics != nil {
		m.metrics.EntriesEvicted.Add(context.Background(), int64(n),
			metric.WithAttributes(attribute.String("trail", m.cfg.TrailName)))
	}
}

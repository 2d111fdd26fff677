package audit

import (
	"time"

	"github.com/caedonai/lord-commander-sub000/internal/domain/audit"
	"github.com/caedonai/lord-commander-sub000/internal/domain/errors"
)

// StorageBackend selects where the trail persists its entries. Only the
// memory backend ships; the other values are documented extension points
// and rejected at construction.
type StorageBackend string

const (
	BackendMemory   StorageBackend = "memory"
	BackendFile     StorageBackend = "file"
	BackendDatabase StorageBackend = "database"
	BackendExternal StorageBackend = "external"
)

// Config controls one audit trail instance
type Config struct {
	TrailName string
	Component string

	StorageBackend StorageBackend
	MaxEntries     int
	MaxSizeBytes   int64

	ChecksumAlgorithm audit.ChecksumAlgorithm

	// Async enables the batch buffer; when false every RecordEvent
	// persists before returning, in call order.
	Async         bool
	BatchSize     int
	FlushInterval time.Duration

	// Filters. An empty EnabledEventTypes list admits every type.
	EnabledEventTypes []audit.EventType
	MinimumSeverity   audit.Severity

	DefaultRetentionDays int

	AutoRotate        bool
	RotationSizeBytes int64
}

// DefaultConfig returns the trail defaults
func DefaultConfig() Config {
	return Config{
		TrailName:            "audit-trail",
		Component:            "audit",
		StorageBackend:       BackendMemory,
		MaxEntries:           10000,
		MaxSizeBytes:         10 * 1024 * 1024,
		ChecksumAlgorithm:    audit.ChecksumSHA256,
		Async:                false,
		BatchSize:            100,
		FlushInterval:        time.Second,
		MinimumSeverity:      audit.SeverityInfo,
		DefaultRetentionDays: 90,
		AutoRotate:           false,
		RotationSizeBytes:    5 * 1024 * 1024,
	}
}

func (c *Config) normalize() error {
	if c.TrailName == "" {
		c.TrailName = "audit-trail"
	}
	if c.Component == "" {
		c.Component = "audit"
	}
	if c.StorageBackend == "" {
		c.StorageBackend = BackendMemory
	}
	if c.ChecksumAlgorithm == "" {
		c.ChecksumAlgorithm = audit.ChecksumSHA256
	}
	if !c.ChecksumAlgorithm.IsValid() {
		return errors.NewValidationError("INVALID_CHECKSUM_ALGORITHM",
			"checksum algorithm must be sha256, sha512, or blake2b")
	}
	if c.MinimumSeverity == "" {
		c.MinimumSeverity = audit.SeverityInfo
	}
	if !c.MinimumSeverity.IsValid() {
		return errors.NewValidationError("INVALID_MINIMUM_SEVERITY",
			"minimum severity is not a known level")
	}
	for _, et := range c.EnabledEventTypes {
		if !et.IsValid() {
			return errors.NewValidationError("INVALID_EVENT_TYPE",
				"enabled event type filter names an unknown type: "+string(et))
		}
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	if c.DefaultRetentionDays <= 0 {
		c.DefaultRetentionDays = 90
	}
	return nil
}

// SortField names a sortable query column
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortBySeverity  SortField = "severity"
)

// SortOrder selects ascending or descending results
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// QueryFilter narrows a trail query. Zero-valued fields do not filter.
type QueryFilter struct {
	StartTime time.Time
	EndTime   time.Time

	EventTypes []audit.EventType
	Severities []audit.Severity
	Outcomes   []audit.Outcome

	UserID    string
	SessionID string
	IPAddress string

	// TextSearch matches case-insensitively against message, tags, and
	// resource context.
	TextSearch string

	SortBy    SortField
	SortOrder SortOrder

	Limit  int
	Offset int
}

// QueryResult carries one page of matching entries
type QueryResult struct {
	Entries      []*audit.Entry `json:"entries"`
	TotalMatched int            `json:"total_matched"`
	Limit        int            `json:"limit"`
	Offset       int            `json:"offset"`
	HasMore      bool           `json:"has_more"`
}

// Metadata summarizes the current state of a trail. Counters are
// recomputed from storage on every call; integrity fields reflect the
// last explicit verification.
type Metadata struct {
	TrailName         string                  `json:"trail_name"`
	TotalEntries      int                     `json:"total_entries"`
	SizeBytes         int64                   `json:"size_bytes"`
	OldestEntry       time.Time               `json:"oldest_entry,omitempty"`
	NewestEntry       time.Time               `json:"newest_entry,omitempty"`
	IntegrityStatus   audit.IntegrityStatus   `json:"integrity_status"`
	LastVerified      time.Time               `json:"last_verified,omitempty"`
	ChecksumAlgorithm audit.ChecksumAlgorithm `json:"checksum_algorithm"`
}

// ExportFormat names a serialization target for Export
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
	FormatXML  ExportFormat = "xml"
	FormatPDF  ExportFormat = "pdf"
)

// ErrUnsupportedFormat is returned by Export for formats the trail does
// not implement (xml, pdf, or anything unknown)
var ErrUnsupportedFormat = errors.NewValidationError("UNSUPPORTED_EXPORT_FORMAT",
	"export format is not supported; use json or csv")

// ExportOptions controls what Export serializes
type ExportOptions struct {
	Format ExportFormat
	Filter QueryFilter

	IncludeMetadata bool

	// IncludeVerification runs a fresh chain verification and bundles
	// the result. JSON only.
	IncludeVerification bool
}

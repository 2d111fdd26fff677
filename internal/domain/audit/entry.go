package audit

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/caedonai/lord-commander-sub000/internal/domain/errors"
)

// UserContext identifies who triggered the audited action
type UserContext struct {
	UserID    string `json:"user_id,omitempty"`
	UserRole  string `json:"user_role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// SystemContext identifies the process that recorded the entry
type SystemContext struct {
	Hostname  string `json:"hostname,omitempty"`
	PID       int    `json:"pid,omitempty"`
	Component string `json:"component,omitempty"`
	Version   string `json:"version,omitempty"`
}

// ResourceContext identifies what was acted upon
type ResourceContext struct {
	Resource string `json:"resource,omitempty"`
	Action   string `json:"action,omitempty"`
}

// ViolationRecord is the persisted projection of an enriched security
// violation attached to an audit entry
type ViolationRecord struct {
	ViolationID string `json:"violation_id"`
	Type        string `json:"type"`
	PatternID   string `json:"pattern_id,omitempty"`
	Severity    string `json:"severity"`
	Description string `json:"description,omitempty"`
}

// Entry represents one immutable audit record. After persistence the only
// mutation ever applied is the storage layer setting Checksum and
// PreviousEntryHash while linking the entry into the chain.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	EventType EventType `json:"event_type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Outcome   Outcome   `json:"outcome"`

	UserContext     *UserContext     `json:"user_context,omitempty"`
	SystemContext   *SystemContext   `json:"system_context,omitempty"`
	ResourceContext *ResourceContext `json:"resource_context,omitempty"`

	Classification     Classification    `json:"classification"`
	SecurityViolations []ViolationRecord `json:"security_violations,omitempty"`
	ThreatLevel        ThreatLevel       `json:"threat_level,omitempty"`

	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`

	Tags            []string        `json:"tags,omitempty"`
	ComplianceFlags map[string]bool `json:"compliance_flags,omitempty"`
	RetentionUntil  time.Time       `json:"retention_until"`

	// Cryptographic integrity. Checksum covers every canonical field
	// above; PreviousEntryHash commits the entry to its chronological
	// predecessor's checksum.
	Checksum          string `json:"checksum"`
	PreviousEntryHash string `json:"previous_entry_hash"`
}

// Validate checks the entry's required fields and enum values
func (e *Entry) Validate() error {
	if e.ID == uuid.Nil {
		return errors.NewValidationError("MISSING_ID", "entry ID is required")
	}
	if !e.EventType.IsValid() {
		return errors.NewValidationError("INVALID_EVENT_TYPE",
			"entry event type is missing or unknown")
	}
	if !e.Severity.IsValid() {
		return errors.NewValidationError("INVALID_SEVERITY",
			"entry severity is missing or unknown")
	}
	if e.Message == "" {
		return errors.NewValidationError("MISSING_MESSAGE", "entry message is required")
	}
	if !e.Outcome.IsValid() {
		return errors.NewValidationError("INVALID_OUTCOME",
			"entry outcome is missing or unknown")
	}
	if e.Timestamp.IsZero() {
		return errors.NewValidationError("MISSING_TIMESTAMP", "entry timestamp is required")
	}
	return nil
}

// canonicalPayload returns the stable representation the checksum is
// computed over: every persisted field except the checksum itself and the
// chain link. Map-based JSON marshaling gives stable key ordering.
func (e *Entry) canonicalPayload() map[string]interface{} {
	payload := map[string]interface{}{
		"id":              e.ID.String(),
		"timestamp":       e.Timestamp.UTC().Format(time.RFC3339Nano),
		"event_type":      string(e.EventType),
		"severity":        string(e.Severity),
		"message":         e.Message,
		"outcome":         string(e.Outcome),
		"classification":  string(e.Classification),
		"retention_until": e.RetentionUntil.UTC().Format(time.RFC3339Nano),
	}
	if e.UserContext != nil {
		payload["user_context"] = e.UserContext
	}
	if e.SystemContext != nil {
		payload["system_context"] = e.SystemContext
	}
	if e.ResourceContext != nil {
		payload["resource_context"] = e.ResourceContext
	}
	if len(e.SecurityViolations) > 0 {
		payload["security_violations"] = e.SecurityViolations
	}
	if e.ThreatLevel != "" {
		payload["threat_level"] = string(e.ThreatLevel)
	}
	if e.TraceID != "" {
		payload["trace_id"] = e.TraceID
	}
	if e.SpanID != "" {
		payload["span_id"] = e.SpanID
	}
	if len(e.Tags) > 0 {
		payload["tags"] = e.Tags
	}
	if len(e.ComplianceFlags) > 0 {
		payload["compliance_flags"] = e.ComplianceFlags
	}
	return payload
}

// ComputeChecksum calculates the hex digest of the entry's canonical
// fields using the given algorithm. It does not mutate the entry.
func (e *Entry) ComputeChecksum(algorithm ChecksumAlgorithm) (string, error) {
	data, err := json.Marshal(e.canonicalPayload())
	if err != nil {
		return "", errors.NewInternalError("failed to marshal entry for checksum").WithCause(err)
	}
	sum, err := algorithm.Sum(data)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// Seal computes and records the entry's checksum plus its chain link.
// The storage layer calls this exactly once, at persistence time.
func (e *Entry) Seal(algorithm ChecksumAlgorithm, previousHash string) error {
	if e.Checksum != "" {
		return errors.NewBusinessError("ENTRY_SEALED",
			"entry checksum already computed")
	}
	e.PreviousEntryHash = previousHash
	checksum, err := e.ComputeChecksum(algorithm)
	if err != nil {
		return err
	}
	e.Checksum = checksum
	return nil
}

// IsSealed reports whether the entry has been linked into a chain
func (e *Entry) IsSealed() bool {
	return e.Checksum != ""
}

// RetentionExpired reports whether the entry has passed its retention window
func (e *Entry) RetentionExpired(now time.Time) bool {
	return !e.RetentionUntil.IsZero() && now.After(e.RetentionUntil)
}

// SizeBytes estimates the serialized footprint of the entry, used for
// size-based eviction and rotation accounting
func (e *Entry) SizeBytes() int {
	data, err := json.Marshal(e)
	if err != nil {
		return 0
	}
	return len(data)
}

// Clone creates a deep copy of the entry
func (e *Entry) Clone() *Entry {
	clone := *e
	if e.UserContext != nil {
		uc := *e.UserContext
		clone.UserContext = &uc
	}
	if e.SystemContext != nil {
		sc := *e.SystemContext
		clone.SystemContext = &sc
	}
	if e.ResourceContext != nil {
		rc := *e.ResourceContext
		clone.ResourceContext = &rc
	}
	if e.SecurityViolations != nil {
		clone.SecurityViolations = make([]ViolationRecord, len(e.SecurityViolations))
		copy(clone.SecurityViolations, e.SecurityViolations)
	}
	if e.Tags != nil {
		clone.Tags = make([]string, len(e.Tags))
		copy(clone.Tags, e.Tags)
	}
	if e.ComplianceFlags != nil {
		clone.ComplianceFlags = make(map[string]bool, len(e.ComplianceFlags))
		for k, v := range e.ComplianceFlags {
			clone.ComplianceFlags[k] = v
		}
	}
	return &clone
}

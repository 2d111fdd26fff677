package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/caedonai/lord-commander-sub000/internal/domain/errors"
)

// EntryBuilder provides a fluent interface for constructing audit entries.
// Validation errors are sticky: the first one wins and Build reports it,
// so no partially valid entry ever escapes the builder.
type EntryBuilder struct {
	entry *Entry
	err   error
}

// NewEntryBuilder starts a builder for the given event type
func NewEntryBuilder(eventType EventType) *EntryBuilder {
	return &EntryBuilder{
		entry: &Entry{
			ID:             uuid.New(),
			Timestamp:      time.Now().UTC(),
			EventType:      eventType,
			Classification: ClassificationInternal,
		},
	}
}

// WithSeverity sets the entry severity
func (b *EntryBuilder) WithSeverity(severity Severity) *EntryBuilder {
	if b.err != nil {
		return b
	}
	if !severity.IsValid() {
		b.err = errors.NewValidationError("INVALID_SEVERITY", "invalid severity level")
		return b
	}
	b.entry.Severity = severity
	return b
}

// WithMessage sets the human-readable event description
func (b *EntryBuilder) WithMessage(message string) *EntryBuilder {
	if b.err != nil {
		return b
	}
	if message == "" {
		b.err = errors.NewValidationError("MISSING_MESSAGE", "message cannot be empty")
		return b
	}
	b.entry.Message = message
	return b
}

// WithOutcome sets how the audited action concluded
func (b *EntryBuilder) WithOutcome(outcome Outcome) *EntryBuilder {
	if b.err != nil {
		return b
	}
	if !outcome.IsValid() {
		b.err = errors.NewValidationError("INVALID_OUTCOME", "invalid outcome value")
		return b
	}
	b.entry.Outcome = outcome
	return b
}

// WithUser attaches user context
func (b *EntryBuilder) WithUser(userID, userRole, sessionID, ipAddress string) *EntryBuilder {
	if b.err != nil {
		return b
	}
	b.entry.UserContext = &UserContext{
		UserID:    userID,
		UserRole:  userRole,
		SessionID: sessionID,
		IPAddress: ipAddress,
	}
	return b
}

// WithSystem attaches system context
func (b *EntryBuilder) WithSystem(hostname string, pid int, component, version string) *EntryBuilder {
	if b.err != nil {
		return b
	}
	b.entry.SystemContext = &SystemContext{
		Hostname:  hostname,
		PID:       pid,
		Component: component,
		Version:   version,
	}
	return b
}

// WithResource attaches resource context
func (b *EntryBuilder) WithResource(resource, action string) *EntryBuilder {
	if b.err != nil {
		return b
	}
	b.entry.ResourceContext = &ResourceContext{Resource: resource, Action: action}
	return b
}

// WithClassification sets the payload sensitivity marker
func (b *EntryBuilder) WithClassification(c Classification) *EntryBuilder {
	if b.err != nil {
		return b
	}
	b.entry.Classification = c
	return b
}

// WithViolations attaches enriched security violation records and raises
// the threat level to match
func (b *EntryBuilder) WithViolations(records []ViolationRecord, threatLevel ThreatLevel) *EntryBuilder {
	if b.err != nil {
		return b
	}
	b.entry.SecurityViolations = make([]ViolationRecord, len(records))
	copy(b.entry.SecurityViolations, records)
	b.entry.ThreatLevel = threatLevel
	return b
}

// WithTracing attaches distributed tracing identifiers
func (b *EntryBuilder) WithTracing(traceID, spanID string) *EntryBuilder {
	if b.err != nil {
		return b
	}
	b.entry.TraceID = traceID
	b.entry.SpanID = spanID
	return b
}

// WithTag appends a tag, skipping duplicates
func (b *EntryBuilder) WithTag(tag string) *EntryBuilder {
	if b.err != nil {
		return b
	}
	if tag == "" {
		b.err = errors.NewValidationError("EMPTY_TAG", "tag cannot be empty")
		return b
	}
	for _, existing := range b.entry.Tags {
		if existing == tag {
			return b
		}
	}
	b.entry.Tags = append(b.entry.Tags, tag)
	return b
}

// WithTags appends multiple tags
func (b *EntryBuilder) WithTags(tags ...string) *EntryBuilder {
	for _, tag := range tags {
		b.WithTag(tag)
		if b.err != nil {
			return b
		}
	}
	return b
}

// WithComplianceFlag sets one compliance flag
func (b *EntryBuilder) WithComplianceFlag(flag string, value bool) *EntryBuilder {
	if b.err != nil {
		return b
	}
	if b.entry.ComplianceFlags == nil {
		b.entry.ComplianceFlags = make(map[string]bool)
	}
	b.entry.ComplianceFlags[flag] = value
	return b
}

// WithRetentionUntil sets the explicit retention deadline
func (b *EntryBuilder) WithRetentionUntil(t time.Time) *EntryBuilder {
	if b.err != nil {
		return b
	}
	if t.IsZero() {
		b.err = errors.NewValidationError("INVALID_RETENTION", "retention deadline cannot be zero")
		return b
	}
	b.entry.RetentionUntil = t.UTC()
	return b
}

// WithTimestamp overrides the default timestamp (use with caution)
func (b *EntryBuilder) WithTimestamp(t time.Time) *EntryBuilder {
	if b.err != nil {
		return b
	}
	if t.IsZero() {
		b.err = errors.NewValidationError("INVALID_TIMESTAMP", "timestamp cannot be zero")
		return b
	}
	b.entry.Timestamp = t.UTC()
	return b
}

// Build finalizes construction. It returns an error if any builder step
// failed or a required field (event type, severity, message, outcome) is
// missing; no partial entry is ever returned.
func (b *EntryBuilder) Build() (*Entry, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.entry.Validate(); err != nil {
		return nil, err
	}
	return b.entry, nil
}

// MustBuild finalizes construction and panics on error. Test helper.
func (b *EntryBuilder) MustBuild() *Entry {
	entry, err := b.Build()
	if err != nil {
		panic(err)
	}
	return entry
}

// Convenience constructors for common entry shapes

// ForSecurityViolation starts a builder pre-populated for a detected
// input violation
func ForSecurityViolation(message string, threatLevel ThreatLevel, records []ViolationRecord) *EntryBuilder {
	return NewEntryBuilder(EventSecurityViolation).
		WithSeverity(SeverityHigh).
		WithMessage(message).
		WithOutcome(OutcomeFailure).
		WithClassification(ClassificationConfidential).
		WithViolations(records, threatLevel).
		WithTag("security")
}

// ForCommandExecution starts a builder for a command execution record
func ForCommandExecution(command string, outcome Outcome) *EntryBuilder {
	return NewEntryBuilder(EventCommandExecution).
		WithSeverity(SeverityInfo).
		WithMessage(command).
		WithOutcome(outcome).
		WithResource(command, "execute").
		WithTag("command")
}

// ForLogRecord starts a builder for a structured log passthrough
func ForLogRecord(message string, severity Severity) *EntryBuilder {
	return NewEntryBuilder(EventLogRecord).
		WithSeverity(severity).
		WithMessage(message).
		WithOutcome(OutcomeUnknown).
		WithTag("log")
}

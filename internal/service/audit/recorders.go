package audit

import (
	"context"
	"strings"

	"github.com/caedonai/lord-commander-sub000/internal/domain/audit"
)

// RecordSecurityViolation maps a detected violation set onto an audit
// entry and records it
func (m *TrailManager) RecordSecurityViolation(
	ctx context.Context,
	message string,
	severity audit.Severity,
	threatLevel audit.ThreatLevel,
	records []audit.ViolationRecord,
	user *audit.UserContext,
) error {
	builder := audit.ForSecurityViolation(message, threatLevel, records).
		WithSeverity(severity)
	if user != nil {
		builder = builder.WithUser(user.UserID, user.UserRole, user.SessionID, user.IPAddress)
	}

	entry, err := builder.Build()
	if err != nil {
		return err
	}
	return m.RecordEvent(ctx, entry)
}

// RecordCommandExecution records an executed command and its outcome
func (m *TrailManager) RecordCommandExecution(
	ctx context.Context,
	command string,
	outcome audit.Outcome,
	user *audit.UserContext,
) error {
	builder := audit.ForCommandExecution(command, outcome)
	if user != nil {
		builder = builder.WithUser(user.UserID, user.UserRole, user.SessionID, user.IPAddress)
	}

	entry, err := builder.Build()
	if err != nil {
		return err
	}
	return m.RecordEvent(ctx, entry)
}

// RecordStructuredLogEvent passes a structured log record through the
// trail, mapping the log level onto an audit severity
func (m *TrailManager) RecordStructuredLogEvent(ctx context.Context, level, message string) error {
	entry, err := audit.ForLogRecord(message, logLevelSeverity(level)).Build()
	if err != nil {
		return err
	}
	return m.RecordEvent(ctx, entry)
}

func logLevelSeverity(level string) audit.Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info":
		return audit.SeverityInfo
	case "warn", "warning":
		return audit.SeverityMedium
	case "error":
		return audit.SeverityHigh
	case "fatal", "panic", "critical":
		return audit.SeverityCritical
	default:
		return audit.SeverityInfo
	}
}

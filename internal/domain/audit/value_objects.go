package audit

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/caedonai/lord-commander-sub000/internal/domain/errors"
)

// EventType classifies what kind of action an audit entry records
type EventType string

const (
	EventSecurityViolation EventType = "security-violation"
	EventCommandExecution  EventType = "command-execution"
	EventConfigChange      EventType = "config-change"
	EventFileAccess        EventType = "file-access"
	EventAuthentication    EventType = "authentication"
	EventAuthorization     EventType = "authorization"
	EventLogRecord         EventType = "log-record"
	EventDataExport        EventType = "data-export"
	EventTrailRotation     EventType = "trail-rotation"
	EventSystem            EventType = "system"
)

// NewEventType creates an EventType value object with validation
func NewEventType(s string) (EventType, error) {
	normalized := EventType(strings.ToLower(strings.TrimSpace(s)))
	if !normalized.IsValid() {
		return "", errors.NewValidationError("INVALID_EVENT_TYPE",
			fmt.Sprintf("unknown event type: %s", s))
	}
	return normalized, nil
}

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// IsValid checks if the event type is known
func (et EventType) IsValid() bool {
	switch et {
	case EventSecurityViolation, EventCommandExecution, EventConfigChange,
		EventFileAccess, EventAuthentication, EventAuthorization,
		EventLogRecord, EventDataExport, EventTrailRotation, EventSystem:
		return true
	default:
		return false
	}
}

// Severity represents the importance of an audit entry.
// Ordering is info < low < medium < high < critical.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// String returns the string representation of the severity
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is known
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position used for minimum-severity filtering
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityLow:
		return 2
	case SeverityMedium:
		return 3
	case SeverityHigh:
		return 4
	case SeverityCritical:
		return 5
	default:
		return 0
	}
}

// AtLeast reports whether s is equal to or more severe than other
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Outcome records how the audited action concluded
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
	OutcomeUnknown Outcome = "unknown"
)

// IsValid checks if the outcome is known
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomePartial, OutcomeUnknown:
		return true
	default:
		return false
	}
}

// Classification marks the sensitivity of an entry's payload
type Classification string

const (
	ClassificationPublic       Classification = "public"
	ClassificationInternal     Classification = "internal"
	ClassificationConfidential Classification = "confidential"
	ClassificationRestricted   Classification = "restricted"
)

// ThreatLevel grades the security relevance of an entry
type ThreatLevel string

const (
	ThreatNone     ThreatLevel = "none"
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// IntegrityStatus summarizes the last verification result of a trail
type IntegrityStatus string

const (
	IntegrityUnknown   IntegrityStatus = "unknown"
	IntegrityValid     IntegrityStatus = "valid"
	IntegrityCorrupted IntegrityStatus = "corrupted"
)

// ChecksumAlgorithm selects the hash used for entry checksums
type ChecksumAlgorithm string

const (
	ChecksumSHA256  ChecksumAlgorithm = "sha256"
	ChecksumSHA512  ChecksumAlgorithm = "sha512"
	ChecksumBLAKE2b ChecksumAlgorithm = "blake2b"
)

// NewChecksumAlgorithm creates a ChecksumAlgorithm value object with validation
func NewChecksumAlgorithm(s string) (ChecksumAlgorithm, error) {
	normalized := ChecksumAlgorithm(strings.ToLower(strings.TrimSpace(s)))
	if !normalized.IsValid() {
		return "", errors.NewValidationError("INVALID_CHECKSUM_ALGORITHM",
			"checksum algorithm must be sha256, sha512, or blake2b")
	}
	return normalized, nil
}

// String returns the string representation of the algorithm
func (a ChecksumAlgorithm) String() string {
	return string(a)
}

// IsValid checks if the algorithm is supported
func (a ChecksumAlgorithm) IsValid() bool {
	switch a {
	case ChecksumSHA256, ChecksumSHA512, ChecksumBLAKE2b:
		return true
	default:
		return false
	}
}

// Sum computes the digest of data using the selected algorithm
func (a ChecksumAlgorithm) Sum(data []byte) ([]byte, error) {
	switch a {
	case ChecksumSHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case ChecksumSHA512:
		sum := sha512.Sum512(data)
		return sum[:], nil
	case ChecksumBLAKE2b:
		sum := blake2b.Sum256(data)
		return sum[:], nil
	default:
		return nil, errors.NewValidationError("INVALID_CHECKSUM_ALGORITHM",
			fmt.Sprintf("unsupported checksum algorithm: %s", a))
	}
}

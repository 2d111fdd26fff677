package security

import (
	"strings"

	"github.com/caedonai/lord-commander-sub000/internal/domain/errors"
)

// Severity represents the danger level of a detected violation.
// Ordering is low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// NewSeverity creates a Severity value object with validation
func NewSeverity(s string) (Severity, error) {
	normalized := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !normalized.IsValid() {
		return "", errors.NewValidationError("INVALID_SEVERITY",
			"severity must be low, medium, high, or critical")
	}
	return normalized, nil
}

// String returns the string representation of the severity
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is a known value
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position used for comparisons
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is equal to or more severe than other
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Max returns the more severe of two severities
func (s Severity) Max(other Severity) Severity {
	if other.Rank() > s.Rank() {
		return other
	}
	return s
}

// ViolationType identifies the attack category an input matched
type ViolationType string

const (
	ViolationPathTraversal         ViolationType = "path-traversal"
	ViolationCommandInjection      ViolationType = "command-injection"
	ViolationDangerousCommand      ViolationType = "dangerous-commands"
	ViolationScriptInjection       ViolationType = "script-injection"
	ViolationSQLInjection          ViolationType = "sql-injection"
	ViolationNoSQLInjection        ViolationType = "nosql-injection"
	ViolationTemplateInjection     ViolationType = "template-injection"
	ViolationEvalUsage             ViolationType = "eval-usage"
	ViolationPrivilegeEscalation   ViolationType = "privilege-escalation"
	ViolationSensitiveFileAccess   ViolationType = "sensitive-file-access"
	ViolationUnicodeAbuse          ViolationType = "unicode-abuse"
	ViolationDeserializationGadget ViolationType = "deserialization-gadget"
	ViolationXXE                   ViolationType = "xxe-injection"
	ViolationLDAPInjection         ViolationType = "ldap-injection"
	ViolationXPathInjection        ViolationType = "xpath-injection"
	ViolationExpressionInjection   ViolationType = "expression-injection"
	ViolationCSVInjection          ViolationType = "csv-injection"
	ViolationOversizedInput        ViolationType = "oversized-input"
)

// String returns the string representation of the violation type
func (vt ViolationType) String() string {
	return string(vt)
}

// InputType classifies where an input string came from
type InputType string

const (
	InputTypeProjectName    InputType = "project-name"
	InputTypePackageManager InputType = "package-manager"
	InputTypeFilePath       InputType = "file-path"
	InputTypeCommandArg     InputType = "command-arg"
	InputTypeConfigValue    InputType = "config-value"
	InputTypeURL            InputType = "url"
	InputTypeEmail          InputType = "email"
)

// IsValid checks if the input type is a known value
func (it InputType) IsValid() bool {
	switch it {
	case InputTypeProjectName, InputTypePackageManager, InputTypeFilePath,
		InputTypeCommandArg, InputTypeConfigValue, InputTypeURL, InputTypeEmail:
		return true
	default:
		return false
	}
}

// Environment identifies the deployment environment an analysis runs in
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Violation is a single detected indicator that input matches a known
// attack category. Violations are fresh per analysis call and carry no
// identity; enrichment happens at the service layer.
type Violation struct {
	Type           ViolationType `json:"type"`
	PatternID      string        `json:"pattern_id"`
	Severity       Severity      `json:"severity"`
	Description    string        `json:"description"`
	Recommendation string        `json:"recommendation"`
}

// ViolationContext is caller-supplied, read-only context for an analysis
type ViolationContext struct {
	InputType   InputType         `json:"input_type"`
	UserRole    string            `json:"user_role,omitempty"`
	Environment Environment       `json:"environment"`
	SessionID   string            `json:"session_id,omitempty"`
	ClientID    string            `json:"client_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// AnalysisResult is the outcome of one detector pass over an input
type AnalysisResult struct {
	IsSecure       bool        `json:"is_secure"`
	Violations     []Violation `json:"violations"`
	RiskScore      int         `json:"risk_score"`
	SanitizedInput string      `json:"sanitized_input,omitempty"`
}

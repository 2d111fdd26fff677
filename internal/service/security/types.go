package security

import (
	"time"

	"github.com/google/uuid"

	"github.com/caedonai/lord-commander-sub000/internal/domain/security"
)

// RiskFactor quantifies one contextual contributor to a violation's score
type RiskFactor struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Impact      int    `json:"impact"` // 0-100
	Description string `json:"description"`
}

// EnhancedViolation is a base violation enriched with identity, context,
// compliance identifiers, quantified risk factors, and remediation steps
type EnhancedViolation struct {
	security.Violation

	ID                uuid.UUID                 `json:"id"`
	Timestamp         time.Time                 `json:"timestamp"`
	Context           security.ViolationContext `json:"context"`
	ComplianceMapping map[string][]string       `json:"compliance_mapping"`
	RiskFactors       []RiskFactor              `json:"risk_factors,omitempty"`
	CorrelationID     string                    `json:"correlation_id,omitempty"`
	Remediation       []string                  `json:"remediation,omitempty"`
	Score             int                       `json:"score"`
}

// ResponseAction is the recommended automated reaction to a correlation
type ResponseAction string

const (
	ResponseMonitor  ResponseAction = "monitor"
	ResponseWarn     ResponseAction = "warn"
	ResponseBlock    ResponseAction = "block"
	ResponseEscalate ResponseAction = "escalate"
)

// SophisticationLevel grades correlated attack activity
type SophisticationLevel string

const (
	SophisticationBasic        SophisticationLevel = "basic"
	SophisticationIntermediate SophisticationLevel = "intermediate"
	SophisticationAdvanced     SophisticationLevel = "advanced"
	SophisticationExpert       SophisticationLevel = "expert"
)

// AttackCorrelation links violations across one call, one session, or one
// client into a suspected coordinated pattern. Correlations are transient
// and recomputed per analysis call.
type AttackCorrelation struct {
	CorrelationID       string              `json:"correlation_id"`
	ViolationIDs        []string            `json:"violation_ids"`
	AttackPattern       string              `json:"attack_pattern"`
	CombinedRiskScore   int                 `json:"combined_risk_score"`
	SophisticationLevel SophisticationLevel `json:"sophistication_level"`
	RecommendedResponse ResponseAction      `json:"recommended_response"`
	PriorOccurrences    int                 `json:"prior_occurrences,omitempty"`
}

// Correlation pattern names
const (
	PatternMultiVector      = "multi-vector-attack"
	PatternSessionBased     = "session-based-attack"
	PatternPersistentClient = "persistent-client-attack"
)

// ThreatBucket groups violations of related types; its level is the
// highest severity among members
type ThreatBucket struct {
	Name         string                   `json:"name"`
	Level        security.Severity        `json:"level"`
	Types        []security.ViolationType `json:"types"`
	ViolationIDs []string                 `json:"violation_ids"`
}

// ComplianceReport scores posture per framework plus an overall mean
type ComplianceReport struct {
	FrameworkScores map[string]int `json:"framework_scores"`
	OverallScore    int            `json:"overall_score"`
}

// AnalysisReport is the full result of one analyzeViolations call
type AnalysisReport struct {
	Input            string                  `json:"-"`
	Detection        security.AnalysisResult `json:"detection"`
	Violations       []EnhancedViolation     `json:"violations"`
	RiskScore        int                     `json:"risk_score"`
	ThreatCategories map[string]ThreatBucket `json:"threat_categories,omitempty"`
	Correlations     []AttackCorrelation     `json:"correlations,omitempty"`
	Compliance       ComplianceReport        `json:"compliance"`
	Recommendations  []string                `json:"recommendations"`
	AnalyzedAt       time.Time               `json:"analyzed_at"`
}

// IsSecure reports whether the analysis found no violations
func (r *AnalysisReport) IsSecure() bool {
	return len(r.Violations) == 0
}

// MaxSeverity returns the highest enhanced severity in the report
func (r *AnalysisReport) MaxSeverity() security.Severity {
	max := security.Severity("")
	for _, v := range r.Violations {
		if v.Severity.Rank() > max.Rank() {
			max = v.Severity
		}
	}
	return max
}

package security

import (
	"strings"

	"github.com/caedonai/lord-commander-sub000/internal/domain/security"
)

// DefaultFrameworks is the compliance framework set scored by default
var DefaultFrameworks = []string{"owasp", "cwe", "nist"}

// frameworkPenalties is the per-framework deduction applied for each
// high or critical violation
var frameworkPenalties = map[string]int{
	"owasp": 20,
	"cwe":   15,
	"nist":  10,
}

const defaultPenalty = 10

// ComplianceScorer scores posture against a configurable framework set
type ComplianceScorer struct {
	frameworks []string
}

// NewComplianceScorer creates a scorer; an empty framework list falls
// back to DefaultFrameworks
func NewComplianceScorer(frameworks []string) *ComplianceScorer {
	if len(frameworks) == 0 {
		frameworks = DefaultFrameworks
	}
	normalized := make([]string, 0, len(frameworks))
	for _, f := range frameworks {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(f)))
	}
	return &ComplianceScorer{frameworks: normalized}
}

// Score starts each framework at 100 and deducts its penalty per high or
// critical violation, flooring at 0. The overall score is the mean across
// frameworks.
func (s *ComplianceScorer) Score(violations []EnhancedViolation) ComplianceReport {
	report := ComplianceReport{
		FrameworkScores: make(map[string]int, len(s.frameworks)),
	}

	serious := 0
	for _, v := range violations {
		if v.Severity.AtLeast(security.SeverityHigh) {
			serious++
		}
	}

	total := 0
	for _, framework := range s.frameworks {
		penalty, ok := frameworkPenalties[framework]
		if !ok {
			penalty = defaultPenalty
		}
		score := 100 - penalty*serious
		if score < 0 {
			score = 0
		}
		report.FrameworkScores[framework] = score
		total += score
	}

	if len(s.frameworks) > 0 {
		report.OverallScore = total / len(s.frameworks)
	} else {
		report.OverallScore = 100
	}
	return report
}

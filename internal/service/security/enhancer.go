package security

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caedonai/lord-commander-sub000/internal/domain/security"
)

// severityWeights are the base contributions per severity level
var severityWeights = map[security.Severity]int{
	security.SeverityLow:      10,
	security.SeverityMedium:   25,
	security.SeverityHigh:     50,
	security.SeverityCritical: 75,
}

// SeverityWeight exposes the base score contribution for a severity
func SeverityWeight(s security.Severity) int {
	return severityWeights[s]
}

// attackVectorWeights add a per-type contribution on top of severity
var attackVectorWeights = map[security.ViolationType]int{
	security.ViolationEvalUsage:             25,
	security.ViolationDeserializationGadget: 25,
	security.ViolationCommandInjection:      20,
	security.ViolationDangerousCommand:      20,
	security.ViolationPathTraversal:         15,
	security.ViolationSensitiveFileAccess:   15,
	security.ViolationSQLInjection:          15,
	security.ViolationPrivilegeEscalation:   15,
	security.ViolationTemplateInjection:     10,
	security.ViolationXXE:                   10,
	security.ViolationScriptInjection:       10,
	security.ViolationExpressionInjection:   10,
	security.ViolationNoSQLInjection:        5,
	security.ViolationLDAPInjection:         5,
	security.ViolationXPathInjection:        5,
	security.ViolationUnicodeAbuse:          5,
	security.ViolationCSVInjection:          5,
}

// complianceMappings is the static lookup from violation type to external
// standard identifiers. Unmapped types yield an empty mapping, never an error.
var complianceMappings = map[security.ViolationType]map[string][]string{
	security.ViolationPathTraversal: {
		"owasp": {"A01:2021"}, "cwe": {"CWE-22", "CWE-23"},
		"nist": {"SI-10"}, "mitre": {"T1083"},
	},
	security.ViolationCommandInjection: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-77", "CWE-78"},
		"nist": {"SI-10"}, "mitre": {"T1059"},
	},
	security.ViolationDangerousCommand: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-78"},
		"nist": {"SI-10"}, "mitre": {"T1485"},
	},
	security.ViolationScriptInjection: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-79"},
		"nist": {"SI-10"}, "mitre": {"T1059.007"},
	},
	security.ViolationSQLInjection: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-89"},
		"nist": {"SI-10"}, "mitre": {"T1190"},
	},
	security.ViolationNoSQLInjection: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-943"}, "nist": {"SI-10"},
	},
	security.ViolationTemplateInjection: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-1336"}, "nist": {"SI-10"},
	},
	security.ViolationEvalUsage: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-95"},
		"nist": {"SI-10"}, "mitre": {"T1059"},
	},
	security.ViolationPrivilegeEscalation: {
		"owasp": {"A01:2021"}, "cwe": {"CWE-269"},
		"nist": {"AC-6"}, "mitre": {"T1548"},
	},
	security.ViolationSensitiveFileAccess: {
		"owasp": {"A01:2021"}, "cwe": {"CWE-200", "CWE-538"},
		"nist": {"AC-3"}, "mitre": {"T1552"},
	},
	security.ViolationUnicodeAbuse: {
		"cwe": {"CWE-176"}, "mitre": {"T1036"},
	},
	security.ViolationDeserializationGadget: {
		"owasp": {"A08:2021"}, "cwe": {"CWE-502"},
		"nist": {"SI-10"}, "mitre": {"T1190"},
	},
	security.ViolationXXE: {
		"owasp": {"A05:2021"}, "cwe": {"CWE-611"}, "nist": {"SI-10"},
	},
	security.ViolationLDAPInjection: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-90"}, "nist": {"SI-10"},
	},
	security.ViolationXPathInjection: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-643"}, "nist": {"SI-10"},
	},
	security.ViolationExpressionInjection: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-917"}, "nist": {"SI-10"},
	},
	security.ViolationCSVInjection: {
		"owasp": {"A03:2021"}, "cwe": {"CWE-1236"},
	},
}

// comboBonuses give targeted risk impact when a violation type lands in
// a particularly dangerous input position
type typeInputCombo struct {
	violationType security.ViolationType
	inputType     security.InputType
}

var comboBonuses = map[typeInputCombo]int{
	{security.ViolationCommandInjection, security.InputTypeCommandArg}:     25,
	{security.ViolationDangerousCommand, security.InputTypeCommandArg}:     25,
	{security.ViolationPathTraversal, security.InputTypeFilePath}:          25,
	{security.ViolationSensitiveFileAccess, security.InputTypeFilePath}:    20,
	{security.ViolationSQLInjection, security.InputTypeConfigValue}:        20,
	{security.ViolationScriptInjection, security.InputTypeURL}:             20,
	{security.ViolationTemplateInjection, security.InputTypeConfigValue}:   15,
	{security.ViolationCSVInjection, security.InputTypeConfigValue}:        10,
	{security.ViolationUnicodeAbuse, security.InputTypeProjectName}:        15,
	{security.ViolationDeserializationGadget, security.InputTypeURL}:       15,
	{security.ViolationExpressionInjection, security.InputTypeConfigValue}: 15,
}

// blockOnSight are types whose remediation always starts with blocking
var blockOnSight = map[security.ViolationType]bool{
	security.ViolationEvalUsage:             true,
	security.ViolationDeserializationGadget: true,
	security.ViolationDangerousCommand:      true,
	security.ViolationPathTraversal:         true,
}

// sanitizable are escalation-prone types where sanitization is a useful
// first line alongside rejection
var sanitizable = map[security.ViolationType]bool{
	security.ViolationScriptInjection:     true,
	security.ViolationTemplateInjection:   true,
	security.ViolationCSVInjection:        true,
	security.ViolationUnicodeAbuse:        true,
	security.ViolationLDAPInjection:       true,
	security.ViolationXPathInjection:      true,
	security.ViolationExpressionInjection: true,
}

// Enhancer turns base detector violations into contextualized, quantified
// assessments. It is stateless; all inputs arrive per call.
type Enhancer struct{}

// NewEnhancer creates an enhancer
func NewEnhancer() *Enhancer {
	return &Enhancer{}
}

// Enhance enriches one base violation with identity, compliance mapping,
// risk factors, remediation, deterministic escalation, and a per-violation
// score capped at 100.
func (e *Enhancer) Enhance(v security.Violation, ctx security.ViolationContext) EnhancedViolation {
	enhanced := EnhancedViolation{
		Violation:         v,
		ID:                uuid.New(),
		Timestamp:         time.Now().UTC(),
		Context:           ctx,
		ComplianceMapping: e.complianceMapping(v.Type),
		RiskFactors:       e.riskFactors(v, ctx),
	}
	enhanced.Severity = e.escalate(v, ctx)
	enhanced.Remediation = e.remediation(v, ctx)
	enhanced.Score = e.score(enhanced, ctx)
	return enhanced
}

// complianceMapping returns the static standards mapping for a type.
// Unknown types map to an empty (non-nil) result.
func (e *Enhancer) complianceMapping(vt security.ViolationType) map[string][]string {
	src, ok := complianceMappings[vt]
	if !ok {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(src))
	for framework, ids := range src {
		copied := make([]string, len(ids))
		copy(copied, ids)
		out[framework] = copied
	}
	return out
}

// riskFactors computes the contextual impact contributors for a violation
func (e *Enhancer) riskFactors(v security.Violation, ctx security.ViolationContext) []RiskFactor {
	var factors []RiskFactor

	if ctx.Environment == security.EnvProduction {
		factors = append(factors, RiskFactor{
			Type:        "environment",
			Name:        "production-environment",
			Impact:      20,
			Description: "violation observed against a production environment",
		})
	}
	if ctx.UserRole == "admin" {
		factors = append(factors, RiskFactor{
			Type:        "role",
			Name:        "privileged-role",
			Impact:      15,
			Description: "request originated from a privileged role",
		})
	}
	if bonus, ok := comboBonuses[typeInputCombo{v.Type, ctx.InputType}]; ok {
		factors = append(factors, RiskFactor{
			Type:   "input-surface",
			Name:   fmt.Sprintf("%s-via-%s", v.Type, ctx.InputType),
			Impact: bonus,
			Description: fmt.Sprintf("%s is directly exploitable through %s input",
				v.Type, ctx.InputType),
		})
	}
	return factors
}

// escalate raises severity deterministically based on context. Escalation
// only ever raises: the result is never below the base severity, and role
// alone never lowers it.
func (e *Enhancer) escalate(v security.Violation, ctx security.ViolationContext) security.Severity {
	severity := v.Severity

	if ctx.Environment == security.EnvProduction {
		switch severity {
		case security.SeverityMedium:
			severity = security.SeverityHigh
		case security.SeverityHigh:
			severity = security.SeverityCritical
		}
	}

	if ctx.InputType == security.InputTypeCommandArg &&
		(v.Type == security.ViolationCommandInjection || v.Type == security.ViolationDangerousCommand) {
		severity = security.SeverityCritical
	}

	return severity.Max(v.Severity)
}

// remediation generates ordered, type-keyed remediation suggestions
func (e *Enhancer) remediation(v security.Violation, ctx security.ViolationContext) []string {
	var steps []string

	if blockOnSight[v.Type] {
		steps = append(steps, fmt.Sprintf("block the input: %s has no safe handling path", v.Type))
	}
	if sanitizable[v.Type] {
		steps = append(steps, fmt.Sprintf("sanitize or encode the value before any %s-sensitive sink", v.Type))
	}
	if v.Recommendation != "" {
		steps = append(steps, v.Recommendation)
	}
	if ctx.Environment == security.EnvProduction {
		steps = append(steps, "enable heightened monitoring for the originating session")
	}
	return steps
}

// score computes the per-violation risk score:
// (severity weight + attack vector weight + sum of risk factor impacts)
// scaled by environment and role multipliers, capped at 100.
func (e *Enhancer) score(v EnhancedViolation, ctx security.ViolationContext) int {
	base := severityWeights[v.Severity] + attackVectorWeights[v.Type]
	for _, f := range v.RiskFactors {
		base += f.Impact
	}

	envMultiplier := 1.0
	switch ctx.Environment {
	case security.EnvProduction:
		envMultiplier = 1.5
	case security.EnvStaging:
		envMultiplier = 1.2
	}

	roleMultiplier := 1.0
	if ctx.UserRole == "admin" {
		roleMultiplier = 1.3
	}

	score := int(float64(base) * envMultiplier * roleMultiplier)
	if score > 100 {
		score = 100
	}
	return score
}

// AggregateScore combines per-violation scores into the call-level risk:
// the greater of the sum and the maximum individual score, plus a
// multi-vector bonus when more than one violation is present, capped at 100.
func AggregateScore(violations []EnhancedViolation) int {
	if len(violations) == 0 {
		return 0
	}
	sum, max := 0, 0
	for _, v := range violations {
		sum += v.Score
		if v.Score > max {
			max = v.Score
		}
	}
	total := sum
	if max > total {
		total = max
	}
	if len(violations) > 1 {
		total += 10
	}
	if total > 100 {
		total = 100
	}
	return total
}

// threatBucketNames maps violation types to named threat categories
var threatBucketNames = map[security.ViolationType]string{
	security.ViolationCommandInjection:      "injection",
	security.ViolationScriptInjection:       "injection",
	security.ViolationSQLInjection:          "injection",
	security.ViolationNoSQLInjection:        "injection",
	security.ViolationTemplateInjection:     "injection",
	security.ViolationLDAPInjection:         "injection",
	security.ViolationXPathInjection:        "injection",
	security.ViolationExpressionInjection:   "injection",
	security.ViolationCSVInjection:          "injection",
	security.ViolationXXE:                   "injection",
	security.ViolationEvalUsage:             "code-execution",
	security.ViolationDeserializationGadget: "code-execution",
	security.ViolationPathTraversal:         "traversal",
	security.ViolationSensitiveFileAccess:   "data-exposure",
	security.ViolationPrivilegeEscalation:   "escalation",
	security.ViolationDangerousCommand:      "escalation",
	security.ViolationUnicodeAbuse:          "obfuscation",
	security.ViolationOversizedInput:        "obfuscation",
}

// Categorize groups enhanced violations into named threat buckets; each
// bucket's level is its highest-severity member.
func Categorize(violations []EnhancedViolation) map[string]ThreatBucket {
	buckets := make(map[string]ThreatBucket)
	for _, v := range violations {
		name, ok := threatBucketNames[v.Type]
		if !ok {
			name = "other"
		}
		bucket := buckets[name]
		bucket.Name = name
		bucket.Level = bucket.Level.Max(v.Severity)
		bucket.Types = appendUniqueType(bucket.Types, v.Type)
		bucket.ViolationIDs = append(bucket.ViolationIDs, v.ID.String())
		buckets[name] = bucket
	}
	return buckets
}

func appendUniqueType(types []security.ViolationType, t security.ViolationType) []security.ViolationType {
	for _, existing := range types {
		if existing == t {
			return types
		}
	}
	return append(types, t)
}

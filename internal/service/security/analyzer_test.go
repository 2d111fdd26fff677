package security

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/caedonai/lord-commander-sub000/internal/domain/security"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(DefaultAnalyzerConfig(), zap.NewNop())
}

func TestAnalyzeCleanInputReport(t *testing.T) {
	analyzer := newTestAnalyzer()

	report := analyzer.AnalyzeViolations(context.Background(), "my-project",
		security.ViolationContext{InputType: security.InputTypeProjectName})

	assert.True(t, report.IsSecure())
	assert.Empty(t, report.Violations)
	assert.Equal(t, 0, report.RiskScore)
	assert.Equal(t, 100, report.Compliance.OverallScore)
	assert.NotEmpty(t, report.Recommendations)
}

func TestAnalyzePathTraversalScenario(t *testing.T) {
	analyzer := newTestAnalyzer()

	report := analyzer.AnalyzeViolations(context.Background(), "../../../etc/passwd",
		security.ViolationContext{
			InputType:   security.InputTypeFilePath,
			Environment: security.EnvDevelopment,
		})

	require.False(t, report.IsSecure())
	assert.GreaterOrEqual(t, report.Detection.RiskScore, 40)

	var traversal *EnhancedViolation
	for i := range report.Violations {
		if report.Violations[i].Type == security.ViolationPathTraversal {
			traversal = &report.Violations[i]
			break
		}
	}
	require.NotNil(t, traversal)
	assert.Equal(t, security.SeverityCritical, traversal.Severity)
	assert.NotEmpty(t, traversal.ComplianceMapping["owasp"])
	assert.NotEmpty(t, traversal.Remediation)
}

func TestAnalyzeProductionCommandScenario(t *testing.T) {
	analyzer := newTestAnalyzer()

	report := analyzer.AnalyzeViolations(context.Background(), "rm -rf /",
		security.ViolationContext{
			InputType:   security.InputTypeCommandArg,
			Environment: security.EnvProduction,
		})

	require.False(t, report.IsSecure())

	var dangerous *EnhancedViolation
	for i := range report.Violations {
		if report.Violations[i].Type == security.ViolationDangerousCommand {
			dangerous = &report.Violations[i]
			break
		}
	}
	require.NotNil(t, dangerous, "rm -rf must be flagged as a dangerous command")
	assert.Equal(t, security.SeverityCritical, dangerous.Severity,
		"dangerous command via command-arg in production escalates to critical")
}

func TestAnalyzeMultiVectorScenario(t *testing.T) {
	analyzer := newTestAnalyzer()

	// One critical (eval) and one high (sql), distinct types, same call
	report := analyzer.AnalyzeViolations(context.Background(),
		"eval(x); 1 UNION SELECT secret FROM vault",
		security.ViolationContext{InputType: security.InputTypeConfigValue})

	require.GreaterOrEqual(t, len(report.Violations), 2)
	require.NotEmpty(t, report.Correlations)

	var multiVector *AttackCorrelation
	for i := range report.Correlations {
		if report.Correlations[i].AttackPattern == PatternMultiVector {
			multiVector = &report.Correlations[i]
			break
		}
	}
	require.NotNil(t, multiVector)
	assert.GreaterOrEqual(t, multiVector.CombinedRiskScore,
		SeverityWeight(security.SeverityCritical))

	// Violations carry the primary correlation id
	for _, v := range report.Violations {
		assert.Equal(t, report.Correlations[0].CorrelationID, v.CorrelationID)
	}
}

func TestAnalyzeSessionHistoryAccumulates(t *testing.T) {
	analyzer := newTestAnalyzer()
	ctx := security.ViolationContext{
		InputType: security.InputTypeConfigValue,
		SessionID: "sess-42",
	}

	first := analyzer.AnalyzeViolations(context.Background(), "' OR '1'='1", ctx)
	require.False(t, first.IsSecure())
	assert.Empty(t, findPattern(first.Correlations, PatternSessionBased),
		"first call has no prior session history")

	second := analyzer.AnalyzeViolations(context.Background(), "<script>alert(1)</script>", ctx)
	require.False(t, second.IsSecure())
	assert.NotEmpty(t, findPattern(second.Correlations, PatternSessionBased),
		"second call correlates against recorded history")
}

func TestAnalyzeHistoryIsolationBetweenAnalyzers(t *testing.T) {
	ctx := security.ViolationContext{
		InputType: security.InputTypeConfigValue,
		SessionID: "sess-shared",
	}

	a := newTestAnalyzer()
	a.AnalyzeViolations(context.Background(), "' OR '1'='1", ctx)

	// A fresh analyzer has its own history handle
	b := newTestAnalyzer()
	report := b.AnalyzeViolations(context.Background(), "' OR '1'='1", ctx)
	assert.Empty(t, findPattern(report.Correlations, PatternSessionBased))
}

func TestAnalyzeHistoryReset(t *testing.T) {
	analyzer := newTestAnalyzer()
	ctx := security.ViolationContext{
		InputType: security.InputTypeConfigValue,
		SessionID: "sess-reset",
	}

	analyzer.AnalyzeViolations(context.Background(), "' OR '1'='1", ctx)
	analyzer.History().Reset()

	report := analyzer.AnalyzeViolations(context.Background(), "' OR '1'='1", ctx)
	assert.Empty(t, findPattern(report.Correlations, PatternSessionBased))
}

func TestAnalyzeComplianceDegradesWithViolations(t *testing.T) {
	analyzer := newTestAnalyzer()

	report := analyzer.AnalyzeViolations(context.Background(),
		"eval($(rm -rf /)) ../../etc/passwd",
		security.ViolationContext{
			InputType:   security.InputTypeCommandArg,
			Environment: security.EnvProduction,
		})

	assert.Less(t, report.Compliance.OverallScore, 80)

	found := false
	for _, action := range report.Recommendations {
		if strings.Contains(action, "compliance") {
			found = true
		}
	}
	assert.True(t, found, "low compliance score must surface a remediation action")
}

func TestAnalyzeRiskScoreBounds(t *testing.T) {
	analyzer := newTestAnalyzer()

	inputs := []string{
		"",
		"clean",
		"../../etc/passwd",
		"eval(1); rm -rf /; <script>; ${x}; #{y}; pickle.loads(z)",
	}
	for _, input := range inputs {
		report := analyzer.AnalyzeViolations(context.Background(), input,
			security.ViolationContext{InputType: security.InputTypeCommandArg})
		assert.GreaterOrEqual(t, report.RiskScore, 0)
		assert.LessOrEqual(t, report.RiskScore, 100)
	}
}

func findPattern(correlations []AttackCorrelation, pattern string) []AttackCorrelation {
	var out []AttackCorrelation
	for _, c := range correlations {
		if c.AttackPattern == pattern {
			out = append(out, c)
		}
	}
	return out
}

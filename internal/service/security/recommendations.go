package security

import (
	"fmt"

	"github.com/caedonai/lord-commander-sub000/internal/domain/security"
)

// complianceActionThreshold triggers a remediation action when the
// overall compliance score drops below it
const complianceActionThreshold = 80

// SynthesizeRecommendations aggregates the severity mix, correlation
// presence, and compliance posture of a report into recommended actions
func SynthesizeRecommendations(report *AnalysisReport) []string {
	if len(report.Violations) == 0 {
		return []string{"no action required; input is clean"}
	}

	var actions []string

	criticals, highs := 0, 0
	for _, v := range report.Violations {
		switch v.Severity {
		case security.SeverityCritical:
			criticals++
		case security.SeverityHigh:
			highs++
		}
	}

	switch {
	case criticals > 0:
		actions = append(actions,
			fmt.Sprintf("reject the input and escalate to the security owner (%d critical violation(s))", criticals))
	case highs > 0:
		actions = append(actions,
			fmt.Sprintf("reject or quarantine the input pending review (%d high-severity violation(s))", highs))
	default:
		actions = append(actions, "sanitize the input and log the attempt")
	}

	for _, correlation := range report.Correlations {
		switch correlation.AttackPattern {
		case PatternSessionBased:
			actions = append(actions, "investigate the session: repeated violations indicate probing")
		case PatternPersistentClient:
			actions = append(actions, "rate-limit or suspend the client: persistent attack activity within the window")
		case PatternMultiVector:
			actions = append(actions,
				fmt.Sprintf("treat as a coordinated attempt (%s sophistication); review all flagged vectors together",
					correlation.SophisticationLevel))
		}
	}

	if report.Compliance.OverallScore < complianceActionThreshold {
		actions = append(actions,
			fmt.Sprintf("schedule compliance remediation: overall posture score %d is below %d",
				report.Compliance.OverallScore, complianceActionThreshold))
	}

	return actions
}

package security

import (
	"time"

	"github.com/google/uuid"

	"github.com/caedonai/lord-commander-sub000/internal/domain/security"
)

// DefaultPersistenceWindow bounds how far back persistent-client
// correlation looks
const DefaultPersistenceWindow = 5 * time.Minute

// Correlator cross-references violations within a call and against the
// bounded per-session/per-client history. Correlations are transient:
// they are recomputed on every call and never persisted themselves.
type Correlator struct {
	history *History
	window  time.Duration
}

// NewCorrelator creates a correlator backed by the given history handle
func NewCorrelator(history *History, window time.Duration) *Correlator {
	if window <= 0 {
		window = DefaultPersistenceWindow
	}
	return &Correlator{history: history, window: window}
}

// Correlate emits attack correlations for the current call:
//   - multi-vector whenever the call produced two or more violations
//   - session-based when the session key has any prior history
//   - persistent-client when the client key has history inside the window
func (c *Correlator) Correlate(violations []EnhancedViolation, ctx security.ViolationContext) []AttackCorrelation {
	var correlations []AttackCorrelation
	if len(violations) == 0 {
		return correlations
	}

	sophistication := c.sophistication(violations)
	response := c.recommendedResponse(violations)
	ids := violationIDs(violations)

	if len(violations) >= 2 {
		correlations = append(correlations, AttackCorrelation{
			CorrelationID:       uuid.NewString(),
			ViolationIDs:        ids,
			AttackPattern:       PatternMultiVector,
			CombinedRiskScore:   combinedSeverityScore(violations),
			SophisticationLevel: sophistication,
			RecommendedResponse: response,
		})
	}

	if ctx.SessionID != "" {
		if prior := c.history.Len(SessionKey(ctx.SessionID)); prior > 0 {
			correlations = append(correlations, AttackCorrelation{
				CorrelationID:       uuid.NewString(),
				ViolationIDs:        ids,
				AttackPattern:       PatternSessionBased,
				CombinedRiskScore:   clamp100(combinedSeverityScore(violations) + 5*prior),
				SophisticationLevel: sophistication,
				RecommendedResponse: response,
				PriorOccurrences:    prior,
			})
		}
	}

	if ctx.ClientID != "" {
		cutoff := time.Now().UTC().Add(-c.window)
		if recent := c.history.Since(ClientKey(ctx.ClientID), cutoff); len(recent) > 0 {
			correlations = append(correlations, AttackCorrelation{
				CorrelationID:       uuid.NewString(),
				ViolationIDs:        ids,
				AttackPattern:       PatternPersistentClient,
				CombinedRiskScore:   clamp100(combinedSeverityScore(violations) + 5*len(recent)),
				SophisticationLevel: sophistication,
				RecommendedResponse: response,
				PriorOccurrences:    len(recent),
			})
		}
	}

	return correlations
}

// Remember appends this call's violations to the session and client
// history. This is the analysis pipeline's only cross-call side effect.
func (c *Correlator) Remember(violations []EnhancedViolation, ctx security.ViolationContext) {
	if len(violations) == 0 {
		return
	}
	records := make([]Record, 0, len(violations))
	for _, v := range violations {
		records = append(records, Record{
			ViolationID: v.ID.String(),
			Type:        v.Type,
			Severity:    v.Severity,
			Timestamp:   v.Timestamp,
		})
	}
	if ctx.SessionID != "" {
		c.history.Append(SessionKey(ctx.SessionID), records...)
	}
	if ctx.ClientID != "" {
		c.history.Append(ClientKey(ctx.ClientID), records...)
	}
}

// sophistication grades the call by severity and vector diversity:
// two criticals across three distinct types is expert territory, one
// critical across two types is advanced, two types is intermediate,
// anything else basic.
func (c *Correlator) sophistication(violations []EnhancedViolation) SophisticationLevel {
	criticals := 0
	types := make(map[security.ViolationType]struct{})
	for _, v := range violations {
		if v.Severity == security.SeverityCritical {
			criticals++
		}
		types[v.Type] = struct{}{}
	}

	switch {
	case criticals >= 2 && len(types) >= 3:
		return SophisticationExpert
	case criticals >= 1 && len(types) >= 2:
		return SophisticationAdvanced
	case len(types) >= 2:
		return SophisticationIntermediate
	default:
		return SophisticationBasic
	}
}

// recommendedResponse applies the fixed precedence:
// escalate > block > warn > monitor
func (c *Correlator) recommendedResponse(violations []EnhancedViolation) ResponseAction {
	criticals, highs := 0, 0
	for _, v := range violations {
		switch v.Severity {
		case security.SeverityCritical:
			criticals++
		case security.SeverityHigh:
			highs++
		}
	}

	switch {
	case criticals > 0:
		return ResponseEscalate
	case highs >= 2:
		return ResponseBlock
	case len(violations) > 1:
		return ResponseWarn
	default:
		return ResponseMonitor
	}
}

// combinedSeverityScore sums the severity weights of all members, capped
// at 100. The sum is always at least the largest individual weight.
func combinedSeverityScore(violations []EnhancedViolation) int {
	total := 0
	for _, v := range violations {
		total += severityWeights[v.Severity]
	}
	return clamp100(total)
}

func clamp100(n int) int {
	if n > 100 {
		return 100
	}
	return n
}

func violationIDs(violations []EnhancedViolation) []string {
	ids := make([]string, 0, len(violations))
	for _, v := range violations {
		ids = append(ids, v.ID.String())
	}
	return ids
}

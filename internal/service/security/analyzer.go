package security

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/caedonai/lord-commander-sub000/internal/domain/security"
)

// AnalyzerConfig configures the analysis pipeline
type AnalyzerConfig struct {
	HistoryLimit         int
	PersistenceWindow    time.Duration
	ComplianceFrameworks []string
	Weights              security.Weights
	MaxScanBytes         int
}

// DefaultAnalyzerConfig returns the default pipeline configuration
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		HistoryLimit:         DefaultHistoryLimit,
		PersistenceWindow:    DefaultPersistenceWindow,
		ComplianceFrameworks: DefaultFrameworks,
	}
}

// Analyzer runs the full input-analysis pipeline: detection, enhancement,
// escalation, scoring, categorization, correlation, compliance scoring,
// history recording, and recommendation synthesis. Every step is
// deterministic given the same input, context, and history snapshot; only
// the history append mutates state across calls.
type Analyzer struct {
	detector   *security.Detector
	enhancer   *Enhancer
	correlator *Correlator
	scorer     *ComplianceScorer
	history    *History

	logger *zap.Logger
	tracer trace.Tracer
}

// NewAnalyzer builds the pipeline with an isolated history handle
func NewAnalyzer(cfg AnalyzerConfig, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}

	detectorOpts := []security.DetectorOption{}
	if cfg.MaxScanBytes > 0 {
		detectorOpts = append(detectorOpts, security.WithMaxScanBytes(cfg.MaxScanBytes))
	}
	if len(cfg.Weights) > 0 {
		detectorOpts = append(detectorOpts, security.WithWeights(cfg.Weights))
	}

	history := NewHistory(cfg.HistoryLimit)

	return &Analyzer{
		detector:   security.NewDetector(detectorOpts...),
		enhancer:   NewEnhancer(),
		correlator: NewCorrelator(history, cfg.PersistenceWindow),
		scorer:     NewComplianceScorer(cfg.ComplianceFrameworks),
		history:    history,
		logger:     logger,
		tracer:     otel.Tracer("security.analyzer"),
	}
}

// History exposes the analyzer's history handle so hosts can reset it
// between isolated runs (tests, trail rotation)
func (a *Analyzer) History() *History {
	return a.history
}

// AnalyzeViolations runs the full pipeline over one input string
func (a *Analyzer) AnalyzeViolations(ctx context.Context, input string, vctx security.ViolationContext) *AnalysisReport {
	_, span := a.tracer.Start(ctx, "Analyzer.AnalyzeViolations",
		trace.WithAttributes(
			attribute.String("input.type", string(vctx.InputType)),
			attribute.String("environment", string(vctx.Environment)),
		),
	)
	defer span.End()

	report := &AnalysisReport{
		Input:      input,
		AnalyzedAt: time.Now().UTC(),
	}

	// Step 1: pattern detection
	report.Detection = a.detector.Analyze(input)
	if len(report.Detection.Violations) == 0 {
		report.Violations = []EnhancedViolation{}
		report.Compliance = a.scorer.Score(nil)
		report.Recommendations = SynthesizeRecommendations(report)
		return report
	}

	// Steps 2-4: enrichment, escalation, per-violation scoring
	report.Violations = make([]EnhancedViolation, 0, len(report.Detection.Violations))
	for _, base := range report.Detection.Violations {
		report.Violations = append(report.Violations, a.enhancer.Enhance(base, vctx))
	}
	report.RiskScore = AggregateScore(report.Violations)

	// Step 5: threat categorization
	report.ThreatCategories = Categorize(report.Violations)

	// Step 6: correlation against the call and the history snapshot
	report.Correlations = a.correlator.Correlate(report.Violations, vctx)
	if len(report.Correlations) > 0 {
		primary := report.Correlations[0].CorrelationID
		for i := range report.Violations {
			report.Violations[i].CorrelationID = primary
		}
	}

	// Step 7: compliance posture
	report.Compliance = a.scorer.Score(report.Violations)

	// Step 8: the only stateful side effect
	a.correlator.Remember(report.Violations, vctx)

	// Step 9: recommended actions
	report.Recommendations = SynthesizeRecommendations(report)

	span.SetAttributes(
		attribute.Int("violations.count", len(report.Violations)),
		attribute.Int("risk.score", report.RiskScore),
	)
	a.logger.Debug("input analysis completed",
		zap.Int("violations", len(report.Violations)),
		zap.Int("risk_score", report.RiskScore),
		zap.String("input_type", string(vctx.InputType)),
		zap.Int("correlations", len(report.Correlations)),
	)

	return report
}

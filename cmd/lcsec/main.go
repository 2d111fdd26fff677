package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	domaudit "github.com/caedonai/lord-commander-sub000/internal/domain/audit"
	"github.com/caedonai/lord-commander-sub000/internal/domain/security"
	"github.com/caedonai/lord-commander-sub000/internal/infrastructure/config"
	"github.com/caedonai/lord-commander-sub000/internal/infrastructure/telemetry"
	"github.com/caedonai/lord-commander-sub000/internal/metrics"
	auditsvc "github.com/caedonai/lord-commander-sub000/internal/service/audit"
	secsvc "github.com/caedonai/lord-commander-sub000/internal/service/security"
)

type options struct {
	inputType   string
	environment string
	sessionID   string
	clientID    string
	userRole    string
}

// verdict is the per-line JSON printed to stdout
type verdict struct {
	Secure       bool     `json:"secure"`
	RiskScore    int      `json:"risk_score"`
	Violations   int      `json:"violations"`
	Types        []string `json:"types,omitempty"`
	MaxSeverity  string   `json:"max_severity,omitempty"`
	Sanitized    string   `json:"sanitized,omitempty"`
	Correlations int      `json:"correlations,omitempty"`
}

func main() {
	opts := options{}
	flag.StringVar(&opts.inputType, "input-type", "config-value",
		"input surface: project-name|package-manager|file-path|command-arg|config-value|url|email")
	flag.StringVar(&opts.environment, "environment", "",
		"override the configured environment for violation context")
	flag.StringVar(&opts.sessionID, "session", "", "session identifier for correlation")
	flag.StringVar(&opts.clientID, "client", "", "client identifier for correlation")
	flag.StringVar(&opts.userRole, "role", "", "user role for risk weighting")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := telemetry.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger, opts); err != nil {
		logger.Error("lcsec failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts options) error {
	logger.Info("starting lcsec",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
	)

	registry, err := metrics.NewRegistry("lcsec")
	if err != nil {
		return fmt.Errorf("building metrics registry: %w", err)
	}

	analyzer := secsvc.NewAnalyzer(analyzerConfig(cfg), logger)

	trail, err := auditsvc.NewTrailManager(trailConfig(cfg), logger,
		auditsvc.WithMetrics(registry))
	if err != nil {
		return fmt.Errorf("building audit trail: %w", err)
	}
	defer func() { _ = trail.Close() }()

	vctx := security.ViolationContext{
		InputType:   security.InputType(opts.inputType),
		Environment: security.Environment(cfg.Environment),
		SessionID:   opts.sessionID,
		ClientID:    opts.clientID,
		UserRole:    opts.userRole,
	}
	if opts.environment != "" {
		vctx.Environment = security.Environment(opts.environment)
	}

	if err := analyzeLines(ctx, analyzer, trail, registry, vctx); err != nil {
		return err
	}

	result := trail.VerifyIntegrity(ctx)
	logger.Info("final chain verification",
		zap.String("status", string(result.Status)),
		zap.Int("verified_entries", result.VerifiedEntries),
		zap.Int("corrupted_entries", len(result.CorruptedEntries)),
		zap.String("digest", result.Digest),
	)
	if !result.IsValid() {
		return fmt.Errorf("audit chain corrupted: %d defects", len(result.CorruptedEntries))
	}
	return nil
}

// analyzeLines reads stdin line by line, analyzes each input, records
// violations to the trail, and prints one JSON verdict per line
func analyzeLines(
	ctx context.Context,
	analyzer *secsvc.Analyzer,
	trail *auditsvc.TrailManager,
	registry *metrics.Registry,
	vctx security.ViolationContext,
) error {
	encoder := json.NewEncoder(os.Stdout)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()
		report := analyzer.AnalyzeViolations(ctx, scanner.Text(), vctx)
		registry.AnalysisDuration.Record(ctx,
			float64(time.Since(start).Microseconds())/1000.0)

		if !report.IsSecure() {
			registry.ViolationsDetected.Add(ctx, int64(len(report.Violations)))
			if err := recordReport(ctx, trail, report, vctx); err != nil {
				return fmt.Errorf("recording violation: %w", err)
			}
		}

		if err := encoder.Encode(buildVerdict(report)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func buildVerdict(report *secsvc.AnalysisReport) verdict {
	v := verdict{
		Secure:       report.IsSecure(),
		RiskScore:    report.RiskScore,
		Violations:   len(report.Violations),
		Sanitized:    report.Detection.SanitizedInput,
		Correlations: len(report.Correlations),
	}
	if !report.IsSecure() {
		v.MaxSeverity = string(report.MaxSeverity())
		seen := make(map[string]struct{})
		for _, violation := range report.Violations {
			name := string(violation.Type)
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				v.Types = append(v.Types, name)
			}
		}
	}
	return v
}

// recordReport maps an analysis report onto an audit entry
func recordReport(
	ctx context.Context,
	trail *auditsvc.TrailManager,
	report *secsvc.AnalysisReport,
	vctx security.ViolationContext,
) error {
	records := make([]domaudit.ViolationRecord, 0, len(report.Violations))
	for _, violation := range report.Violations {
		records = append(records, domaudit.ViolationRecord{
			ViolationID: violation.ID.String(),
			Type:        string(violation.Type),
			PatternID:   violation.PatternID,
			Severity:    string(violation.Severity),
			Description: violation.Description,
		})
	}

	var user *domaudit.UserContext
	if vctx.SessionID != "" || vctx.ClientID != "" || vctx.UserRole != "" {
		user = &domaudit.UserContext{
			UserID:    vctx.ClientID,
			UserRole:  vctx.UserRole,
			SessionID: vctx.SessionID,
		}
	}

	message := fmt.Sprintf("input rejected: %d violation(s), risk score %d",
		len(report.Violations), report.RiskScore)
	return trail.RecordSecurityViolation(ctx, message,
		auditSeverity(report.MaxSeverity()), threatLevel(report.RiskScore),
		records, user)
}

func auditSeverity(s security.Severity) domaudit.Severity {
	switch s {
	case security.SeverityCritical:
		return domaudit.SeverityCritical
	case security.SeverityHigh:
		return domaudit.SeverityHigh
	case security.SeverityMedium:
		return domaudit.SeverityMedium
	case security.SeverityLow:
		return domaudit.SeverityLow
	default:
		return domaudit.SeverityInfo
	}
}

func threatLevel(riskScore int) domaudit.ThreatLevel {
	switch {
	case riskScore >= 75:
		return domaudit.ThreatCritical
	case riskScore >= 50:
		return domaudit.ThreatHigh
	case riskScore >= 25:
		return domaudit.ThreatMedium
	case riskScore > 0:
		return domaudit.ThreatLow
	default:
		return domaudit.ThreatNone
	}
}

func analyzerConfig(cfg *config.Config) secsvc.AnalyzerConfig {
	weights := make(security.Weights, len(cfg.Security.Weights))
	for category, weight := range cfg.Security.Weights {
		weights[security.ViolationType(category)] = weight
	}
	return secsvc.AnalyzerConfig{
		HistoryLimit:         cfg.Security.HistoryLimit,
		PersistenceWindow:    cfg.Security.PersistenceWindow,
		ComplianceFrameworks: cfg.Security.ComplianceFrameworks,
		Weights:              weights,
		MaxScanBytes:         cfg.Security.MaxScanBytes,
	}
}

func trailConfig(cfg *config.Config) auditsvc.Config {
	eventTypes := make([]domaudit.EventType, 0, len(cfg.Audit.EnabledEventTypes))
	for _, et := range cfg.Audit.EnabledEventTypes {
		eventTypes = append(eventTypes, domaudit.EventType(et))
	}
	return auditsvc.Config{
		TrailName:            cfg.Audit.TrailName,
		Component:            "lcsec",
		StorageBackend:       auditsvc.StorageBackend(cfg.Audit.StorageBackend),
		MaxEntries:           cfg.Audit.MaxEntries,
		MaxSizeBytes:         cfg.Audit.MaxSizeBytes,
		ChecksumAlgorithm:    domaudit.ChecksumAlgorithm(cfg.Audit.ChecksumAlgorithm),
		Async:                cfg.Audit.Async,
		BatchSize:            cfg.Audit.BatchSize,
		FlushInterval:        cfg.Audit.FlushInterval,
		EnabledEventTypes:    eventTypes,
		MinimumSeverity:      domaudit.Severity(cfg.Audit.MinimumSeverity),
		DefaultRetentionDays: cfg.Audit.DefaultRetentionDays,
		AutoRotate:           cfg.Audit.AutoRotate,
		RotationSizeBytes:    cfg.Audit.RotationSizeBytes,
	}
}

package audit

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/caedonai/lord-commander-sub000/internal/domain/audit"
)

// VerifyIntegrity walks the stored chain in timestamp order, recomputing
// every checksum and predecessor link. The walk is read-only over a
// snapshot; defects come back as data on the result, never as an error.
func (m *TrailManager) VerifyIntegrity(ctx context.Context) *audit.VerificationResult {
	ctx, span := m.tracer.Start(ctx, "TrailManager.VerifyIntegrity")
	defer span.End()

	entries := m.storage.List()
	result := audit.NewChainVerifier(m.cfg.ChecksumAlgorithm).Verify(entries)

	m.stateMu.Lock()
	m.integrityStatus = result.Status
	m.lastVerified = result.VerifiedAt
	m.stateMu.Unlock()

	span.SetAttributes(
		attribute.Int("entries.verified", result.VerifiedEntries),
		attribute.Int("entries.corrupted", len(result.CorruptedEntries)),
	)
	if m.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("trail", m.cfg.TrailName))
		m.metrics.IntegrityChecks.Add(ctx, 1, attrs)
		if !result.IsValid() {
			m.metrics.IntegrityFailures.Add(ctx, 1, attrs)
		}
	}

	if result.IsValid() {
		m.logger.Debug("chain verification passed",
			zap.String("trail", m.cfg.TrailName),
			zap.Int("entries", result.VerifiedEntries),
		)
	} else {
		m.logger.Error("chain verification found corrupted entries",
			zap.String("trail", m.cfg.TrailName),
			zap.Int("entries", result.VerifiedEntries),
			zap.Int("corrupted", len(result.CorruptedEntries)),
		)
	}
	return result
}

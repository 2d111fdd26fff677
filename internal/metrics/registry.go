package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the application's instruments. Recording goes through the
// otel metric API; whether anything is exported depends on the meter
// provider the host process installs.
type Registry struct {
	meter metric.Meter

	// Security analysis
	ViolationsDetected metric.Int64Counter
	AnalysisDuration   metric.Float64Histogram

	// Audit trail
	EntriesPersisted  metric.Int64Counter
	EntriesEvicted    metric.Int64Counter
	EventsFiltered    metric.Int64Counter
	TrailFlushes      metric.Int64Counter
	FlushDuration     metric.Float64Histogram
	IntegrityChecks   metric.Int64Counter
	IntegrityFailures metric.Int64Counter
}

// NewRegistry creates a registry with all instruments bound to the named meter
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	if err := r.initSecurityMetrics(); err != nil {
		return nil, err
	}
	if err := r.initAuditMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initSecurityMetrics() error {
	var err error

	r.ViolationsDetected, err = r.meter.Int64Counter(
		"lcsec.security.violations_detected",
		metric.WithDescription("Security violations detected by the pattern battery"),
	)
	if err != nil {
		return err
	}

	r.AnalysisDuration, err = r.meter.Float64Histogram(
		"lcsec.security.analysis_duration",
		metric.WithDescription("Duration of one input analysis in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500),
	)
	return err
}

func (r *Registry) initAuditMetrics() error {
	var err error

	r.EntriesPersisted, err = r.meter.Int64Counter(
		"lcsec.audit.entries_persisted",
		metric.WithDescription("Audit entries sealed and written to storage"),
	)
	if err != nil {
		return err
	}

	r.EntriesEvicted, err = r.meter.Int64Counter(
		"lcsec.audit.entries_evicted",
		metric.WithDescription("Audit entries evicted by count or size caps"),
	)
	if err != nil {
		return err
	}

	r.EventsFiltered, err = r.meter.Int64Counter(
		"lcsec.audit.events_filtered",
		metric.WithDescription("Events dropped by event-type or severity filters"),
	)
	if err != nil {
		return err
	}

	r.TrailFlushes, err = r.meter.Int64Counter(
		"lcsec.audit.flushes",
		metric.WithDescription("Batch flushes performed by the trail manager"),
	)
	if err != nil {
		return err
	}

	r.FlushDuration, err = r.meter.Float64Histogram(
		"lcsec.audit.flush_duration",
		metric.WithDescription("Duration of one batch flush in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500),
	)
	if err != nil {
		return err
	}

	r.IntegrityChecks, err = r.meter.Int64Counter(
		"lcsec.audit.integrity_checks",
		metric.WithDescription("Full chain verifications performed"),
	)
	if err != nil {
		return err
	}

	r.IntegrityFailures, err = r.meter.Int64Counter(
		"lcsec.audit.integrity_failures",
		metric.WithDescription("Chain verifications that found corrupted entries"),
	)
	return err
}

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesTotal      = "pipeshift.files.total"
	metricViolationsTotal = "pipeshift.violations.total"
	metricPassesTotal     = "pipeshift.passes.total"
	metricPassDuration    = "pipeshift.pass.duration.seconds"
	metricRequestsTotal   = "pipeshift.requests.total"
	metricRequestDuration = "pipeshift.request.duration.seconds"
	metricErrorsTotal     = "pipeshift.errors.total"

	attrOp     = "op"
	attrStatus = "status"
	attrRule   = "rule"

	// StatusOK marks a successful request.
	StatusOK = "ok"
	// StatusError marks a failed request.
	StatusError = "error"
)

// File outcomes recorded by MigrationMetrics.RecordFile.
const (
	FileChanged = "changed"
	FileClean   = "clean"
	FileSkipped = "skipped"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// MigrationMetrics holds the instruments recorded by the pass loop.
type MigrationMetrics struct {
	files        metric.Int64Counter
	violations   metric.Int64Counter
	passes       metric.Int64Counter
	passDuration metric.Float64Histogram
}

// NewMigrationMetrics creates the pass loop instruments from mt.
func NewMigrationMetrics(mt metric.Meter) (*MigrationMetrics, error) {
	files, err := mt.Int64Counter(metricFilesTotal,
		metric.WithDescription("Files analyzed, by outcome"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesTotal, err)
	}

	violations, err := mt.Int64Counter(metricViolationsTotal,
		metric.WithDescription("Violations found, by rule"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricViolationsTotal, err)
	}

	passes, err := mt.Int64Counter(metricPassesTotal,
		metric.WithDescription("Completed fixed-point passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPassesTotal, err)
	}

	passDuration, err := mt.Float64Histogram(metricPassDuration,
		metric.WithDescription("Duration of one pass over all inputs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPassDuration, err)
	}

	return &MigrationMetrics{
		files:        files,
		violations:   violations,
		passes:       passes,
		passDuration: passDuration,
	}, nil
}

// RecordFile counts one analyzed file.
func (mm *MigrationMetrics) RecordFile(ctx context.Context, status string) {
	if mm == nil {
		return
	}

	mm.files.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordViolations counts violations found by rule.
func (mm *MigrationMetrics) RecordViolations(ctx context.Context, rule string, n int) {
	if mm == nil || n == 0 {
		return
	}

	mm.violations.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrRule, rule)))
}

// RecordPass records a completed pass.
func (mm *MigrationMetrics) RecordPass(ctx context.Context, duration time.Duration) {
	if mm == nil {
		return
	}

	mm.passes.Add(ctx, 1)
	mm.passDuration.Record(ctx, duration.Seconds())
}

// REDMetrics records rate, errors and duration of LSP and MCP requests.
type REDMetrics struct {
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorsTotal     metric.Int64Counter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	return &REDMetrics{
		requestsTotal:   reqTotal,
		requestDuration: reqDuration,
		errorsTotal:     errTotal,
	}, nil
}

// RecordRequest records a completed request.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

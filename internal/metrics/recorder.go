package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder defines the interface for recording broker operation metrics.
// Implementations track operation counts, durations and command outcomes
// across the broker areas (modules, commands, credentials, authorization).
type Recorder interface {
	// RecordOperation records an operation with its status.
	// Area examples: "modules", "commands", "credentials"
	// Operation examples: "object_put", "command_send", "handshake"
	// Status examples: "success", "error"
	RecordOperation(ctx context.Context, area, operation, status string)

	// RecordDuration records the duration of an operation with its status.
	// Duration is recorded in seconds as a histogram for percentile calculations.
	RecordDuration(ctx context.Context, area, operation string, duration time.Duration, status string)

	// RecordCommandOutcome records the terminal state of an async command,
	// labeled by command type and final state (ACCEPTED, REJECTED, TIMED_OUT).
	RecordCommandOutcome(ctx context.Context, commandType, state string)
}

// recorder implements Recorder using OpenTelemetry metrics.
type recorder struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	commandCounter   metric.Int64Counter
}

// NewRecorder creates a Recorder backed by the provided meter provider. The
// namespace parameter is used as a prefix for all metric names (e.g., "ocpi").
// Returns error if an instrument cannot be initialized.
func NewRecorder(meterProvider metric.MeterProvider, namespace string) (Recorder, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of broker operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of broker operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	commandCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_commands_completed_total", namespace),
		metric.WithDescription("Total number of commands that reached a terminal state"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create command counter: %w", err)
	}

	return &recorder{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		commandCounter:   commandCounter,
	}, nil
}

// RecordOperation increments the operation counter with area, operation, and
// status labels.
func (r *recorder) RecordOperation(ctx context.Context, area, operation, status string) {
	r.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("area", area),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDuration records the operation duration in seconds with area,
// operation, and status labels.
func (r *recorder) RecordDuration(
	ctx context.Context,
	area, operation string,
	duration time.Duration,
	status string,
) {
	r.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("area", area),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordCommandOutcome increments the terminal command counter with type and
// state labels.
func (r *recorder) RecordCommandOutcome(ctx context.Context, commandType, state string) {
	r.commandCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("type", commandType),
			attribute.String("state", state),
		),
	)
}

// NoOpRecorder is a no-op implementation of Recorder for when metrics are
// disabled.
type NoOpRecorder struct{}

// NewNoOpRecorder creates a no-op Recorder implementation.
func NewNoOpRecorder() Recorder {
	return &NoOpRecorder{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpRecorder) RecordOperation(ctx context.Context, area, operation, status string) {
	// No-op
}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpRecorder) RecordDuration(
	ctx context.Context,
	area, operation string,
	duration time.Duration,
	status string,
) {
	// No-op
}

// RecordCommandOutcome does nothing when metrics are disabled.
func (n *NoOpRecorder) RecordCommandOutcome(ctx context.Context, commandType, state string) {
	// No-op
}

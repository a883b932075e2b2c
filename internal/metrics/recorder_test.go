package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMetricLine checks that the Prometheus output contains a metric
// matching the given name, partial label pattern, and value. Uses regex to
// handle extra OTel scope labels injected by the Prometheus exporter.
func assertMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func TestNewRecorder(t *testing.T) {
	t.Run("Success_CreateRecorder", func(t *testing.T) {
		provider, err := NewProvider("test_ocpi")
		require.NoError(t, err)

		recorder, err := NewRecorder(provider.MeterProvider(), "test_ocpi")

		require.NoError(t, err)
		assert.NotNil(t, recorder)
	})
}

func TestRecorder_RecordOperation(t *testing.T) {
	provider, err := NewProvider("test_ocpi")
	require.NoError(t, err)

	recorder, err := NewRecorder(provider.MeterProvider(), "test_ocpi")
	require.NoError(t, err)

	t.Run("Success_RecordSuccessfulOperation", func(t *testing.T) {
		// Should not panic
		recorder.RecordOperation(context.Background(), "modules", "object_put", "success")
	})

	t.Run("Success_RecordFailedOperation", func(t *testing.T) {
		// Should not panic
		recorder.RecordOperation(context.Background(), "commands", "command_send", "error")
	})

	t.Run("Success_RecordMultipleAreas", func(t *testing.T) {
		recorder.RecordOperation(context.Background(), "modules", "object_get", "success")
		recorder.RecordOperation(context.Background(), "commands", "command_callback", "success")
		recorder.RecordOperation(context.Background(), "credentials", "handshake", "error")
	})
}

func TestRecorder_RecordDuration(t *testing.T) {
	provider, err := NewProvider("test_ocpi")
	require.NoError(t, err)

	recorder, err := NewRecorder(provider.MeterProvider(), "test_ocpi")
	require.NoError(t, err)

	t.Run("Success_RecordDurations", func(t *testing.T) {
		recorder.RecordDuration(context.Background(), "modules", "object_put", 12*time.Millisecond, "success")
		recorder.RecordDuration(context.Background(), "commands", "command_send", 150*time.Millisecond, "error")
	})
}

func TestNewNoOpRecorder(t *testing.T) {
	noOp := NewNoOpRecorder()

	assert.NotNil(t, noOp)
	assert.IsType(t, &NoOpRecorder{}, noOp)

	t.Run("NoOp_DoesNotPanic", func(t *testing.T) {
		noOp.RecordOperation(context.Background(), "modules", "object_put", "success")
		noOp.RecordDuration(context.Background(), "commands", "command_send", 100*time.Millisecond, "error")
		noOp.RecordCommandOutcome(context.Background(), "START_SESSION", "ACCEPTED")
	})
}

func TestRecorder_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	recorder, err := NewRecorder(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	ctx := context.Background()

	recorder.RecordOperation(ctx, "modules", "object_put", "success")
	recorder.RecordOperation(ctx, "modules", "object_put", "success")
	recorder.RecordOperation(ctx, "modules", "object_put", "error")
	recorder.RecordOperation(ctx, "commands", "command_send", "success")

	recorder.RecordDuration(ctx, "modules", "object_put", 50*time.Millisecond, "success")
	recorder.RecordDuration(ctx, "modules", "object_put", 60*time.Millisecond, "success")
	recorder.RecordDuration(ctx, "commands", "command_send", 100*time.Millisecond, "success")

	recorder.RecordCommandOutcome(ctx, "START_SESSION", "ACCEPTED")
	recorder.RecordCommandOutcome(ctx, "START_SESSION", "ACCEPTED")
	recorder.RecordCommandOutcome(ctx, "UNLOCK_CONNECTOR", "TIMED_OUT")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)

	output := w.Body.String()

	assertMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`area="modules".*operation="object_put".*status="success"`,
		`2`,
	)
	assertMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`area="modules".*operation="object_put".*status="error"`,
		`1`,
	)
	assertMetricLine(
		t,
		output,
		`integration_test_operation_duration_seconds_count`,
		`area="modules".*operation="object_put".*status="success"`,
		`2`,
	)
	assertMetricLine(
		t,
		output,
		`integration_test_commands_completed_total`,
		`state="ACCEPTED".*type="START_SESSION"`,
		`2`,
	)
	assertMetricLine(
		t,
		output,
		`integration_test_commands_completed_total`,
		`state="TIMED_OUT".*type="UNLOCK_CONNECTOR"`,
		`1`,
	)
}

package usecase

import (
	"context"
	"time"

	commandsDomain "github.com/allisson/ocpi-hub/internal/commands/domain"
	"github.com/allisson/ocpi-hub/internal/metrics"
)

// dispatcherWithMetrics decorates Dispatcher with metrics instrumentation.
type dispatcherWithMetrics struct {
	next     Dispatcher
	recorder metrics.Recorder
}

// NewDispatcherWithMetrics wraps a dispatcher with metrics recording.
func NewDispatcherWithMetrics(dispatcher Dispatcher, recorder metrics.Recorder) Dispatcher {
	return &dispatcherWithMetrics{
		next:     dispatcher,
		recorder: recorder,
	}
}

// Send records metrics for outbound command dispatch.
func (d *dispatcherWithMetrics) Send(
	ctx context.Context,
	peerName string,
	commandType commandsDomain.CommandType,
	request commandsDomain.Request,
) (*commandsDomain.SendResponse, error) {
	start := time.Now()
	response, err := d.next.Send(ctx, peerName, commandType, request)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.recorder.RecordOperation(ctx, "commands", "command_send", status)
	d.recorder.RecordDuration(ctx, "commands", "command_send", time.Since(start), status)

	return response, err
}

// ReceiveCallback records metrics for inbound result callbacks and, when the
// callback settled the command, its terminal outcome.
func (d *dispatcherWithMetrics) ReceiveCallback(
	ctx context.Context,
	commandID string,
	result commandsDomain.Result,
) error {
	start := time.Now()
	err := d.next.ReceiveCallback(ctx, commandID, result)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.recorder.RecordOperation(ctx, "commands", "command_callback", status)
	d.recorder.RecordDuration(ctx, "commands", "command_callback", time.Since(start), status)

	if err == nil {
		if command, statusErr := d.next.Status(commandID); statusErr == nil {
			d.recorder.RecordCommandOutcome(ctx, string(command.Type), string(command.State))
		}
	}

	return err
}

// Status passes through without instrumentation; it is a read on local state.
func (d *dispatcherWithMetrics) Status(commandID string) (*commandsDomain.Command, error) {
	return d.next.Status(commandID)
}

// Stop passes through to the wrapped dispatcher.
func (d *dispatcherWithMetrics) Stop() {
	d.next.Stop()
}

package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/allisson/ocpi-hub/internal/metrics"
	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// useCaseWithMetrics decorates UseCase with metrics instrumentation.
type useCaseWithMetrics struct {
	next     UseCase
	recorder metrics.Recorder
}

// NewUseCaseWithMetrics wraps a module store use case with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, recorder metrics.Recorder) UseCase {
	return &useCaseWithMetrics{
		next:     useCase,
		recorder: recorder,
	}
}

func (u *useCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	u.recorder.RecordOperation(ctx, "modules", operation, status)
	u.recorder.RecordDuration(ctx, "modules", operation, time.Since(start), status)
}

// Get records metrics for single object reads.
func (u *useCaseWithMetrics) Get(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
) (*modulesDomain.Object, error) {
	start := time.Now()
	object, err := u.next.Get(ctx, module, key)
	u.record(ctx, "object_get", start, err)
	return object, err
}

// List records metrics for paginated listings.
func (u *useCaseWithMetrics) List(
	ctx context.Context,
	module ocpi.ModuleID,
	filters modulesDomain.ListFilters,
) (*modulesDomain.Page, error) {
	start := time.Now()
	page, err := u.next.List(ctx, module, filters)
	u.record(ctx, "object_list", start, err)
	return page, err
}

// Create records metrics for object creation.
func (u *useCaseWithMetrics) Create(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
	payload json.RawMessage,
) (*modulesDomain.Object, error) {
	start := time.Now()
	object, err := u.next.Create(ctx, module, key, payload)
	u.record(ctx, "object_create", start, err)
	return object, err
}

// Upsert records metrics for full replacements.
func (u *useCaseWithMetrics) Upsert(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
	payload json.RawMessage,
) (*modulesDomain.Object, error) {
	start := time.Now()
	object, err := u.next.Upsert(ctx, module, key, payload)
	u.record(ctx, "object_put", start, err)
	return object, err
}

// Update records metrics for partial merges.
func (u *useCaseWithMetrics) Update(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
	partial json.RawMessage,
) (*modulesDomain.Object, error) {
	start := time.Now()
	object, err := u.next.Update(ctx, module, key, partial)
	u.record(ctx, "object_patch", start, err)
	return object, err
}

// Delete records metrics for object deletion.
func (u *useCaseWithMetrics) Delete(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
) error {
	start := time.Now()
	err := u.next.Delete(ctx, module, key)
	u.record(ctx, "object_delete", start, err)
	return err
}

package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ocpi-hub/internal/metrics"
	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	modulesRepository "github.com/allisson/ocpi-hub/internal/modules/repository"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// mockRecorder is a mock implementation of metrics.Recorder for testing.
type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordOperation(ctx context.Context, area, operation, status string) {
	m.Called(ctx, area, operation, status)
}

func (m *mockRecorder) RecordDuration(
	ctx context.Context,
	area, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, area, operation, duration, status)
}

func (m *mockRecorder) RecordCommandOutcome(ctx context.Context, commandType, state string) {
	m.Called(ctx, commandType, state)
}

var _ metrics.Recorder = (*mockRecorder)(nil)

func TestModuleMetricsDecorator(t *testing.T) {
	ctx := context.Background()
	key := modulesDomain.Key{CountryCode: "DE", PartyID: "CPX", ID: "LOC1"}

	t.Run("Upsert_RecordsSuccessMetrics", func(t *testing.T) {
		recorder := &mockRecorder{}
		recorder.On("RecordOperation", ctx, "modules", "object_put", "success").Return().Once()
		recorder.On("RecordDuration", ctx, "modules", "object_put", mock.Anything, "success").
			Return().
			Once()

		useCase := NewUseCaseWithMetrics(
			NewModuleUseCase(modulesRepository.NewMemoryModuleRepository(), 50, 200),
			recorder,
		)

		object, err := useCase.Upsert(ctx, ocpi.ModuleLocations, key, json.RawMessage(`{"id":"LOC1"}`))
		require.NoError(t, err)
		assert.Equal(t, "LOC1", object.Key.ID)

		recorder.AssertExpectations(t)
	})

	t.Run("Get_RecordsErrorMetrics", func(t *testing.T) {
		recorder := &mockRecorder{}
		recorder.On("RecordOperation", ctx, "modules", "object_get", "error").Return().Once()
		recorder.On("RecordDuration", ctx, "modules", "object_get", mock.Anything, "error").
			Return().
			Once()

		useCase := NewUseCaseWithMetrics(
			NewModuleUseCase(modulesRepository.NewMemoryModuleRepository(), 50, 200),
			recorder,
		)

		_, err := useCase.Get(ctx, ocpi.ModuleLocations, key)
		require.Error(t, err)

		recorder.AssertExpectations(t)
	})

	t.Run("AllOperationsInstrumented", func(t *testing.T) {
		recorder := &mockRecorder{}
		recorder.On("RecordOperation", ctx, "modules", mock.Anything, mock.Anything).Return()
		recorder.On("RecordDuration", ctx, "modules", mock.Anything, mock.Anything, mock.Anything).
			Return()

		useCase := NewUseCaseWithMetrics(
			NewModuleUseCase(modulesRepository.NewMemoryModuleRepository(), 50, 200),
			recorder,
		)

		_, err := useCase.Create(ctx, ocpi.ModuleLocations, key, json.RawMessage(`{"id":"LOC1"}`))
		require.NoError(t, err)
		_, err = useCase.Update(ctx, ocpi.ModuleLocations, key, json.RawMessage(`{"name":"Plaza"}`))
		require.NoError(t, err)
		_, err = useCase.List(ctx, ocpi.ModuleLocations, modulesDomain.ListFilters{})
		require.NoError(t, err)
		require.NoError(t, useCase.Delete(ctx, ocpi.ModuleLocations, key))

		recorder.AssertNumberOfCalls(t, "RecordOperation", 4)
		recorder.AssertNumberOfCalls(t, "RecordDuration", 4)
	})
}

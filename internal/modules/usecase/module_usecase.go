package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// moduleUseCase implements UseCase on top of a Repository.
type moduleUseCase struct {
	repo         Repository
	defaultLimit int
	maxLimit     int
}

// NewModuleUseCase creates the module store use case. defaultLimit is applied
// when a list request carries no limit; maxLimit caps requested page sizes.
func NewModuleUseCase(repo Repository, defaultLimit, maxLimit int) UseCase {
	return &moduleUseCase{
		repo:         repo,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Get returns a single object by key.
func (m *moduleUseCase) Get(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
) (*modulesDomain.Object, error) {
	if err := checkModule(module); err != nil {
		return nil, err
	}
	return m.repo.Get(ctx, module, key)
}

// List returns one page of a module's objects. The limit is defaulted and
// capped before it reaches the repository so no backend can produce unbounded
// pages.
func (m *moduleUseCase) List(
	ctx context.Context,
	module ocpi.ModuleID,
	filters modulesDomain.ListFilters,
) (*modulesDomain.Page, error) {
	if err := checkModule(module); err != nil {
		return nil, err
	}

	if filters.Offset < 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "offset must not be negative")
	}
	if filters.Limit <= 0 {
		filters.Limit = m.defaultLimit
	}
	if filters.Limit > m.maxLimit {
		filters.Limit = m.maxLimit
	}

	return m.repo.List(ctx, module, filters)
}

// Create stores a new object. A missing object id is generated; LastUpdated is
// always stamped by the store, never taken from the caller.
func (m *moduleUseCase) Create(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
	payload json.RawMessage,
) (*modulesDomain.Object, error) {
	object, err := m.buildObject(module, key, payload)
	if err != nil {
		return nil, err
	}

	if err := m.repo.Create(ctx, object); err != nil {
		return nil, err
	}
	return object, nil
}

// Upsert stores an object unconditionally, replacing any previous payload.
func (m *moduleUseCase) Upsert(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
	payload json.RawMessage,
) (*modulesDomain.Object, error) {
	object, err := m.buildObject(module, key, payload)
	if err != nil {
		return nil, err
	}

	if err := m.repo.Put(ctx, object); err != nil {
		return nil, err
	}
	return object, nil
}

// Update applies a partial-merge to an existing object: only fields present in
// partial overwrite stored ones. LastUpdated is refreshed on every update.
func (m *moduleUseCase) Update(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
	partial json.RawMessage,
) (*modulesDomain.Object, error) {
	if err := checkModule(module); err != nil {
		return nil, err
	}
	if err := checkPayload(partial); err != nil {
		return nil, err
	}

	return m.repo.Update(ctx, module, key, partial)
}

// Delete removes an object. Deleting an absent object fails with not found.
func (m *moduleUseCase) Delete(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
) error {
	if err := checkModule(module); err != nil {
		return err
	}
	return m.repo.Delete(ctx, module, key)
}

// buildObject validates inputs and assembles a store-ready object.
func (m *moduleUseCase) buildObject(
	module ocpi.ModuleID,
	key modulesDomain.Key,
	payload json.RawMessage,
) (*modulesDomain.Object, error) {
	if err := checkModule(module); err != nil {
		return nil, err
	}
	if err := checkPayload(payload); err != nil {
		return nil, err
	}

	if key.ID == "" {
		key.ID = uuid.Must(uuid.NewV7()).String()
	}

	return &modulesDomain.Object{
		Module:      module,
		Key:         key,
		LastUpdated: time.Now().UTC(),
		Payload:     payload,
	}, nil
}

// checkModule rejects module identifiers the store does not serve. The
// commands module has its own dispatcher and never goes through the store.
func checkModule(module ocpi.ModuleID) error {
	if ocpi.DataModule(module) || module == ocpi.ModuleCredentials {
		return nil
	}
	return modulesDomain.ErrUnknownModule
}

// checkPayload rejects payloads that are not JSON objects.
func checkPayload(payload json.RawMessage) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return modulesDomain.ErrMalformedPayload
	}
	return nil
}

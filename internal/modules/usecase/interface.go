// Package usecase implements the generic module store exposed to the HTTP
// surface and to the other components (credentials, commands).
package usecase

import (
	"context"
	"encoding/json"

	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// Repository is the storage contract behind the module store. Implementations
// must support concurrent readers and serialized writers per key; Update must
// apply the partial-merge atomically with respect to concurrent writes on the
// same key.
type Repository interface {
	// Get returns the object for key or ErrObjectNotFound.
	Get(ctx context.Context, module ocpi.ModuleID, key modulesDomain.Key) (*modulesDomain.Object, error)

	// List returns one page of a module's objects ordered by LastUpdated then id.
	List(
		ctx context.Context,
		module ocpi.ModuleID,
		filters modulesDomain.ListFilters,
	) (*modulesDomain.Page, error)

	// Create stores a new object; ErrObjectExists if the key is taken.
	Create(ctx context.Context, object *modulesDomain.Object) error

	// Put stores an object unconditionally (insert or full replace).
	Put(ctx context.Context, object *modulesDomain.Object) error

	// Update merges partial into the stored payload and refreshes LastUpdated;
	// ErrObjectNotFound if the key is absent.
	Update(
		ctx context.Context,
		module ocpi.ModuleID,
		key modulesDomain.Key,
		partial json.RawMessage,
	) (*modulesDomain.Object, error)

	// Delete removes the object for key or returns ErrObjectNotFound.
	Delete(ctx context.Context, module ocpi.ModuleID, key modulesDomain.Key) error
}

// UseCase is the module store contract consumed by handlers and the other
// components.
type UseCase interface {
	Get(ctx context.Context, module ocpi.ModuleID, key modulesDomain.Key) (*modulesDomain.Object, error)
	List(
		ctx context.Context,
		module ocpi.ModuleID,
		filters modulesDomain.ListFilters,
	) (*modulesDomain.Page, error)
	Create(
		ctx context.Context,
		module ocpi.ModuleID,
		key modulesDomain.Key,
		payload json.RawMessage,
	) (*modulesDomain.Object, error)
	Upsert(
		ctx context.Context,
		module ocpi.ModuleID,
		key modulesDomain.Key,
		payload json.RawMessage,
	) (*modulesDomain.Object, error)
	Update(
		ctx context.Context,
		module ocpi.ModuleID,
		key modulesDomain.Key,
		partial json.RawMessage,
	) (*modulesDomain.Object, error)
	Delete(ctx context.Context, module ocpi.ModuleID, key modulesDomain.Key) error
}

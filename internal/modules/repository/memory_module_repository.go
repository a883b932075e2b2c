// Package repository provides the storage backends for the module store: an
// in-memory implementation used by default and SQL implementations for
// PostgreSQL and MySQL.
package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// moduleShard holds the objects of a single module behind its own lock, so
// heavy traffic on one module (e.g. sessions under command load) does not
// serialize access to the others.
type moduleShard struct {
	mu      sync.RWMutex
	objects map[modulesDomain.Key]*modulesDomain.Object
}

// MemoryModuleRepository implements Repository with per-module in-memory maps.
type MemoryModuleRepository struct {
	mu     sync.Mutex
	shards map[ocpi.ModuleID]*moduleShard
}

// NewMemoryModuleRepository creates an empty in-memory repository.
func NewMemoryModuleRepository() *MemoryModuleRepository {
	return &MemoryModuleRepository{
		shards: make(map[ocpi.ModuleID]*moduleShard),
	}
}

// shard returns the shard for module, creating it on first use.
func (m *MemoryModuleRepository) shard(module ocpi.ModuleID) *moduleShard {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shards[module]
	if !ok {
		s = &moduleShard{objects: make(map[modulesDomain.Key]*modulesDomain.Object)}
		m.shards[module] = s
	}
	return s
}

// Get returns the object for key or ErrObjectNotFound.
func (m *MemoryModuleRepository) Get(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
) (*modulesDomain.Object, error) {
	s := m.shard(module)
	s.mu.RLock()
	defer s.mu.RUnlock()

	object, ok := s.objects[key]
	if !ok {
		return nil, modulesDomain.ErrObjectNotFound
	}
	return copyObject(object), nil
}

// List returns one page of the module's objects ordered by LastUpdated then id.
func (m *MemoryModuleRepository) List(
	ctx context.Context,
	module ocpi.ModuleID,
	filters modulesDomain.ListFilters,
) (*modulesDomain.Page, error) {
	s := m.shard(module)
	s.mu.RLock()

	matched := make([]*modulesDomain.Object, 0, len(s.objects))
	for _, object := range s.objects {
		if filters.Matches(object.LastUpdated) {
			matched = append(matched, object)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].LastUpdated.Equal(matched[j].LastUpdated) {
			return matched[i].LastUpdated.Before(matched[j].LastUpdated)
		}
		return matched[i].Key.ID < matched[j].Key.ID
	})

	totalCount := len(matched)

	start := filters.Offset
	if start > totalCount {
		start = totalCount
	}
	end := start + filters.Limit
	if end > totalCount {
		end = totalCount
	}

	items := make([]*modulesDomain.Object, 0, end-start)
	for _, object := range matched[start:end] {
		items = append(items, copyObject(object))
	}

	return &modulesDomain.Page{
		Items:      items,
		TotalCount: totalCount,
		IsLastPage: filters.Offset+len(items) >= totalCount,
	}, nil
}

// Create stores a new object; ErrObjectExists if the key is taken.
func (m *MemoryModuleRepository) Create(ctx context.Context, object *modulesDomain.Object) error {
	s := m.shard(object.Module)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[object.Key]; ok {
		return modulesDomain.ErrObjectExists
	}
	s.objects[object.Key] = copyObject(object)
	return nil
}

// Put stores an object unconditionally.
func (m *MemoryModuleRepository) Put(ctx context.Context, object *modulesDomain.Object) error {
	s := m.shard(object.Module)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[object.Key] = copyObject(object)
	return nil
}

// Update merges partial into the stored payload under the shard lock, so
// concurrent updates to the same key never interleave.
func (m *MemoryModuleRepository) Update(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
	partial json.RawMessage,
) (*modulesDomain.Object, error) {
	s := m.shard(module)
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.objects[key]
	if !ok {
		return nil, modulesDomain.ErrObjectNotFound
	}

	merged, err := modulesDomain.MergePayload(existing.Payload, partial)
	if err != nil {
		return nil, modulesDomain.ErrMalformedPayload
	}

	updated := &modulesDomain.Object{
		Module:      module,
		Key:         key,
		LastUpdated: time.Now().UTC(),
		Payload:     merged,
	}
	s.objects[key] = updated

	return copyObject(updated), nil
}

// Delete removes the object for key or returns ErrObjectNotFound.
func (m *MemoryModuleRepository) Delete(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
) error {
	s := m.shard(module)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return modulesDomain.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

// copyObject returns a deep copy so callers can never mutate stored state.
func copyObject(object *modulesDomain.Object) *modulesDomain.Object {
	payload := make(json.RawMessage, len(object.Payload))
	copy(payload, object.Payload)

	return &modulesDomain.Object{
		Module:      object.Module,
		Key:         object.Key,
		LastUpdated: object.LastUpdated,
		Payload:     payload,
	}
}

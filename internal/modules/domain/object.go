// Package domain defines the generic module object model shared by all OCPI
// data modules. All nine modules carry the same identity, pagination and
// timestamp semantics; only the payload shape differs, and the payload is
// opaque to the store.
package domain

import (
	"encoding/json"
	"time"

	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// Key identifies a module object. Object ids are unique within the
// (country_code, party_id, module) triple.
type Key struct {
	CountryCode string
	PartyID     string
	ID          string
}

// Object is the generic record stored for every OCPI data module.
type Object struct {
	Module      ocpi.ModuleID
	Key         Key
	LastUpdated time.Time
	Payload     json.RawMessage
}

// ListFilters carries the OCPI list query parameters. The date filters apply
// to LastUpdated.
type ListFilters struct {
	Offset   int
	Limit    int
	DateFrom *time.Time
	DateTo   *time.Time
}

// Matches reports whether an object's LastUpdated falls within the filter's
// date window.
func (f ListFilters) Matches(lastUpdated time.Time) bool {
	if f.DateFrom != nil && lastUpdated.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && !lastUpdated.Before(*f.DateTo) {
		return false
	}
	return true
}

// Page is one page of a module list.
type Page struct {
	Items      []*Object
	TotalCount int
	IsLastPage bool
}

// MergePayload overlays the fields of partial onto base. Only top-level fields
// present in partial overwrite existing ones; fields absent from partial are
// preserved. Both inputs must be JSON objects.
func MergePayload(base, partial json.RawMessage) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &merged); err != nil {
			return nil, err
		}
	}

	overlay := map[string]json.RawMessage{}
	if err := json.Unmarshal(partial, &overlay); err != nil {
		return nil, err
	}
	for field, value := range overlay {
		merged[field] = value
	}

	return json.Marshal(merged)
}

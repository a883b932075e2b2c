package domain

import (
	"github.com/allisson/ocpi-hub/internal/errors"
)

// Module store errors.
var (
	// ErrObjectNotFound indicates no object exists for the given module and key.
	ErrObjectNotFound = errors.Wrap(errors.ErrNotFound, "module object not found")

	// ErrObjectExists indicates an object with the given key already exists.
	ErrObjectExists = errors.Wrap(errors.ErrConflict, "module object already exists")

	// ErrUnknownModule indicates a module identifier not served by the store.
	ErrUnknownModule = errors.Wrap(errors.ErrNotFound, "unknown module")

	// ErrMalformedPayload indicates an object payload that is not a JSON object.
	ErrMalformedPayload = errors.Wrap(errors.ErrInvalidInput, "payload must be a JSON object")
)

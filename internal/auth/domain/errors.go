package domain

import (
	"github.com/allisson/ocpi-hub/internal/errors"
)

// Authentication errors.
var (
	// ErrTokenClassConflict indicates a token string already registered under
	// the other token class. A token must never be valid as both Token A and
	// Token C at the same time.
	ErrTokenClassConflict = errors.Wrap(errors.ErrConflict, "token already registered under the other class")

	// ErrInvalidToken indicates an inbound request carried a token that is not
	// present in either token class.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid token")
)

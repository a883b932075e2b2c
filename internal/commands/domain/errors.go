package domain

import (
	apperrors "github.com/allisson/ocpi-hub/internal/errors"
)

var (
	// ErrInvalidCommand indicates a command request with missing target fields
	// or a malformed token reference.
	ErrInvalidCommand = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid command request")

	// ErrUnknownCommandType indicates a command type outside the five OCPI
	// command types.
	ErrUnknownCommandType = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown command type")

	// ErrCommandNotFound indicates no command with that id was ever dispatched.
	ErrCommandNotFound = apperrors.Wrap(apperrors.ErrNotFound, "command not found")

	// ErrUnknownOrCompletedCommand indicates a callback for a command that is
	// unknown or already terminal. Duplicate callbacks land here.
	ErrUnknownOrCompletedCommand = apperrors.Wrap(apperrors.ErrConflict, "unknown or already completed command")

	// ErrDispatcherStopped indicates the dispatcher is shutting down and no
	// longer accepts commands.
	ErrDispatcherStopped = apperrors.Wrap(apperrors.ErrConflict, "command dispatcher stopped")
)

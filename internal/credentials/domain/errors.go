package domain

import (
	apperrors "github.com/allisson/ocpi-hub/internal/errors"
)

var (
	// ErrPeerNotFound indicates the named peer relationship does not exist.
	ErrPeerNotFound = apperrors.Wrap(apperrors.ErrNotFound, "peer not found")

	// ErrPeerExists indicates a peer relationship with that name already exists.
	ErrPeerExists = apperrors.Wrap(apperrors.ErrConflict, "peer already exists")

	// ErrMalformedCredential indicates a credential with missing or invalid
	// fields; neither side's state advances on it.
	ErrMalformedCredential = apperrors.Wrap(apperrors.ErrInvalidInput, "malformed credential")

	// ErrMalformedVersionDetails indicates version details with a missing url
	// or an interface role outside SENDER/RECEIVER.
	ErrMalformedVersionDetails = apperrors.Wrap(apperrors.ErrInvalidInput, "malformed version details")

	// ErrUnsupportedVersion indicates the peer does not offer OCPI 2.2.1.
	ErrUnsupportedVersion = apperrors.Wrap(apperrors.ErrInvalidInput, "peer does not support version 2.2.1")

	// ErrNoMatchingEndpoints indicates the peer's version details lack an
	// endpoint the handshake or command flow needs.
	ErrNoMatchingEndpoints = apperrors.Wrap(apperrors.ErrNotFound, "peer exposes no matching endpoint")

	// ErrInvalidState indicates an operation was attempted out of handshake
	// order, e.g. exchanging credentials before fetching version details.
	ErrInvalidState = apperrors.Wrap(apperrors.ErrConflict, "operation not allowed in current registration state")
)

// Package domain defines the authentication entities for the OCPI token scheme.
package domain

// TokenClass classifies an OCPI authentication token. These are the
// peer-relationship secrets of the registration handshake, not the OCPI
// "Token" business object representing a driver credential.
type TokenClass string

const (
	// TokenA is issued by us and presented to peers during registration.
	TokenA TokenClass = "TOKEN_A"

	// TokenC is issued by a peer and presented by that peer to identify
	// itself on inbound requests.
	TokenC TokenClass = "TOKEN_C"

	// TokenUnknown marks a token not present in either class.
	TokenUnknown TokenClass = "UNKNOWN"
)

// Identity describes the resolved authentication state of an inbound request.
type Identity struct {
	Token string
	Class TokenClass
}

package domain

import (
	"time"

	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// RegistrationState tracks how far a peer relationship has advanced through
// the credentials handshake. Only REGISTERED peers may use the data and
// command surfaces.
type RegistrationState string

const (
	StateUnregistered          RegistrationState = "UNREGISTERED"
	StateVersionsDiscovered    RegistrationState = "VERSIONS_DISCOVERED"
	StateVersionDetailsFetched RegistrationState = "VERSION_DETAILS_FETCHED"
	StateCredentialsExchanged  RegistrationState = "CREDENTIALS_EXCHANGED"
	StateRegistered            RegistrationState = "REGISTERED"
)

// rank orders the states along the handshake.
var rank = map[RegistrationState]int{
	StateUnregistered:          0,
	StateVersionsDiscovered:    1,
	StateVersionDetailsFetched: 2,
	StateCredentialsExchanged:  3,
	StateRegistered:            4,
}

// AtLeast reports whether s has reached the given state.
func (s RegistrationState) AtLeast(other RegistrationState) bool {
	return rank[s] >= rank[other]
}

// Peer is one remote party relationship and everything learned about it
// during the handshake. OutboundToken is the secret sent on requests to the
// peer: the operator-provided registration token before the exchange, the
// token from the peer's credential after it.
type Peer struct {
	Name          string
	VersionsURL   string
	State         RegistrationState
	OutboundToken string

	// Learned during the handshake.
	VersionDetailsURL string
	Endpoints         map[ocpi.ModuleID]string
	Credential        *Credential

	// InboundToken is the token we issued to the peer during the exchange.
	InboundToken string

	UpdatedAt time.Time
}

// EndpointURL returns the peer's endpoint for a module, or "" when the peer
// does not expose it.
func (p *Peer) EndpointURL(module ocpi.ModuleID) string {
	if p.Endpoints == nil {
		return ""
	}
	return p.Endpoints[module]
}

// Registered reports whether the handshake has completed.
func (p *Peer) Registered() bool {
	return p.State == StateRegistered
}

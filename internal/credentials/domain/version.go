package domain

import (
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// Version is one entry of a party's versions endpoint.
type Version struct {
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Endpoint is one module endpoint listed in version details.
type Endpoint struct {
	Identifier ocpi.ModuleID      `json:"identifier"`
	Role       ocpi.InterfaceRole `json:"role"`
	URL        string             `json:"url"`
}

// Validate rejects endpoints with an unknown interface role or missing fields.
func (e Endpoint) Validate() error {
	if e.Identifier == "" || e.URL == "" {
		return ErrMalformedVersionDetails
	}
	if !ocpi.ValidInterfaceRole(e.Role) {
		return ErrMalformedVersionDetails
	}
	return nil
}

// VersionDetails is the endpoint list a party exposes for one version.
type VersionDetails struct {
	Version   string     `json:"version"`
	Endpoints []Endpoint `json:"endpoints"`
}

// EndpointURL returns the URL for a module endpoint, preferring the given
// role. An endpoint listed without a matching role entry is not returned.
func (d VersionDetails) EndpointURL(module ocpi.ModuleID, role ocpi.InterfaceRole) (string, bool) {
	for _, endpoint := range d.Endpoints {
		if endpoint.Identifier == module && endpoint.Role == role {
			return endpoint.URL, true
		}
	}
	return "", false
}

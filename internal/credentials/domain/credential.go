// Package domain defines the credential exchange model: the OCPI credentials
// object, the per-peer registration state machine and the version discovery
// types.
package domain

import (
	"github.com/jellydator/validation"

	"github.com/allisson/ocpi-hub/internal/ocpi"
	customValidation "github.com/allisson/ocpi-hub/internal/validation"
)

// BusinessDetails describes the organization behind a party.
type BusinessDetails struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

// Validate checks the business details fields.
func (b BusinessDetails) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Name, validation.Required, validation.Length(1, 100), customValidation.CiString),
		validation.Field(&b.Website, validation.When(b.Website != "", customValidation.AbsoluteURL)),
	)
}

// CredentialsRole binds a party identity to the role it plays.
type CredentialsRole struct {
	Role            ocpi.PartyRole  `json:"role"`
	BusinessDetails BusinessDetails `json:"business_details"`
	PartyID         string          `json:"party_id"`
	CountryCode     string          `json:"country_code"`
}

// Validate checks a single credentials role.
func (r CredentialsRole) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.By(func(any) error {
			if !ocpi.ValidPartyRole(r.Role) {
				return validation.NewError("validation_invalid_role", "must be EMSP or CPO")
			}
			return nil
		})),
		validation.Field(&r.BusinessDetails),
		validation.Field(&r.PartyID, validation.Required, customValidation.PartyID),
		validation.Field(&r.CountryCode, validation.Required, customValidation.CountryCode),
	)
}

// Credential is the OCPI credentials object exchanged during registration.
// Token is the secret the receiving side must use on every subsequent request;
// URL points at the sender's versions endpoint.
type Credential struct {
	Token string            `json:"token"`
	URL   string            `json:"url"`
	Roles []CredentialsRole `json:"roles"`
}

// Validate rejects credentials with missing or malformed fields. Both sides of
// an exchange must pass this before any state advances.
func (c Credential) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Token, validation.Required, customValidation.NoWhitespace),
		validation.Field(&c.URL, validation.Required, customValidation.AbsoluteURL),
		validation.Field(&c.Roles, validation.Required, validation.Length(1, 10)),
	); err != nil {
		return ErrMalformedCredential
	}

	for _, role := range c.Roles {
		if err := role.Validate(); err != nil {
			return ErrMalformedCredential
		}
	}
	return nil
}

// PartyID returns the party identifier of the first role.
func (c Credential) PartyID() string {
	if len(c.Roles) == 0 {
		return ""
	}
	return c.Roles[0].PartyID
}

// CountryCode returns the country code of the first role.
func (c Credential) CountryCode() string {
	if len(c.Roles) == 0 {
		return ""
	}
	return c.Roles[0].CountryCode
}

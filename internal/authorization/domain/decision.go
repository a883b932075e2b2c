// Package domain defines the real-time authorization decision model.
package domain

// AllowedType is the outcome category of an authorization decision.
type AllowedType string

const (
	Allowed    AllowedType = "ALLOWED"
	Blocked    AllowedType = "BLOCKED"
	Expired    AllowedType = "EXPIRED"
	NoCredit   AllowedType = "NO_CREDIT"
	NotAllowed AllowedType = "NOT_ALLOWED"
)

// Request carries the charging context an authorization is asked for.
type Request struct {
	TokenUID    string `json:"-"`
	LocationID  string `json:"location_id,omitempty"`
	EVSEUID     string `json:"evse_uid,omitempty"`
	ConnectorID string `json:"connector_id,omitempty"`
}

// Decision is the answer to an authorize request. AuthorizationReference is
// only set when the decision is ALLOWED; it correlates the later session and
// CDR with this decision. Decisions are computed per request, never stored.
type Decision struct {
	TokenUID               string      `json:"token_uid"`
	LocationID             string      `json:"location_id,omitempty"`
	EVSEUID                string      `json:"evse_uid,omitempty"`
	ConnectorID            string      `json:"connector_id,omitempty"`
	Allowed                AllowedType `json:"allowed"`
	AuthorizationReference string      `json:"authorization_reference,omitempty"`
}

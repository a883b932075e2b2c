// Package domain defines the asynchronous command model: the five OCPI
// command types, the pending command lifecycle and the callback result.
package domain

import (
	"time"

	"github.com/jellydator/validation"

	customValidation "github.com/allisson/ocpi-hub/internal/validation"
)

// CommandType is one of the commands a party can send to a peer.
type CommandType string

const (
	CommandStartSession      CommandType = "START_SESSION"
	CommandStopSession       CommandType = "STOP_SESSION"
	CommandReserveNow        CommandType = "RESERVE_NOW"
	CommandCancelReservation CommandType = "CANCEL_RESERVATION"
	CommandUnlockConnector   CommandType = "UNLOCK_CONNECTOR"
)

// ValidCommandType reports whether t names a known command type.
func ValidCommandType(t CommandType) bool {
	switch t {
	case CommandStartSession, CommandStopSession, CommandReserveNow,
		CommandCancelReservation, CommandUnlockConnector:
		return true
	}
	return false
}

// CommandState is the lifecycle state of a dispatched command. The three
// non-PENDING states are terminal.
type CommandState string

const (
	StatePending  CommandState = "PENDING"
	StateAccepted CommandState = "ACCEPTED"
	StateRejected CommandState = "REJECTED"
	StateTimedOut CommandState = "TIMED_OUT"
)

// Terminal reports whether the state admits no further transitions.
func (s CommandState) Terminal() bool {
	return s == StateAccepted || s == StateRejected || s == StateTimedOut
}

// ResultType is the outcome a peer reports, either immediately on send or
// later through the callback.
type ResultType string

const (
	ResultAccepted ResultType = "ACCEPTED"
	ResultRejected ResultType = "REJECTED"
)

// ValidResultType reports whether r names a known result.
func ValidResultType(r ResultType) bool {
	return r == ResultAccepted || r == ResultRejected
}

// TokenRef references the OCPI Token business object a command acts for.
type TokenRef struct {
	UID        string `json:"uid"`
	Type       string `json:"type,omitempty"`
	ContractID string `json:"contract_id,omitempty"`
}

// Request is the payload of an outbound command.
type Request struct {
	Token         TokenRef `json:"token"`
	LocationID    string   `json:"location_id"`
	EVSEUID       string   `json:"evse_uid"`
	ConnectorID   string   `json:"connector_id"`
	ReservationID string   `json:"reservation_id,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
}

// Validate rejects command requests with missing target fields or a malformed
// token reference.
func (r Request) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.LocationID, validation.Required, customValidation.NotBlank, customValidation.CiString),
		validation.Field(&r.EVSEUID, validation.Required, customValidation.NotBlank, customValidation.CiString),
		validation.Field(&r.ConnectorID, validation.Required, customValidation.NotBlank, customValidation.CiString),
	)
	if err != nil {
		return ErrInvalidCommand
	}
	if r.Token.UID == "" {
		return ErrInvalidCommand
	}
	return nil
}

// Command is one dispatched command and its lifecycle state.
type Command struct {
	ID          string       `json:"id"`
	Type        CommandType  `json:"type"`
	Peer        string       `json:"peer"`
	ResponseURL string       `json:"response_url"`
	Request     Request      `json:"request"`
	IssuedAt    time.Time    `json:"issued_at"`
	Deadline    time.Time    `json:"deadline"`
	State       CommandState `json:"state"`
}

// Result is the payload a peer posts to the callback endpoint.
type Result struct {
	Result  ResultType `json:"result"`
	Message string     `json:"message,omitempty"`
}

// SendResponse is the immediate answer returned to the sender: the peer's
// synchronous accept or reject plus the window in which the final callback
// may still arrive.
type SendResponse struct {
	CommandID      string     `json:"command_id"`
	Result         ResultType `json:"result"`
	TimeoutSeconds int        `json:"timeout"`
}

// Package ocpi provides the OCPI 2.2.1 protocol primitives shared by all
// components: the response envelope, the numeric status code taxonomy, module
// identifiers and role enumerations.
package ocpi

import (
	"encoding/json"
	"time"

	apperrors "github.com/allisson/ocpi-hub/internal/errors"
)

// Envelope is the standard OCPI response wrapper. Every request and response
// body, success or error, is wrapped in it.
type Envelope struct {
	StatusCode    int             `json:"status_code"`
	StatusMessage string          `json:"status_message,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope wraps data in a success envelope. The data value is marshaled
// eagerly so encoding failures surface at construction time instead of during
// response writing.
func NewEnvelope(data any) (*Envelope, error) {
	env := &Envelope{
		StatusCode:    StatusSuccess,
		StatusMessage: "Success",
		Timestamp:     time.Now().UTC(),
	}

	if data == nil {
		return env, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode envelope data")
	}
	env.Data = raw

	return env, nil
}

// NewErrorEnvelope wraps an error condition in an envelope with the given OCPI
// status code and message. Error envelopes never carry data.
func NewErrorEnvelope(statusCode int, message string) *Envelope {
	return &Envelope{
		StatusCode:    statusCode,
		StatusMessage: message,
		Timestamp:     time.Now().UTC(),
	}
}

// DecodeEnvelope parses an envelope from a raw response body.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode envelope")
	}
	return &env, nil
}

// DecodeData unmarshals the envelope payload into out. Returns ErrInvalidInput
// if the envelope carries no data.
func (e *Envelope) DecodeData(out any) error {
	if len(e.Data) == 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "envelope has no data")
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return apperrors.Wrap(err, "failed to decode envelope data")
	}
	return nil
}

// Success reports whether the envelope carries a success status code.
func (e *Envelope) Success() bool {
	return IsSuccess(e.StatusCode)
}

// Package validation provides custom validation rules for the application.
package validation

import (
	"net/url"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/ocpi-hub/internal/errors"
)

var (
	// ciStringRegex matches the printable ASCII subset OCPI allows for
	// case-insensitive string fields.
	ciStringRegex = regexp.MustCompile(`^[\x20-\x7E]*$`)

	// countryCodeRegex matches ISO-3166 alpha-2 country codes.
	countryCodeRegex = regexp.MustCompile(`^[A-Za-z]{2}$`)

	// partyIDRegex matches 3-character OCPI party identifiers.
	partyIDRegex = regexp.MustCompile(`^[A-Za-z0-9]{3}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// errNotBlank is returned by NotBlank for empty or whitespace-only strings.
var errNotBlank = validation.NewError("validation_not_blank", "must not be blank")

// NotBlank validates that a string is not empty after trimming whitespace.
// Built on validation.By so the empty string is not skipped the way string
// rules skip empty values.
var NotBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errNotBlank
	}
	return nil
})

// NoWhitespace validates that a string contains no whitespace characters.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return !strings.ContainsAny(s, " \t\r\n")
	},
	validation.NewError("validation_no_whitespace", "must not contain whitespace"),
)

// CiString validates the printable ASCII character set OCPI requires for
// case-insensitive string fields.
var CiString = validation.NewStringRuleWithError(
	func(s string) bool {
		return ciStringRegex.MatchString(s)
	},
	validation.NewError("validation_ci_string", "must contain only printable ASCII characters"),
)

// CountryCode validates an ISO-3166 alpha-2 country code.
var CountryCode = validation.NewStringRuleWithError(
	func(s string) bool {
		return countryCodeRegex.MatchString(s)
	},
	validation.NewError("validation_country_code", "must be a 2-letter country code"),
)

// PartyID validates a 3-character OCPI party identifier.
var PartyID = validation.NewStringRuleWithError(
	func(s string) bool {
		return partyIDRegex.MatchString(s)
	},
	validation.NewError("validation_party_id", "must be a 3-character party id"),
)

// AbsoluteURL validates that a string is an absolute http(s) URL.
var AbsoluteURL = validation.NewStringRuleWithError(
	func(s string) bool {
		u, err := url.Parse(s)
		if err != nil {
			return false
		}
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	},
	validation.NewError("validation_absolute_url", "must be an absolute http or https URL"),
)

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/ocpi-hub/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	t.Run("wraps non-nil error", func(t *testing.T) {
		err := WrapValidationError(apperrors.New("field is bad"))
		assert.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("LOC001"))
	assert.Error(t, NotBlank.Validate(""))
	assert.Error(t, NotBlank.Validate("   "))
	assert.Error(t, NotBlank.Validate("\t\n"))
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, NoWhitespace.Validate("token_abc"))
	assert.Error(t, NoWhitespace.Validate(" token_abc"))
	assert.Error(t, NoWhitespace.Validate("token_abc "))
	assert.Error(t, NoWhitespace.Validate("token abc"))
	assert.Error(t, NoWhitespace.Validate("token\tabc"))
}

func TestCiString(t *testing.T) {
	assert.NoError(t, CiString.Validate("EVSE-0001*A"))
	assert.NoError(t, CiString.Validate(""))
	assert.Error(t, CiString.Validate("EVSEé"))
	assert.Error(t, CiString.Validate("line1\nline2"))
}

func TestCountryCode(t *testing.T) {
	assert.NoError(t, CountryCode.Validate("NL"))
	assert.NoError(t, CountryCode.Validate("de"))
	assert.Error(t, CountryCode.Validate("NLD"))
	assert.Error(t, CountryCode.Validate("N"))
	assert.Error(t, CountryCode.Validate("N1"))
}

func TestPartyID(t *testing.T) {
	assert.NoError(t, PartyID.Validate("EMS"))
	assert.NoError(t, PartyID.Validate("CP1"))
	assert.Error(t, PartyID.Validate("EMSP"))
	assert.Error(t, PartyID.Validate("E"))
	assert.Error(t, PartyID.Validate("E-S"))
}

func TestAbsoluteURL(t *testing.T) {
	assert.NoError(t, AbsoluteURL.Validate("https://cpo.example.com/ocpi/versions"))
	assert.NoError(t, AbsoluteURL.Validate("http://localhost:8080/ocpi/versions"))
	assert.Error(t, AbsoluteURL.Validate("not-a-url"))
	assert.Error(t, AbsoluteURL.Validate("/relative/path"))
	assert.Error(t, AbsoluteURL.Validate("ftp://cpo.example.com"))
}

package ocpi

// OCPI 2.2.1 status codes carried in every response envelope.
//
// The 1xxx range signals success, the 2xxx range signals errors caused by the
// client and the 3xxx range signals errors on the server side. The numeric
// values are fixed by the OCPI 2.2.1 specification and must not be changed.
const (
	// StatusSuccess indicates the request was handled successfully.
	StatusSuccess = 1000

	// StatusGenericClientError indicates a client-side error with no more
	// specific code available.
	StatusGenericClientError = 2000

	// StatusInvalidParameters indicates invalid or missing parameters.
	StatusInvalidParameters = 2001

	// StatusNotEnoughInformation indicates the request carries too little
	// information to be processed.
	StatusNotEnoughInformation = 2002

	// StatusUnknownLocation indicates an unknown location, EVSE or connector.
	StatusUnknownLocation = 2003

	// StatusUnknownToken indicates an unknown token.
	StatusUnknownToken = 2004

	// StatusGenericServerError indicates a server-side error with no more
	// specific code available.
	StatusGenericServerError = 3000

	// StatusUnableToUseClientAPI indicates the server was unable to use the
	// client's API (e.g. the peer could not be reached).
	StatusUnableToUseClientAPI = 3001

	// StatusUnsupportedVersion indicates an unsupported OCPI version.
	StatusUnsupportedVersion = 3002

	// StatusNoMatchingEndpoints indicates no matching endpoints or expected
	// endpoints missing between the two parties.
	StatusNoMatchingEndpoints = 3003
)

// IsSuccess reports whether code belongs to the OCPI success range.
func IsSuccess(code int) bool {
	return code >= 1000 && code < 2000
}

// IsClientError reports whether code belongs to the OCPI client error range.
func IsClientError(code int) bool {
	return code >= 2000 && code < 3000
}

// IsServerError reports whether code belongs to the OCPI server error range.
func IsServerError(code int) bool {
	return code >= 3000 && code < 4000
}

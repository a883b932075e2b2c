// Package httputil provides HTTP utility functions for request and response handling.
// Every response, success or error, is wrapped in the OCPI envelope.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// OKEnvelope writes a success envelope with the given data.
func OKEnvelope(c *gin.Context, data any) {
	env, err := ocpi.NewEnvelope(data)
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			ocpi.NewErrorEnvelope(ocpi.StatusGenericServerError, "failed to encode response"),
		)
		return
	}
	c.JSON(http.StatusOK, env)
}

// CreatedEnvelope writes a success envelope with HTTP 201.
func CreatedEnvelope(c *gin.Context, data any) {
	env, err := ocpi.NewEnvelope(data)
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			ocpi.NewErrorEnvelope(ocpi.StatusGenericServerError, "failed to encode response"),
		)
		return
	}
	c.JSON(http.StatusCreated, env)
}

// HandleErrorGin maps domain errors to HTTP status codes and the matching OCPI
// status code, then writes an error envelope.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	var httpStatus int
	var ocpiStatus int
	var message string

	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		httpStatus = http.StatusNotFound
		ocpiStatus = ocpi.StatusGenericClientError
		message = err.Error()

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		httpStatus = http.StatusUnprocessableEntity
		ocpiStatus = ocpi.StatusInvalidParameters
		message = err.Error()

	case apperrors.Is(err, apperrors.ErrUnauthorized):
		httpStatus = http.StatusUnauthorized
		ocpiStatus = ocpi.StatusGenericClientError
		message = "authentication is required"

	case apperrors.Is(err, apperrors.ErrForbidden):
		httpStatus = http.StatusForbidden
		ocpiStatus = ocpi.StatusGenericClientError
		message = "permission denied"

	case apperrors.Is(err, apperrors.ErrNotRegistered):
		httpStatus = http.StatusForbidden
		ocpiStatus = ocpi.StatusGenericClientError
		message = "peer has not completed the credentials handshake"

	case apperrors.Is(err, apperrors.ErrConflict):
		httpStatus = http.StatusConflict
		ocpiStatus = ocpi.StatusGenericClientError
		message = err.Error()

	case apperrors.Is(err, apperrors.ErrTimeout):
		httpStatus = http.StatusRequestTimeout
		ocpiStatus = ocpi.StatusUnableToUseClientAPI
		message = err.Error()

	case apperrors.Is(err, apperrors.ErrPeerUnreachable):
		httpStatus = http.StatusBadGateway
		ocpiStatus = ocpi.StatusUnableToUseClientAPI
		message = err.Error()

	default:
		// For unknown/internal errors, don't expose details to the client
		httpStatus = http.StatusInternalServerError
		ocpiStatus = ocpi.StatusGenericServerError
		message = "an internal error occurred"
	}

	// Log the full error details (including wrapped errors)
	if logger != nil {
		logger.Error("request failed",
			slog.Int("http_status", httpStatus),
			slog.Int("ocpi_status", ocpiStatus),
			slog.Any("error", err),
		)
	}

	c.JSON(httpStatus, ocpi.NewErrorEnvelope(ocpiStatus, message))
}

// HandleBadRequestGin writes a 400 Bad Request envelope for malformed JSON or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(
		http.StatusBadRequest,
		ocpi.NewErrorEnvelope(ocpi.StatusNotEnoughInformation, err.Error()),
	)
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity envelope for validation errors.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(
		http.StatusUnprocessableEntity,
		ocpi.NewErrorEnvelope(ocpi.StatusInvalidParameters, err.Error()),
	)
}

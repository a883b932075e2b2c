// Package http provides the real-time authorization endpoint peers call
// before starting a charging session.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	authorizationDomain "github.com/allisson/ocpi-hub/internal/authorization/domain"
	authorizationUseCase "github.com/allisson/ocpi-hub/internal/authorization/usecase"
	"github.com/allisson/ocpi-hub/internal/httputil"
)

// AuthorizeHandler handles HTTP requests for token authorization.
type AuthorizeHandler struct {
	engine *authorizationUseCase.Engine
	logger *slog.Logger
}

// NewAuthorizeHandler creates a new authorization handler.
func NewAuthorizeHandler(engine *authorizationUseCase.Engine, logger *slog.Logger) *AuthorizeHandler {
	return &AuthorizeHandler{engine: engine, logger: logger}
}

// AuthorizeHandler decides whether the token may start a session. The body is
// an optional location context; an empty body authorizes without one.
// POST /ocpi/emsp/2.2.1/tokens/{token_uid}/authorize
func (h *AuthorizeHandler) AuthorizeHandler(c *gin.Context) {
	var request authorizationDomain.Request
	if err := c.ShouldBindJSON(&request); err != nil {
		if !emptyBody(err) {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}
	request.TokenUID = c.Param("token_uid")

	decision, err := h.engine.Authorize(c.Request.Context(), request)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	httputil.OKEnvelope(c, decision)
}

func emptyBody(err error) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false
	}
	return errors.Is(err, io.EOF)
}

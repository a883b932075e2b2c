package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/ocpi-hub/internal/auth/http"
	credentialsUseCase "github.com/allisson/ocpi-hub/internal/credentials/usecase"
	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	"github.com/allisson/ocpi-hub/internal/httputil"
)

// RequireRegisteredMiddleware gates the data and command surfaces: only peers
// that completed the credentials handshake get past it. The credentials
// endpoints themselves stay outside so registration can happen at all.
func RequireRegisteredMiddleware(negotiator *credentialsUseCase.Negotiator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := authHTTP.GetIdentity(c.Request.Context())
		if !ok || !negotiator.Registered(identity.Token) {
			httputil.HandleErrorGin(c, apperrors.ErrNotRegistered, logger)
			c.Abort()
			return
		}
		c.Next()
	}
}

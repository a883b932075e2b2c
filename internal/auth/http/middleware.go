// Package http provides HTTP middleware and utilities for OCPI authentication.
package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/ocpi-hub/internal/auth/domain"
	authService "github.com/allisson/ocpi-hub/internal/auth/service"
	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	"github.com/allisson/ocpi-hub/internal/httputil"
)

// AuthenticationMiddleware authenticates inbound OCPI requests against the
// token store.
//
// OCPI peers send the credentials token in the Authorization header using the
// "Token" scheme; "Bearer" is accepted as well since several implementations
// in the wild use it. Token matching is exact, no trimming or case folding is
// applied to the token itself.
//
// On success, the resolved identity (token plus class) is stored in the
// request context for downstream handlers via GetIdentity().
//
// Error handling:
//   - Missing Authorization header → 401 Unauthorized
//   - Malformed Authorization header → 401 Unauthorized
//   - Token not present in either class → 401 Unauthorized
func AuthenticationMiddleware(tokenStore *authService.TokenStore, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		token, ok := parseAuthorizationHeader(authHeader)
		if !ok {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !tokenStore.Validate(token) {
			logger.Debug("authentication failed: unknown token")
			httputil.HandleErrorGin(c, authDomain.ErrInvalidToken, logger)
			c.Abort()
			return
		}

		identity := &authDomain.Identity{
			Token: token,
			Class: tokenStore.Classify(token),
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))

		c.Next()
	}
}

// parseAuthorizationHeader extracts the token from a "Token <token>" or
// "Bearer <token>" header value. The scheme is matched case-insensitively,
// the token itself is returned untouched.
func parseAuthorizationHeader(header string) (string, bool) {
	for _, scheme := range []string{"token ", "bearer "} {
		if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			token := header[len(scheme):]
			if token != "" {
				return token, true
			}
		}
	}
	return "", false
}

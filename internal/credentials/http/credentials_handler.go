package http

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/ocpi-hub/internal/auth/http"
	credentialsDomain "github.com/allisson/ocpi-hub/internal/credentials/domain"
	credentialsUseCase "github.com/allisson/ocpi-hub/internal/credentials/usecase"
	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	"github.com/allisson/ocpi-hub/internal/httputil"
)

// CredentialsHandler serves the credentials endpoint peers register against.
type CredentialsHandler struct {
	negotiator *credentialsUseCase.Negotiator
	logger     *slog.Logger
}

// NewCredentialsHandler creates a new credentials handler.
func NewCredentialsHandler(negotiator *credentialsUseCase.Negotiator, logger *slog.Logger) *CredentialsHandler {
	return &CredentialsHandler{negotiator: negotiator, logger: logger}
}

// GetHandler returns the credential we present to the calling peer. The token
// inside is the caller's own inbound token, so only a registered caller gets
// a meaningful answer.
// GET /ocpi/emsp/2.2.1/credentials
func (h *CredentialsHandler) GetHandler(c *gin.Context) {
	identity, ok := authHTTP.GetIdentity(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, fmt.Errorf("missing identity"), h.logger)
		return
	}

	peer, err := h.negotiator.PeerByToken(identity.Token)
	if err != nil {
		// The token authenticated but no peer completed a handshake with
		// it, so the caller is not registered rather than unknown.
		if apperrors.Is(err, credentialsDomain.ErrPeerNotFound) {
			err = apperrors.ErrNotRegistered
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	own := h.negotiator.OwnCredential(peer.InboundToken)
	httputil.OKEnvelope(c, own)
}

// RegisterHandler accepts a peer's registration: its credential comes in, ours
// goes out with a freshly issued token.
// POST /ocpi/emsp/2.2.1/credentials
func (h *CredentialsHandler) RegisterHandler(c *gin.Context) {
	var credential credentialsDomain.Credential
	if err := c.ShouldBindJSON(&credential); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	own, err := h.negotiator.AcceptRegistration(c.Request.Context(), &credential)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	httputil.CreatedEnvelope(c, own)
}

// UpdateHandler rotates a registered peer's credential. The caller's current
// token authenticates the request and is replaced by the token in our
// response.
// PUT /ocpi/emsp/2.2.1/credentials
func (h *CredentialsHandler) UpdateHandler(c *gin.Context) {
	identity, ok := authHTTP.GetIdentity(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, fmt.Errorf("missing identity"), h.logger)
		return
	}

	var credential credentialsDomain.Credential
	if err := c.ShouldBindJSON(&credential); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	own, err := h.negotiator.RotateRegistration(c.Request.Context(), identity.Token, &credential)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	httputil.OKEnvelope(c, own)
}

// DeleteHandler unregisters the calling peer. Its token stops working
// immediately.
// DELETE /ocpi/emsp/2.2.1/credentials
func (h *CredentialsHandler) DeleteHandler(c *gin.Context) {
	identity, ok := authHTTP.GetIdentity(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, fmt.Errorf("missing identity"), h.logger)
		return
	}

	if err := h.negotiator.Unregister(c.Request.Context(), identity.Token); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	httputil.OKEnvelope(c, nil)
}

// Package http provides the server side of the credentials handshake: the
// version discovery endpoints and the credentials endpoint a peer registers
// against.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/allisson/ocpi-hub/internal/config"
	credentialsDomain "github.com/allisson/ocpi-hub/internal/credentials/domain"
	"github.com/allisson/ocpi-hub/internal/httputil"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// VersionsHandler serves this hub's version discovery surface.
type VersionsHandler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewVersionsHandler creates a new versions handler.
func NewVersionsHandler(cfg *config.Config, logger *slog.Logger) *VersionsHandler {
	return &VersionsHandler{cfg: cfg, logger: logger}
}

// ListHandler returns the versions this hub supports.
// GET /ocpi/versions
func (h *VersionsHandler) ListHandler(c *gin.Context) {
	versions := []credentialsDomain.Version{
		{
			Version: ocpi.Version,
			URL:     h.cfg.BaseURL + "/ocpi/emsp/" + ocpi.Version,
		},
	}
	httputil.OKEnvelope(c, versions)
}

// DetailsHandler returns the endpoint list for 2.2.1.
// GET /ocpi/emsp/2.2.1
func (h *VersionsHandler) DetailsHandler(c *gin.Context) {
	endpoints := make([]credentialsDomain.Endpoint, 0, 16)
	for _, module := range ocpi.DataModules() {
		endpoints = append(endpoints, credentialsDomain.Endpoint{
			Identifier: module,
			Role:       ocpi.RoleReceiver,
			URL:        h.cfg.EndpointURL(string(module)),
		})
	}
	endpoints = append(endpoints,
		credentialsDomain.Endpoint{
			Identifier: ocpi.ModuleCommands,
			Role:       ocpi.RoleReceiver,
			URL:        h.cfg.EndpointURL(string(ocpi.ModuleCommands)),
		},
		credentialsDomain.Endpoint{
			Identifier: ocpi.ModuleCredentials,
			Role:       ocpi.RoleReceiver,
			URL:        h.cfg.EndpointURL(string(ocpi.ModuleCredentials)),
		},
	)

	details := credentialsDomain.VersionDetails{
		Version:   ocpi.Version,
		Endpoints: endpoints,
	}
	httputil.OKEnvelope(c, details)
}

// Package http provides the HTTP surface of the generic module store. One
// handler serves every data module; the module identifier comes from the
// route.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	"github.com/allisson/ocpi-hub/internal/httputil"
	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	modulesUseCase "github.com/allisson/ocpi-hub/internal/modules/usecase"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// maxPayloadBytes bounds inbound module payloads.
const maxPayloadBytes = 1 << 20

// ModuleHandler handles HTTP requests for the generic module store. All nine
// OCPI data modules share it; payloads stay opaque JSON end to end.
type ModuleHandler struct {
	moduleUseCase modulesUseCase.UseCase
	defaultLimit  int
	maxLimit      int
	logger        *slog.Logger
}

// NewModuleHandler creates a new module store handler.
func NewModuleHandler(
	moduleUseCase modulesUseCase.UseCase,
	defaultLimit int,
	maxLimit int,
	logger *slog.Logger,
) *ModuleHandler {
	return &ModuleHandler{
		moduleUseCase: moduleUseCase,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
		logger:        logger,
	}
}

// ListHandler returns one page of a module's objects.
// GET /ocpi/emsp/2.2.1/{module}?offset&limit&date_from&date_to
// Pagination metadata travels in the X-Total-Count, X-Limit and Link headers.
func (h *ModuleHandler) ListHandler(c *gin.Context) {
	module := moduleParam(c)

	pagination, err := httputil.ParsePagination(c, h.defaultLimit, h.maxLimit)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	page, err := h.moduleUseCase.List(c.Request.Context(), module, modulesDomain.ListFilters{
		Offset:   pagination.Offset,
		Limit:    pagination.Limit,
		DateFrom: pagination.DateFrom,
		DateTo:   pagination.DateTo,
	})
	if err != nil {
		h.handleError(c, module, err)
		return
	}

	payloads := make([]json.RawMessage, 0, len(page.Items))
	for _, item := range page.Items {
		payloads = append(payloads, item.Payload)
	}

	httputil.SetPaginationHeaders(c, pagination, page.TotalCount, page.IsLastPage)
	httputil.OKEnvelope(c, payloads)
}

// GetHandler returns a single object.
// GET /ocpi/emsp/2.2.1/{module}/{country_code}/{party_id}/{id}
func (h *ModuleHandler) GetHandler(c *gin.Context) {
	module := moduleParam(c)
	object, err := h.moduleUseCase.Get(c.Request.Context(), module, keyParams(c))
	if err != nil {
		h.handleError(c, module, err)
		return
	}

	httputil.OKEnvelope(c, object.Payload)
}

// CreateHandler stores a new object, generating an id when the payload's party
// did not pick one.
// POST /ocpi/emsp/2.2.1/{module}
func (h *ModuleHandler) CreateHandler(c *gin.Context) {
	payload, err := readPayload(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	key := modulesDomain.Key{
		CountryCode: c.Query("country_code"),
		PartyID:     c.Query("party_id"),
	}
	if key.CountryCode == "" || key.PartyID == "" {
		key = keyFromPayload(payload)
	}

	module := moduleParam(c)
	object, err := h.moduleUseCase.Create(c.Request.Context(), module, key, payload)
	if err != nil {
		h.handleError(c, module, err)
		return
	}

	httputil.CreatedEnvelope(c, object.Payload)
}

// PutHandler inserts or fully replaces an object.
// PUT /ocpi/emsp/2.2.1/{module}/{country_code}/{party_id}/{id}
func (h *ModuleHandler) PutHandler(c *gin.Context) {
	payload, err := readPayload(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	module := moduleParam(c)
	object, err := h.moduleUseCase.Upsert(c.Request.Context(), module, keyParams(c), payload)
	if err != nil {
		h.handleError(c, module, err)
		return
	}

	httputil.OKEnvelope(c, object.Payload)
}

// PatchHandler merges a partial payload into an existing object. Only fields
// present in the request overwrite stored ones.
// PATCH /ocpi/emsp/2.2.1/{module}/{country_code}/{party_id}/{id}
func (h *ModuleHandler) PatchHandler(c *gin.Context) {
	partial, err := readPayload(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	module := moduleParam(c)
	object, err := h.moduleUseCase.Update(c.Request.Context(), module, keyParams(c), partial)
	if err != nil {
		h.handleError(c, module, err)
		return
	}

	httputil.OKEnvelope(c, object.Payload)
}

// DeleteHandler removes an object.
// DELETE /ocpi/emsp/2.2.1/{module}/{country_code}/{party_id}/{id}
func (h *ModuleHandler) DeleteHandler(c *gin.Context) {
	module := moduleParam(c)
	err := h.moduleUseCase.Delete(c.Request.Context(), module, keyParams(c))
	if err != nil {
		h.handleError(c, module, err)
		return
	}

	httputil.OKEnvelope(c, nil)
}

// handleError maps module store errors to envelopes. A missing object in the
// locations module answers the location-specific OCPI status 2003; every
// other module stays on the generic mapping.
func (h *ModuleHandler) handleError(c *gin.Context, module ocpi.ModuleID, err error) {
	if module == ocpi.ModuleLocations && apperrors.Is(err, apperrors.ErrNotFound) {
		if h.logger != nil {
			h.logger.Error("request failed",
				slog.Int("http_status", http.StatusNotFound),
				slog.Int("ocpi_status", ocpi.StatusUnknownLocation),
				slog.Any("error", err),
			)
		}
		c.JSON(http.StatusNotFound, ocpi.NewErrorEnvelope(ocpi.StatusUnknownLocation, err.Error()))
		return
	}
	httputil.HandleErrorGin(c, err, h.logger)
}

func moduleParam(c *gin.Context) ocpi.ModuleID {
	return ocpi.ModuleID(c.Param("module"))
}

func keyParams(c *gin.Context) modulesDomain.Key {
	return modulesDomain.Key{
		CountryCode: c.Param("country_code"),
		PartyID:     c.Param("party_id"),
		ID:          c.Param("id"),
	}
}

// readPayload reads the request body with a size cap. Payload validation
// beyond well-formed JSON happens in the use case.
func readPayload(c *gin.Context) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > maxPayloadBytes {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxPayloadBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("request body is required")
	}
	return body, nil
}

// keyFromPayload pulls the OCPI identity fields out of the payload for
// POST creates, where the key is not in the URL.
func keyFromPayload(payload json.RawMessage) modulesDomain.Key {
	var probe struct {
		CountryCode string `json:"country_code"`
		PartyID     string `json:"party_id"`
		ID          string `json:"id"`
	}
	_ = json.Unmarshal(payload, &probe)

	return modulesDomain.Key{
		CountryCode: probe.CountryCode,
		PartyID:     probe.PartyID,
		ID:          probe.ID,
	}
}

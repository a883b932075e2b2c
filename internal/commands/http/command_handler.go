// Package http provides the command surface: outbound sends and the callback
// endpoint peers post final results to.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	commandsDomain "github.com/allisson/ocpi-hub/internal/commands/domain"
	commandsUseCase "github.com/allisson/ocpi-hub/internal/commands/usecase"
	"github.com/allisson/ocpi-hub/internal/httputil"
)

// CommandHandler handles HTTP requests for command dispatch and callbacks.
type CommandHandler struct {
	dispatcher commandsUseCase.Dispatcher
	logger     *slog.Logger
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(dispatcher commandsUseCase.Dispatcher, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher, logger: logger}
}

// SendHandler dispatches a command to a peer. The peer is picked with the
// "peer" query parameter; with a single registered peer it can be omitted.
// POST /ocpi/emsp/2.2.1/commands/{type}
func (h *CommandHandler) SendHandler(c *gin.Context) {
	commandType := commandsDomain.CommandType(c.Param("type"))

	var request commandsDomain.Request
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	response, err := h.dispatcher.Send(c.Request.Context(), c.Query("peer"), commandType, request)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	httputil.OKEnvelope(c, response)
}

// CallbackHandler receives a peer's final result for a pending command.
// POST /ocpi/emsp/2.2.1/commands/{type}/{command_id}
func (h *CommandHandler) CallbackHandler(c *gin.Context) {
	var result commandsDomain.Result
	if err := c.ShouldBindJSON(&result); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	err := h.dispatcher.ReceiveCallback(c.Request.Context(), c.Param("command_id"), result)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	httputil.OKEnvelope(c, nil)
}

// StatusHandler returns the current state of a dispatched command so callers
// can poll for the final outcome.
// GET /ocpi/emsp/2.2.1/commands/{type}/{command_id}
func (h *CommandHandler) StatusHandler(c *gin.Context) {
	command, err := h.dispatcher.Status(c.Param("command_id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	httputil.OKEnvelope(c, command)
}

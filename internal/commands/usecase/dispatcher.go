// Package usecase implements the asynchronous command dispatcher: outbound
// sends, callback correlation and the per-command timeout watcher.
package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	commandsDomain "github.com/allisson/ocpi-hub/internal/commands/domain"
	"github.com/allisson/ocpi-hub/internal/config"
	credentialsDomain "github.com/allisson/ocpi-hub/internal/credentials/domain"
	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	modulesUseCase "github.com/allisson/ocpi-hub/internal/modules/usecase"
	"github.com/allisson/ocpi-hub/internal/ocpi"
	"github.com/allisson/ocpi-hub/internal/transport"
)

// PeerDirectory resolves peer relationships. Satisfied by the credential
// negotiator.
type PeerDirectory interface {
	GetPeer(name string) (*credentialsDomain.Peer, error)
	ListPeers() []*credentialsDomain.Peer
}

// Dispatcher is the command dispatch contract consumed by handlers.
type Dispatcher interface {
	Send(
		ctx context.Context,
		peerName string,
		commandType commandsDomain.CommandType,
		request commandsDomain.Request,
	) (*commandsDomain.SendResponse, error)
	ReceiveCallback(ctx context.Context, commandID string, result commandsDomain.Result) error
	Status(commandID string) (*commandsDomain.Command, error)
	Stop()
}

// resolvedRetention is how long a terminal command stays in the pending map
// so late duplicate callbacks get a conflict answer and status polling keeps
// working, before the entry is evicted.
const resolvedRetention = 5 * time.Minute

// entry is one in-flight command guarded by the dispatcher mutex. timer is
// the timeout watcher while the command is PENDING and the eviction timer
// once it is terminal.
type entry struct {
	command *commandsDomain.Command
	timer   *time.Timer
}

// commandDispatcher implements Dispatcher. The pending map and every state
// transition are guarded by one mutex; the PENDING to terminal transition
// happens exactly once, whichever of callback or timeout gets the lock first.
// The mutex is never held across an outbound network call.
type commandDispatcher struct {
	mu           sync.Mutex
	pending      map[string]*entry
	reservations map[string]string
	stopped      bool

	client      transport.Client
	peers       PeerDirectory
	moduleStore modulesUseCase.UseCase
	cfg         *config.Config
	timeout     time.Duration
	retention   time.Duration
	logger      *slog.Logger
}

// NewDispatcher creates the command dispatcher. timeout is the callback await
// window applied to every command.
func NewDispatcher(
	client transport.Client,
	peers PeerDirectory,
	moduleStore modulesUseCase.UseCase,
	cfg *config.Config,
	logger *slog.Logger,
) Dispatcher {
	return &commandDispatcher{
		pending:      make(map[string]*entry),
		reservations: make(map[string]string),
		client:       client,
		peers:        peers,
		moduleStore:  moduleStore,
		cfg:          cfg,
		timeout:      cfg.CommandTimeout,
		retention:    resolvedRetention,
		logger:       logger,
	}
}

// outboundCommand is the body posted to the peer's commands endpoint.
type outboundCommand struct {
	commandsDomain.Request
	ResponseURL string `json:"response_url"`
}

// peerCommandResponse is the immediate answer inside the peer's envelope.
type peerCommandResponse struct {
	Result  commandsDomain.ResultType `json:"result"`
	Timeout int                       `json:"timeout"`
}

// Send validates and dispatches a command to a registered peer. The pending
// entry is registered before the outbound request goes out, so a callback
// racing the response can always be correlated.
func (d *commandDispatcher) Send(
	ctx context.Context,
	peerName string,
	commandType commandsDomain.CommandType,
	request commandsDomain.Request,
) (*commandsDomain.SendResponse, error) {
	if !commandsDomain.ValidCommandType(commandType) {
		return nil, commandsDomain.ErrUnknownCommandType
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}

	peer, err := d.resolvePeer(peerName)
	if err != nil {
		return nil, err
	}
	commandsURL := peer.EndpointURL(ocpi.ModuleCommands)
	if commandsURL == "" {
		return nil, credentialsDomain.ErrNoMatchingEndpoints
	}

	commandID := uuid.Must(uuid.NewV7()).String()
	now := time.Now().UTC()
	command := &commandsDomain.Command{
		ID:          commandID,
		Type:        commandType,
		Peer:        peer.Name,
		ResponseURL: d.cfg.EndpointURL(string(ocpi.ModuleCommands)) + "/" + string(commandType) + "/" + commandID,
		Request:     request,
		IssuedAt:    now,
		Deadline:    now.Add(d.timeout),
		State:       commandsDomain.StatePending,
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil, commandsDomain.ErrDispatcherStopped
	}
	d.pending[commandID] = &entry{
		command: command,
		timer:   time.AfterFunc(d.timeout, func() { d.expire(commandID) }),
	}
	d.mu.Unlock()

	payload, err := json.Marshal(outboundCommand{Request: request, ResponseURL: command.ResponseURL})
	if err != nil {
		d.discard(commandID)
		return nil, apperrors.Wrap(err, "failed to encode command")
	}

	status, body, err := d.client.Post(ctx, commandsURL+"/"+string(commandType), peer.OutboundToken, payload)
	if err != nil {
		d.discard(commandID)
		return nil, err
	}

	immediate, err := decodeCommandResponse(status, body)
	if err != nil {
		d.discard(commandID)
		return nil, err
	}

	if immediate.Result == commandsDomain.ResultRejected {
		// No callback will come; resolve right away.
		if err := d.transition(ctx, commandID, commandsDomain.StateRejected); err != nil {
			return nil, err
		}
	}

	d.logger.Info("command dispatched",
		slog.String("command_id", commandID),
		slog.String("type", string(commandType)),
		slog.String("peer", peer.Name),
		slog.String("immediate_result", string(immediate.Result)))

	return &commandsDomain.SendResponse{
		CommandID:      commandID,
		Result:         immediate.Result,
		TimeoutSeconds: int(d.timeout / time.Second),
	}, nil
}

// ReceiveCallback applies a peer's final result to a pending command. A
// callback for an unknown or already terminal command is rejected, never
// re-applied.
func (d *commandDispatcher) ReceiveCallback(
	ctx context.Context,
	commandID string,
	result commandsDomain.Result,
) error {
	if !commandsDomain.ValidResultType(result.Result) {
		return commandsDomain.ErrInvalidCommand
	}

	state := commandsDomain.StateAccepted
	if result.Result == commandsDomain.ResultRejected {
		state = commandsDomain.StateRejected
	}
	return d.transition(ctx, commandID, state)
}

// Status returns a copy of the command's current state, terminal or not.
func (d *commandDispatcher) Status(commandID string) (*commandsDomain.Command, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.pending[commandID]
	if !ok {
		return nil, commandsDomain.ErrCommandNotFound
	}
	copied := *e.command
	return &copied, nil
}

// Reservations returns the reservation ids currently held, mapped to the
// command that placed them.
func (d *commandDispatcher) Reservations() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]string, len(d.reservations))
	for k, v := range d.reservations {
		out[k] = v
	}
	return out
}

// Stop drains all timeout watchers and refuses further sends. Commands still
// PENDING stay where they are; their callers see PENDING until restart.
func (d *commandDispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	for _, e := range d.pending {
		e.timer.Stop()
	}
	d.logger.Info("command dispatcher stopped", slog.Int("pending", len(d.pending)))
}

// resolvePeer finds the target peer. With an empty name and exactly one
// registered peer, that peer is used.
func (d *commandDispatcher) resolvePeer(name string) (*credentialsDomain.Peer, error) {
	if name != "" {
		peer, err := d.peers.GetPeer(name)
		if err != nil {
			return nil, err
		}
		if !peer.Registered() {
			return nil, apperrors.ErrNotRegistered
		}
		return peer, nil
	}

	var registered *credentialsDomain.Peer
	for _, peer := range d.peers.ListPeers() {
		if !peer.Registered() {
			continue
		}
		if registered != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput,
				"multiple registered peers, specify one")
		}
		registered = peer
	}
	if registered == nil {
		return nil, apperrors.ErrNotRegistered
	}
	return registered, nil
}

// transition moves a pending command to a terminal state exactly once and
// runs the side effects outside the lock.
func (d *commandDispatcher) transition(
	ctx context.Context,
	commandID string,
	state commandsDomain.CommandState,
) error {
	d.mu.Lock()

	e, ok := d.pending[commandID]
	if !ok || e.command.State.Terminal() {
		d.mu.Unlock()
		return commandsDomain.ErrUnknownOrCompletedCommand
	}

	e.command.State = state
	e.timer.Stop()
	if !d.stopped {
		// Reuse the timer slot for eviction so Stop drains it like any
		// other watcher.
		e.timer = time.AfterFunc(d.retention, func() { d.evict(commandID) })
	}
	command := *e.command

	if state == commandsDomain.StateAccepted {
		switch command.Type {
		case commandsDomain.CommandReserveNow:
			if command.Request.ReservationID != "" {
				d.reservations[command.Request.ReservationID] = commandID
			}
		case commandsDomain.CommandCancelReservation:
			delete(d.reservations, command.Request.ReservationID)
		}
	}
	d.mu.Unlock()

	d.logger.Info("command resolved",
		slog.String("command_id", commandID),
		slog.String("type", string(command.Type)),
		slog.String("state", string(state)))

	if state == commandsDomain.StateAccepted {
		d.applySessionEffect(ctx, &command)
	}
	return nil
}

// evict drops a resolved command once its retention window passed.
func (d *commandDispatcher) evict(commandID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.pending[commandID]; ok && e.command.State.Terminal() {
		delete(d.pending, commandID)
	}
}

// expire is the timeout watcher body. Losing the race against a callback is
// the normal case and not an error.
func (d *commandDispatcher) expire(commandID string) {
	err := d.transition(context.Background(), commandID, commandsDomain.StateTimedOut)
	if err != nil {
		return
	}
	d.logger.Warn("command timed out", slog.String("command_id", commandID))
}

// discard removes a pending entry after a failed send.
func (d *commandDispatcher) discard(commandID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.pending[commandID]; ok {
		e.timer.Stop()
		delete(d.pending, commandID)
	}
}

// applySessionEffect reflects an accepted session command in the module
// store: START_SESSION creates the session record, STOP_SESSION completes it.
func (d *commandDispatcher) applySessionEffect(ctx context.Context, command *commandsDomain.Command) {
	key := modulesDomain.Key{
		CountryCode: d.cfg.CountryCode,
		PartyID:     d.cfg.PartyID,
	}

	switch command.Type {
	case commandsDomain.CommandStartSession:
		key.ID = command.Request.SessionID
		if key.ID == "" {
			key.ID = command.ID
		}
		payload, _ := json.Marshal(map[string]any{
			"id":           key.ID,
			"status":       "ACTIVE",
			"location_id":  command.Request.LocationID,
			"evse_uid":     command.Request.EVSEUID,
			"connector_id": command.Request.ConnectorID,
			"token_uid":    command.Request.Token.UID,
			"command_id":   command.ID,
		})
		if _, err := d.moduleStore.Upsert(ctx, ocpi.ModuleSessions, key, payload); err != nil {
			d.logger.Error("failed to record session start",
				slog.String("command_id", command.ID), slog.Any("error", err))
		}

	case commandsDomain.CommandStopSession:
		if command.Request.SessionID == "" {
			return
		}
		key.ID = command.Request.SessionID
		partial := json.RawMessage(`{"status":"COMPLETED"}`)
		if _, err := d.moduleStore.Update(ctx, ocpi.ModuleSessions, key, partial); err != nil {
			d.logger.Error("failed to record session stop",
				slog.String("command_id", command.ID), slog.Any("error", err))
		}
	}
}

// decodeCommandResponse parses the peer's immediate answer.
func decodeCommandResponse(status int, body []byte) (*peerCommandResponse, error) {
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, apperrors.Wrapf(apperrors.ErrPeerUnreachable, "peer answered with http status %d", status)
	}

	env, err := ocpi.DecodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	if !env.Success() {
		return nil, apperrors.Wrapf(apperrors.ErrPeerUnreachable,
			"peer answered with ocpi status %d: %s", env.StatusCode, env.StatusMessage)
	}

	var response peerCommandResponse
	if err := env.DecodeData(&response); err != nil {
		return nil, err
	}
	if !commandsDomain.ValidResultType(response.Result) {
		return nil, apperrors.Wrap(apperrors.ErrPeerUnreachable, "peer answered with unknown command result")
	}
	return &response, nil
}

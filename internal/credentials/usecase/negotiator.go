// Package usecase implements the credentials handshake: version discovery,
// credential exchange and the per-peer registration state machine, in both
// directions (we register against a peer, a peer registers against us).
package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	authDomain "github.com/allisson/ocpi-hub/internal/auth/domain"
	authService "github.com/allisson/ocpi-hub/internal/auth/service"
	"github.com/allisson/ocpi-hub/internal/config"
	credentialsDomain "github.com/allisson/ocpi-hub/internal/credentials/domain"
	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	modulesUseCase "github.com/allisson/ocpi-hub/internal/modules/usecase"
	"github.com/allisson/ocpi-hub/internal/ocpi"
	"github.com/allisson/ocpi-hub/internal/transport"
)

// Negotiator drives the credentials handshake and tracks every peer
// relationship. State only ever advances after the corresponding network step
// succeeded; a failed step leaves the peer where it was so the operator can
// retry.
type Negotiator struct {
	mu      sync.RWMutex
	peers   map[string]*credentialsDomain.Peer
	byToken map[string]string

	client      transport.Client
	tokenStore  *authService.TokenStore
	moduleStore modulesUseCase.UseCase
	cfg         *config.Config
	logger      *slog.Logger
}

// NewNegotiator creates the credential negotiator.
func NewNegotiator(
	client transport.Client,
	tokenStore *authService.TokenStore,
	moduleStore modulesUseCase.UseCase,
	cfg *config.Config,
	logger *slog.Logger,
) *Negotiator {
	return &Negotiator{
		peers:       make(map[string]*credentialsDomain.Peer),
		byToken:     make(map[string]string),
		client:      client,
		tokenStore:  tokenStore,
		moduleStore: moduleStore,
		cfg:         cfg,
		logger:      logger,
	}
}

// AddPeer records a new peer relationship in UNREGISTERED state.
// registrationToken is the token the peer's operator handed over out of band;
// it authenticates our handshake requests until the exchange replaces it.
func (n *Negotiator) AddPeer(
	_ context.Context,
	name, versionsURL, registrationToken string,
) (*credentialsDomain.Peer, error) {
	if name == "" || versionsURL == "" || registrationToken == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "name, versions url and token are required")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.peers[name]; ok {
		return nil, credentialsDomain.ErrPeerExists
	}

	peer := &credentialsDomain.Peer{
		Name:          name,
		VersionsURL:   versionsURL,
		State:         credentialsDomain.StateUnregistered,
		OutboundToken: registrationToken,
		UpdatedAt:     time.Now().UTC(),
	}
	n.peers[name] = peer

	return snapshot(peer), nil
}

// GetPeer returns a copy of the named peer.
func (n *Negotiator) GetPeer(name string) (*credentialsDomain.Peer, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	peer, ok := n.peers[name]
	if !ok {
		return nil, credentialsDomain.ErrPeerNotFound
	}
	return snapshot(peer), nil
}

// ListPeers returns a copy of every known peer.
func (n *Negotiator) ListPeers() []*credentialsDomain.Peer {
	n.mu.RLock()
	defer n.mu.RUnlock()

	peers := make([]*credentialsDomain.Peer, 0, len(n.peers))
	for _, peer := range n.peers {
		peers = append(peers, snapshot(peer))
	}
	return peers
}

// PeerByToken resolves the peer that authenticates with the given inbound
// token. Used to gate the data and command surfaces.
func (n *Negotiator) PeerByToken(token string) (*credentialsDomain.Peer, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	name, ok := n.byToken[token]
	if !ok {
		return nil, credentialsDomain.ErrPeerNotFound
	}
	return snapshot(n.peers[name]), nil
}

// Registered reports whether the given inbound token belongs to a peer that
// completed the handshake.
func (n *Negotiator) Registered(token string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	name, ok := n.byToken[token]
	if !ok {
		return false
	}
	return n.peers[name].Registered()
}

// DiscoverVersions fetches the peer's version list and advances the peer to
// VERSIONS_DISCOVERED when it offers 2.2.1.
func (n *Negotiator) DiscoverVersions(ctx context.Context, name string) ([]credentialsDomain.Version, error) {
	peer, err := n.GetPeer(name)
	if err != nil {
		return nil, err
	}

	status, body, err := n.client.Get(ctx, peer.VersionsURL, peer.OutboundToken)
	if err != nil {
		return nil, err
	}

	var versions []credentialsDomain.Version
	if err := decodeEnvelopeData(status, body, &versions); err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, credentialsDomain.ErrUnsupportedVersion
	}

	detailsURL := ""
	for _, v := range versions {
		if v.Version == ocpi.Version {
			detailsURL = v.URL
			break
		}
	}
	if detailsURL == "" {
		return nil, credentialsDomain.ErrUnsupportedVersion
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	stored, ok := n.peers[name]
	if !ok {
		return nil, credentialsDomain.ErrPeerNotFound
	}
	stored.VersionDetailsURL = detailsURL
	advance(stored, credentialsDomain.StateVersionsDiscovered)

	n.logger.Info("peer versions discovered",
		slog.String("peer", name), slog.String("details_url", detailsURL))

	return versions, nil
}

// FetchVersionDetails fetches the peer's endpoint list for 2.2.1 and advances
// the peer to VERSION_DETAILS_FETCHED. The credentials endpoint is required;
// without it the exchange can never happen.
func (n *Negotiator) FetchVersionDetails(ctx context.Context, name string) (*credentialsDomain.VersionDetails, error) {
	peer, err := n.GetPeer(name)
	if err != nil {
		return nil, err
	}
	if !peer.State.AtLeast(credentialsDomain.StateVersionsDiscovered) {
		return nil, credentialsDomain.ErrInvalidState
	}

	status, body, err := n.client.Get(ctx, peer.VersionDetailsURL, peer.OutboundToken)
	if err != nil {
		return nil, err
	}

	var details credentialsDomain.VersionDetails
	if err := decodeEnvelopeData(status, body, &details); err != nil {
		return nil, err
	}
	for _, endpoint := range details.Endpoints {
		if err := endpoint.Validate(); err != nil {
			return nil, err
		}
	}
	if _, ok := details.EndpointURL(ocpi.ModuleCredentials, ocpi.RoleReceiver); !ok {
		return nil, credentialsDomain.ErrNoMatchingEndpoints
	}

	endpoints := make(map[ocpi.ModuleID]string, len(details.Endpoints))
	for _, endpoint := range details.Endpoints {
		// The receiver side is the one we push to.
		if endpoint.Role == ocpi.RoleReceiver {
			endpoints[endpoint.Identifier] = endpoint.URL
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	stored, ok := n.peers[name]
	if !ok {
		return nil, credentialsDomain.ErrPeerNotFound
	}
	stored.Endpoints = endpoints
	advance(stored, credentialsDomain.StateVersionDetailsFetched)

	n.logger.Info("peer version details fetched",
		slog.String("peer", name), slog.Int("endpoints", len(details.Endpoints)))

	return &details, nil
}

// ExchangeCredentials posts our credential to the peer's credentials endpoint
// and stores the peer's credential from the response. On success the peer
// reaches REGISTERED: its token authenticates our outbound requests from now
// on, and the token we issued authenticates the peer's inbound requests.
func (n *Negotiator) ExchangeCredentials(ctx context.Context, name string) (*credentialsDomain.Credential, error) {
	peer, err := n.GetPeer(name)
	if err != nil {
		return nil, err
	}
	if !peer.State.AtLeast(credentialsDomain.StateVersionDetailsFetched) {
		return nil, credentialsDomain.ErrInvalidState
	}

	credentialsURL := peer.EndpointURL(ocpi.ModuleCredentials)
	if credentialsURL == "" {
		return nil, credentialsDomain.ErrNoMatchingEndpoints
	}

	inboundToken, err := generateToken()
	if err != nil {
		return nil, err
	}

	own := n.OwnCredential(inboundToken)
	payload, err := json.Marshal(own)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode credential")
	}

	status, body, err := n.client.Post(ctx, credentialsURL, peer.OutboundToken, payload)
	if err != nil {
		return nil, err
	}

	var peerCredential credentialsDomain.Credential
	if err := decodeEnvelopeData(status, body, &peerCredential); err != nil {
		return nil, err
	}
	if err := peerCredential.Validate(); err != nil {
		return nil, err
	}

	if err := n.storeCredential(ctx, name, &peerCredential); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	stored, ok := n.peers[name]
	if !ok {
		return nil, credentialsDomain.ErrPeerNotFound
	}

	if _, err := n.tokenStore.Add(authDomain.TokenC, inboundToken); err != nil {
		return nil, err
	}
	if stored.InboundToken != "" {
		n.tokenStore.Remove(authDomain.TokenC, stored.InboundToken)
		delete(n.byToken, stored.InboundToken)
	}

	stored.Credential = &peerCredential
	stored.OutboundToken = peerCredential.Token
	stored.InboundToken = inboundToken
	n.byToken[inboundToken] = name
	advance(stored, credentialsDomain.StateCredentialsExchanged)
	advance(stored, credentialsDomain.StateRegistered)

	n.logger.Info("peer registered",
		slog.String("peer", name),
		slog.String("party_id", peerCredential.PartyID()),
		slog.String("country_code", peerCredential.CountryCode()))

	return &peerCredential, nil
}

// Handshake runs the full registration sequence against a peer.
func (n *Negotiator) Handshake(ctx context.Context, name string) (*credentialsDomain.Credential, error) {
	if _, err := n.DiscoverVersions(ctx, name); err != nil {
		return nil, err
	}
	if _, err := n.FetchVersionDetails(ctx, name); err != nil {
		return nil, err
	}
	return n.ExchangeCredentials(ctx, name)
}

// AcceptRegistration handles a peer registering against us: it validates the
// peer's credential, issues an inbound token and answers with our credential.
// The relationship is REGISTERED immediately; the peer's token from the
// credential becomes our outbound token.
func (n *Negotiator) AcceptRegistration(
	ctx context.Context,
	peerCredential *credentialsDomain.Credential,
) (*credentialsDomain.Credential, error) {
	if err := peerCredential.Validate(); err != nil {
		return nil, err
	}

	name := peerCredential.CountryCode() + "-" + peerCredential.PartyID()

	inboundToken, err := generateToken()
	if err != nil {
		return nil, err
	}

	if err := n.storeCredential(ctx, name, peerCredential); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := n.tokenStore.Add(authDomain.TokenC, inboundToken); err != nil {
		return nil, err
	}

	peer, ok := n.peers[name]
	if !ok {
		peer = &credentialsDomain.Peer{Name: name}
		n.peers[name] = peer
	}
	if peer.InboundToken != "" {
		n.tokenStore.Remove(authDomain.TokenC, peer.InboundToken)
		delete(n.byToken, peer.InboundToken)
	}

	peer.VersionsURL = peerCredential.URL
	peer.Credential = peerCredential
	peer.OutboundToken = peerCredential.Token
	peer.InboundToken = inboundToken
	n.byToken[inboundToken] = name
	advance(peer, credentialsDomain.StateRegistered)

	n.logger.Info("inbound peer registered", slog.String("peer", name))

	own := n.OwnCredential(inboundToken)
	return &own, nil
}

// RotateRegistration handles a registered peer updating its credential via
// PUT. The old inbound token stops working; a fresh one is issued and
// returned inside our credential.
func (n *Negotiator) RotateRegistration(
	ctx context.Context,
	currentToken string,
	peerCredential *credentialsDomain.Credential,
) (*credentialsDomain.Credential, error) {
	if !n.Registered(currentToken) {
		return nil, apperrors.ErrNotRegistered
	}
	if err := peerCredential.Validate(); err != nil {
		return nil, err
	}

	n.mu.RLock()
	name := n.byToken[currentToken]
	n.mu.RUnlock()

	if err := n.storeCredential(ctx, name, peerCredential); err != nil {
		return nil, err
	}

	inboundToken, err := generateToken()
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	peer, ok := n.peers[name]
	if !ok {
		return nil, credentialsDomain.ErrPeerNotFound
	}

	if _, err := n.tokenStore.Add(authDomain.TokenC, inboundToken); err != nil {
		return nil, err
	}
	n.tokenStore.Remove(authDomain.TokenC, peer.InboundToken)
	delete(n.byToken, peer.InboundToken)

	peer.Credential = peerCredential
	peer.OutboundToken = peerCredential.Token
	peer.InboundToken = inboundToken
	peer.UpdatedAt = time.Now().UTC()
	n.byToken[inboundToken] = name

	n.logger.Info("peer credential rotated", slog.String("peer", name))

	own := n.OwnCredential(inboundToken)
	return &own, nil
}

// Unregister tears down the relationship for the peer behind the given
// inbound token. Its token stops validating and the stored credential is
// removed; the peer must run a fresh handshake to come back.
func (n *Negotiator) Unregister(ctx context.Context, currentToken string) error {
	n.mu.Lock()

	name, ok := n.byToken[currentToken]
	if !ok {
		n.mu.Unlock()
		return apperrors.ErrNotRegistered
	}

	peer := n.peers[name]
	n.tokenStore.Remove(authDomain.TokenC, peer.InboundToken)
	delete(n.byToken, peer.InboundToken)
	peer.InboundToken = ""
	peer.Credential = nil
	peer.State = credentialsDomain.StateUnregistered
	peer.UpdatedAt = time.Now().UTC()
	n.mu.Unlock()

	err := n.moduleStore.Delete(ctx, ocpi.ModuleCredentials, modulesDomain.Key{
		CountryCode: n.cfg.CountryCode,
		PartyID:     n.cfg.PartyID,
		ID:          name,
	})
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	n.logger.Info("peer unregistered", slog.String("peer", name))
	return nil
}

// RemovePeer drops a peer relationship entirely, including its inbound token.
func (n *Negotiator) RemovePeer(_ context.Context, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	peer, ok := n.peers[name]
	if !ok {
		return credentialsDomain.ErrPeerNotFound
	}
	if peer.InboundToken != "" {
		n.tokenStore.Remove(authDomain.TokenC, peer.InboundToken)
		delete(n.byToken, peer.InboundToken)
	}
	delete(n.peers, name)
	return nil
}

// OwnCredential builds the credential we present to peers. token is the
// inbound token the peer must use on requests to us.
func (n *Negotiator) OwnCredential(token string) credentialsDomain.Credential {
	return credentialsDomain.Credential{
		Token: token,
		URL:   n.cfg.VersionsURL(),
		Roles: []credentialsDomain.CredentialsRole{
			{
				Role:            ocpi.PartyRoleEMSP,
				BusinessDetails: credentialsDomain.BusinessDetails{Name: n.cfg.PartyName},
				PartyID:         n.cfg.PartyID,
				CountryCode:     n.cfg.CountryCode,
			},
		},
	}
}

// storeCredential persists a peer credential in the reserved credentials
// module so it survives for audit and listing.
func (n *Negotiator) storeCredential(
	ctx context.Context,
	name string,
	credential *credentialsDomain.Credential,
) error {
	payload, err := json.Marshal(credential)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode credential")
	}

	_, err = n.moduleStore.Upsert(ctx, ocpi.ModuleCredentials, modulesDomain.Key{
		CountryCode: n.cfg.CountryCode,
		PartyID:     n.cfg.PartyID,
		ID:          name,
	}, payload)
	return err
}

// advance moves a peer forward, never backward.
func advance(peer *credentialsDomain.Peer, state credentialsDomain.RegistrationState) {
	if peer.State.AtLeast(state) {
		return
	}
	peer.State = state
	peer.UpdatedAt = time.Now().UTC()
}

// snapshot copies a peer so callers never see later mutations.
func snapshot(peer *credentialsDomain.Peer) *credentialsDomain.Peer {
	copied := *peer
	if peer.Endpoints != nil {
		copied.Endpoints = make(map[ocpi.ModuleID]string, len(peer.Endpoints))
		for k, v := range peer.Endpoints {
			copied.Endpoints[k] = v
		}
	}
	if peer.Credential != nil {
		credential := *peer.Credential
		copied.Credential = &credential
	}
	return &copied
}

// decodeEnvelopeData checks the HTTP and OCPI status of a peer response and
// unmarshals the envelope data into out.
func decodeEnvelopeData(status int, body []byte, out any) error {
	if status != http.StatusOK && status != http.StatusCreated {
		return apperrors.Wrapf(apperrors.ErrPeerUnreachable, "peer answered with http status %d", status)
	}

	env, err := ocpi.DecodeEnvelope(body)
	if err != nil {
		return err
	}
	if !env.Success() {
		return apperrors.Wrapf(apperrors.ErrPeerUnreachable,
			"peer answered with ocpi status %d: %s", env.StatusCode, env.StatusMessage)
	}
	return env.DecodeData(out)
}

// generateToken creates a 32-byte random token, base64 url-encoded.
func generateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", apperrors.Wrap(err, "failed to generate token")
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Package usecase implements the real-time authorization engine. Decisions
// come from an ordered chain of policies so new checks (contract, energy
// limits) can be added without touching the call signature.
package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authService "github.com/allisson/ocpi-hub/internal/auth/service"
	authorizationDomain "github.com/allisson/ocpi-hub/internal/authorization/domain"
	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	modulesUseCase "github.com/allisson/ocpi-hub/internal/modules/usecase"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// Policy is one step of the decision chain. handled reports whether the
// policy produced a decision; an unhandled request falls through to the next
// policy.
type Policy interface {
	Evaluate(ctx context.Context, request authorizationDomain.Request) (
		allowed authorizationDomain.AllowedType, handled bool, err error)
}

// Engine runs authorize requests through its policy chain.
type Engine struct {
	policies []Policy
	logger   *slog.Logger
}

// NewEngine creates an authorization engine with the given policy chain. The
// first policy that handles a request decides it; with no decision the
// request is NOT_ALLOWED.
func NewEngine(logger *slog.Logger, policies ...Policy) *Engine {
	return &Engine{policies: policies, logger: logger}
}

// Authorize decides whether the token may charge in the given context. An
// ALLOWED decision carries a fresh authorization reference; every other
// outcome carries none.
func (e *Engine) Authorize(
	ctx context.Context,
	request authorizationDomain.Request,
) (*authorizationDomain.Decision, error) {
	if request.TokenUID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "token uid is required")
	}

	decision := &authorizationDomain.Decision{
		TokenUID:    request.TokenUID,
		LocationID:  request.LocationID,
		EVSEUID:     request.EVSEUID,
		ConnectorID: request.ConnectorID,
		Allowed:     authorizationDomain.NotAllowed,
	}

	for _, policy := range e.policies {
		allowed, handled, err := policy.Evaluate(ctx, request)
		if err != nil {
			return nil, err
		}
		if handled {
			decision.Allowed = allowed
			break
		}
	}

	if decision.Allowed == authorizationDomain.Allowed {
		decision.AuthorizationReference = uuid.Must(uuid.NewV7()).String()
	}

	e.logger.Info("authorization decided",
		slog.String("token_uid", request.TokenUID),
		slog.String("allowed", string(decision.Allowed)))

	return decision, nil
}

// TokenStorePolicy allows any token the authentication store validates. It is
// the fallback for setups without business token data.
type TokenStorePolicy struct {
	tokenStore *authService.TokenStore
}

// NewTokenStorePolicy creates the token store fallback policy.
func NewTokenStorePolicy(tokenStore *authService.TokenStore) *TokenStorePolicy {
	return &TokenStorePolicy{tokenStore: tokenStore}
}

// Evaluate handles every request: a token known to the store is ALLOWED,
// everything else NOT_ALLOWED.
func (p *TokenStorePolicy) Evaluate(
	_ context.Context,
	request authorizationDomain.Request,
) (authorizationDomain.AllowedType, bool, error) {
	if p.tokenStore.Validate(request.TokenUID) {
		return authorizationDomain.Allowed, true, nil
	}
	return authorizationDomain.NotAllowed, true, nil
}

// contractToken is the slice of the Token business object the contract policy
// reads.
type contractToken struct {
	Valid       *bool  `json:"valid"`
	Whitelist   string `json:"whitelist"`
	ContractID  string `json:"contract_id"`
	ValidUntil  string `json:"valid_until"`
	CreditState string `json:"credit_state"`
}

// ContractPolicy decides from the Token business object in the tokens module:
// invalidated tokens are BLOCKED, expired contracts EXPIRED, exhausted credit
// NO_CREDIT, whitelist NEVER is NOT_ALLOWED. Tokens without a stored business
// object are left to the next policy.
type ContractPolicy struct {
	moduleStore modulesUseCase.UseCase
	countryCode string
	partyID     string
}

// NewContractPolicy creates the contract policy reading the given party's
// tokens module.
func NewContractPolicy(moduleStore modulesUseCase.UseCase, countryCode, partyID string) *ContractPolicy {
	return &ContractPolicy{moduleStore: moduleStore, countryCode: countryCode, partyID: partyID}
}

// Evaluate looks up the business token and maps its contract state to a
// decision.
func (p *ContractPolicy) Evaluate(
	ctx context.Context,
	request authorizationDomain.Request,
) (authorizationDomain.AllowedType, bool, error) {
	object, err := p.moduleStore.Get(ctx, ocpi.ModuleTokens, modulesDomain.Key{
		CountryCode: p.countryCode,
		PartyID:     p.partyID,
		ID:          request.TokenUID,
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return authorizationDomain.NotAllowed, false, nil
		}
		return authorizationDomain.NotAllowed, false, err
	}

	var token contractToken
	if err := json.Unmarshal(object.Payload, &token); err != nil {
		return authorizationDomain.NotAllowed, false, nil
	}

	if token.Valid != nil && !*token.Valid {
		return authorizationDomain.Blocked, true, nil
	}
	if token.Whitelist == "NEVER" {
		return authorizationDomain.NotAllowed, true, nil
	}
	if token.ValidUntil != "" {
		until, err := time.Parse(time.RFC3339, token.ValidUntil)
		if err == nil && until.Before(time.Now().UTC()) {
			return authorizationDomain.Expired, true, nil
		}
	}
	if token.CreditState == "NO_CREDIT" {
		return authorizationDomain.NoCredit, true, nil
	}
	return authorizationDomain.Allowed, true, nil
}

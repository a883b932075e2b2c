// Package service implements the token storage backing OCPI authentication.
package service

import (
	"sync"

	authDomain "github.com/allisson/ocpi-hub/internal/auth/domain"
)

// TokenStore holds the two OCPI token classes and answers validity and
// classification queries. All methods are safe for concurrent use; the token
// sets are guarded by a single mutex rather than copy-on-read snapshots so
// concurrent Add/Remove calls cannot race with validation.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]authDomain.TokenClass
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]authDomain.TokenClass),
	}
}

// Validate reports whether token is present in either class. Empty and
// whitespace-padded tokens are always invalid; tokens match exactly, no
// trimming is applied.
func (s *TokenStore) Validate(token string) bool {
	if token == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tokens[token]
	return ok
}

// Classify returns the class of token, or TokenUnknown if it is not present.
func (s *TokenStore) Classify(token string) authDomain.TokenClass {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if class, ok := s.tokens[token]; ok {
		return class
	}
	return authDomain.TokenUnknown
}

// Add registers token under class. Adding an already-registered token of the
// same class is a no-op; the returned bool reports whether the token was newly
// added. Registering a token that exists under the other class is rejected
// with ErrTokenClassConflict.
func (s *TokenStore) Add(class authDomain.TokenClass, token string) (bool, error) {
	if token == "" {
		return false, authDomain.ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tokens[token]; ok {
		if existing != class {
			return false, authDomain.ErrTokenClassConflict
		}
		return false, nil
	}

	s.tokens[token] = class
	return true, nil
}

// Remove deletes token from class. Returns true iff the token existed under
// that class and was removed.
func (s *TokenStore) Remove(class authDomain.TokenClass, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tokens[token]; ok && existing == class {
		delete(s.tokens, token)
		return true
	}
	return false
}

// Count returns the number of tokens registered under class.
func (s *TokenStore) Count(class authDomain.TokenClass) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.tokens {
		if c == class {
			n++
		}
	}
	return n
}

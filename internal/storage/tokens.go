package storage

import "sync"

// TokenStore keeps the bearer token in the durable scope under [KeyAuthToken].
//
// The last read or written token is cached; call [TokenStore.Reload] after another process changes it.
type TokenStore struct {
	scope Scope

	mu     sync.RWMutex
	token  string
	loaded bool
}

// NewTokenStore creates a [TokenStore] over scope.
func NewTokenStore(scope Scope) *TokenStore {
	return &TokenStore{scope: scope}
}

// Token returns the current token or "".
func (t *TokenStore) Token() string {
	t.mu.RLock()
	if t.loaded {
		defer t.mu.RUnlock()
		return t.token
	}
	t.mu.RUnlock()

	t.Reload()

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// Reload re-reads the token from storage.
func (t *TokenStore) Reload() {
	var token string
	if _, err := t.scope.Get(KeyAuthToken, &token); err != nil {
		token = ""
	}

	t.mu.Lock()
	t.token, t.loaded = token, true
	t.mu.Unlock()
}

// SetToken persists token.
func (t *TokenStore) SetToken(token string) error {
	if err := t.scope.Set(KeyAuthToken, token); err != nil {
		return err
	}

	t.mu.Lock()
	t.token, t.loaded = token, true
	t.mu.Unlock()
	return nil
}

// ClearToken removes the token.
func (t *TokenStore) ClearToken() error {
	t.mu.Lock()
	t.token, t.loaded = "", true
	t.mu.Unlock()
	return t.scope.Remove(KeyAuthToken)
}

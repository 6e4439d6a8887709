package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/desertthunder/oracle/internal/shared"
)

// SessionScope is an in-memory [Scope] that is discarded when the process exits.
type SessionScope struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewSessionScope creates an empty [SessionScope].
func NewSessionScope() *SessionScope {
	return &SessionScope{values: map[string][]byte{}}
}

func (s *SessionScope) Get(key string, dest any) (bool, error) {
	s.mu.RLock()
	data, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", shared.ErrStorage, key, err)
	}
	return true, nil
}

func (s *SessionScope) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", shared.ErrStorage, key, err)
	}

	s.mu.Lock()
	s.values[key] = data
	s.mu.Unlock()
	return nil
}

func (s *SessionScope) Remove(key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

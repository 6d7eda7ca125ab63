package httpserver

import (
	"sync"

	"github.com/google/uuid"

	"github.com/magicaleks/magickey/internal/domain"
)

// TokenStore keeps issued tokens until they are consumed.
type TokenStore struct {
	mu      sync.Mutex
	entries map[string]domain.FingerprintRecord
}

func NewTokenStore() *TokenStore {
	return &TokenStore{entries: make(map[string]domain.FingerprintRecord)}
}

// Issue binds a fresh token to record.
func (s *TokenStore) Issue(record domain.FingerprintRecord) string {
	token := uuid.NewString()

	s.mu.Lock()
	s.entries[token] = record
	s.mu.Unlock()

	return token
}

// Consume returns the record bound to token and forgets the token. A token
// is accepted at most once.
func (s *TokenStore) Consume(token string) (domain.FingerprintRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.entries[token]
	if ok {
		delete(s.entries, token)
	}
	return record, ok
}

// Pending reports the number of unconsumed tokens.
func (s *TokenStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

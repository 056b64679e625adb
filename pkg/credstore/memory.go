package credstore

import (
	"sync"

	"github.com/terraconstructs/iamctl/pkg/sdk"
)

// MemoryStore keeps credentials in process memory only.
type MemoryStore struct {
	mu    sync.Mutex
	creds *sdk.Credentials
	saves int
}

var _ sdk.CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore returns a store seeded with creds (may be nil).
func NewMemoryStore(creds *sdk.Credentials) *MemoryStore {
	return &MemoryStore{creds: clone(creds)}
}

func (s *MemoryStore) SaveCredentials(credentials *sdk.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = clone(credentials)
	s.saves++
	return nil
}

func (s *MemoryStore) LoadCredentials() (*sdk.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, sdk.ErrNotLoggedIn
	}
	return clone(s.creds), nil
}

func (s *MemoryStore) DeleteCredentials() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

// Saves counts SaveCredentials calls.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func clone(c *sdk.Credentials) *sdk.Credentials {
	if c == nil {
		return nil
	}
	out := *c
	if c.User != nil {
		user := *c.User
		out.User = &user
	}
	return &out
}

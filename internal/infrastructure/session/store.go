// Package session owns the bearer token and user profile of the signed-in
// backoffice user: login and registration against the public auth endpoints,
// token liveness checks, and the authenticated request path that tears the
// session down on a 401.
package session

import (
	"context"
	"sync"

	"github.com/drivemaster/backoffice/internal/domain/identity"
)

// CredentialStore persists the session across process restarts: one slot for
// the bearer token, one for the JSON-serialized user profile. Both are
// cleared together on logout.
type CredentialStore interface {
	Load(ctx context.Context) (identity.Session, error)
	Save(ctx context.Context, s identity.Session) error
	Clear(ctx context.Context) error
}

// MemoryCredentialStore keeps the session in process memory. It does not
// survive restarts and is meant for tests.
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	session identity.Session
}

// NewMemoryCredentialStore creates an empty in-memory store
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (s *MemoryCredentialStore) Load(ctx context.Context) (identity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, nil
}

func (s *MemoryCredentialStore) Save(ctx context.Context, session identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	return nil
}

func (s *MemoryCredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = identity.Session{}
	return nil
}

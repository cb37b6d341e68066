package identity

import (
	"context"
	"sync"

	id "prospector/pkg/domain"
	"prospector/pkg/platform/sentinel"
)

// MemoryStore keeps credentials in process.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]Credential
	byEmail map[string]id.UserID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[id.UserID]Credential),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *MemoryStore) Create(_ context.Context, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[cred.Email]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.byID[cred.ID]; taken {
		return sentinel.ErrConflict
	}
	s.byID[cred.ID] = cred
	s.byEmail[cred.Email] = cred.ID
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, userID)
	delete(s.byEmail, cred.Email)
	return nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cred := s.byID[userID]
	return &cred, nil
}

// Len reports the number of stored credentials.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

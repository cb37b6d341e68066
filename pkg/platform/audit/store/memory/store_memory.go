// Package memory keeps audit events in process for the memory store driver
// and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	id "prospector/pkg/domain"
	audit "prospector/pkg/platform/audit"
)

// InMemoryStore is an append-only event log. Queries return copies in
// append order.
type InMemoryStore struct {
	mu  sync.RWMutex
	log []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, event)
	return nil
}

// ListByUser returns the events about the account userID.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	return s.filter(func(e audit.Event) bool { return e.UserID == userID }), nil
}

// ListByActor returns the events performed by actorID, such as every
// salesperson an admin created or deleted.
func (s *InMemoryStore) ListByActor(_ context.Context, actorID id.UserID) ([]audit.Event, error) {
	return s.filter(func(e audit.Event) bool { return e.ActorID == actorID }), nil
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

func (s *InMemoryStore) filter(keep func(audit.Event) bool) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []audit.Event{}
	for _, e := range s.log {
		if keep(e) {
			out = append(out, e)
		}
	}
	return slices.Clip(out)
}

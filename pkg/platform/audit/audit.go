// Package audit records who changed which account and when.
package audit

import (
	"context"
	"errors"
	"time"

	id "prospector/pkg/domain"
	"prospector/pkg/requestcontext"
)

// Action names an audited account lifecycle event.
type Action string

const (
	ActionSalespersonCreated Action = "salesperson_created"
	ActionSalespersonDeleted Action = "salesperson_deleted"
	ActionAdminBootstrapped  Action = "admin_bootstrapped"
)

// Event is one audit record. UserID is the account acted on; ActorID is the
// caller who acted.
type Event struct {
	Timestamp time.Time
	Action    Action
	UserID    id.UserID
	ActorID   id.UserID
	Email     string
	RequestID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Publisher stamps events with the request time and id before storing them.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) (*Publisher, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	return &Publisher{store: store}, nil
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx).UTC()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return p.store.Append(ctx, event)
}

// List returns the events recorded for userID.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}

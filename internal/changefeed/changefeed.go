// Package changefeed delivers document changes to per-collection handlers.
//
// The Router is the subscription point. Two sources feed it: MemoryFeed for
// the in-process store, and KafkaSource for changes relayed from the
// Postgres outbox by Relay. Delivery is at-least-once in both cases.
package changefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"prospector/internal/docstore"
)

// Handler reacts to one change of a watched collection.
type Handler func(ctx context.Context, change docstore.Change) error

// Subscriber registers handlers against a collection name.
type Subscriber interface {
	OnChange(collection string, handler Handler)
}

// Router fans a change out to the handlers registered for its collection.
type Router struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string][]Handler)}
}

func (r *Router) OnChange(collection string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[collection] = append(r.handlers[collection], handler)
}

// Dispatch runs every handler for the change's collection and joins their
// errors. Changes on unwatched collections are ignored.
func (r *Router) Dispatch(ctx context.Context, change docstore.Change) error {
	r.mu.RLock()
	handlers := r.handlers[change.Ref.Collection]
	r.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, change); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", change.Ref, err))
		}
	}
	return errors.Join(errs...)
}

// Watches reports whether any handler is registered for collection.
func (r *Router) Watches(collection string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[collection]) > 0
}

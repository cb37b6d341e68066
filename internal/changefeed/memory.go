package changefeed

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"prospector/internal/docstore"
)

// MemoryFeed queues changes published by the in-memory store and dispatches
// them through its Router. The queue is unbounded so a handler that writes
// back to the store never blocks on its own feed.
type MemoryFeed struct {
	*Router

	mu     sync.Mutex
	queue  []docstore.Change
	notify chan struct{}
	logger *slog.Logger
}

type MemoryFeedOption func(*MemoryFeed)

func WithFeedLogger(logger *slog.Logger) MemoryFeedOption {
	return func(f *MemoryFeed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewMemoryFeed(opts ...MemoryFeedOption) *MemoryFeed {
	f := &MemoryFeed{
		Router: NewRouter(),
		notify: make(chan struct{}, 1),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Publish implements docstore.ChangeSink.
func (f *MemoryFeed) Publish(_ context.Context, change docstore.Change) error {
	f.mu.Lock()
	f.queue = append(f.queue, change)
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
	return nil
}

// Run dispatches queued changes until ctx is cancelled.
func (f *MemoryFeed) Run(ctx context.Context) error {
	for {
		f.Drain(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-f.notify:
		}
	}
}

// Drain dispatches queued changes, including ones published by handlers
// while draining, until the queue is empty. It returns the number of changes
// dispatched.
func (f *MemoryFeed) Drain(ctx context.Context) int {
	n := 0
	for {
		change, ok := f.next()
		if !ok {
			return n
		}
		n++
		if err := f.Dispatch(ctx, change); err != nil {
			f.logger.ErrorContext(ctx, "change handler failed",
				"collection", change.Ref.Collection,
				"key", change.Ref.Key,
				"error", err,
			)
		}
	}
}

// Pending reports the number of queued changes.
func (f *MemoryFeed) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func (f *MemoryFeed) next() (docstore.Change, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return docstore.Change{}, false
	}
	change := f.queue[0]
	f.queue = f.queue[1:]
	return change, true
}

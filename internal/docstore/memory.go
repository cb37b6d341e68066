package docstore

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"prospector/pkg/platform/sentinel"
)

// MemoryStore keeps documents in process. Committed changes are handed to the
// configured sink after the store lock is released.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[Ref][]byte
	sink   ChangeSink
	now    func() time.Time
	logger *slog.Logger
}

type MemoryOption func(*MemoryStore)

func WithChangeSink(sink ChangeSink) MemoryOption {
	return func(s *MemoryStore) {
		s.sink = sink
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) MemoryOption {
	return func(s *MemoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		docs:   make(map[Ref][]byte),
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, ref Ref) (Document, error) {
	s.mu.Lock()
	raw, ok := s.docs[ref]
	s.mu.Unlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return decode(raw)
}

func (s *MemoryStore) Merge(ctx context.Context, ref Ref, fields Document) error {
	s.mu.Lock()
	beforeRaw := s.docs[ref]
	before, err := decode(beforeRaw)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	afterRaw, after, err := normalize(mergeInto(before, fields), s.now())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.docs[ref] = afterRaw
	s.mu.Unlock()

	if bytes.Equal(beforeRaw, afterRaw) {
		return nil
	}
	s.publish(ctx, Change{Ref: ref, Before: before, After: after})
	return nil
}

func (s *MemoryStore) RunBatch(ctx context.Context, fn func(Batch) error) error {
	staged := &stagedBatch{}
	if err := fn(staged); err != nil {
		return err
	}

	now := s.now()
	type prepared struct {
		op  op
		raw []byte
		doc Document
	}
	ops := make([]prepared, 0, len(staged.ops))
	for _, o := range staged.ops {
		p := prepared{op: o}
		if o.kind == opSet {
			raw, doc, err := normalize(o.doc, now)
			if err != nil {
				return err
			}
			p.raw, p.doc = raw, doc
		}
		ops = append(ops, p)
	}

	var changes []Change
	s.mu.Lock()
	for _, p := range ops {
		beforeRaw, existed := s.docs[p.op.ref]
		before, _ := decode(beforeRaw)
		switch p.op.kind {
		case opSet:
			s.docs[p.op.ref] = p.raw
			if !bytes.Equal(beforeRaw, p.raw) {
				changes = append(changes, Change{Ref: p.op.ref, Before: before, After: p.doc})
			}
		case opDelete:
			if !existed {
				continue
			}
			delete(s.docs, p.op.ref)
			changes = append(changes, Change{Ref: p.op.ref, Before: before})
		}
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.publish(ctx, c)
	}
	return nil
}

// Len reports the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *MemoryStore) publish(ctx context.Context, change Change) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, change); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish document change",
			"collection", change.Ref.Collection,
			"key", change.Ref.Key,
			"error", err,
		)
	}
}

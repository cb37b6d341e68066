package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"prospector/internal/docstore"
	"prospector/internal/platform/metrics"
)

// Fetcher is the consumer side of a franz-go client.
type Fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitUncommittedOffsets(ctx context.Context) error
}

// KafkaSource consumes relayed changes and dispatches them through its
// Router. Offsets are committed after a polled batch has been handled, so a
// crash mid-batch redelivers it.
type KafkaSource struct {
	*Router

	client  Fetcher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type KafkaSourceOption func(*KafkaSource)

func WithSourceLogger(logger *slog.Logger) KafkaSourceOption {
	return func(s *KafkaSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSourceMetrics(m *metrics.Metrics) KafkaSourceOption {
	return func(s *KafkaSource) {
		s.metrics = m
	}
}

func NewKafkaSource(client Fetcher, opts ...KafkaSourceOption) (*KafkaSource, error) {
	if client == nil {
		return nil, errors.New("kafka client is required")
	}
	s := &KafkaSource{
		Router: NewRouter(),
		client: client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run polls until ctx is cancelled or the client is closed. Handler failures
// are logged and the record is still committed; the enrichment handlers are
// idempotent and a failed lookup is retried by the next address change.
func (s *KafkaSource) Run(ctx context.Context) error {
	for {
		fetches := s.client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			s.logger.ErrorContext(ctx, "kafka fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(record *kgo.Record) {
			s.handle(ctx, record)
		})

		if err := s.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "kafka offset commit failed", "error", err)
		}
	}
}

func (s *KafkaSource) handle(ctx context.Context, record *kgo.Record) {
	var change docstore.Change
	if err := json.Unmarshal(record.Value, &change); err != nil {
		s.metrics.IncChangeEventsConsumed("undecodable")
		s.logger.ErrorContext(ctx, "dropping undecodable change event",
			"partition", record.Partition,
			"offset", record.Offset,
			"error", err,
		)
		return
	}

	if err := s.Dispatch(ctx, change); err != nil {
		s.metrics.IncChangeEventsConsumed("failed")
		s.logger.ErrorContext(ctx, "change handler failed",
			"collection", change.Ref.Collection,
			"key", change.Ref.Key,
			"offset", record.Offset,
			"error", err,
		)
		return
	}
	s.metrics.IncChangeEventsConsumed("handled")
}

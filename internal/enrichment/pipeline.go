package enrichment

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"prospector/internal/changefeed"
	"prospector/internal/docstore"
	"prospector/internal/platform/metrics"
)

var tracer = otel.Tracer("prospector/enrichment")

// Pipeline registers one change handler per watched kind.
type Pipeline struct {
	resolver Resolver
	writer   Writer
	kinds    []Kind
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func NewPipeline(resolver Resolver, writer Writer, kinds []Kind, opts ...Option) (*Pipeline, error) {
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if len(kinds) == 0 {
		return nil, errors.New("at least one watched kind is required")
	}
	for _, k := range kinds {
		if k.Collection == "" || k.LocalityField == "" {
			return nil, errors.New("watched kinds need a collection and a locality field")
		}
	}

	p := &Pipeline{
		resolver: resolver,
		writer:   writer,
		kinds:    kinds,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Register subscribes the pipeline to every watched collection.
func (p *Pipeline) Register(sub changefeed.Subscriber) {
	for _, kind := range p.kinds {
		sub.OnChange(kind.Collection, p.Handler(kind))
	}
}

// Handler returns the change handler for kind.
func (p *Pipeline) Handler(kind Kind) changefeed.Handler {
	return func(ctx context.Context, change docstore.Change) error {
		ctx, span := tracer.Start(ctx, "Enrichment.Pipeline.Handle")
		defer span.End()
		span.SetAttributes(
			attribute.String("collection", change.Ref.Collection),
			attribute.String("key", change.Ref.Key),
		)

		outcome, err := Enrich(ctx, kind, change, p.resolver, p.writer)
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.metrics.IncEnrichmentEvent(kind.Collection, "write_failed")
			p.logger.ErrorContext(ctx, "failed to write location",
				"collection", change.Ref.Collection,
				"key", change.Ref.Key,
				"error", err,
			)
			return err
		}

		p.metrics.IncEnrichmentEvent(kind.Collection, string(outcome))
		switch outcome {
		case OutcomeUpdated:
			p.logger.InfoContext(ctx, "location updated",
				"collection", change.Ref.Collection,
				"key", change.Ref.Key,
			)
		case OutcomeUnresolved:
			p.logger.WarnContext(ctx, "address could not be resolved, location left unchanged",
				"collection", change.Ref.Collection,
				"key", change.Ref.Key,
			)
		default:
			p.logger.DebugContext(ctx, "change ignored",
				"collection", change.Ref.Collection,
				"key", change.Ref.Key,
				"outcome", string(outcome),
			)
		}
		return nil
	}
}

package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"

	"prospector/internal/docstore"
	"prospector/internal/platform/metrics"
)

// Producer is the producing side of a franz-go client.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// RelayOptions tunes the outbox polling loop.
type RelayOptions struct {
	PollInterval time.Duration
	BatchSize    int
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

func (o *RelayOptions) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Relay publishes unpublished document_changes rows to Kafka in sequence
// order, keyed by document so one document's changes share a partition.
type Relay struct {
	pool     *pgxpool.Pool
	producer Producer
	opts     RelayOptions
}

func NewRelay(pool *pgxpool.Pool, producer Producer, opts RelayOptions) (*Relay, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if producer == nil {
		return nil, errors.New("producer is required")
	}
	opts.setDefaults()
	return &Relay{pool: pool, producer: producer, opts: opts}, nil
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		for {
			n, err := r.ProcessOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.opts.Metrics.IncRelayErrors()
				r.opts.Logger.WarnContext(ctx, "relay tick failed", "error", err)
				break
			}
			if n < r.opts.BatchSize {
				break
			}
		}
	}
}

type pendingChange struct {
	seq    int64
	change docstore.Change
}

// ProcessOnce publishes one batch and marks it published. Rows stay
// unpublished when producing fails.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("relay begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	pending, err := claim(ctx, tx, r.opts.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, tx.Commit(ctx)
	}

	records := make([]*kgo.Record, 0, len(pending))
	seqs := make([]int64, 0, len(pending))
	for _, p := range pending {
		value, err := json.Marshal(p.change)
		if err != nil {
			return 0, fmt.Errorf("relay encode seq %d: %w", p.seq, err)
		}
		records = append(records, &kgo.Record{
			Key:   []byte(p.change.Ref.String()),
			Value: value,
		})
		seqs = append(seqs, p.seq)
	}

	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("relay produce: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE document_changes SET published_at = now() WHERE seq = ANY($1)`, seqs,
	); err != nil {
		return 0, fmt.Errorf("relay mark published: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("relay commit: %w", err)
	}

	r.opts.Metrics.AddRelayPublished(len(pending))
	return len(pending), nil
}

func claim(ctx context.Context, tx pgx.Tx, limit int) ([]pendingChange, error) {
	rows, err := tx.Query(ctx, `
		SELECT seq, collection, key, before, after
		  FROM document_changes
		 WHERE published_at IS NULL
		 ORDER BY seq
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("relay claim: %w", err)
	}
	defer rows.Close()

	var out []pendingChange
	for rows.Next() {
		var (
			p             pendingChange
			before, after []byte
		)
		if err := rows.Scan(&p.seq, &p.change.Ref.Collection, &p.change.Ref.Key, &before, &after); err != nil {
			return nil, fmt.Errorf("relay claim scan: %w", err)
		}
		if before != nil {
			if err := json.Unmarshal(before, &p.change.Before); err != nil {
				return nil, fmt.Errorf("relay decode before seq %d: %w", p.seq, err)
			}
		}
		if after != nil {
			if err := json.Unmarshal(after, &p.change.After); err != nil {
				return nil, fmt.Errorf("relay decode after seq %d: %w", p.seq, err)
			}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relay claim rows: %w", err)
	}
	return out, nil
}

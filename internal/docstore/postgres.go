package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prospector/pkg/platform/sentinel"
	txutil "prospector/pkg/platform/tx"
)

// PostgresStore persists documents as jsonb. Each mutation writes a
// document_changes row in the same transaction; the change relay publishes
// those rows.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

type PostgresOption func(*PostgresStore)

func WithPostgresClock(now func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Get(ctx context.Context, ref Ref) (Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND key = $2`,
		ref.Collection, ref.Key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get document %s: %w", ref, err)
	}
	return decode(raw)
}

func (s *PostgresStore) Merge(ctx context.Context, ref Ref, fields Document) error {
	patchRaw, _, err := normalize(fields, s.now())
	if err != nil {
		return err
	}
	return txutil.RunInTx(ctx, s.db, 0, func(ctx context.Context, tx *sql.Tx) error {
		beforeRaw, err := lockDocument(ctx, tx, ref)
		if err != nil {
			return err
		}
		var afterRaw []byte
		err = tx.QueryRowContext(ctx, `
			INSERT INTO documents (collection, key, data, updated_at)
			VALUES ($1, $2, $3::jsonb, now())
			ON CONFLICT (collection, key) DO UPDATE SET
				data = documents.data || EXCLUDED.data,
				updated_at = now()
			RETURNING data`,
			ref.Collection, ref.Key, string(patchRaw),
		).Scan(&afterRaw)
		if err != nil {
			return fmt.Errorf("merge document %s: %w", ref, err)
		}
		return recordChange(ctx, tx, ref, beforeRaw, afterRaw)
	})
}

func (s *PostgresStore) RunBatch(ctx context.Context, fn func(Batch) error) error {
	staged := &stagedBatch{}
	if err := fn(staged); err != nil {
		return err
	}
	now := s.now()
	return txutil.RunInTx(ctx, s.db, 0, func(ctx context.Context, tx *sql.Tx) error {
		for _, o := range staged.ops {
			var err error
			switch o.kind {
			case opSet:
				err = setDocument(ctx, tx, o.ref, o.doc, now)
			case opDelete:
				err = deleteDocument(ctx, tx, o.ref)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func lockDocument(ctx context.Context, tx *sql.Tx, ref Ref) ([]byte, error) {
	var raw []byte
	err := tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND key = $2 FOR UPDATE`,
		ref.Collection, ref.Key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock document %s: %w", ref, err)
	}
	return raw, nil
}

func setDocument(ctx context.Context, tx *sql.Tx, ref Ref, doc Document, now time.Time) error {
	raw, _, err := normalize(doc, now)
	if err != nil {
		return err
	}
	beforeRaw, err := lockDocument(ctx, tx, ref)
	if err != nil {
		return err
	}
	var afterRaw []byte
	err = tx.QueryRowContext(ctx, `
		INSERT INTO documents (collection, key, data, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, key) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = now()
		RETURNING data`,
		ref.Collection, ref.Key, string(raw),
	).Scan(&afterRaw)
	if err != nil {
		return fmt.Errorf("set document %s: %w", ref, err)
	}
	return recordChange(ctx, tx, ref, beforeRaw, afterRaw)
}

func deleteDocument(ctx context.Context, tx *sql.Tx, ref Ref) error {
	var beforeRaw []byte
	err := tx.QueryRowContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND key = $2 RETURNING data`,
		ref.Collection, ref.Key,
	).Scan(&beforeRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete document %s: %w", ref, err)
	}
	return recordChange(ctx, tx, ref, beforeRaw, nil)
}

// recordChange appends the outbox row. Writes that leave the document as it
// was produce no row.
func recordChange(ctx context.Context, tx *sql.Tx, ref Ref, beforeRaw, afterRaw []byte) error {
	if beforeRaw != nil && afterRaw != nil {
		before, err := decode(beforeRaw)
		if err != nil {
			return err
		}
		after, err := decode(afterRaw)
		if err != nil {
			return err
		}
		b, _, _ := normalize(before, time.Time{})
		a, _, _ := normalize(after, time.Time{})
		if bytes.Equal(a, b) {
			return nil
		}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO document_changes (collection, key, before, after)
		VALUES ($1, $2, $3::jsonb, $4::jsonb)`,
		ref.Collection, ref.Key, nullableJSON(beforeRaw), nullableJSON(afterRaw),
	)
	if err != nil {
		return fmt.Errorf("record change %s: %w", ref, err)
	}
	return nil
}

func nullableJSON(raw []byte) sql.NullString {
	if raw == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "prospector/pkg/domain"
	audit "prospector/pkg/platform/audit"
	txcontext "prospector/pkg/platform/tx"
)

// Store appends audit events to the audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (id, occurred_at, action, user_id, actor_id, email, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), event.Timestamp, string(event.Action),
		uuid.UUID(event.UserID), nullableID(event.ActorID), event.Email, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, action, user_id, actor_id, email, request_id
		  FROM audit_events
		 WHERE user_id = $1
		 ORDER BY occurred_at, id`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e       audit.Event
			action  string
			userRaw uuid.UUID
			actor   uuid.NullUUID
		)
		if err := rows.Scan(&e.Timestamp, &action, &userRaw, &actor, &e.Email, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		e.UserID = id.UserID(userRaw)
		if actor.Valid {
			e.ActorID = id.UserID(actor.UUID)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events rows: %w", err)
	}
	return events, nil
}

func nullableID(v id.UserID) uuid.NullUUID {
	if v.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(v), Valid: true}
}

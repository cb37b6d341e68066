package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "prospector/pkg/domain"
	"prospector/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists credentials in the credentials table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, cred Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, email, password_hash, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(cred.ID), cred.Email, string(cred.PasswordHash), cred.DisplayName, cred.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete credential rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	var (
		cred  Credential
		rawID uuid.UUID
		hash  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, created_at
		  FROM credentials
		 WHERE email = $1`, email,
	).Scan(&rawID, &cred.Email, &hash, &cred.DisplayName, &cred.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	cred.ID = id.UserID(rawID)
	cred.PasswordHash = []byte(hash)
	return &cred, nil
}

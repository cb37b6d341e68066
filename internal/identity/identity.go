// Package identity issues and removes login credentials.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	id "prospector/pkg/domain"
	"prospector/pkg/platform/sentinel"
)

const minPasswordLength = 6

var (
	ErrInvalidEmail = errors.New("the email address is improperly formatted")
	ErrWeakPassword = fmt.Errorf("the password must be at least %d characters", minPasswordLength)
	ErrEmailTaken   = fmt.Errorf("the email address is already in use by another account: %w", sentinel.ErrConflict)
)

// Credential is a stored login.
type Credential struct {
	ID           id.UserID
	Email        string
	DisplayName  string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Store persists credentials. Create returns sentinel.ErrConflict for a
// taken email; Delete and FindByEmail return sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, cred Credential) error
	Delete(ctx context.Context, userID id.UserID) error
	FindByEmail(ctx context.Context, email string) (*Credential, error)
}

// Service hashes passwords and enforces credential rules over a Store.
type Service struct {
	store      Store
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBcryptCost lowers the hashing cost, mostly for tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("credential store is required")
	}
	s := &Service{
		store:      store,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateCredential stores a new credential and returns its id.
func (s *Service) CreateCredential(ctx context.Context, email, password, displayName string) (id.UserID, error) {
	email = normalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return id.UserID{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return id.UserID{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return id.UserID{}, fmt.Errorf("hash password: %w", err)
	}

	cred := Credential{
		ID:           id.NewUserID(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, cred); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return id.UserID{}, ErrEmailTaken
		}
		return id.UserID{}, fmt.Errorf("create credential: %w", err)
	}

	s.logger.InfoContext(ctx, "credential created", "user_id", cred.ID.String())
	return cred.ID, nil
}

// DeleteCredential removes the credential. A missing credential yields
// sentinel.ErrNotFound.
func (s *Service) DeleteCredential(ctx context.Context, userID id.UserID) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete credential: %w", err)
	}
	s.logger.InfoContext(ctx, "credential deleted", "user_id", userID.String())
	return nil
}

// Authenticate checks an email/password pair and returns the credential id.
func (s *Service) Authenticate(ctx context.Context, email, password string) (id.UserID, error) {
	cred, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Keep timing comparable to a wrong password.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return id.UserID{}, sentinel.ErrInvalidCredentials
		}
		return id.UserID{}, fmt.Errorf("find credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		return id.UserID{}, sentinel.ErrInvalidCredentials
	}
	return cred.ID, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("prospector-dummy-password"), bcrypt.MinCost)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

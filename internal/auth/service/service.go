// Package service exchanges email and password for a signed access token.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"prospector/internal/auth/models"
	id "prospector/pkg/domain"
	dErrors "prospector/pkg/domain-errors"
	"prospector/pkg/platform/sentinel"
	"prospector/pkg/requestcontext"
)

// Authenticator verifies credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (id.UserID, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, expiresIn time.Duration) (string, error)
}

type Service struct {
	identity Authenticator
	tokens   TokenIssuer
	tokenTTL time.Duration
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(identity Authenticator, tokens TokenIssuer, tokenTTL time.Duration, opts ...Option) (*Service, error) {
	if identity == nil {
		return nil, errors.New("authenticator is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if tokenTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	s := &Service{
		identity: identity,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Token(ctx context.Context, req *models.TokenRequest) (*models.TokenResult, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "request is required")
	}
	req.Normalize()
	if req.Email == "" || req.Password == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "email and password are required")
	}

	userID, err := s.identity.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidCredentials) {
			s.logger.WarnContext(ctx, "token request rejected",
				"reason", "invalid_credentials",
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid email or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to authenticate")
	}

	token, err := s.tokens.GenerateAccessToken(userID, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}

	s.logger.InfoContext(ctx, "access token issued",
		"user_id", userID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.TokenResult{
		AccessToken: token,
		TokenType:   models.TokenTypeBearer,
		ExpiresIn:   int(s.tokenTTL.Seconds()),
		UserID:      userID.String(),
	}, nil
}

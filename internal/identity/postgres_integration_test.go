//go:build integration

package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"prospector/internal/identity"
	"prospector/pkg/platform/sentinel"
	"prospector/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg      *containers.PostgresContainer
	service *identity.Service
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	svc, err := identity.NewService(identity.NewPostgresStore(s.pg.DB), identity.WithBcryptCost(bcrypt.MinCost))
	s.Require().NoError(err)
	s.service = svc
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "credentials"))
}

func (s *PostgresStoreSuite) TestLifecycle() {
	ctx := context.Background()

	userID, err := s.service.CreateCredential(ctx, "ana@x.com", "pw123456", "Ana")
	s.Require().NoError(err)

	_, err = s.service.CreateCredential(ctx, "ana@x.com", "pw654321", "Ana 2")
	s.ErrorIs(err, sentinel.ErrConflict)

	got, err := s.service.Authenticate(ctx, "ana@x.com", "pw123456")
	s.Require().NoError(err)
	s.Equal(userID, got)

	s.Require().NoError(s.service.DeleteCredential(ctx, userID))
	s.ErrorIs(s.service.DeleteCredential(ctx, userID), sentinel.ErrNotFound)
}

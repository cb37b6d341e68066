package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"prospector/internal/accounts/authz"
	"prospector/internal/accounts/models"
	"prospector/internal/docstore"
	"prospector/internal/identity"
	id "prospector/pkg/domain"
	dErrors "prospector/pkg/domain-errors"
	"prospector/pkg/platform/audit"
	auditmemory "prospector/pkg/platform/audit/store/memory"
	"prospector/pkg/platform/sentinel"
	"prospector/pkg/requestcontext"
)

type lifecycle struct {
	docs        *docstore.MemoryStore
	credentials *identity.MemoryStore
	auditStore  *auditmemory.InMemoryStore
	service     *Service
	adminID     id.UserID
}

func newLifecycle(t *testing.T) *lifecycle {
	t.Helper()
	docs := docstore.NewMemoryStore()
	credentials := identity.NewMemoryStore()
	identitySvc, err := identity.NewService(credentials, identity.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	guard, err := authz.NewGuard(docs)
	require.NoError(t, err)
	auditStore := auditmemory.NewInMemoryStore()
	publisher, err := audit.NewPublisher(auditStore)
	require.NoError(t, err)

	svc, err := New(guard, identitySvc, docs, WithAuditPublisher(publisher))
	require.NoError(t, err)

	adminID := id.NewUserID()
	require.NoError(t, docs.Merge(context.Background(), models.UserRef(adminID), docstore.Document{
		"name": "Root", "email": "root@x.com", "role": string(models.RoleSuperAdmin),
	}))

	return &lifecycle{docs: docs, credentials: credentials, auditStore: auditStore, service: svc, adminID: adminID}
}

func (l *lifecycle) asAdmin() context.Context {
	return requestcontext.WithUserID(context.Background(), l.adminID)
}

func TestCreateProducesLinkedPair(t *testing.T) {
	l := newLifecycle(t)
	ctx := l.asAdmin()

	result, err := l.service.CreateSalesperson(ctx, models.CreateSalespersonRequest{
		Name: "Ana", Email: "ana@x.com", Password: "pw123456",
	})
	require.NoError(t, err)

	newID, err := id.ParseUserID(result.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, l.credentials.Len())
	assert.Equal(t, 3, l.docs.Len(), "admin record plus the new pair")

	user, err := l.docs.Get(ctx, models.UserRef(newID))
	require.NoError(t, err)
	assert.Equal(t, "Ana", user["name"])
	assert.Equal(t, "ana@x.com", user["email"])
	assert.Equal(t, "salesperson", user["role"])
	assert.NotEmpty(t, user["createdAt"])

	profile, err := l.docs.Get(ctx, models.SalespersonRef(newID))
	require.NoError(t, err)
	assert.Equal(t, 0.0, profile["totalSalesValue"])
	assert.Equal(t, 0.0, profile["salesCount"])

	events, err := l.auditStore.ListByUser(ctx, newID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionSalespersonCreated, events[0].Action)

	_, err = l.service.CreateSalesperson(ctx, models.CreateSalespersonRequest{
		Name: "Ana 2", Email: "ana@x.com", Password: "pw654321",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknown))
	assert.Equal(t, 1, l.credentials.Len())
	assert.Equal(t, 3, l.docs.Len())
}

func TestDeleteRemovesBothHalves(t *testing.T) {
	l := newLifecycle(t)
	ctx := l.asAdmin()

	result, err := l.service.CreateSalesperson(ctx, models.CreateSalespersonRequest{
		Name: "Ana", Email: "ana@x.com", Password: "pw123456",
	})
	require.NoError(t, err)

	deleted, err := l.service.DeleteSalesperson(ctx, result.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Success)

	newID, err := id.ParseUserID(result.ID)
	require.NoError(t, err)
	assert.Zero(t, l.credentials.Len())
	_, err = l.docs.Get(ctx, models.UserRef(newID))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = l.docs.Get(ctx, models.SalespersonRef(newID))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	again, err := l.service.DeleteSalesperson(ctx, result.ID)
	require.NoError(t, err, "second delete is a no-op")
	assert.True(t, again.Success)
}

func TestGateLeavesStoresUntouched(t *testing.T) {
	l := newLifecycle(t)

	_, err := l.service.CreateSalesperson(context.Background(), models.CreateSalespersonRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))

	sellerID := id.NewUserID()
	require.NoError(t, l.docs.Merge(context.Background(), models.UserRef(sellerID), docstore.Document{"role": "salesperson"}))
	sellerCtx := requestcontext.WithUserID(context.Background(), sellerID)

	_, err = l.service.CreateSalesperson(sellerCtx, models.CreateSalespersonRequest{
		Name: "Bob", Email: "bob@x.com", Password: "pw123456",
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))
	assert.Zero(t, l.credentials.Len())
	assert.Equal(t, 2, l.docs.Len())
}

func TestAdminCannotDeleteItself(t *testing.T) {
	l := newLifecycle(t)

	_, err := l.service.DeleteSalesperson(l.asAdmin(), l.adminID.String())

	assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))
	_, err = l.docs.Get(context.Background(), models.UserRef(l.adminID))
	assert.NoError(t, err)
}

func TestBootstrapAdminGrantsManagement(t *testing.T) {
	l := newLifecycle(t)
	ctx := context.Background()

	adminID, err := l.service.BootstrapAdmin(ctx, "Ops", "ops@x.com", "pw123456")
	require.NoError(t, err)

	doc, err := l.docs.Get(ctx, models.UserRef(adminID))
	require.NoError(t, err)
	assert.Equal(t, "super_admin", doc["role"])
	_, err = l.docs.Get(ctx, models.SalespersonRef(adminID))
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "admins get no salespeople profile")

	_, err = l.service.CreateSalesperson(requestcontext.WithUserID(ctx, adminID), models.CreateSalespersonRequest{
		Name: "Ana", Email: "ana@x.com", Password: "pw123456",
	})
	assert.NoError(t, err)

	events, err := l.auditStore.ListByUser(ctx, adminID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionAdminBootstrapped, events[0].Action)

	performed, err := l.auditStore.ListByActor(ctx, adminID)
	require.NoError(t, err)
	require.Len(t, performed, 1)
	assert.Equal(t, audit.ActionSalespersonCreated, performed[0].Action)
}

func TestBootstrapAdminValidates(t *testing.T) {
	l := newLifecycle(t)

	_, err := l.service.BootstrapAdmin(context.Background(), "", "ops@x.com", "pw123456")

	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	assert.Zero(t, l.credentials.Len())
}

func TestCreateStoresTheCredentialEmail(t *testing.T) {
	l := newLifecycle(t)
	ctx := l.asAdmin()

	result, err := l.service.CreateSalesperson(ctx, models.CreateSalespersonRequest{
		Name: "Ana", Email: " Ana@Example.COM ", Password: "pw123456",
	})
	require.NoError(t, err)
	newID, err := id.ParseUserID(result.ID)
	require.NoError(t, err)

	cred, err := l.credentials.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, newID, cred.ID)

	user, err := l.docs.Get(ctx, models.UserRef(newID))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user["email"])
	profile, err := l.docs.Get(ctx, models.SalespersonRef(newID))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", profile["email"])
}

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/internal/accounts/models"
	authModels "prospector/internal/auth/models"
	"prospector/internal/changefeed"
	"prospector/internal/docstore"
	"prospector/internal/platform/config"
	"prospector/pkg/testutil"
)

func newMemoryConfig(t *testing.T, geocodeURL string) *config.Config {
	t.Helper()
	cfg, err := config.Load("testdata/none.env")
	require.NoError(t, err)
	cfg.StoreDriver = config.StoreDriverMemory
	cfg.LogLevel = "error"
	cfg.Server.JWTSigningKey = "test-signing-key"
	cfg.Geocode.APIKey = "test-key"
	cfg.Geocode.BaseURL = geocodeURL
	cfg.Redis.URL = ""
	require.NoError(t, cfg.Validate())
	return cfg
}

func fakeGeocoder(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":-23.55,"lng":-46.63}}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMemoryAppEnrichesSchools(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, newMemoryConfig(t, fakeGeocoder(t).URL), true)
	require.NoError(t, err)
	defer a.Close()

	pipeline, err := a.newPipeline()
	require.NoError(t, err)
	pipeline.Register(a.feed)

	ref := docstore.Ref{Collection: "schools", Key: "s1"}
	require.NoError(t, a.docs.Merge(ctx, ref, docstore.Document{"address": "Rua A, 1", "city": "São Paulo"}))

	memFeed, ok := a.feed.(*changefeed.MemoryFeed)
	require.True(t, ok)
	memFeed.Drain(ctx)

	doc, err := a.docs.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"latitude": -23.55, "longitude": -46.63}, doc["location"])
	assert.Zero(t, memFeed.Pending(), "the location write-back settles")
}

func TestMemoryAppAccountFlow(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, newMemoryConfig(t, fakeGeocoder(t).URL), true)
	require.NoError(t, err)
	defer a.Close()

	router, err := a.newRouter()
	require.NoError(t, err)

	identitySvc, err := a.newIdentity()
	require.NoError(t, err)
	adminID, err := identitySvc.CreateCredential(ctx, "root@x.com", "pw123456", "Root")
	require.NoError(t, err)
	require.NoError(t, a.docs.Merge(ctx, models.UserRef(adminID), models.UserRecord{
		Name: "Root", Email: "root@x.com", Role: models.RoleSuperAdmin,
	}.Document()))

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/token",
		authModels.TokenRequest{Email: "root@x.com", Password: "pw123456"}))
	require.Equal(t, http.StatusOK, rr.Code)
	token := testutil.UnmarshalResponse[authModels.TokenResult](t, rr)

	anonymous := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/salespeople",
		models.CreateSalespersonRequest{Name: "Ana", Email: "ana@x.com", Password: "pw123456"}))
	testutil.AssertStatusAndError(t, anonymous, http.StatusUnauthorized, "unauthenticated")

	garbled := testutil.NewRequest(t, http.MethodPost, "/salespeople")
	garbled.Body = io.NopCloser(strings.NewReader("{not json"))
	testutil.AssertStatusAndError(t, testutil.DoRequest(router, garbled), http.StatusUnauthorized, "unauthenticated")

	garbled = testutil.WithBearer(testutil.NewRequest(t, http.MethodPost, "/salespeople"), token.AccessToken)
	garbled.Body = io.NopCloser(strings.NewReader("{not json"))
	testutil.AssertStatusAndError(t, testutil.DoRequest(router, garbled), http.StatusBadRequest, "invalid_argument")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/salespeople",
		models.CreateSalespersonRequest{Name: "Ana", Email: "ana@x.com", Password: "pw123456"})
	testutil.WithBearer(req, token.AccessToken)
	rr = testutil.DoRequest(router, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := testutil.UnmarshalResponse[models.CreateSalespersonResult](t, rr)
	assert.True(t, created.Success)

	req = testutil.NewRequest(t, http.MethodDelete, "/salespeople/"+created.ID)
	testutil.WithBearer(req, token.AccessToken)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "success", true)
}

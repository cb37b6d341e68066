package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/internal/platform/metrics"
	"prospector/internal/platform/middleware"
	id "prospector/pkg/domain"
	"prospector/pkg/requestcontext"
	"prospector/pkg/testutil"
)

type stubValidator struct {
	userID id.UserID
}

func (s stubValidator) ValidateUserID(token string) (id.UserID, error) {
	if token != "good" {
		return id.UserID{}, errors.New("bad token")
	}
	return s.userID, nil
}

type whoami struct{}

func (whoami) Register(r chi.Router) {
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(requestcontext.UserID(r.Context()).String()))
	})
}

func newTestRouter(checks map[string]HealthCheck) (http.Handler, id.UserID, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	userID := id.NewUserID()
	return NewRouter(Deps{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   metrics.New(reg),
		Gatherer:  reg,
		Validator: stubValidator{userID: userID},
		Checks:    checks,
		Handlers:  []Registrar{whoami{}},
	}), userID, reg
}

func TestRouterAuthentication(t *testing.T) {
	router, userID, _ := newTestRouter(nil)

	t.Run("valid bearer token sets the caller", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/whoami")
		testutil.WithBearer(req, "good")

		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, userID.String(), rr.Body.String())
		assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/whoami")
		testutil.WithBearer(req, "bad")

		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthenticated")
	})
}

func TestRouterHealthz(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		router, _, _ := newTestRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

		testutil.AssertStatus(t, rr, http.StatusOK)
		testutil.AssertJSONContains(t, rr, "status", "ok")
	})

	t.Run("failing check is 503", func(t *testing.T) {
		router, _, _ := newTestRouter(map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		assert.Contains(t, rr.Body.String(), "connection refused")
	})
}

func TestRouterMetrics(t *testing.T) {
	router, _, _ := newTestRouter(nil)
	testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "/healthz"), "request metrics carry the route label")
}

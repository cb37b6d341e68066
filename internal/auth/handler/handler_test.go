package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"prospector/internal/auth/models"
	dErrors "prospector/pkg/domain-errors"
	"prospector/pkg/platform/httputil"
	"prospector/pkg/testutil"
)

type stubService struct {
	tokenFn func(ctx context.Context, req *models.TokenRequest) (*models.TokenResult, error)
}

func (s stubService) Token(ctx context.Context, req *models.TokenRequest) (*models.TokenResult, error) {
	return s.tokenFn(ctx, req)
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestHandleToken(t *testing.T) {
	t.Run("returns the token", func(t *testing.T) {
		r := newRouter(stubService{tokenFn: func(_ context.Context, req *models.TokenRequest) (*models.TokenResult, error) {
			assert.Equal(t, "ana@x.com", req.Email)
			assert.Equal(t, "pw123456", req.Password)
			return &models.TokenResult{AccessToken: "tok", TokenType: models.TokenTypeBearer, ExpiresIn: 900, UserID: "u1"}, nil
		}})

		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/token",
			models.TokenRequest{Email: "ana@x.com", Password: "pw123456"}))

		testutil.AssertStatus(t, rr, http.StatusOK)
		res := testutil.UnmarshalResponse[models.TokenResult](t, rr)
		assert.Equal(t, "tok", res.AccessToken)
		assert.Equal(t, "u1", res.UserID)
	})

	t.Run("bad credentials are 401", func(t *testing.T) {
		r := newRouter(stubService{tokenFn: func(context.Context, *models.TokenRequest) (*models.TokenResult, error) {
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid email or password")
		}})

		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/token",
			models.TokenRequest{Email: "ana@x.com", Password: "wrong"}))

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthenticated))
	})

	t.Run("malformed body", func(t *testing.T) {
		r := newRouter(stubService{tokenFn: func(context.Context, *models.TokenRequest) (*models.TokenResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		}})
		req := testutil.NewRequest(t, http.MethodPost, "/auth/token")
		req.Body = io.NopCloser(strings.NewReader("["))

		rr := testutil.DoRequest(r, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeInvalidArgument))
	})
	t.Run("oversized body", func(t *testing.T) {
		r := newRouter(stubService{tokenFn: func(context.Context, *models.TokenRequest) (*models.TokenResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		}})
		body := models.TokenRequest{Email: "ana@x.com", Password: strings.Repeat("p", httputil.MaxBodyBytes)}

		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", body))

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeInvalidArgument))
	})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"prospector/internal/auth/models"
	dErrors "prospector/pkg/domain-errors"
	"prospector/pkg/platform/httputil"
	"prospector/pkg/requestcontext"
)

// Service issues access tokens.
type Service interface {
	Token(ctx context.Context, req *models.TokenRequest) (*models.TokenResult, error)
}

type Handler struct {
	auth   Service
	logger *slog.Logger
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register registers the token route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/token", h.handleToken)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.TokenRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid token request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "invalid request body"))
		return
	}

	res, err := h.auth.Token(ctx, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

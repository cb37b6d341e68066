package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"prospector/internal/accounts/models"
	dErrors "prospector/pkg/domain-errors"
	"prospector/pkg/platform/httputil"
	"prospector/pkg/requestcontext"
)

// Service defines the salesperson lifecycle operations.
type Service interface {
	CreateSalesperson(ctx context.Context, req models.CreateSalespersonRequest) (*models.CreateSalespersonResult, error)
	DeleteSalesperson(ctx context.Context, targetID string) (*models.DeleteSalespersonResult, error)
}

// Handler exposes the salesperson lifecycle over HTTP.
type Handler struct {
	accounts Service
	logger   *slog.Logger
}

// New creates a new accounts Handler.
func New(accounts Service, logger *slog.Logger) *Handler {
	return &Handler{accounts: accounts, logger: logger}
}

// Register registers the salesperson routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/salespeople", h.handleCreate)
	r.Delete("/salespeople/{id}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An undecodable body is still sent through the service as an empty
	// request so the caller is authorized before the body is judged.
	var req models.CreateSalespersonRequest
	decodeErr := httputil.DecodeJSON(w, r, &req)
	if decodeErr != nil {
		h.logger.WarnContext(ctx, "invalid create salesperson request",
			"request_id", requestcontext.RequestID(ctx),
			"error", decodeErr.Error(),
		)
		req = models.CreateSalespersonRequest{}
	}

	res, err := h.accounts.CreateSalesperson(ctx, req)
	if err != nil {
		if decodeErr != nil && dErrors.HasCode(err, dErrors.CodeInvalidArgument) {
			err = dErrors.New(dErrors.CodeInvalidArgument, "invalid request body")
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := h.accounts.DeleteSalesperson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

package uploads

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/pkg/handlers"
	"github.com/tbessa/volumetry/pkg/pagination"
	"github.com/tbessa/volumetry/pkg/routes"
)

// RollbackResult summarizes the rows removed by a batch rollback.
type RollbackResult struct {
	CanonicalDeleted int64 `json:"canonical_deleted"`
	StagedDeleted    int64 `json:"staged_deleted"`
}

// Administrator performs the destructive batch operations that span stores:
// reset cascades deletion of staged-but-uncommitted rows, rollback purges
// everything the batch produced. Implemented by the pipeline orchestrator.
type Administrator interface {
	Reset(ctx context.Context, batchID uuid.UUID) (Batch, error)
	Rollback(ctx context.Context, batchID uuid.UUID) (RollbackResult, error)
}

// Handler provides HTTP endpoints for upload batch inspection and control.
type Handler struct {
	sys        System
	admin      Administrator
	watchdog   *Watchdog
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler over the upload system, the administrative
// orchestrator, and the watchdog.
func NewHandler(
	sys System,
	admin Administrator,
	watchdog *Watchdog,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		admin:      admin,
		watchdog:   watchdog,
		logger:     logger.With("handler", "uploads"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for upload batch endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/uploads",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "/{id}/reset", Handler: h.Reset},
			{Method: "POST", Pattern: "/{id}/rollback", Handler: h.Rollback},
			{Method: "POST", Pattern: "/watchdog", Handler: h.Sweep},
		},
	}
}

// List returns a paginated list of batches with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), filters, page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single batch by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	batch, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, batch)
}

// Reset returns a terminal batch to pending, cascading deletion of its
// staged-but-uncommitted records, so it can be reprocessed.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	batch, err := h.admin.Reset(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, batch)
}

// Rollback purges every record produced by the batch.
func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.admin.Rollback(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Sweep triggers a manual watchdog pass.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.watchdog.Sweep(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

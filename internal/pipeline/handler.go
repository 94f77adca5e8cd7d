package pipeline

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/uploads"
	"github.com/tbessa/volumetry/internal/vocab"
	"github.com/tbessa/volumetry/pkg/handlers"
	"github.com/tbessa/volumetry/pkg/routes"
)

// Handler exposes the ingestion trigger and the targeted rule invocation.
// Request and response shapes follow the contract of the upstream billing
// system, which speaks Portuguese field names.
type Handler struct {
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewHandler creates a Handler over the orchestrator.
func NewHandler(orchestrator *Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger.With("handler", "pipeline"),
	}
}

// Routes returns the route group definitions for pipeline endpoints.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/uploads",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "", Handler: h.Ingest},
			},
		},
		{
			Prefix: "/rules",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "/{name}", Handler: h.RunRule},
			},
		},
	}
}

type ingestRequest struct {
	FilePath        string `json:"filePath"`
	SourceType      string `json:"sourceType"`
	PeriodReference string `json:"periodReference"`
	UploadID        string `json:"uploadId,omitempty"`
	ForceStaging    bool   `json:"forceStaging,omitempty"`
}

type stagingResult struct {
	Staged   int `json:"staged"`
	Rejected int `json:"rejected"`
}

type ingestResponse struct {
	Success          bool          `json:"success"`
	UploadID         uuid.UUID     `json:"uploadId"`
	StagingResult    stagingResult `json:"stagingResult"`
	BackgroundStatus string        `json:"backgroundStatus"`
}

// Ingest runs the staging phase and hands the batch to the background
// workers. The response returns as soon as staging lands, with
// backgroundStatus confirming the dispatched job.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	source, err := vocab.ParseSourceType(req.SourceType)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	cmd := IngestCommand{
		FilePath:        req.FilePath,
		SourceType:      source,
		PeriodReference: req.PeriodReference,
		ForceStaging:    req.ForceStaging,
	}

	if req.UploadID != "" {
		id, err := uuid.Parse(req.UploadID)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		cmd.UploadID = id
	}

	result, err := h.orchestrator.Ingest(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, uploads.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, ingestResponse{
		Success:  true,
		UploadID: result.Batch.ID,
		StagingResult: stagingResult{
			Staged:   result.Staged,
			Rejected: result.Rejected,
		},
		BackgroundStatus: "iniciado",
	})
}

type ruleRunRequest struct {
	SourceType      string `json:"arquivo_fonte,omitempty"`
	UploadBatch     string `json:"lote_upload,omitempty"`
	PeriodReference string `json:"periodo_referencia,omitempty"`
	Force           bool   `json:"forcar_aplicacao,omitempty"`
}

type ruleRunResponse struct {
	Success        bool     `json:"sucesso"`
	UpdatedRecords int      `json:"registros_atualizados"`
	Details        []string `json:"detalhes"`
}

// RunRule applies a single named rule across the committed records in scope.
func (h *Handler) RunRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	run := RuleRunRequest{
		Rule:            r.PathValue("name"),
		PeriodReference: req.PeriodReference,
		Force:           req.Force,
	}

	if req.SourceType != "" {
		source, err := vocab.ParseSourceType(req.SourceType)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		run.Sources = []vocab.SourceType{source}
	}

	if req.UploadBatch != "" {
		id, err := uuid.Parse(req.UploadBatch)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		run.BatchID = id
	}

	result, err := h.orchestrator.RunRule(r.Context(), run)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	details := result.Details
	if details == nil {
		details = []string{}
	}

	handlers.RespondJSON(w, http.StatusOK, ruleRunResponse{
		Success:        true,
		UpdatedRecords: result.Updated,
		Details:        details,
	})
}

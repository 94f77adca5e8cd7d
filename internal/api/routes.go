package api

import (
	"net/http"

	"github.com/tbessa/volumetry/internal/pipeline"
	"github.com/tbessa/volumetry/internal/records"
	"github.com/tbessa/volumetry/internal/uploads"
	"github.com/tbessa/volumetry/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	uploadsHandler := uploads.NewHandler(
		domain.Uploads,
		domain.Orchestrator,
		domain.Watchdog,
		runtime.Logger,
		runtime.Pagination,
	)

	recordsHandler := records.NewHandler(
		domain.Records,
		runtime.Logger,
		runtime.Pagination,
	)

	pipelineHandler := pipeline.NewHandler(domain.Orchestrator, runtime.Logger)

	groups := []routes.Group{
		uploadsHandler.Routes(),
		recordsHandler.Routes(),
	}
	groups = append(groups, pipelineHandler.Routes()...)

	routes.Register(mux, groups...)
}

// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/tbessa/volumetry/internal/config"
	"github.com/tbessa/volumetry/internal/infrastructure"
	"github.com/tbessa/volumetry/pkg/middleware"
	"github.com/tbessa/volumetry/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware,
// and starts the background worker pool and watchdog.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	if err := domain.Start(runtime); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, nil
}

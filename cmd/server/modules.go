package main

import (
	"net/http"

	"github.com/tbessa/volumetry/internal/api"
	"github.com/tbessa/volumetry/internal/config"
	"github.com/tbessa/volumetry/internal/infrastructure"
	"github.com/tbessa/volumetry/pkg/lifecycle"
	"github.com/tbessa/volumetry/pkg/module"
)

// Modules holds the HTTP modules mounted on the root router.
type Modules struct {
	API *module.Module
}

func buildModules(cfg *config.Config, infra *infrastructure.Infrastructure) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func buildRouter(modules *Modules, ready lifecycle.ReadinessChecker) http.Handler {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("starting"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	router.Mount(modules.API)

	return router
}

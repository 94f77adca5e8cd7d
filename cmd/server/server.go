package main

import (
	"fmt"
	"time"

	"github.com/tbessa/volumetry/internal/config"
	"github.com/tbessa/volumetry/internal/infrastructure"
)

// Server ties infrastructure, domain modules, and the HTTP listener together.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

// NewServer builds the full application from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("infrastructure init failed: %w", err)
	}

	modules, err := buildModules(cfg, infra)
	if err != nil {
		return nil, fmt.Errorf("modules init failed: %w", err)
	}

	router := buildRouter(modules, infra.Lifecycle)
	httpSrv := newHTTPServer(&cfg.Server, router, infra.Logger)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    httpSrv,
	}, nil
}

// Start brings up infrastructure and begins serving HTTP.
func (s *Server) Start() error {
	if err := s.infra.Start(); err != nil {
		return fmt.Errorf("infrastructure start failed: %w", err)
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return fmt.Errorf("http start failed: %w", err)
	}
	go s.infra.Lifecycle.WaitForStartup()
	return nil
}

// Shutdown signals all lifecycle hooks and waits up to timeout for them to finish.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.infra.Lifecycle.Shutdown(timeout)
}

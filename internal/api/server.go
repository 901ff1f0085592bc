package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fieldops/jobcard/internal/enhance"
	"github.com/fieldops/jobcard/internal/identity"
	"github.com/fieldops/jobcard/internal/jobs"
	"github.com/fieldops/jobcard/internal/logger"
	"github.com/fieldops/jobcard/internal/websocket"
)

type Server struct {
	httpServer *http.Server
}

func NewServer(
	addr string,
	controller *jobs.Controller,
	provider identity.Provider,
	enhancer enhance.Enhancer,
	hub *websocket.Hub,
) *Server {
	r := mux.NewRouter()
	AddRoutes(r, controller, provider, enhancer, hub)

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	logger.Logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Package api exposes the route-execution engine over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/routeforge/swap-executor/internal/config"
	"github.com/routeforge/swap-executor/internal/engine"
)

type Router struct {
	Routes       []*echo.Route
	Root         *echo.Group
	Management   *echo.Group
	APIV1Routes  *echo.Group
	APIV1Wallets *echo.Group
}

// Server keeps the HTTP dependencies together. Components are wired by
// hand in cmd/server; handlers only ever reach them through this
// struct.
type Server struct {
	Config config.Server
	Echo   *echo.Echo
	Router *Router
	Engine engine.Service
}

func NewServer(cfg config.Server, eng engine.Service) *Server {
	return &Server{Config: cfg, Engine: eng}
}

func (s *Server) Ready() bool {
	return s.Echo != nil && s.Router != nil && s.Engine != nil
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}
	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return errors.Wrap(err, "failed to start echo server")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Warn().Msg("Shutting down server")

	if s.Echo != nil {
		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "failed to shutdown echo server")
		}
	}
	return nil
}

package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// InitRouter attaches middlewares and route groups to a fresh echo
// instance. Handler packages register their routes through AttachRoutes
// to avoid an import cycle with this package.
func (s *Server) InitRouter() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s.Echo = e
	s.Router = &Router{
		Root:         e.Group(""),
		Management:   e.Group("/-"),
		APIV1Routes:  e.Group("/api/v1/routes"),
		APIV1Wallets: e.Group("/api/v1/wallets"),
	}
}

// AttachRoutes registers the given route constructors.
func (s *Server) AttachRoutes(routes ...func(s *Server) *echo.Route) {
	for _, attach := range routes {
		s.Router.Routes = append(s.Router.Routes, attach(s))
	}
}

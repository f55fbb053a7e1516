// Package routes holds the route-execution endpoints.
package routes

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/routeforge/swap-executor/internal/api"
	"github.com/routeforge/swap-executor/internal/routing"
)

// PostExecuteStepPayload is the request body: the user whose custodial
// wallet signs, plus one step of a quoted route.
type PostExecuteStepPayload struct {
	UserID string             `json:"userId"`
	Step   *routing.RouteStep `json:"step"`
}

func PostExecuteStepRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Routes.POST("/execute", postExecuteStepHandler(s))
}

func postExecuteStepHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body PostExecuteStepPayload
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
		}
		if strings.TrimSpace(body.UserID) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
		}
		if body.Step == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "step is required")
		}

		// The engine never errors; failures come back as a structured
		// result with a user-safe message.
		result := s.Engine.ExecuteStep(ctx, body.UserID, body.Step)
		return c.JSON(http.StatusOK, result)
	}
}

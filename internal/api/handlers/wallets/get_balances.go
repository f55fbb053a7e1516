// Package wallets holds the custodial-wallet query endpoints.
package wallets

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/routeforge/swap-executor/internal/api"
	"github.com/routeforge/swap-executor/internal/credstore"
	"github.com/routeforge/swap-executor/internal/vault"
)

func GetBalancesRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallets.GET("/:userId/balances", getBalancesHandler(s))
}

func getBalancesHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		userID := c.Param("userId")
		if userID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
		}

		balances, err := s.Engine.NativeBalances(ctx, userID)
		if err != nil {
			if errors.Is(err, credstore.ErrNotFound) || errors.Is(err, vault.ErrInvalidCredentials) {
				return echo.NewHTTPError(http.StatusNotFound, "wallet not found")
			}
			log.Warn().Err(err).Str("userId", userID).Msg("Failed to fetch native balances")
			return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch balances")
		}
		return c.JSON(http.StatusOK, balances)
	}
}

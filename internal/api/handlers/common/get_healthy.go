package common

import (
	"context"
	"net/http"
	"time"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/labstack/echo/v4"
)

const healthTimeout = 5 * time.Second

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// Health check
// Returns 200 once the active chain's node is reachable and serves the configured chain.
func getHealthyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(StatusNotReady, "Not ready.")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()

		if err := s.Provider.Healthy(ctx); err != nil {
			util.LogFromContext(ctx).Warn().Err(err).Msg("Health check failed")
			return c.String(StatusNotReady, "Unhealthy.")
		}

		return c.String(http.StatusOK, "Healthy.")
	}
}

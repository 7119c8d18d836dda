package common

import (
	"net/http"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/labstack/echo/v4"
)

// StatusNotReady is answered by the management endpoints while the server cannot serve requests.
const StatusNotReady = 521

func GetReadyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/ready", getReadyHandler(s))
}

// Readiness check
// This endpoint returns 200 when our Service is ready to serve traffic (i.e. the provider is initialized)
func getReadyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(StatusNotReady, "Not ready.")
		}

		return c.String(http.StatusOK, "Ready.")
	}
}

package common

import (
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func GetMetricsRoute(s *api.Server) *echo.Route {
	return s.Router.Root.GET("/metrics", getMetricsHandler(s))
}

func getMetricsHandler(s *api.Server) echo.HandlerFunc {
	handler := echo.WrapHandler(promhttp.Handler())

	return func(c echo.Context) error {
		if !s.Config.Metrics.Enabled {
			return echo.ErrNotFound
		}

		return handler(c)
	}
}

package handlers

import (
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api/handlers/common"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api/handlers/confirmation"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api/handlers/rpc"
	"github.com/labstack/echo/v4"
)

func AttachAllRoutes(s *api.Server) {
	// attach our routes
	s.Router.Routes = []*echo.Route{
		common.GetHealthyRoute(s),
		common.GetMetricsRoute(s),
		common.GetReadyRoute(s),
		confirmation.GetPendingRoute(s),
		confirmation.GetWebsocketRoute(s),
		rpc.GetEventsRoute(s),
		rpc.PostRPCRoute(s),
	}
}

package confirmation

import (
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func GetWebsocketRoute(s *api.Server) *echo.Route {
	return s.Router.Confirmation.GET("/ws/:token", getWebsocketHandler(s))
}

// getWebsocketHandler connects a confirmation page to the window waiting for it.
func getWebsocketHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := s.Opener.Serve(c.Request().Context(), c.Response(), c.Request(), c.Param("token"))
		if errors.Is(err, api.ErrUnknownBridgeToken) {
			return echo.ErrNotFound
		}

		return err
	}
}

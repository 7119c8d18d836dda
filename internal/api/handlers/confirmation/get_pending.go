package confirmation

import (
	"net/http"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/labstack/echo/v4"
)

type GetPendingResponse struct {
	Windows []api.PendingWindow `json:"windows"`
}

func GetPendingRoute(s *api.Server) *echo.Route {
	return s.Router.Confirmation.GET("/pending", getPendingHandler(s))
}

func getPendingHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, &GetPendingResponse{Windows: s.Opener.Pending()})
	}
}

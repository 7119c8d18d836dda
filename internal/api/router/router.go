package router

import (
	"net/http"
	"time"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api/handlers"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/metrics"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const headerRequestID = echo.HeaderXRequestID

// Init attaches the middleware chain and every route to a new echo instance on s.
func Init(s *api.Server) error {
	s.Echo = echo.New()

	s.Echo.Debug = s.Config.Echo.Debug
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Logger.SetOutput(&echoLogger{level: util.LogLevelFromString(s.Config.Logger.RequestLevel), log: log.With().Str("component", "echo").Logger()})

	s.Echo.Pre(middleware.RemoveTrailingSlash())

	s.Echo.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			util.LogFromContext(c.Request().Context()).Error().Err(err).Bytes("stack", stack).Msg("Recovered from panic")
			return err
		},
	}))
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(requestLogger(util.LogLevelFromString(s.Config.Logger.RequestLevel)))

	if s.Config.Metrics.Enabled {
		s.Echo.Use(metrics.Middleware())
	}

	s.Router = &api.Router{
		Routes: nil,
		Root:   s.Echo.Group(""),

		// management endpoints (health, readiness, metrics) live under /-/
		Management: s.Echo.Group("/-"),

		RPC:          s.Echo.Group("/rpc"),
		Confirmation: s.Echo.Group("/confirmation"),
	}

	handlers.AttachAllRoutes(s)

	return nil
}

// requestLogger stores a request scoped logger in the request context and logs every completed request.
func requestLogger(level zerolog.Level) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			reqID := res.Header().Get(headerRequestID)
			l := log.With().
				Str("id", reqID).
				Str("method", req.Method).
				Str("url", req.URL.String()).
				Logger()

			c.SetRequest(req.WithContext(util.ContextWithLogger(req.Context(), l)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := res.Status
			event := l.WithLevel(level)
			if status >= http.StatusInternalServerError {
				event = l.Error().Err(err)
			}

			event.
				Int("status", status).
				Int64("bytes_out", res.Size).
				Dur("duration_ms", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("Request")

			return nil
		}
	}
}

// echoLogger forwards echo's internal log output to zerolog.
type echoLogger struct {
	level zerolog.Level
	log   zerolog.Logger
}

func (l *echoLogger) Write(p []byte) (int, error) {
	l.log.WithLevel(l.level).Msg(string(p))
	return len(p), nil
}

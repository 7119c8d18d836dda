// Package metrics holds the prometheus collectors of the provider and its HTTP gateway.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCRequestsTotal counts provider requests by JSON-RPC method and resulting error code (0 on success).
	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "passport_rpc_requests_total",
		Help: "Total number of provider JSON-RPC requests.",
	}, []string{"method", "code"})

	// RelayerPollAttemptsTotal counts transaction status polls by outcome.
	RelayerPollAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "passport_relayer_poll_attempts_total",
		Help: "Total number of relayer transaction status polls.",
	}, []string{"result"})

	// GuardianEvaluationsTotal counts guardian evaluations by kind and outcome.
	GuardianEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "passport_guardian_evaluations_total",
		Help: "Total number of guardian risk evaluations.",
	}, []string{"kind", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "passport_http_request_duration_seconds",
		Help:    "HTTP request latency distributions.",
		Buckets: []float64{0.1, 0.3, 0.5, 1.0, 2.0, 5.0, 30.0},
	}, []string{"method", "path", "status"})
)

const (
	PollResultPending = "pending"
	PollResultSuccess = "success"
	PollResultFailure = "failure"
	PollResultTimeout = "timeout"
	PollResultError   = "error"

	OutcomeAllowed   = "allowed"
	OutcomeConfirmed = "confirmed"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// ObserveRPCRequest records one provider request. code is 0 for successful requests.
func ObserveRPCRequest(method string, code int) {
	RPCRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// Middleware records the latency of every routed request, using the route template as path.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				return err
			}

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok { //nolint:errorlint
					status = he.Code
				}
			}

			HTTPRequestDuration.
				WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}

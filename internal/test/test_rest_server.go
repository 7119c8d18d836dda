package test

import (
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
)

// RESTCall is one HTTP request received by a RESTServer.
type RESTCall struct {
	Method        string
	Path          string
	Query         string
	Body          []byte
	Authorization string
}

// RESTServer is an echo based HTTP server recording every request before routing it.
type RESTServer struct {
	*httptest.Server
	Echo *echo.Echo

	mu    sync.Mutex
	calls []RESTCall
}

func WithTestRESTServer(t *testing.T, closure func(s *RESTServer)) {
	t.Helper()

	closure(NewTestRESTServer(t))
}

// NewTestRESTServer starts a RESTServer that is closed when the test ends. Routes are added on Echo.
func NewTestRESTServer(t *testing.T) *RESTServer {
	t.Helper()

	s := &RESTServer{Echo: echo.New()}
	s.Echo.HideBanner = true
	s.Echo.Pre(s.record)

	s.Server = httptest.NewServer(s.Echo)
	t.Cleanup(s.Close)

	return s
}

// Calls returns the recorded requests for path, or all requests when path is empty.
func (s *RESTServer) Calls(path string) []RESTCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]RESTCall, 0, len(s.calls))
	for _, c := range s.calls {
		if path == "" || c.Path == path {
			result = append(result, c)
		}
	}

	return result
}

func (s *RESTServer) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		body, err := io.ReadAll(req.Body)
		if err != nil {
			return err
		}
		req.Body = io.NopCloser(bytesReader(body))

		s.mu.Lock()
		s.calls = append(s.calls, RESTCall{
			Method:        req.Method,
			Path:          req.URL.Path,
			Query:         req.URL.RawQuery,
			Body:          body,
			Authorization: req.Header.Get(echo.HeaderAuthorization),
		})
		s.mu.Unlock()

		return next(c)
	}
}

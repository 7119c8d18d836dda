package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
)

// RPCCall is one JSON-RPC request received by an RPCServer.
type RPCCall struct {
	Method        string
	Params        []json.RawMessage
	Authorization string
}

// RPCError is returned by an RPCHandler to answer with a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

type RPCHandler func(params []json.RawMessage) (any, error)

// RPCServer is a JSON-RPC 2.0 endpoint that records every call. Methods without a handler answer -32601.
type RPCServer struct {
	*httptest.Server

	mu       sync.Mutex
	calls    []RPCCall
	handlers map[string]RPCHandler
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func WithTestRPCServer(t *testing.T, closure func(s *RPCServer)) {
	t.Helper()

	closure(NewTestRPCServer(t))
}

// NewTestRPCServer starts an RPCServer that is closed when the test ends.
func NewTestRPCServer(t *testing.T) *RPCServer {
	t.Helper()

	s := &RPCServer{handlers: map[string]RPCHandler{}}

	e := echo.New()
	e.HideBanner = true
	e.POST("/*", s.serve)

	s.Server = httptest.NewServer(e)
	t.Cleanup(s.Close)

	return s
}

// Handle registers h for method, replacing any previous handler.
func (s *RPCServer) Handle(method string, h RPCHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[method] = h
}

// HandleResult answers method with a fixed result.
func (s *RPCServer) HandleResult(method string, result any) {
	s.Handle(method, func([]json.RawMessage) (any, error) { return result, nil })
}

// Calls returns the recorded calls of method, or all calls when method is empty.
func (s *RPCServer) Calls(method string) []RPCCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]RPCCall, 0, len(s.calls))
	for _, c := range s.calls {
		if method == "" || c.Method == method {
			result = append(result, c)
		}
	}

	return result
}

func (s *RPCServer) serve(c echo.Context) error {
	var req rpcRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, rpcResponse{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: -32700, Message: err.Error()},
		})
	}

	s.mu.Lock()
	s.calls = append(s.calls, RPCCall{
		Method:        req.Method,
		Params:        req.Params,
		Authorization: c.Request().Header.Get(echo.HeaderAuthorization),
	})
	h, ok := s.handlers[req.Method]
	s.mu.Unlock()

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if !ok {
		resp.Error = &RPCError{Code: -32601, Message: "method not found: " + req.Method}
		return c.JSON(http.StatusOK, resp)
	}

	result, err := h(req.Params)
	if err != nil {
		rpcErr, isRPCErr := err.(*RPCError) //nolint:errorlint
		if !isRPCErr {
			rpcErr = &RPCError{Code: -32000, Message: err.Error()}
		}
		resp.Error = rpcErr

		return c.JSON(http.StatusOK, resp)
	}

	if result == nil {
		result = json.RawMessage("null")
	}
	resp.Result = result

	return c.JSON(http.StatusOK, resp)
}

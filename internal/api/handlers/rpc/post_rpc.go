package rpc

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/provider"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/rpcerr"
	"github.com/labstack/echo/v4"
)

const jsonRPCVersion = "2.0"

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response carries either Result or Error. Result is always present on success, null included.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcerr.Error   `json:"error,omitempty"`
}

func PostRPCRoute(s *api.Server) *echo.Route {
	return s.Router.RPC.POST("", postRPCHandler(s))
}

func postRPCHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusOK, errorResponse(nil, rpcerr.New(rpcerr.CodeParseError, "failed to read request body")))
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			return c.JSON(http.StatusOK, errorResponse(nil, rpcerr.New(rpcerr.CodeParseError, "parse error")))
		}

		if req.JSONRPC != jsonRPCVersion || req.Method == "" {
			return c.JSON(http.StatusOK, errorResponse(req.ID, rpcerr.New(rpcerr.CodeInvalidRequest, "invalid request")))
		}

		result, err := s.Provider.Request(ctx, provider.RequestArguments{
			Method: req.Method,
			Params: req.Params,
		})
		if err != nil {
			return c.JSON(http.StatusOK, errorResponse(req.ID, rpcerr.From(err)))
		}

		raw, err := json.Marshal(result)
		if err != nil {
			return c.JSON(http.StatusOK, errorResponse(req.ID, rpcerr.Internal("failed to encode result")))
		}

		return c.JSON(http.StatusOK, &Response{
			JSONRPC: jsonRPCVersion,
			ID:      idOrNull(req.ID),
			Result:  raw,
		})
	}
}

func errorResponse(id json.RawMessage, err *rpcerr.Error) *Response {
	return &Response{
		JSONRPC: jsonRPCVersion,
		ID:      idOrNull(id),
		Error:   err,
	}
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}

	return id
}

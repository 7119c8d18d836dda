// Package rpcerr holds the typed JSON-RPC error surfaced by the provider.
package rpcerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is a JSON-RPC / EIP-1193 error code.
type Code int

const (
	CodeUnauthorized        Code = 4100
	CodeUnsupportedMethod   Code = 4200
	CodeInvalidParams       Code = -32602
	CodeInternalError       Code = -32603
	CodeTransactionRejected Code = -32003
	CodeRPCServerError      Code = -32000

	// envelope errors of the HTTP gateway
	CodeParseError     Code = -32700
	CodeInvalidRequest Code = -32600
)

func (c Code) String() string {
	switch c {
	case CodeUnauthorized:
		return "UNAUTHORIZED"
	case CodeUnsupportedMethod:
		return "UNSUPPORTED_METHOD"
	case CodeInvalidParams:
		return "INVALID_PARAMS"
	case CodeInternalError:
		return "INTERNAL_ERROR"
	case CodeTransactionRejected:
		return "TRANSACTION_REJECTED"
	case CodeRPCServerError:
		return "RPC_SERVER_ERROR"
	case CodeParseError:
		return "PARSE_ERROR"
	case CodeInvalidRequest:
		return "INVALID_REQUEST"
	default:
		return fmt.Sprintf("CODE_%d", int(c))
	}
}

// Error is returned by every provider method that fails.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, int(e.Code), e.Message)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *Error        { return New(CodeUnauthorized, message) }
func UnsupportedMethod(message string) *Error   { return New(CodeUnsupportedMethod, message) }
func InvalidParams(message string) *Error       { return New(CodeInvalidParams, message) }
func Internal(message string) *Error            { return New(CodeInternalError, message) }
func TransactionRejected(message string) *Error { return New(CodeTransactionRejected, message) }
func ServerError(message string) *Error         { return New(CodeRPCServerError, message) }

// Wrap converts err into an Error with the given code unless it already carries one.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return err
	}

	return Newf(code, "%s: %v", message, err)
}

// From is the request boundary: typed errors pass through unchanged, anything else becomes INTERNAL_ERROR.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	return Internal(err.Error())
}

// CodeOf returns the code carried by err, or INTERNAL_ERROR.
func CodeOf(err error) Code {
	return From(err).Code
}

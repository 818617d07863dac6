package mockserver

import "errors"

var (
	ErrNotListening = errors.New("mockserver: not listening")
	ErrListening    = errors.New("mockserver: already listening")
)

// JSON-RPC and Electrum error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeBadRequest     = 1
	codeDaemonError    = 2
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }

func badRequest(msg string) *rpcError { return &rpcError{Code: codeBadRequest, Message: msg} }

func invalidParams(msg string) *rpcError { return &rpcError{Code: codeInvalidParams, Message: msg} }

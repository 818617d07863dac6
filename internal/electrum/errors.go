package electrum

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParam is returned when a param (scripthash, txid, version)
	// cannot be decoded.
	ErrInvalidParam = errors.New("electrum: invalid param")
	// ErrMethodNotFound is returned for method names outside the protocol.
	ErrMethodNotFound = errors.New("electrum: method not found")
	// ErrBatchParsing wraps any failure while parsing a batch response.
	ErrBatchParsing = errors.New("electrum: batch parsing failed")
	// ErrWrongMethod is returned for a notification whose method is not a
	// subscription.
	ErrWrongMethod = errors.New("electrum: unexpected notification method")
)

// ResponseParsingError reports a response that matched a request id but
// whose body does not fit the shape of the request's method.
type ResponseParsingError struct {
	Method Method
	Raw    string
	Err    error
}

func (e *ResponseParsingError) Error() string {
	return fmt.Sprintf("electrum: cannot parse %s response %q: %v", e.Method, e.Raw, e.Err)
}

func (e *ResponseParsingError) Unwrap() error { return e.Err }

// RawResponseParsingError reports a line that is not a JSON-RPC object at all.
type RawResponseParsingError struct {
	Raw string
	Err error
}

func (e *RawResponseParsingError) Error() string {
	return fmt.Sprintf("electrum: fail to parse %q: %v", e.Raw, e.Err)
}

func (e *RawResponseParsingError) Unwrap() error { return e.Err }

// ResponseIDError reports a response id with no matching request in the index.
type ResponseIDError struct {
	ID uint64
}

func (e *ResponseIDError) Error() string {
	return fmt.Sprintf("electrum: no request with id %d", e.ID)
}

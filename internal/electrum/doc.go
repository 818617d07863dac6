// Package electrum models the Electrum JSON-RPC protocol (version 1.4).
//
// It contains the wire vocabulary only: method names, positional params,
// request constructors, typed responses and the parser that turns a raw
// server line into responses. Nothing in here touches the network; see
// internal/transport for the connection and internal/services/session for
// request/response correlation.
//
// # Parsing
//
// A server line is either a single JSON-RPC object or a batch (JSON array).
// Objects carrying an "error" member become *ErrorResponse. Objects with a
// "method" and no "id" are server push notifications. Everything else is a
// response to one of our requests, and is decoded according to the method of
// the request registered under the same id in an Index.
package electrum

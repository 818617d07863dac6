// Package transport provides the raw Electrum connection: line-delimited
// JSON-RPC over plain TCP or TLS.
//
// A Client is configured with a host and port, then connected. Each live
// connection runs one background reader that splits the stream on newlines
// and buffers lines in a bounded channel. Receiving takes from that channel,
// which is what allows both a blocking receive with a read timeout (RecvRaw)
// and a non-blocking peek (TryRecvRaw).
//
// Writes are serialized per connection so a request line is never
// interleaved with another. Clone returns a second handle on the same live
// connection: a request sent on one handle may be answered on the other, so
// callers sharing a connection need their own correlation (see
// internal/services/session).
//
// Errors are the sentinels below, wrapped with context; match them with
// errors.Is.
package transport

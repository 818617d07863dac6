// Package mockserver is an in-memory Electrum server for development and
// tests.
//
// It speaks the same line-delimited JSON-RPC as electrs or ElectrumX over TCP
// or TLS, answers single and batch requests, and pushes subscription
// notifications. State (headers, transactions, per-scripthash history,
// balances and utxos, fees, peers) is seeded through setters and held in
// memory only. There is no indexing: the server answers exactly what it was
// told.
//
// Behaviour
//
//   - Scripthash status follows the Electrum protocol: the hex SHA-256 of the
//     concatenated "tx_hash:height:" strings of the history, or null for an
//     empty history.
//   - AddHeader on a new tip notifies every connection subscribed with
//     blockchain.headers.subscribe; SetHistory notifies connections
//     subscribed to that scripthash.
//   - Lines that are not JSON get a parse error with a null id. Unknown
//     methods get a method-not-found error.
//   - blockchain.transaction.broadcast decodes the transaction and indexes it
//     by its txid; it is not validated otherwise.
//   - Requests are counted per method in a Prometheus counter (Collector).
package mockserver

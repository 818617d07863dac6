// Package session correlates Electrum requests with their responses over a
// single transport.
//
// It assigns request ids, keeps the id → request index the parser needs,
// and runs one pump goroutine that receives lines, parses them and hands
// each response to the caller waiting on its id. Server push notifications
// (header and scripthash subscriptions) go to a bounded channel instead.
// Typed helpers wrap every Electrum method.
package session

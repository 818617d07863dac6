package interfaces

import (
	"context"

	"electrumsmart/internal/electrum"
)

// Transport is a line-oriented connection to an Electrum server.
type Transport interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Send(req electrum.Request) error
	SendBatch(reqs []electrum.Request) error
	RecvRaw(ctx context.Context) (string, error)
	Close() error
}

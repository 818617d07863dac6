package interfaces

import (
	"context"

	domaintypes "electrumsmart/internal/domain/types"
	"electrumsmart/internal/electrum"
)

// SessionService correlates requests and responses over one Transport.
type SessionService interface {
	Call(ctx context.Context, req electrum.Request) (electrum.Response, error)
	Batch(ctx context.Context, reqs []electrum.Request) ([]electrum.Response, error)
	Notifications() <-chan electrum.Response
	Close() error
}

// WatchService maintains the watch-list against a server.
type WatchService interface {
	Add(label domaintypes.Label, script []byte) (domaintypes.WatchEntry, error)
	Remove(label domaintypes.Label) error
	List() ([]domaintypes.WatchEntry, error)
	Sync(ctx context.Context) ([]domaintypes.StatusChange, error)
	Listen(ctx context.Context, fn func(domaintypes.StatusChange)) error
}

package domain

import (
	interfaces "electrumsmart/internal/domain/interfaces"
	types "electrumsmart/internal/domain/types"
)

// Watch-list values, re-exported so the app and commands import only domain.
type (
	Label        = types.Label
	WatchEntry   = types.WatchEntry
	StatusChange = types.StatusChange
)

// Contracts between the app layer, the session, the watcher and its store.
type (
	Transport      = interfaces.Transport
	SessionService = interfaces.SessionService
	WatchService   = interfaces.WatchService
	WatchStore     = interfaces.WatchStore
)

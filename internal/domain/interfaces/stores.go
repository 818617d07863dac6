package interfaces

import (
	"time"

	domaintypes "electrumsmart/internal/domain/types"
	"electrumsmart/internal/electrum"
)

// WatchStore persists the watch-list.
type WatchStore interface {
	AddEntry(entry domaintypes.WatchEntry) error
	RemoveEntry(label domaintypes.Label) error
	GetEntry(label domaintypes.Label) (domaintypes.WatchEntry, bool, error)
	ListEntries() ([]domaintypes.WatchEntry, error)
	// UpdateStatus sets the status of every entry watching sh and returns the
	// entries whose status actually changed, with their previous status.
	UpdateStatus(
		sh electrum.ScriptHash,
		status *string,
		at time.Time,
	) ([]domaintypes.StatusChange, error)
}

package types

import (
	"encoding/hex"
	"time"

	"electrumsmart/internal/electrum"
)

// WatchEntry is one script on the watch-list together with the last
// scripthash status the server reported for it.
type WatchEntry struct {
	Label      Label               `json:"label"`
	Script     string              `json:"script"`
	ScriptHash electrum.ScriptHash `json:"scripthash"`
	// Status is nil while the script has no history.
	Status    *string   `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScriptBytes decodes the hex script.
func (e WatchEntry) ScriptBytes() ([]byte, error) { return hex.DecodeString(e.Script) }

// StatusChange records a status transition observed for a watched script.
type StatusChange struct {
	Entry    WatchEntry `json:"entry"`
	Previous *string    `json:"previous"`
}

package electrum_test

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"pgregory.net/rapid"

	"electrumsmart/internal/electrum"
)

// TestProperty_ScriptHashRoundTrip checks that the hex form parses back to
// the same hash for arbitrary scripts.
func TestProperty_ScriptHashRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		script := rapid.SliceOf(rapid.Byte()).Draw(rt, "script")
		sh := electrum.NewScriptHash(script)
		parsed, err := electrum.ParseScriptHash(sh.String())
		if err != nil {
			rt.Fatalf("parse: %v", err)
		}
		if parsed != sh {
			rt.Fatalf("round trip mismatch: %s != %s", parsed, sh)
		}
	})
}

// TestProperty_TxidReversal checks that display hex is the byte reverse of
// the internal representation.
func TestProperty_TxidReversal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(rt, "raw")
		var txid electrum.Txid
		copy(txid[:], raw)
		display, err := hex.DecodeString(txid.String())
		if err != nil {
			rt.Fatalf("decode display: %v", err)
		}
		for i := range raw {
			if display[i] != raw[len(raw)-1-i] {
				rt.Fatalf("byte %d not reversed", i)
			}
		}
	})
}

// TestProperty_BatchKeepsOrder checks that batch parsing returns one response
// per element in the order the server sent them.
func TestProperty_BatchKeepsOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ids := rapid.SliceOfNDistinct(rapid.Uint64Range(1, 1<<40), 1, 40, rapid.ID[uint64]).Draw(rt, "ids")
		index := electrum.Index{}
		items := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			index.Add(electrum.Banner().WithID(id))
			items = append(items, map[string]any{"jsonrpc": "2.0", "id": id, "result": "hello"})
		}
		raw, err := json.Marshal(items)
		if err != nil {
			rt.Fatalf("marshal: %v", err)
		}
		got, err := electrum.ParseResponses(string(raw), index)
		if err != nil {
			rt.Fatalf("parse: %v", err)
		}
		if len(got) != len(ids) {
			rt.Fatalf("got %d responses, want %d", len(got), len(ids))
		}
		for i, r := range got {
			b, ok := r.(*electrum.BannerResponse)
			if !ok || b.ID != ids[i] {
				rt.Fatalf("response %d = %#v, want banner id %d", i, r, ids[i])
			}
		}
	})
}

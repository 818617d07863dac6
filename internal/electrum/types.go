package electrum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ScriptHash is the Electrum address key: SHA-256 of an output script with
// its bytes reversed.
type ScriptHash [32]byte

// NewScriptHash hashes an output script.
func NewScriptHash(script []byte) ScriptHash {
	sum := sha256.Sum256(script)
	var sh ScriptHash
	for i := range sum {
		sh[i] = sum[len(sum)-1-i]
	}
	return sh
}

// ParseScriptHash decodes the 64-char hex form.
func ParseScriptHash(s string) (ScriptHash, error) {
	var sh ScriptHash
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(sh) {
		return sh, fmt.Errorf("%w: scripthash %q", ErrInvalidParam, s)
	}
	copy(sh[:], b)
	return sh, nil
}

func (sh ScriptHash) String() string { return hex.EncodeToString(sh[:]) }

func (sh ScriptHash) MarshalJSON() ([]byte, error) { return json.Marshal(sh.String()) }

func (sh *ScriptHash) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseScriptHash(s)
	if err != nil {
		return err
	}
	*sh = parsed
	return nil
}

// Txid is a transaction id. It is stored in internal byte order and printed
// byte-reversed, like every bitcoin hash.
type Txid chainhash.Hash

// ParseTxid decodes the 64-char display form.
func ParseTxid(s string) (Txid, error) {
	if len(s) != chainhash.MaxHashStringSize {
		return Txid{}, fmt.Errorf("%w: txid %q", ErrInvalidParam, s)
	}
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return Txid{}, fmt.Errorf("%w: txid %q: %v", ErrInvalidParam, s, err)
	}
	return Txid(*h), nil
}

// Hash returns the txid as a chainhash.Hash.
func (t Txid) Hash() chainhash.Hash { return chainhash.Hash(t) }

func (t Txid) String() string { return chainhash.Hash(t).String() }

func (t Txid) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *Txid) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTxid(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ProtocolVersion is either a single version ("1.4") or a [min, max] range.
// A single version leaves Min empty.
type ProtocolVersion struct {
	Min string
	Max string
}

// SingleVersion returns a non-range version.
func SingleVersion(v string) ProtocolVersion { return ProtocolVersion{Max: v} }

// ProtocolRange returns a [min, max] range.
func ProtocolRange(min, max string) ProtocolVersion { return ProtocolVersion{Min: min, Max: max} }

// IsRange reports whether v is a [min, max] pair.
func (v ProtocolVersion) IsRange() bool { return v.Min != "" }

func (v ProtocolVersion) String() string {
	if v.IsRange() {
		return v.Min + ".." + v.Max
	}
	return v.Max
}

// Lowest returns the smallest version v admits.
func (v ProtocolVersion) Lowest() string {
	if v.IsRange() {
		return v.Min
	}
	return v.Max
}

func (v ProtocolVersion) MarshalJSON() ([]byte, error) {
	if v.IsRange() {
		return json.Marshal([2]string{v.Min, v.Max})
	}
	return json.Marshal(v.Max)
}

func (v *ProtocolVersion) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*v = SingleVersion(single)
		return nil
	}
	var pair []string
	if err := json.Unmarshal(b, &pair); err != nil || len(pair) != 2 {
		return fmt.Errorf("%w: protocol version %s", ErrInvalidParam, b)
	}
	*v = ProtocolRange(pair[0], pair[1])
	return nil
}

package chain

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/txscript"
	//lint:ignore SA1019 HASH160 is defined over RIPEMD-160
	"golang.org/x/crypto/ripemd160"
)

// Hash160 returns RIPEMD160(SHA256(b)).
func Hash160(b []byte) []byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// P2WPKHScript returns the version 0 witness program paying to pubkey:
// OP_0 <hash160(pubkey)>.
func P2WPKHScript(pubkey []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(Hash160(pubkey)).
		Script()
}

// Fingerprint returns a short hex prefix of a script, for logs.
func Fingerprint(script []byte) string {
	sum := sha256.Sum256(script)
	return hex.EncodeToString(sum[:6])
}

package chain

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MerkleRoot folds an Electrum merkle branch (display hex, leaf to root)
// onto txid at position pos and returns the resulting root.
func MerkleRoot(txid chainhash.Hash, branch []string, pos uint64) (chainhash.Hash, error) {
	cur := txid
	var buf [chainhash.HashSize * 2]byte
	for i, s := range branch {
		sibling, err := chainhash.NewHashFromStr(s)
		if err != nil || len(s) != chainhash.MaxHashStringSize {
			return chainhash.Hash{}, fmt.Errorf("merkle branch %d: bad hash %q", i, s)
		}
		if pos&1 == 0 {
			copy(buf[:chainhash.HashSize], cur[:])
			copy(buf[chainhash.HashSize:], sibling[:])
		} else {
			copy(buf[:chainhash.HashSize], sibling[:])
			copy(buf[chainhash.HashSize:], cur[:])
		}
		cur = chainhash.DoubleHashH(buf[:])
		pos >>= 1
	}
	return cur, nil
}

// VerifyMerkle reports whether branch proves txid at pos under root.
func VerifyMerkle(txid chainhash.Hash, branch []string, pos uint64, root chainhash.Hash) (bool, error) {
	got, err := MerkleRoot(txid, branch, pos)
	if err != nil {
		return false, err
	}
	return got.IsEqual(&root), nil
}

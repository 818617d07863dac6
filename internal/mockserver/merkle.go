package mockserver

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"electrumsmart/internal/electrum"
)

func leaves(txids []electrum.Txid) []chainhash.Hash {
	level := make([]chainhash.Hash, len(txids))
	for i, txid := range txids {
		level[i] = txid.Hash()
	}
	return level
}

// nextLevel pads an odd level with its last node and hashes pairs.
func nextLevel(level []chainhash.Hash) ([]chainhash.Hash, []chainhash.Hash) {
	if len(level)%2 == 1 {
		level = append(level, level[len(level)-1])
	}
	next := make([]chainhash.Hash, len(level)/2)
	var buf [chainhash.HashSize * 2]byte
	for i := range next {
		copy(buf[:chainhash.HashSize], level[2*i][:])
		copy(buf[chainhash.HashSize:], level[2*i+1][:])
		next[i] = chainhash.DoubleHashH(buf[:])
	}
	return level, next
}

// merkleBranch returns the Electrum merkle branch (display hex, leaf to root)
// of the tx at pos.
func merkleBranch(txids []electrum.Txid, pos int) []string {
	level := leaves(txids)
	branch := []string{}
	for len(level) > 1 {
		padded, next := nextLevel(level)
		branch = append(branch, padded[pos^1].String())
		level = next
		pos >>= 1
	}
	return branch
}

// MerkleRoot returns the merkle root of a block's txids, for building
// headers that match the seeded blocks.
func MerkleRoot(txids []electrum.Txid) chainhash.Hash {
	if len(txids) == 0 {
		return chainhash.Hash{}
	}
	level := leaves(txids)
	for len(level) > 1 {
		_, level = nextLevel(level)
	}
	return level[0]
}

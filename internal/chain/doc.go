// Package chain holds the bitcoin primitives the client needs around the
// Electrum protocol.
//
// Contents
//
//   - HASH160 and P2WPKH output scripts (Hash160, P2WPKHScript)
//   - Address decoding into output scripts per network (ScriptForAddress,
//     Network)
//   - Raw 80-byte header decoding (DecodeHeader, DecodeHeaders)
//   - Merkle branch verification against a header (VerifyMerkle)
//
// # Notes
//
// Hashes cross this package in internal byte order as chainhash.Hash values.
// Electrum sends them as display (byte-reversed) hex; conversion happens at
// the edges with chainhash.NewHashFromStr.
package chain

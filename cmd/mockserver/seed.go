package main

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"electrumsmart/internal/electrum"
	"electrumsmart/internal/mockserver"
)

// seedGenesis loads the mainnet genesis block: its header as the tip, the
// coinbase transaction, and the coinbase output script's history, balance
// and utxo.
func seedGenesis(srv *mockserver.Server) error {
	block := chaincfg.MainNetParams.GenesisBlock

	var header bytes.Buffer
	if err := block.Header.Serialize(&header); err != nil {
		return err
	}
	srv.AddHeader(0, hex.EncodeToString(header.Bytes()))

	coinbase := block.Transactions[0]
	var raw bytes.Buffer
	if err := coinbase.Serialize(&raw); err != nil {
		return err
	}
	txid := electrum.Txid(coinbase.TxHash())
	srv.AddTransaction(txid, hex.EncodeToString(raw.Bytes()))
	srv.SetBlockTxids(0, []electrum.Txid{txid})

	out := coinbase.TxOut[0]
	sh := electrum.NewScriptHash(out.PkScript)
	srv.SetHistory(sh, []electrum.HistoryItem{{Height: 0, Txid: txid}})
	srv.SetBalance(sh, electrum.Balance{Confirmed: out.Value})
	srv.SetUnspent(sh, []electrum.Utxo{{Height: 0, Txid: txid, Pos: 0, Value: uint64(out.Value)}})

	srv.SetBanner("electrumsmart mock server (genesis block only, " +
		btcutil.Amount(out.Value).String() + " at the coinbase script)")
	return nil
}

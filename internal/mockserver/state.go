package mockserver

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"

	"electrumsmart/internal/electrum"
)

// MaxHeaders caps blockchain.block.headers like electrs does.
const MaxHeaders = 2016

const (
	defaultBanner   = "Welcome to the electrumsmart mock server"
	defaultSoftware = "mockserver/1.0"
	// ProtocolVersion is the only protocol version the server accepts.
	ProtocolVersion = "1.4"
)

// state is everything the server answers from. Guarded by Server.mu.
type state struct {
	banner   string
	software string
	genesis  string
	donation *string

	headers map[uint64]string
	tip     uint64
	hasTip  bool

	txs    map[electrum.Txid]string
	blocks map[uint64][]electrum.Txid

	history  map[electrum.ScriptHash][]electrum.HistoryItem
	unspent  map[electrum.ScriptHash][]electrum.Utxo
	balances map[electrum.ScriptHash]electrum.Balance

	fee       electrum.Fee
	relayFee  electrum.Fee
	histogram []electrum.FeeBucket
	peers     []electrum.Peer
}

func newState() state {
	return state{
		banner:    defaultBanner,
		software:  defaultSoftware,
		genesis:   chaincfg.MainNetParams.GenesisHash.String(),
		headers:   make(map[uint64]string),
		txs:       make(map[electrum.Txid]string),
		blocks:    make(map[uint64][]electrum.Txid),
		history:   make(map[electrum.ScriptHash][]electrum.HistoryItem),
		unspent:   make(map[electrum.ScriptHash][]electrum.Utxo),
		balances:  make(map[electrum.ScriptHash]electrum.Balance),
		fee:       electrum.Fee{Rate: 0.0001, Known: true},
		relayFee:  electrum.Fee{Rate: 0.00001, Known: true},
		histogram: []electrum.FeeBucket{},
		peers:     []electrum.Peer{},
	}
}

// Status computes the Electrum scripthash status of history, nil when empty.
func Status(history []electrum.HistoryItem) *string {
	if len(history) == 0 {
		return nil
	}
	var b strings.Builder
	for _, item := range history {
		b.WriteString(item.Txid.String())
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(item.Height, 10))
		b.WriteByte(':')
	}
	sum := sha256.Sum256([]byte(b.String()))
	status := hex.EncodeToString(sum[:])
	return &status
}

// orderHistory sorts confirmed items by height, then mempool items, as
// Electrum servers return them.
func orderHistory(items []electrum.HistoryItem) []electrum.HistoryItem {
	out := append([]electrum.HistoryItem(nil), items...)
	rank := func(h int64) int64 {
		if h <= 0 {
			return 1<<62 - h
		}
		return h
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i].Height) < rank(out[j].Height) })
	return out
}

// SetBanner sets the server.banner reply.
func (s *Server) SetBanner(banner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.banner = banner
}

// SetSoftware sets the server software name reported by server.version and
// server.features.
func (s *Server) SetSoftware(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.software = name
}

// SetDonation sets the donation address; nil clears it.
func (s *Server) SetDonation(addr *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.donation = addr
}

func (s *Server) SetFee(fee electrum.Fee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.fee = fee
}

func (s *Server) SetRelayFee(fee electrum.Fee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.relayFee = fee
}

func (s *Server) SetHistogram(buckets []electrum.FeeBucket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.histogram = append([]electrum.FeeBucket{}, buckets...)
}

func (s *Server) SetPeers(peers []electrum.Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.peers = append([]electrum.Peer{}, peers...)
}

// AddTransaction stores a raw transaction under txid.
func (s *Server) AddTransaction(txid electrum.Txid, rawHex string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.txs[txid] = rawHex
}

// SetBlockTxids sets the ordered txids of the block at height, which backs
// get_merkle and id_from_pos.
func (s *Server) SetBlockTxids(height uint64, txids []electrum.Txid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.blocks[height] = append([]electrum.Txid(nil), txids...)
}

func (s *Server) SetBalance(sh electrum.ScriptHash, bal electrum.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.balances[sh] = bal
}

func (s *Server) SetUnspent(sh electrum.ScriptHash, utxos []electrum.Utxo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.unspent[sh] = append([]electrum.Utxo{}, utxos...)
}

// SetHistory replaces the history of sh and notifies subscribers when the
// status changed.
func (s *Server) SetHistory(sh electrum.ScriptHash, items []electrum.HistoryItem) {
	s.mu.Lock()
	before := Status(s.state.history[sh])
	ordered := orderHistory(items)
	s.state.history[sh] = ordered
	after := Status(ordered)
	s.mu.Unlock()

	if sameStatus(before, after) {
		return
	}
	s.notifyScriptHash(sh, after)
}

// AddHeader stores a raw header. A header above the current tip becomes the
// new tip and is pushed to header subscribers.
func (s *Server) AddHeader(height uint64, rawHex string) {
	s.mu.Lock()
	s.state.headers[height] = rawHex
	newTip := !s.state.hasTip || height > s.state.tip
	if newTip {
		s.state.tip, s.state.hasTip = height, true
	}
	s.mu.Unlock()

	if newTip {
		s.notifyHeader(electrum.HeaderInfo{Height: height, Hex: rawHex})
	}
}

// ScriptStatus returns the current status of sh.
func (s *Server) ScriptStatus(sh electrum.ScriptHash) *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status(s.state.history[sh])
}

func sameStatus(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

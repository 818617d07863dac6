package mockserver

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/wire"
	"github.com/hashicorp/go-version"

	"electrumsmart/internal/electrum"
)

type incoming struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type okReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

type errReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   *rpcError       `json:"error"`
}

var nullID = json.RawMessage("null")

// handleLine answers one request line, single or batch.
func (s *Server) handleLine(pc *peerConn, line []byte) []byte {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return s.encode(errReply{"2.0", nullID, &rpcError{Code: codeParseError, Message: "parse error"}})
		}
		if len(items) == 0 {
			return s.encode(errReply{"2.0", nullID, &rpcError{Code: codeInvalidRequest, Message: "empty batch"}})
		}
		out := make([]json.RawMessage, 0, len(items))
		for _, item := range items {
			out = append(out, s.handleOne(pc, item))
		}
		return s.encode(out)
	}
	return s.handleOne(pc, trimmed)
}

func (s *Server) handleOne(pc *peerConn, raw []byte) []byte {
	var req incoming
	if err := json.Unmarshal(raw, &req); err != nil {
		s.requests.WithLabelValues("invalid", "error").Inc()
		return s.encode(errReply{"2.0", nullID, &rpcError{Code: codeParseError, Message: "parse error"}})
	}
	id := req.ID
	if len(id) == 0 {
		id = nullID
	}
	method, err := electrum.ParseMethod(req.Method)
	if err != nil {
		s.requests.WithLabelValues("unknown", "error").Inc()
		return s.encode(errReply{"2.0", id, &rpcError{
			Code:    codeMethodNotFound,
			Message: fmt.Sprintf("unknown method %q", req.Method),
		}})
	}

	result, rerr := s.dispatch(pc, method, req.Params)
	if rerr != nil {
		s.requests.WithLabelValues(method.String(), "error").Inc()
		return s.encode(errReply{"2.0", id, rerr})
	}
	s.requests.WithLabelValues(method.String(), "ok").Inc()
	return s.encode(okReply{"2.0", id, result})
}

func (s *Server) encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode reply", "err", err)
		b, _ = json.Marshal(errReply{"2.0", nullID, &rpcError{Code: codeDaemonError, Message: "internal error"}})
	}
	return b
}

func (s *Server) dispatch(pc *peerConn, method electrum.Method, params []json.RawMessage) (any, *rpcError) {
	switch method {
	case electrum.MethodPing:
		return nil, nil
	case electrum.MethodVersion:
		return s.version(params)
	case electrum.MethodBanner:
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.state.banner, nil
	case electrum.MethodDonation:
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.state.donation, nil
	case electrum.MethodFeatures:
		return s.features(), nil
	case electrum.MethodListPeers:
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.state.peers, nil
	case electrum.MethodBlockHeader:
		return s.header(params)
	case electrum.MethodBlockHeaders:
		return s.headers(params)
	case electrum.MethodEstimateFee:
		if _, err := paramUint(params, 0); err != nil {
			return nil, err
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.state.fee, nil
	case electrum.MethodRelayFee:
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.state.relayFee, nil
	case electrum.MethodFeeHistogram:
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.state.histogram, nil
	case electrum.MethodHeadersSubscribe:
		return s.subscribeHeaders(pc)
	case electrum.MethodScriptHashGetBalance,
		electrum.MethodScriptHashGetHistory,
		electrum.MethodScriptHashGetMempool,
		electrum.MethodScriptHashListUnspent,
		electrum.MethodScriptHashSubscribe,
		electrum.MethodScriptHashUnsubscribe:
		sh, err := paramScriptHash(params, 0)
		if err != nil {
			return nil, err
		}
		return s.scriptHash(pc, method, sh), nil
	case electrum.MethodTransactionGet:
		return s.transaction(params)
	case electrum.MethodTransactionGetMerkle:
		return s.merkle(params)
	case electrum.MethodTransactionFromPos:
		return s.idFromPos(params)
	case electrum.MethodTransactionBroadcast:
		return s.broadcast(params)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method %q", method)}
	}
}

func (s *Server) version(params []json.RawMessage) (any, *rpcError) {
	if len(params) > 1 {
		var requested electrum.ProtocolVersion
		if err := json.Unmarshal(params[1], &requested); err != nil {
			return nil, invalidParams("bad protocol version")
		}
		if !accepts(requested, ProtocolVersion) {
			return nil, badRequest(fmt.Sprintf("unsupported protocol version: %s", requested))
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return []string{s.state.software, ProtocolVersion}, nil
}

// accepts reports whether want lies within the client's requested range.
func accepts(requested electrum.ProtocolVersion, want string) bool {
	w, err := version.NewVersion(want)
	if err != nil {
		return false
	}
	lo, err := version.NewVersion(requested.Lowest())
	if err != nil {
		return false
	}
	hi, err := version.NewVersion(requested.Max)
	if err != nil {
		return false
	}
	return !w.LessThan(lo) && !w.GreaterThan(hi)
}

func (s *Server) features() electrum.FeaturesResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	host := electrum.Host{}
	if port := s.Port(); port != 0 {
		p := electrum.Port(fmt.Sprint(port))
		host.TCPPort = &p
	}
	return electrum.FeaturesResult{
		GenesisHash:   s.state.genesis,
		Hosts:         electrum.Hosts{Single: &host},
		ProtocolMax:   ProtocolVersion,
		ProtocolMin:   ProtocolVersion,
		ServerVersion: s.state.software,
		HashFunction:  "sha256",
	}
}

func (s *Server) header(params []json.RawMessage) (any, *rpcError) {
	height, err := paramUint(params, 0)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.state.headers[height]
	if !ok {
		return nil, badRequest(fmt.Sprintf("height %d out of range", height))
	}
	return raw, nil
}

func (s *Server) headers(params []json.RawMessage) (any, *rpcError) {
	start, err := paramUint(params, 0)
	if err != nil {
		return nil, err
	}
	count, err := paramUint(params, 1)
	if err != nil {
		return nil, err
	}
	count = min(count, MaxHeaders)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var b strings.Builder
	var got uint64
	for h := start; got < count; h++ {
		raw, ok := s.state.headers[h]
		if !ok {
			break
		}
		b.WriteString(raw)
		got++
	}
	return electrum.HeadersResult{Count: got, Hex: b.String(), Max: MaxHeaders}, nil
}

func (s *Server) subscribeHeaders(pc *peerConn) (any, *rpcError) {
	s.mu.RLock()
	tip, ok := s.state.tip, s.state.hasTip
	raw := s.state.headers[tip]
	s.mu.RUnlock()
	if !ok {
		return nil, &rpcError{Code: codeDaemonError, Message: "no headers yet"}
	}
	pc.subMu.Lock()
	pc.headers = true
	pc.subMu.Unlock()
	return electrum.HeaderInfo{Height: tip, Hex: raw}, nil
}

func (s *Server) scriptHash(pc *peerConn, method electrum.Method, sh electrum.ScriptHash) any {
	switch method {
	case electrum.MethodScriptHashSubscribe:
		pc.subMu.Lock()
		pc.scripts[sh] = struct{}{}
		pc.subMu.Unlock()
		return s.ScriptStatus(sh)
	case electrum.MethodScriptHashUnsubscribe:
		pc.subMu.Lock()
		defer pc.subMu.Unlock()
		_, ok := pc.scripts[sh]
		delete(pc.scripts, sh)
		return ok
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	switch method {
	case electrum.MethodScriptHashGetBalance:
		return s.state.balances[sh]
	case electrum.MethodScriptHashGetHistory:
		return nonNil(s.state.history[sh])
	case electrum.MethodScriptHashGetMempool:
		var pending []electrum.HistoryItem
		for _, item := range s.state.history[sh] {
			if item.Height <= 0 {
				pending = append(pending, item)
			}
		}
		return nonNil(pending)
	default:
		return nonNil(s.state.unspent[sh])
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *Server) transaction(params []json.RawMessage) (any, *rpcError) {
	txid, err := paramTxid(params, 0)
	if err != nil {
		return nil, err
	}
	verbose := false
	if len(params) > 1 {
		if json.Unmarshal(params[1], &verbose) != nil {
			return nil, invalidParams("verbose must be a boolean")
		}
	}
	s.mu.RLock()
	raw, ok := s.state.txs[txid]
	s.mu.RUnlock()
	if !ok {
		return nil, &rpcError{Code: codeDaemonError, Message: "No such mempool or blockchain transaction"}
	}
	if !verbose {
		return raw, nil
	}
	tx, derr := decodeTx(raw)
	if derr != nil {
		return nil, &rpcError{Code: codeDaemonError, Message: derr.Error()}
	}
	return electrum.VerboseTx{
		Hash:     tx.WitnessHash().String(),
		Hex:      raw,
		LockTime: tx.LockTime,
		Size:     uint64(len(raw) / 2),
		Txid:     txid,
		Version:  tx.Version,
		VSize:    uint64((tx.SerializeSizeStripped()*3 + tx.SerializeSize() + 3) / 4),
		Weight:   uint64(tx.SerializeSizeStripped()*3 + tx.SerializeSize()),
	}, nil
}

func (s *Server) merkle(params []json.RawMessage) (any, *rpcError) {
	txid, err := paramTxid(params, 0)
	if err != nil {
		return nil, err
	}
	height, err := paramUint(params, 1)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	txids := s.state.blocks[height]
	s.mu.RUnlock()
	for pos, candidate := range txids {
		if candidate == txid {
			return electrum.MerkleProof{
				Merkle:      merkleBranch(txids, pos),
				BlockHeight: height,
				Pos:         uint64(pos),
			}, nil
		}
	}
	return nil, badRequest(fmt.Sprintf("tx %s not in block at height %d", txid, height))
}

func (s *Server) idFromPos(params []json.RawMessage) (any, *rpcError) {
	height, err := paramUint(params, 0)
	if err != nil {
		return nil, err
	}
	pos, err := paramUint(params, 1)
	if err != nil {
		return nil, err
	}
	withMerkle := false
	if len(params) > 2 {
		if json.Unmarshal(params[2], &withMerkle) != nil {
			return nil, invalidParams("merkle must be a boolean")
		}
	}
	s.mu.RLock()
	txids := s.state.blocks[height]
	s.mu.RUnlock()
	if pos >= uint64(len(txids)) {
		return nil, badRequest(fmt.Sprintf("no tx at position %d in block at height %d", pos, height))
	}
	out := electrum.TxFromPos{Txid: txids[pos]}
	if withMerkle {
		out.Merkle = merkleBranch(txids, int(pos))
	}
	return out, nil
}

func (s *Server) broadcast(params []json.RawMessage) (any, *rpcError) {
	var raw string
	if len(params) < 1 || json.Unmarshal(params[0], &raw) != nil {
		return nil, invalidParams("expected raw transaction hex")
	}
	tx, err := decodeTx(raw)
	if err != nil {
		return nil, badRequest("the transaction was rejected by network rules.\n\n" + err.Error())
	}
	txid := electrum.Txid(tx.TxHash())
	s.AddTransaction(txid, strings.ToLower(raw))
	s.log.Info("broadcast", "txid", txid.String())
	return txid, nil
}

func decodeTx(rawHex string) (*wire.MsgTx, error) {
	b, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("decode tx hex: %w", err)
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	return &tx, nil
}

func paramUint(params []json.RawMessage, i int) (uint64, *rpcError) {
	if i >= len(params) {
		return 0, invalidParams(fmt.Sprintf("missing param %d", i))
	}
	var v uint64
	if err := json.Unmarshal(params[i], &v); err != nil {
		return 0, invalidParams(fmt.Sprintf("param %d: expected non-negative integer", i))
	}
	return v, nil
}

func paramScriptHash(params []json.RawMessage, i int) (electrum.ScriptHash, *rpcError) {
	if i >= len(params) {
		return electrum.ScriptHash{}, invalidParams(fmt.Sprintf("missing param %d", i))
	}
	var sh electrum.ScriptHash
	if err := json.Unmarshal(params[i], &sh); err != nil {
		return electrum.ScriptHash{}, invalidParams("invalid scripthash")
	}
	return sh, nil
}

func paramTxid(params []json.RawMessage, i int) (electrum.Txid, *rpcError) {
	if i >= len(params) {
		return electrum.Txid{}, invalidParams(fmt.Sprintf("missing param %d", i))
	}
	var txid electrum.Txid
	if err := json.Unmarshal(params[i], &txid); err != nil {
		return electrum.Txid{}, invalidParams("invalid tx hash")
	}
	return txid, nil
}

package electrum

import "encoding/json"

const jsonRPCVersion = "2.0"

// Params is the positional parameter list of a request. A nil Params
// encodes as [] since servers reject a null params member.
type Params []any

func (p Params) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]any(p))
}

// Request is one JSON-RPC call. Field order matches what Electrum servers
// and the tests expect on the wire.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  Method `json:"method"`
	Params  Params `json:"params"`
}

func newRequest(method Method, params ...any) Request {
	p := Params(params)
	if p == nil {
		p = Params{}
	}
	return Request{JSONRPC: jsonRPCVersion, Method: method, Params: p}
}

// NewRequest builds a request for any known method with raw params. The
// typed constructors below cover every method; this is for tooling that
// takes params from the user.
func NewRequest(method Method, params ...any) Request { return newRequest(method, params...) }

// WithID returns a copy of r carrying id.
func (r Request) WithID(id uint64) Request {
	r.ID = id
	return r
}

// Marshal encodes r as a single JSON line without the trailing newline.
func (r Request) Marshal() ([]byte, error) { return json.Marshal(r) }

func (r Request) String() string {
	b, err := r.Marshal()
	if err != nil {
		return ""
	}
	return string(b)
}

// MarshalBatch encodes reqs as a JSON array.
func MarshalBatch(reqs []Request) ([]byte, error) {
	if reqs == nil {
		reqs = []Request{}
	}
	return json.Marshal(reqs)
}

func Ping() Request { return newRequest(MethodPing) }

// Version announces the client and a single protocol version.
func Version(clientName, version string) Request {
	return newRequest(MethodVersion, clientName, SingleVersion(version))
}

// VersionRange announces the client and an accepted [min, max] range.
func VersionRange(clientName, min, max string) Request {
	return newRequest(MethodVersion, clientName, ProtocolRange(min, max))
}

func Banner() Request { return newRequest(MethodBanner) }

func Donation() Request { return newRequest(MethodDonation) }

func Features() Request { return newRequest(MethodFeatures) }

func SubscribePeers() Request { return newRequest(MethodListPeers) }

func RelayFee() Request { return newRequest(MethodRelayFee) }

func FeeHistogram() Request { return newRequest(MethodFeeHistogram) }

func SubscribeHeaders() Request { return newRequest(MethodHeadersSubscribe) }

// Header requests the raw header at height. cp_height is never sent.
func Header(height uint64) Request { return newRequest(MethodBlockHeader, height) }

// Headers requests count consecutive headers from start.
func Headers(start, count uint64) Request {
	return newRequest(MethodBlockHeaders, start, count)
}

// EstimateFee asks for the fee rate (BTC/kB) to confirm within target blocks.
func EstimateFee(target uint16) Request { return newRequest(MethodEstimateFee, target) }

func ScriptHashGetBalance(script []byte) Request {
	return newRequest(MethodScriptHashGetBalance, NewScriptHash(script))
}

func ScriptHashGetHistory(script []byte) Request {
	return newRequest(MethodScriptHashGetHistory, NewScriptHash(script))
}

func ScriptHashGetMempool(script []byte) Request {
	return newRequest(MethodScriptHashGetMempool, NewScriptHash(script))
}

func ScriptHashListUnspent(script []byte) Request {
	return newRequest(MethodScriptHashListUnspent, NewScriptHash(script))
}

func ScriptHashSubscribe(script []byte) Request {
	return newRequest(MethodScriptHashSubscribe, NewScriptHash(script))
}

func ScriptHashUnsubscribe(script []byte) Request {
	return newRequest(MethodScriptHashUnsubscribe, NewScriptHash(script))
}

// TransactionBroadcast submits a hex-encoded raw transaction.
func TransactionBroadcast(rawTxHex string) Request {
	return newRequest(MethodTransactionBroadcast, rawTxHex)
}

func TransactionGet(txid Txid) Request { return newRequest(MethodTransactionGet, txid) }

// TransactionGetVerbose asks for the decoded transaction object.
func TransactionGetVerbose(txid Txid) Request {
	return newRequest(MethodTransactionGet, txid, true)
}

// TransactionGetMerkle asks for the merkle branch of txid in the block at
// height.
func TransactionGetMerkle(txid Txid, height uint64) Request {
	return newRequest(MethodTransactionGetMerkle, txid, height)
}

// TransactionFromPosition asks for the txid at pos in the block at height,
// with its merkle branch when merkle is set.
func TransactionFromPosition(height, pos uint64, merkle bool) Request {
	return newRequest(MethodTransactionFromPos, height, pos, merkle)
}

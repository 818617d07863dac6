package electrum

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Response is any parsed server message. The concrete types below are
// returned as pointers; use a type switch to inspect them.
type Response interface {
	isResponse()
}

// Envelope carries the id shared by every reply to a request.
type Envelope struct {
	ID uint64 `json:"id"`
}

// RequestID returns the id of the request this reply answers.
func (e Envelope) RequestID() uint64 { return e.ID }

func (Envelope) isResponse() {}

// ErrorResult is the JSON-RPC error member.
type ErrorResult struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is a server-reported failure. A null id decodes as 0.
type ErrorResponse struct {
	Envelope
	Err ErrorResult `json:"error"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("electrum: server error %d: %s", e.Err.Code, e.Err.Message)
}

// HeaderInfo is a block height with its raw 80-byte header in hex.
type HeaderInfo struct {
	Height uint64 `json:"height"`
	Hex    string `json:"hex"`
}

// HeaderNotification is pushed after blockchain.headers.subscribe whenever
// the tip changes.
type HeaderNotification struct {
	Method  Method       `json:"method"`
	Headers []HeaderInfo `json:"params"`
}

func (*HeaderNotification) isResponse() {}

func (n HeaderNotification) MarshalJSON() ([]byte, error) {
	headers := n.Headers
	if headers == nil {
		headers = []HeaderInfo{}
	}
	return json.Marshal(struct {
		JSONRPC string       `json:"jsonrpc"`
		Method  Method       `json:"method"`
		Params  []HeaderInfo `json:"params"`
	}{jsonRPCVersion, MethodHeadersSubscribe, headers})
}

// ScriptHashNotification is pushed for a subscribed scripthash whose status
// changed. Status is nil when the history became empty.
type ScriptHashNotification struct {
	Method     Method
	ScriptHash ScriptHash
	Status     *string
}

func (*ScriptHashNotification) isResponse() {}

func (n *ScriptHashNotification) UnmarshalJSON(b []byte) error {
	var raw struct {
		Method Method            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.Params) != 2 {
		return fmt.Errorf("scripthash notification: want 2 params, got %d", len(raw.Params))
	}
	var sh ScriptHash
	if err := json.Unmarshal(raw.Params[0], &sh); err != nil {
		return err
	}
	var status *string
	if err := json.Unmarshal(raw.Params[1], &status); err != nil {
		return err
	}
	*n = ScriptHashNotification{Method: raw.Method, ScriptHash: sh, Status: status}
	return nil
}

func (n ScriptHashNotification) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		JSONRPC string `json:"jsonrpc"`
		Method  Method `json:"method"`
		Params  Params `json:"params"`
	}{jsonRPCVersion, MethodScriptHashSubscribe, Params{n.ScriptHash, n.Status}})
}

type PingResponse struct {
	Envelope
}

type BannerResponse struct {
	Envelope
	Banner string `json:"result"`
}

// HeaderResponse carries one raw header in hex.
type HeaderResponse struct {
	Envelope
	Header string `json:"result"`
}

// HeadersResult is a run of concatenated raw headers. Count may be lower than
// requested near the tip; Max is the server's per-call limit.
type HeadersResult struct {
	Count uint64 `json:"count"`
	Hex   string `json:"hex"`
	Max   uint64 `json:"max"`
}

type HeadersResponse struct {
	Envelope
	Headers HeadersResult `json:"result"`
}

// HeadersSubscribeResponse is the current tip returned on subscription.
type HeadersSubscribeResponse struct {
	Envelope
	Header HeaderInfo `json:"result"`
}

// VersionResponse is the reply to server.version.
type VersionResponse struct {
	Envelope
	ServerSoftware string
	Protocol       ProtocolVersion
}

func (r *VersionResponse) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID     uint64            `json:"id"`
		Result []json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.Result) != 2 {
		return fmt.Errorf("version: want [software, protocol], got %d items", len(raw.Result))
	}
	var software string
	if err := json.Unmarshal(raw.Result[0], &software); err != nil {
		return err
	}
	var protocol ProtocolVersion
	if err := json.Unmarshal(raw.Result[1], &protocol); err != nil {
		return err
	}
	*r = VersionResponse{Envelope: Envelope{ID: raw.ID}, ServerSoftware: software, Protocol: protocol}
	return nil
}

// VerboseTx is the decoded form of blockchain.transaction.get with verbose
// set. Inputs and outputs are left raw since their shape is bitcoind's.
type VerboseTx struct {
	BlockHash     string          `json:"blockhash,omitempty"`
	BlockTime     uint64          `json:"blocktime,omitempty"`
	Confirmations uint64          `json:"confirmations,omitempty"`
	Hash          string          `json:"hash,omitempty"`
	Hex           string          `json:"hex"`
	LockTime      uint32          `json:"locktime"`
	Size          uint64          `json:"size"`
	Time          uint64          `json:"time,omitempty"`
	Txid          Txid            `json:"txid"`
	Version       int32           `json:"version"`
	VSize         uint64          `json:"vsize,omitempty"`
	Weight        uint64          `json:"weight,omitempty"`
	Vin           json.RawMessage `json:"vin,omitempty"`
	Vout          json.RawMessage `json:"vout,omitempty"`
}

// TxResult is either the raw hex (Verbose nil) or the verbose object.
type TxResult struct {
	Raw     string
	Verbose *VerboseTx
}

func (t *TxResult) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err == nil {
		*t = TxResult{Raw: raw}
		return nil
	}
	var verbose VerboseTx
	if err := json.Unmarshal(b, &verbose); err != nil {
		return err
	}
	*t = TxResult{Raw: verbose.Hex, Verbose: &verbose}
	return nil
}

func (t TxResult) MarshalJSON() ([]byte, error) {
	if t.Verbose != nil {
		return json.Marshal(t.Verbose)
	}
	return json.Marshal(t.Raw)
}

type TransactionGetResponse struct {
	Envelope
	Tx TxResult `json:"result"`
}

// ScriptHashSubscribeResponse carries the current status, nil for an empty
// history.
type ScriptHashSubscribeResponse struct {
	Envelope
	Status *string `json:"result"`
}

type ScriptHashUnsubscribeResponse struct {
	Envelope
	Removed bool `json:"result"`
}

// Balance is in satoshis; Unconfirmed may be negative.
type Balance struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
}

type BalanceResponse struct {
	Envelope
	Balance Balance `json:"result"`
}

// HistoryItem is one transaction touching a scripthash. Height is 0 for a
// mempool tx with confirmed inputs and -1 for one with unconfirmed inputs.
type HistoryItem struct {
	Height int64   `json:"height"`
	Txid   Txid    `json:"tx_hash"`
	Fee    *uint64 `json:"fee,omitempty"`
}

type HistoryResponse struct {
	Envelope
	History []HistoryItem `json:"result"`
}

type MempoolResponse struct {
	Envelope
	Mempool []HistoryItem `json:"result"`
}

// Utxo is an unspent output of a scripthash.
type Utxo struct {
	Height int64  `json:"height"`
	Txid   Txid   `json:"tx_hash"`
	Pos    uint32 `json:"tx_pos"`
	Value  uint64 `json:"value"`
}

type ListUnspentResponse struct {
	Envelope
	Unspent []Utxo `json:"result"`
}

// Port is a server port. Servers send it as a number or as a string.
type Port string

func (p *Port) UnmarshalJSON(b []byte) error {
	var n uint16
	if err := json.Unmarshal(b, &n); err == nil {
		*p = Port(strconv.FormatUint(uint64(n), 10))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("port: %s", b)
	}
	*p = Port(s)
	return nil
}

func (p Port) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseUint(string(p), 10, 16); err == nil {
		return json.Marshal(n)
	}
	return json.Marshal(string(p))
}

// Host lists the ports a server listens on.
type Host struct {
	TCPPort *Port `json:"tcp_port,omitempty"`
	SSLPort *Port `json:"ssl_port,omitempty"`
}

// Hosts is either a single Host or a map of host name to Host.
type Hosts struct {
	Single *Host
	ByName map[string]Host
}

func (h *Hosts) UnmarshalJSON(b []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return err
	}
	single := true
	for k := range keys {
		if k != "tcp_port" && k != "ssl_port" {
			single = false
			break
		}
	}
	if single {
		var host Host
		if err := json.Unmarshal(b, &host); err != nil {
			return err
		}
		*h = Hosts{Single: &host}
		return nil
	}
	var byName map[string]Host
	if err := json.Unmarshal(b, &byName); err != nil {
		return err
	}
	*h = Hosts{ByName: byName}
	return nil
}

func (h Hosts) MarshalJSON() ([]byte, error) {
	if h.Single != nil {
		return json.Marshal(h.Single)
	}
	if h.ByName == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(h.ByName)
}

// FeaturesResult is the reply to server.features.
type FeaturesResult struct {
	GenesisHash   string   `json:"genesis_hash"`
	Hosts         Hosts    `json:"hosts"`
	ProtocolMax   string   `json:"protocol_max"`
	ProtocolMin   string   `json:"protocol_min"`
	Pruning       *uint64  `json:"pruning"`
	ServerVersion string   `json:"server_version"`
	HashFunction  string   `json:"hash_function"`
	Services      []string `json:"services,omitempty"`
}

type FeaturesResponse struct {
	Envelope
	Features FeaturesResult `json:"result"`
}

type BroadcastResponse struct {
	Envelope
	Txid Txid `json:"result"`
}

// DonationResponse carries the server's donation address, if any.
type DonationResponse struct {
	Envelope
	Address *string `json:"result"`
}

// Fee is a rate in BTC/kB. Servers answer -1 when they cannot estimate;
// that decodes as Known false.
type Fee struct {
	Rate  float64
	Known bool
}

func (f *Fee) UnmarshalJSON(b []byte) error {
	var rate float64
	if err := json.Unmarshal(b, &rate); err != nil {
		return err
	}
	if rate < 0 {
		*f = Fee{}
		return nil
	}
	*f = Fee{Rate: rate, Known: true}
	return nil
}

func (f Fee) MarshalJSON() ([]byte, error) {
	if !f.Known {
		return []byte("-1"), nil
	}
	return json.Marshal(f.Rate)
}

// SatPerVByte converts the rate to sat/vB.
func (f Fee) SatPerVByte() float64 { return f.Rate * 1e5 }

func (f Fee) String() string {
	if !f.Known {
		return "unknown"
	}
	return strconv.FormatFloat(f.Rate, 'g', -1, 64)
}

type EstimateFeeResponse struct {
	Envelope
	Fee Fee `json:"result"`
}

type RelayFeeResponse struct {
	Envelope
	Fee Fee `json:"result"`
}

// FeeBucket is one [fee_rate, vsize] histogram entry; fee rate in sat/vB.
type FeeBucket struct {
	FeeRate float64
	VSize   uint64
}

func (f *FeeBucket) UnmarshalJSON(b []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if pair[1] < 0 {
		return fmt.Errorf("fee bucket: negative vsize %v", pair[1])
	}
	*f = FeeBucket{FeeRate: pair[0], VSize: uint64(pair[1])}
	return nil
}

func (f FeeBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{f.FeeRate, f.VSize})
}

type FeeHistogramResponse struct {
	Envelope
	Histogram []FeeBucket `json:"result"`
}

// MerkleProof is the branch proving a tx is included at Pos in the block at
// BlockHeight. Branch hashes are in display (reversed) hex.
type MerkleProof struct {
	Merkle      []string `json:"merkle"`
	BlockHeight uint64   `json:"block_height"`
	Pos         uint64   `json:"pos"`
}

type MerkleResponse struct {
	Envelope
	Proof MerkleProof `json:"result"`
}

// TxFromPos is the txid at a block position, with the merkle branch when it
// was requested.
type TxFromPos struct {
	Txid   Txid     `json:"tx_hash"`
	Merkle []string `json:"merkle,omitempty"`
}

func (t *TxFromPos) UnmarshalJSON(b []byte) error {
	var txid Txid
	if err := json.Unmarshal(b, &txid); err == nil {
		*t = TxFromPos{Txid: txid}
		return nil
	}
	type plain TxFromPos
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = TxFromPos(p)
	return nil
}

func (t TxFromPos) MarshalJSON() ([]byte, error) {
	if t.Merkle == nil {
		return json.Marshal(t.Txid)
	}
	type plain TxFromPos
	return json.Marshal(plain(t))
}

type TxFromPosResponse struct {
	Envelope
	Result TxFromPos `json:"result"`
}

// Peer is one entry of server.peers.subscribe: [ip, host, [features]].
type Peer struct {
	IP       string
	Host     string
	Features []string
}

func (p *Peer) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("peer: want 3 items, got %d", len(raw))
	}
	var peer Peer
	if err := json.Unmarshal(raw[0], &peer.IP); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &peer.Host); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[2], &peer.Features); err != nil {
		return err
	}
	*p = peer
	return nil
}

func (p Peer) MarshalJSON() ([]byte, error) {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return json.Marshal([]any{p.IP, p.Host, features})
}

type PeersResponse struct {
	Envelope
	Peers []Peer `json:"result"`
}
